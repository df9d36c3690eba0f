package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
	"github.com/pulsecrm/backend/pkg/todos"
)

type fakeTodoStore struct {
	rows map[string]models.Todo
}

func (f *fakeTodoStore) List(ctx context.Context, filters todos.Filters) ([]models.Todo, error) {
	out := []models.Todo{}
	for _, td := range f.rows {
		if filters.UserID != "" && td.UserID != filters.UserID {
			continue
		}
		if filters.Status != "" && td.Status != filters.Status {
			continue
		}
		out = append(out, td)
	}
	return out, nil
}

func (f *fakeTodoStore) Get(ctx context.Context, id string) (*models.Todo, error) {
	td, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("todo")
	}
	return &td, nil
}

func (f *fakeTodoStore) Create(ctx context.Context, in todos.CreateInput) (*models.Todo, error) {
	td := models.Todo{
		ID:       uuid.NewString(),
		UserID:   in.UserID,
		Title:    in.Title,
		DueDate:  in.DueDate,
		Status:   models.StatusPending,
		Priority: in.Priority,
	}
	f.rows[td.ID] = td
	return &td, nil
}

func (f *fakeTodoStore) Update(ctx context.Context, id string, in todos.UpdateInput) (*models.Todo, error) {
	td, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("todo")
	}
	if in.Title != nil {
		td.Title = *in.Title
	}
	if in.Status != nil {
		td.Status = *in.Status
	}
	f.rows[id] = td
	return &td, nil
}

func (f *fakeTodoStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return domain.NewNotFoundError("todo")
	}
	delete(f.rows, id)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, n domain.Notification) {}

func setupTodoHandler(t *testing.T) (*TodoHandler, *fakeTodoStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	log := logger.Default()
	qc := cache.NewQueryCache(client, log)
	pipeline := mutation.New(qc, nopNotifier{}, log)

	store := &fakeTodoStore{rows: make(map[string]models.Todo)}
	return NewTodoHandler(todos.NewService(store, qc, pipeline, time.Minute)), store
}

func newTodoContext(e *echo.Echo, method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextRole, models.RoleAgent)
	return c, rec
}

func TestTodoHandler_CreateScopedToUser(t *testing.T) {
	handler, _ := setupTodoHandler(t)
	e := echo.New()

	c, rec := newTodoContext(e, http.MethodPost, "/api/v1/todos",
		`{"title":"Call back the P1 lead","priority":"high"}`, "agent-1")

	require.NoError(t, handler.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var td models.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &td))
	assert.Equal(t, "agent-1", td.UserID)
	assert.Equal(t, models.StatusPending, td.Status)
	assert.Equal(t, "high", td.Priority)
}

func TestTodoHandler_CreateRequiresTitle(t *testing.T) {
	handler, store := setupTodoHandler(t)
	e := echo.New()

	c, rec := newTodoContext(e, http.MethodPost, "/api/v1/todos", `{"title":""}`, "agent-1")

	require.NoError(t, handler.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.rows)
}

func TestTodoHandler_ListReturnsOwnTodosOnly(t *testing.T) {
	handler, store := setupTodoHandler(t)
	e := echo.New()

	store.rows["t-1"] = models.Todo{ID: "t-1", UserID: "agent-1", Title: "mine", Status: models.StatusPending}
	store.rows["t-2"] = models.Todo{ID: "t-2", UserID: "agent-2", Title: "theirs", Status: models.StatusPending}

	c, rec := newTodoContext(e, http.MethodGet, "/api/v1/todos", "", "agent-1")

	require.NoError(t, handler.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []models.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "t-1", list[0].ID)
}

func TestTodoHandler_UpdateForeignTodoForbidden(t *testing.T) {
	handler, store := setupTodoHandler(t)
	e := echo.New()

	store.rows["t-2"] = models.Todo{ID: "t-2", UserID: "agent-2", Title: "theirs", Status: models.StatusPending}

	c, rec := newTodoContext(e, http.MethodPatch, "/api/v1/todos/t-2",
		`{"status":"Completed"}`, "agent-1")
	c.SetParamNames("id")
	c.SetParamValues("t-2")

	require.NoError(t, handler.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, models.StatusPending, store.rows["t-2"].Status)
}

func TestTodoHandler_DeleteRemovesTodo(t *testing.T) {
	handler, store := setupTodoHandler(t)
	e := echo.New()

	store.rows["t-1"] = models.Todo{ID: "t-1", UserID: "agent-1", Title: "mine", Status: models.StatusPending}

	c, rec := newTodoContext(e, http.MethodDelete, "/api/v1/todos/t-1", "", "agent-1")
	c.SetParamNames("id")
	c.SetParamValues("t-1")

	require.NoError(t, handler.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.rows)
}
