package followups

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// fakeStore is an in-memory Store
type fakeStore struct {
	rows map[string]models.FollowUp
	seq  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]models.FollowUp)}
}

func (f *fakeStore) List(ctx context.Context, filters Filters) ([]models.FollowUp, error) {
	out := []models.FollowUp{}
	for _, fu := range f.rows {
		if filters.AgentID != "" && fu.AgentID != filters.AgentID {
			continue
		}
		if filters.Status != "" && fu.Status != filters.Status {
			continue
		}
		out = append(out, fu)
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.FollowUp, error) {
	fu, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("follow-up")
	}
	return &fu, nil
}

func (f *fakeStore) Create(ctx context.Context, in CreateInput) (*models.FollowUp, error) {
	f.seq++
	fu := models.FollowUp{
		ID:        string(rune('0' + f.seq)),
		LeadID:    in.LeadID,
		AgentID:   in.AgentID,
		DueDate:   in.DueDate,
		Status:    models.StatusPending,
		Notes:     in.Notes,
		CreatedAt: time.Now(),
	}
	f.rows[fu.ID] = fu
	return &fu, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, in UpdateInput) (*models.FollowUp, error) {
	fu, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("follow-up")
	}
	if in.DueDate != nil {
		fu.DueDate = *in.DueDate
	}
	if in.Status != nil {
		fu.Status = *in.Status
	}
	if in.Notes != nil {
		fu.Notes = *in.Notes
	}
	f.rows[id] = fu
	return &fu, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return domain.NewNotFoundError("follow-up")
	}
	delete(f.rows, id)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, n domain.Notification) {}

func setupService(t *testing.T) (*Service, *fakeStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	log := logger.Default()
	qc := cache.NewQueryCache(client, log)
	pipeline := mutation.New(qc, nopNotifier{}, log)

	store := newFakeStore()
	return NewService(store, qc, pipeline, time.Minute), store
}

func TestService_CreateRequiresFields(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "mgr", CreateInput{LeadID: "lead-1"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))

	_, err = svc.Create(ctx, "mgr", CreateInput{LeadID: "lead-1", AgentID: "agent-1"})
	require.Error(t, err, "missing due date must fail before any write")
}

func TestService_StatusTransitions(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	fu, err := svc.Create(ctx, "mgr", CreateInput{
		LeadID:  "lead-1",
		AgentID: "agent-1",
		DueDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, fu.Status)

	completed := models.StatusCompleted
	fu, err = svc.Update(ctx, "mgr", fu.ID, UpdateInput{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, fu.Status)

	// A terminal follow-up cannot transition again
	cancelled := models.StatusCancelled
	_, err = svc.Update(ctx, "mgr", fu.ID, UpdateInput{Status: &cancelled})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConflict, domain.CodeOf(err))
}

func TestService_InvalidStatusRejected(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	fu, err := svc.Create(ctx, "mgr", CreateInput{
		LeadID:  "lead-1",
		AgentID: "agent-1",
		DueDate: time.Now(),
	})
	require.NoError(t, err)

	bogus := "Snoozed"
	_, err = svc.Update(ctx, "mgr", fu.ID, UpdateInput{Status: &bogus})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}

func TestService_ListReflectsUpdateAfterInvalidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	fu, err := svc.Create(ctx, "mgr", CreateInput{
		LeadID:  "lead-1",
		AgentID: "agent-1",
		DueDate: time.Now(),
	})
	require.NoError(t, err)

	// Prime the cached list
	listed, err := svc.List(ctx, Filters{AgentID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, models.StatusPending, listed[0].Status)

	// A successful update invalidates the prefix; the next read refetches
	completed := models.StatusCompleted
	_, err = svc.Update(ctx, "mgr", fu.ID, UpdateInput{Status: &completed})
	require.NoError(t, err)

	listed, err = svc.List(ctx, Filters{AgentID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, models.StatusCompleted, listed[0].Status)
}

func TestService_FailedUpdateLeavesCachedListUntouched(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	fu, err := svc.Create(ctx, "mgr", CreateInput{
		LeadID:  "lead-1",
		AgentID: "agent-1",
		DueDate: time.Now(),
	})
	require.NoError(t, err)

	_, err = svc.List(ctx, Filters{AgentID: "agent-1"})
	require.NoError(t, err)

	// Force a validation failure, then mutate the store behind the cache's
	// back to prove no refetch happened
	bogus := "Snoozed"
	_, err = svc.Update(ctx, "mgr", fu.ID, UpdateInput{Status: &bogus})
	require.Error(t, err)

	row := store.rows[fu.ID]
	row.Notes = "changed out of band"
	store.rows[fu.ID] = row

	listed, err := svc.List(ctx, Filters{AgentID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].Notes, "failed mutation must not invalidate cached reads")
}

func TestService_Delete(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	fu, err := svc.Create(ctx, "mgr", CreateInput{
		LeadID:  "lead-1",
		AgentID: "agent-1",
		DueDate: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "mgr", fu.ID))
	assert.Empty(t, store.rows)

	err = svc.Delete(ctx, "mgr", fu.ID)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
