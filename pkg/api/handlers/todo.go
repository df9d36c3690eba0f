package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/todos"
)

// TodoHandler handles todo endpoints. Todos are always scoped to the
// authenticated user.
type TodoHandler struct {
	todos     *todos.Service
	validator *validator.Validate
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoService *todos.Service) *TodoHandler {
	return &TodoHandler{
		todos:     todoService,
		validator: validator.New(),
	}
}

// List returns the authenticated user's todos
func (h *TodoHandler) List(c echo.Context) error {
	f := todos.Filters{
		UserID: middleware.UserID(c),
		Status: c.QueryParam("status"),
	}

	from, err := parseDateParam(c, "due_from")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	to, err := parseDateParam(c, "due_to")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	f.DueFrom, f.DueTo = from, to

	result, err := h.todos.List(c.Request().Context(), f)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// CreateTodoRequest is the payload for POST /todos
type CreateTodoRequest struct {
	Title    string    `json:"title" validate:"required,min=1"`
	DueDate  time.Time `json:"due_date"`
	Priority string    `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// Create inserts a todo owned by the authenticated user
func (h *TodoHandler) Create(c echo.Context) error {
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	todo, err := h.todos.Create(c.Request().Context(), middleware.UserID(c), todos.CreateInput{
		Title:    req.Title,
		DueDate:  req.DueDate,
		Priority: req.Priority,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, todo)
}

// UpdateTodoRequest is the payload for PATCH /todos/:id
type UpdateTodoRequest struct {
	Title    *string    `json:"title"`
	DueDate  *time.Time `json:"due_date"`
	Status   *string    `json:"status"`
	Priority *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// Update applies a partial edit to a todo the user owns
func (h *TodoHandler) Update(c echo.Context) error {
	var req UpdateTodoRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	todo, err := h.todos.Update(c.Request().Context(), middleware.UserID(c), c.Param("id"), todos.UpdateInput{
		Title:    req.Title,
		DueDate:  req.DueDate,
		Status:   req.Status,
		Priority: req.Priority,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, todo)
}

// Delete removes a todo the user owns
func (h *TodoHandler) Delete(c echo.Context) error {
	if err := h.todos.Delete(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return errors.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
