package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/users"
)

// UserHandler handles user administration endpoints
type UserHandler struct {
	users     *users.Service
	validator *validator.Validate
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *users.Service) *UserHandler {
	return &UserHandler{
		users:     userService,
		validator: validator.New(),
	}
}

// List returns users matching the query filters
func (h *UserHandler) List(c echo.Context) error {
	result, err := h.users.List(c.Request().Context(), users.Filters{
		Role:      c.QueryParam("role"),
		ManagerID: c.QueryParam("manager_id"),
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID returns one user profile
func (h *UserHandler) GetByID(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUserRequest is the payload for PATCH /users/:id
type UpdateUserRequest struct {
	FullName  *string `json:"full_name"`
	Role      *string `json:"role" validate:"omitempty,oneof=agent manager super_admin"`
	ManagerID *string `json:"manager_id"`
}

// Update applies a partial profile edit. Admin-only.
func (h *UserHandler) Update(c echo.Context) error {
	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	user, err := h.users.Update(c.Request().Context(), middleware.UserID(c), c.Param("id"), users.UpdateInput{
		FullName:  req.FullName,
		Role:      req.Role,
		ManagerID: req.ManagerID,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
