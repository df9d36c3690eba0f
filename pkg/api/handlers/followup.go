package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/followups"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
)

// FollowUpHandler handles follow-up endpoints
type FollowUpHandler struct {
	followUps *followups.Service
	validator *validator.Validate
}

// NewFollowUpHandler creates a new follow-up handler
func NewFollowUpHandler(followUpService *followups.Service) *FollowUpHandler {
	return &FollowUpHandler{
		followUps: followUpService,
		validator: validator.New(),
	}
}

// List returns follow-ups matching the query filters
func (h *FollowUpHandler) List(c echo.Context) error {
	f := followups.Filters{
		LeadID:  c.QueryParam("lead_id"),
		AgentID: c.QueryParam("agent_id"),
		Status:  c.QueryParam("status"),
	}
	if middleware.Role(c) == models.RoleAgent {
		f.AgentID = middleware.UserID(c)
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

	result, err := h.followUps.List(c.Request().Context(), f)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID returns one follow-up
func (h *FollowUpHandler) GetByID(c echo.Context) error {
	fu, err := h.followUps.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, fu)
}

// CreateFollowUpRequest is the payload for POST /followups
type CreateFollowUpRequest struct {
	LeadID  string    `json:"lead_id" validate:"required"`
	AgentID string    `json:"agent_id" validate:"required"`
	DueDate time.Time `json:"due_date" validate:"required"`
	Notes   string    `json:"notes"`
}

// Create inserts a follow-up in status Pending
func (h *FollowUpHandler) Create(c echo.Context) error {
	var req CreateFollowUpRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	fu, err := h.followUps.Create(c.Request().Context(), middleware.UserID(c), followups.CreateInput{
		LeadID:  req.LeadID,
		AgentID: req.AgentID,
		DueDate: req.DueDate,
		Notes:   req.Notes,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, fu)
}

// UpdateFollowUpRequest is the payload for PATCH /followups/:id
type UpdateFollowUpRequest struct {
	DueDate *time.Time `json:"due_date"`
	Status  *string    `json:"status"`
	Notes   *string    `json:"notes"`
}

// Update applies a partial edit, validating any status transition
func (h *FollowUpHandler) Update(c echo.Context) error {
	var req UpdateFollowUpRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	fu, err := h.followUps.Update(c.Request().Context(), middleware.UserID(c), c.Param("id"), followups.UpdateInput{
		DueDate: req.DueDate,
		Status:  req.Status,
		Notes:   req.Notes,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, fu)
}

// Delete removes a follow-up
func (h *FollowUpHandler) Delete(c echo.Context) error {
	if err := h.followUps.Delete(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return errors.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
