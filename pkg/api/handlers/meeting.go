package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/meetings"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
)

// MeetingHandler handles meeting endpoints
type MeetingHandler struct {
	meetings  *meetings.Service
	validator *validator.Validate
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingService *meetings.Service) *MeetingHandler {
	return &MeetingHandler{
		meetings:  meetingService,
		validator: validator.New(),
	}
}

// List returns meetings matching the query filters
func (h *MeetingHandler) List(c echo.Context) error {
	f := meetings.Filters{
		LeadID:  c.QueryParam("lead_id"),
		AgentID: c.QueryParam("agent_id"),
		Status:  c.QueryParam("status"),
	}
	if middleware.Role(c) == models.RoleAgent {
		f.AgentID = middleware.UserID(c)
	}

	from, err := parseDateParam(c, "from")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	f.StartFrom, f.StartTo = from, to

	result, err := h.meetings.List(c.Request().Context(), f)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID returns one meeting
func (h *MeetingHandler) GetByID(c echo.Context) error {
	m, err := h.meetings.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// CreateMeetingRequest is the payload for POST /meetings
type CreateMeetingRequest struct {
	Title     string    `json:"title" validate:"required,min=2"`
	LeadID    string    `json:"lead_id" validate:"required"`
	AgentID   string    `json:"agent_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Location  string    `json:"location"`
	Notes     string    `json:"notes"`
}

// Create schedules a meeting
func (h *MeetingHandler) Create(c echo.Context) error {
	var req CreateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	m, err := h.meetings.Create(c.Request().Context(), middleware.UserID(c), meetings.CreateInput{
		Title:     req.Title,
		LeadID:    req.LeadID,
		AgentID:   req.AgentID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
		Notes:     req.Notes,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdateMeetingRequest is the payload for PATCH /meetings/:id
type UpdateMeetingRequest struct {
	Title     *string    `json:"title"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Location  *string    `json:"location"`
	Notes     *string    `json:"notes"`
	Status    *string    `json:"status"`
}

// Update applies a partial edit to a meeting
func (h *MeetingHandler) Update(c echo.Context) error {
	var req UpdateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	m, err := h.meetings.Update(c.Request().Context(), middleware.UserID(c), c.Param("id"), meetings.UpdateInput{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
		Notes:     req.Notes,
		Status:    req.Status,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// RescheduleMeetingRequest is the payload for POST /meetings/:id/reschedule
type RescheduleMeetingRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// Reschedule moves a meeting to a new window and resets it to Scheduled
func (h *MeetingHandler) Reschedule(c echo.Context) error {
	var req RescheduleMeetingRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	m, err := h.meetings.Reschedule(c.Request().Context(), middleware.UserID(c), c.Param("id"), req.StartTime, req.EndTime)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete removes a meeting
func (h *MeetingHandler) Delete(c echo.Context) error {
	if err := h.meetings.Delete(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return errors.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
