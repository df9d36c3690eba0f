package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/attendance"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
)

// AttendanceHandler handles attendance endpoints
type AttendanceHandler struct {
	attendance *attendance.Service
	validator  *validator.Validate
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(attendanceService *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{
		attendance: attendanceService,
		validator:  validator.New(),
	}
}

// List returns attendance records matching the query filters
func (h *AttendanceHandler) List(c echo.Context) error {
	f := attendance.Filters{
		UserID: c.QueryParam("user_id"),
		Status: c.QueryParam("status"),
	}
	if middleware.Role(c) == models.RoleAgent {
		f.UserID = middleware.UserID(c)
	}

	from, err := parseDateParam(c, "from")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	f.DateFrom, f.DateTo = from, to

	result, err := h.attendance.List(c.Request().Context(), f)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Today returns the authenticated user's attendance record for today, or
// null when there is none
func (h *AttendanceHandler) Today(c echo.Context) error {
	record, err := h.attendance.Today(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// CheckInRequest is the payload for POST /attendance/check-in
type CheckInRequest struct {
	Notes string `json:"notes"`
}

// CheckIn records the start of the user's work day
func (h *AttendanceHandler) CheckIn(c echo.Context) error {
	var req CheckInRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	record, err := h.attendance.CheckIn(c.Request().Context(), middleware.UserID(c), req.Notes)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, record)
}

// CheckOut records the end of the user's work day
func (h *AttendanceHandler) CheckOut(c echo.Context) error {
	record, err := h.attendance.CheckOut(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// MarkLeaveRequest is the payload for POST /attendance/leave
type MarkLeaveRequest struct {
	UserID string    `json:"user_id" validate:"required"`
	Date   time.Time `json:"date" validate:"required"`
	Notes  string    `json:"notes"`
}

// MarkLeave records a leave day for a user. Manager-only.
func (h *AttendanceHandler) MarkLeave(c echo.Context) error {
	var req MarkLeaveRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	record, err := h.attendance.MarkLeave(c.Request().Context(), middleware.UserID(c), req.UserID, req.Date, req.Notes)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, record)
}
