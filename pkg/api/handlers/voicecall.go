package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/voicecall"
)

// VoiceCallHandler handles voice-call session endpoints
type VoiceCallHandler struct {
	calls     *voicecall.Manager
	validator *validator.Validate
}

// NewVoiceCallHandler creates a new voice-call handler
func NewVoiceCallHandler(manager *voicecall.Manager) *VoiceCallHandler {
	return &VoiceCallHandler{
		calls:     manager,
		validator: validator.New(),
	}
}

// StartCallRequest is the payload for POST /calls
type StartCallRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// Start begins a voice call for the authenticated user
func (h *VoiceCallHandler) Start(c echo.Context) error {
	var req StartCallRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	session, err := h.calls.Start(c.Request().Context(), middleware.UserID(c), req.Phone)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// Current returns the user's persisted session, or null when none exists
func (h *VoiceCallHandler) Current(c echo.Context) error {
	session, err := h.calls.Current(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// Resume restarts status polling for a session that survived a reconnect
func (h *VoiceCallHandler) Resume(c echo.Context) error {
	session, err := h.calls.Resume(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// End terminates the user's active call
func (h *VoiceCallHandler) End(c echo.Context) error {
	session, err := h.calls.End(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, session)
}
