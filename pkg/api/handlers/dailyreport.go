package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/dailyreports"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
)

// DailyReportHandler handles daily report endpoints
type DailyReportHandler struct {
	reports   *dailyreports.Service
	validator *validator.Validate
}

// NewDailyReportHandler creates a new daily report handler
func NewDailyReportHandler(reportService *dailyreports.Service) *DailyReportHandler {
	return &DailyReportHandler{
		reports:   reportService,
		validator: validator.New(),
	}
}

// List returns daily reports matching the query filters
func (h *DailyReportHandler) List(c echo.Context) error {
	f := dailyreports.Filters{
		AgentID:  c.QueryParam("agent_id"),
		TeamType: c.QueryParam("team_type"),
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
	f.DateFrom, f.DateTo = from, to

	result, err := h.reports.List(c.Request().Context(), f)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID returns one daily report
func (h *DailyReportHandler) GetByID(c echo.Context) error {
	dr, err := h.reports.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, dr)
}

// SubmitReportRequest is the payload for POST /daily-reports. The metric
// fields must match the declared team_type; the service rejects any mismatch.
type SubmitReportRequest struct {
	ReportDate time.Time `json:"report_date" validate:"required"`
	TeamType   string    `json:"team_type" validate:"required,oneof=telesales linkedin cold_email"`

	OutreachCount  *int `json:"outreach_count"`
	ResponsesCount *int `json:"responses_count"`

	ConnectionsSent *int `json:"connections_sent"`
	MessagesSent    *int `json:"messages_sent"`
	RepliesReceived *int `json:"replies_received"`

	EmailsSent   *int `json:"emails_sent"`
	EmailsOpened *int `json:"emails_opened"`
	Bounces      *int `json:"bounces"`
}

// Submit records the authenticated agent's daily report
func (h *DailyReportHandler) Submit(c echo.Context) error {
	var req SubmitReportRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	actorID := middleware.UserID(c)
	dr, err := h.reports.Submit(c.Request().Context(), actorID, dailyreports.SubmitInput{
		AgentID:         actorID,
		ReportDate:      req.ReportDate,
		TeamType:        req.TeamType,
		OutreachCount:   req.OutreachCount,
		ResponsesCount:  req.ResponsesCount,
		ConnectionsSent: req.ConnectionsSent,
		MessagesSent:    req.MessagesSent,
		RepliesReceived: req.RepliesReceived,
		EmailsSent:      req.EmailsSent,
		EmailsOpened:    req.EmailsOpened,
		Bounces:         req.Bounces,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, dr)
}
