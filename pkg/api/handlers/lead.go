package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/export"
	"github.com/pulsecrm/backend/pkg/leads"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
)

// LeadHandler handles lead endpoints
type LeadHandler struct {
	leads     *leads.Service
	export    *export.Service
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *leads.Service, exportService *export.Service) *LeadHandler {
	return &LeadHandler{
		leads:     leadService,
		export:    exportService,
		validator: validator.New(),
	}
}

func (h *LeadHandler) parseFilters(c echo.Context) (leads.Filters, error) {
	f := leads.Filters{
		AgentID:      c.QueryParam("agent_id"),
		StatusBucket: c.QueryParam("status"),
		LeadSource:   c.QueryParam("lead_source"),
	}

	// An agent only ever sees their own leads
	if middleware.Role(c) == models.RoleAgent {
		f.AgentID = middleware.UserID(c)
	}

	from, err := parseDateParam(c, "from")
	if err != nil {
		return f, err
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return f, err
	}
	f.CreatedFrom, f.CreatedTo = from, to
	return f, nil
}

// List returns leads matching the query filters
func (h *LeadHandler) List(c echo.Context) error {
	f, err := h.parseFilters(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	result, err := h.leads.List(c.Request().Context(), f)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID returns one lead
func (h *LeadHandler) GetByID(c echo.Context) error {
	lead, err := h.leads.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// CreateLeadRequest is the payload for POST /leads
type CreateLeadRequest struct {
	ClientName   string  `json:"client_name" validate:"required,min=2"`
	ClientEmail  string  `json:"client_email" validate:"omitempty,email"`
	ClientPhone  string  `json:"client_phone"`
	AgentID      *string `json:"agent_id"`
	StatusBucket string  `json:"status_bucket"`
	LeadSource   string  `json:"lead_source"`
	DealValue    float64 `json:"deal_value" validate:"gte=0"`
}

// Create inserts a lead
func (h *LeadHandler) Create(c echo.Context) error {
	var req CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	lead, err := h.leads.Create(c.Request().Context(), middleware.UserID(c), leads.CreateInput{
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		ClientPhone:  req.ClientPhone,
		AgentID:      req.AgentID,
		StatusBucket: req.StatusBucket,
		LeadSource:   req.LeadSource,
		DealValue:    req.DealValue,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, lead)
}

// UpdateLeadRequest is the payload for PATCH /leads/:id
type UpdateLeadRequest struct {
	ClientName   *string  `json:"client_name"`
	ClientEmail  *string  `json:"client_email" validate:"omitempty,email"`
	ClientPhone  *string  `json:"client_phone"`
	AgentID      *string  `json:"agent_id"`
	StatusBucket *string  `json:"status_bucket"`
	LeadSource   *string  `json:"lead_source"`
	DealValue    *float64 `json:"deal_value" validate:"omitempty,gte=0"`
}

// Update applies a partial edit to a lead
func (h *LeadHandler) Update(c echo.Context) error {
	var req UpdateLeadRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	lead, err := h.leads.Update(c.Request().Context(), middleware.UserID(c), c.Param("id"), leads.UpdateInput{
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		ClientPhone:  req.ClientPhone,
		AgentID:      req.AgentID,
		StatusBucket: req.StatusBucket,
		LeadSource:   req.LeadSource,
		DealValue:    req.DealValue,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// Export writes the filtered leads to a CSV or Excel file and streams it back
func (h *LeadHandler) Export(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = export.FormatCSV
	}

	f, err := h.parseFilters(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	res, err := h.export.Export(c.Request().Context(), format, f)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.Attachment(res.FilePath, res.FileName)
}
