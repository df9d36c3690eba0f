package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/aihub"
	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/tickets"
)

// TicketHandler handles support hub endpoints. Tickets live on the AI
// microservice; filtering, sorting and pagination happen here.
type TicketHandler struct {
	tickets   *tickets.Service
	validator *validator.Validate
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ticketService *tickets.Service) *TicketHandler {
	return &TicketHandler{
		tickets:   ticketService,
		validator: validator.New(),
	}
}

// List returns one page of tickets after in-memory filter/sort/paginate
func (h *TicketHandler) List(c echo.Context) error {
	from, err := parseDateParam(c, "from")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return errors.ValidationError(c, err)
	}
	page, pageSize := parsePageParams(c)

	result, err := h.tickets.List(c.Request().Context(), tickets.ListParams{
		SearchTerm: c.QueryParam("search"),
		Status:     c.QueryParam("status"),
		Priority:   c.QueryParam("priority"),
		Category:   c.QueryParam("category"),
		From:       from,
		To:         to,
		SortKey:    c.QueryParam("sort"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID returns one ticket
func (h *TicketHandler) GetByID(c echo.Context) error {
	ticket, err := h.tickets.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

// Create opens a ticket on the AI microservice
func (h *TicketHandler) Create(c echo.Context) error {
	var req aihub.CreateTicketInput
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	ticket, err := h.tickets.Create(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

// Update applies a partial ticket edit
func (h *TicketHandler) Update(c echo.Context) error {
	var req aihub.UpdateTicketInput
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	ticket, err := h.tickets.Update(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

// GenerateAnswer returns an AI-suggested reply for a ticket
func (h *TicketHandler) GenerateAnswer(c echo.Context) error {
	answer, err := h.tickets.GenerateAnswer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

// IngestEmail converts an inbound email into a ticket
func (h *TicketHandler) IngestEmail(c echo.Context) error {
	var req aihub.IngestEmailInput
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	ticket, err := h.tickets.IngestEmail(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

// SearchKB searches the knowledge base
func (h *TicketHandler) SearchKB(c echo.Context) error {
	articles, err := h.tickets.SearchKB(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, articles)
}

// CreateKBArticle adds a knowledge-base article
func (h *TicketHandler) CreateKBArticle(c echo.Context) error {
	var req aihub.KBArticleInput
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	article, err := h.tickets.CreateKBArticle(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, article)
}

// UpdateKBArticle replaces a knowledge-base article
func (h *TicketHandler) UpdateKBArticle(c echo.Context) error {
	var req aihub.KBArticleInput
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	article, err := h.tickets.UpdateKBArticle(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, article)
}

// DeleteKBArticle removes a knowledge-base article
func (h *TicketHandler) DeleteKBArticle(c echo.Context) error {
	if err := h.tickets.DeleteKBArticle(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return errors.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
