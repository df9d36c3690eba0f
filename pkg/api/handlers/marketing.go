package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/marketing"
)

// MarketingHandler handles marketing hub endpoints
type MarketingHandler struct {
	marketing *marketing.Service
	validator *validator.Validate
}

// NewMarketingHandler creates a new marketing handler
func NewMarketingHandler(marketingService *marketing.Service) *MarketingHandler {
	return &MarketingHandler{
		marketing: marketingService,
		validator: validator.New(),
	}
}

// Campaigns returns the demo campaign set
func (h *MarketingHandler) Campaigns(c echo.Context) error {
	campaigns, err := h.marketing.Campaigns(c.Request().Context())
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, campaigns)
}

// ABTests returns the demo experiment set
func (h *MarketingHandler) ABTests(c echo.Context) error {
	tests, err := h.marketing.ABTests(c.Request().Context())
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, tests)
}

// SocialPosts returns the demo social post set
func (h *MarketingHandler) SocialPosts(c echo.Context) error {
	posts, err := h.marketing.SocialPosts(c.Request().Context())
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

// GenerateIdeasRequest is the payload for POST /marketing/ideas
type GenerateIdeasRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=campaign workflow post"`
	Prompt string `json:"prompt" validate:"required,min=3"`
}

// GenerateIdeas asks the AI hub for marketing ideas
func (h *MarketingHandler) GenerateIdeas(c echo.Context) error {
	var req GenerateIdeasRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ideas, err := h.marketing.GenerateIdeas(c.Request().Context(), req.Kind, req.Prompt)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]string{"ideas": ideas})
}

// ExpandIdeaRequest is the payload for POST /marketing/ideas/expand
type ExpandIdeaRequest struct {
	Idea string `json:"idea" validate:"required,min=3"`
}

// ExpandIdea turns a one-line idea into a short brief via the LLM endpoint
func (h *MarketingHandler) ExpandIdea(c echo.Context) error {
	var req ExpandIdeaRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	brief, err := h.marketing.ExpandIdea(c.Request().Context(), req.Idea)
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"brief": brief})
}
