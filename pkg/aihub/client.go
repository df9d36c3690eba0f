// Package aihub is the HTTP client for the AI support microservice. The
// service owns tickets, the knowledge base, idea generation and voice-call
// sessions; this side performs no logic on its payloads beyond decoding.
package aihub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
)

// Client talks JSON over HTTP to the AI microservice
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for the given base URL
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListTickets fetches every ticket, optionally narrowed by status
func (c *Client) ListTickets(ctx context.Context, status string) ([]models.Ticket, error) {
	path := "/tickets"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var tickets []models.Ticket
	if err := c.do(ctx, http.MethodGet, path, nil, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}

// CreateTicketInput holds the fields for a new ticket
type CreateTicketInput struct {
	Subject       string `json:"subject"`
	Description   string `json:"description"`
	Priority      string `json:"priority,omitempty"`
	Category      string `json:"category,omitempty"`
	Channel       string `json:"channel,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// CreateTicket opens a ticket on the microservice
func (c *Client) CreateTicket(ctx context.Context, in CreateTicketInput) (*models.Ticket, error) {
	var t models.Ticket
	if err := c.do(ctx, http.MethodPost, "/tickets", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTicketInput holds optional ticket fields; absent fields are untouched
type UpdateTicketInput struct {
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
	Category *string `json:"category,omitempty"`
}

// UpdateTicket applies a partial update to a ticket
func (c *Client) UpdateTicket(ctx context.Context, id string, in UpdateTicketInput) (*models.Ticket, error) {
	var t models.Ticket
	if err := c.do(ctx, http.MethodPatch, "/tickets/"+url.PathEscape(id), in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GenerateAnswer asks the microservice for a suggested reply to a ticket
func (c *Client) GenerateAnswer(ctx context.Context, ticketID string) (string, error) {
	var out struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/tickets/"+url.PathEscape(ticketID)+"/answer", nil, &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

// IngestEmailInput is a raw inbound email to convert into a ticket
type IngestEmailInput struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// IngestEmail converts an inbound email into a classified ticket
func (c *Client) IngestEmail(ctx context.Context, in IngestEmailInput) (*models.Ticket, error) {
	var t models.Ticket
	if err := c.do(ctx, http.MethodPost, "/ingest/email", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// KBArticle is a knowledge-base entry
type KBArticle struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchKB runs a semantic search over the knowledge base
func (c *Client) SearchKB(ctx context.Context, query string) ([]KBArticle, error) {
	var articles []KBArticle
	if err := c.do(ctx, http.MethodGet, "/kb/search?q="+url.QueryEscape(query), nil, &articles); err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []KBArticle{}
	}
	return articles, nil
}

// KBArticleInput holds the writable fields of a knowledge-base entry
type KBArticleInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// CreateKBArticle adds an article to the knowledge base
func (c *Client) CreateKBArticle(ctx context.Context, in KBArticleInput) (*KBArticle, error) {
	var a KBArticle
	if err := c.do(ctx, http.MethodPost, "/kb/articles", in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateKBArticle replaces an article's content
func (c *Client) UpdateKBArticle(ctx context.Context, id string, in KBArticleInput) (*KBArticle, error) {
	var a KBArticle
	if err := c.do(ctx, http.MethodPut, "/kb/articles/"+url.PathEscape(id), in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteKBArticle removes an article
func (c *Client) DeleteKBArticle(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/kb/articles/"+url.PathEscape(id), nil, nil)
}

// GenerateIdeas asks for marketing ideas of the given kind
// (campaign, workflow or post)
func (c *Client) GenerateIdeas(ctx context.Context, kind, prompt string) ([]string, error) {
	in := map[string]string{"kind": kind, "prompt": prompt}
	var out struct {
		Ideas []string `json:"ideas"`
	}
	if err := c.do(ctx, http.MethodPost, "/ideas", in, &out); err != nil {
		return nil, err
	}
	return out.Ideas, nil
}

// CallSession is the state of a voice-call session as reported upstream
type CallSession struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Phone  string `json:"phone,omitempty"`
}

// StartCall begins a voice-call session against the given phone number
func (c *Client) StartCall(ctx context.Context, phone string) (*CallSession, error) {
	in := map[string]string{"phone": phone}
	var s CallSession
	if err := c.do(ctx, http.MethodPost, "/calls", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CallStatus polls the current state of a session
func (c *Client) CallStatus(ctx context.Context, sessionID string) (*CallSession, error) {
	var s CallSession
	if err := c.do(ctx, http.MethodGet, "/calls/"+url.PathEscape(sessionID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EndCall terminates a session
func (c *Client) EndCall(ctx context.Context, sessionID string) (*CallSession, error) {
	var s CallSession
	if err := c.do(ctx, http.MethodPost, "/calls/"+url.PathEscape(sessionID)+"/end", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return domain.NewInternalError("failed to encode AI hub request", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domain.NewInternalError("failed to build AI hub request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewUpstreamError("AI service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorMessage(resp.Body)
		return domain.NewUpstreamError(
			fmt.Sprintf("AI service returned %d: %s", resp.StatusCode, msg), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewUpstreamError("failed to decode AI service response", err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return "no error detail"
}
