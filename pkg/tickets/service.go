// Package tickets is the support hub view over the AI microservice. Tickets
// are owned upstream; this side fetches them wholesale, then filters, sorts
// and paginates in memory.
package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsecrm/backend/pkg/aihub"
	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/listquery"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// CachePrefix namespaces ticket cache keys
const CachePrefix = "tickets:"

// Hub is the slice of the AI microservice the service needs
type Hub interface {
	ListTickets(ctx context.Context, status string) ([]models.Ticket, error)
	CreateTicket(ctx context.Context, in aihub.CreateTicketInput) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, id string, in aihub.UpdateTicketInput) (*models.Ticket, error)
	GenerateAnswer(ctx context.Context, ticketID string) (string, error)
	IngestEmail(ctx context.Context, in aihub.IngestEmailInput) (*models.Ticket, error)
	SearchKB(ctx context.Context, query string) ([]aihub.KBArticle, error)
	CreateKBArticle(ctx context.Context, in aihub.KBArticleInput) (*aihub.KBArticle, error)
	UpdateKBArticle(ctx context.Context, id string, in aihub.KBArticleInput) (*aihub.KBArticle, error)
	DeleteKBArticle(ctx context.Context, id string) error
}

// ListParams is the view state for the ticket list
type ListParams struct {
	SearchTerm string
	Status     string
	Priority   string
	Category   string
	From       *time.Time
	To         *time.Time
	SortKey    string
	Page       int
	PageSize   int
}

// Service exposes the support hub operations
type Service struct {
	hub       Hub
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
}

// NewService creates a ticket service
func NewService(hub Hub, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		hub:       hub,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
	}
}

var ticketSorter = listquery.Sorter[models.Ticket]{
	"created_at": func(a, b models.Ticket) bool { return a.CreatedAt.After(b.CreatedAt) },
	"subject": func(a, b models.Ticket) bool {
		return strings.ToLower(a.Subject) < strings.ToLower(b.Subject)
	},
	"priority": func(a, b models.Ticket) bool { return priorityRank(a.Priority) < priorityRank(b.Priority) },
	"status":   func(a, b models.Ticket) bool { return a.Status < b.Status },
}

func priorityRank(p string) int {
	switch strings.ToLower(p) {
	case "urgent":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	}
	return 4
}

// List fetches all tickets through the cache, then applies search, filters,
// sort and pagination in memory. An unknown sort key is rejected before the
// fetch.
func (s *Service) List(ctx context.Context, p ListParams) (listquery.Page[models.Ticket], error) {
	var empty listquery.Page[models.Ticket]

	less, err := ticketSorter.Resolve(p.SortKey)
	if err != nil {
		return empty, domain.NewValidationError(err.Error())
	}

	all, err := cache.ReadThrough(ctx, s.cache, CachePrefix+"all", s.staleTime,
		func(ctx context.Context) ([]models.Ticket, error) {
			return s.hub.ListTickets(ctx, "")
		})
	if err != nil {
		return empty, err
	}

	filters := []listquery.Filter[models.Ticket]{
		listquery.Search(p.SearchTerm, func(t models.Ticket) []string {
			return []string{t.Subject, t.Description, t.CustomerName, t.CustomerEmail}
		}),
		listquery.Equals(p.Status, func(t models.Ticket) string { return t.Status }),
		listquery.Equals(p.Priority, func(t models.Ticket) string { return t.Priority }),
		listquery.Equals(p.Category, func(t models.Ticket) string { return t.Category }),
		listquery.DateRange(p.From, p.To, func(t models.Ticket) time.Time { return t.CreatedAt }),
	}

	return listquery.Apply(all, filters, less, p.Page, p.PageSize), nil
}

// Get returns one ticket by id out of the upstream listing
func (s *Service) Get(ctx context.Context, id string) (*models.Ticket, error) {
	all, err := cache.ReadThrough(ctx, s.cache, CachePrefix+"all", s.staleTime,
		func(ctx context.Context) ([]models.Ticket, error) {
			return s.hub.ListTickets(ctx, "")
		})
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, domain.NewNotFoundError("ticket")
}

// Create opens a ticket upstream and invalidates the cached listing
func (s *Service) Create(ctx context.Context, actorID string, in aihub.CreateTicketInput) (*models.Ticket, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "create ticket", func(ctx context.Context) (*models.Ticket, error) {
		if in.Subject == "" {
			return nil, domain.NewValidationError("subject is required")
		}
		return s.hub.CreateTicket(ctx, in)
	}, CachePrefix)
}

// Update applies a partial ticket edit upstream
func (s *Service) Update(ctx context.Context, actorID, id string, in aihub.UpdateTicketInput) (*models.Ticket, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "update ticket", func(ctx context.Context) (*models.Ticket, error) {
		return s.hub.UpdateTicket(ctx, id, in)
	}, CachePrefix)
}

// GenerateAnswer asks the AI service for a suggested reply
func (s *Service) GenerateAnswer(ctx context.Context, ticketID string) (string, error) {
	return s.hub.GenerateAnswer(ctx, ticketID)
}

// IngestEmail converts an inbound email into a ticket
func (s *Service) IngestEmail(ctx context.Context, actorID string, in aihub.IngestEmailInput) (*models.Ticket, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "ingest email", func(ctx context.Context) (*models.Ticket, error) {
		if in.From == "" || in.Body == "" {
			return nil, domain.NewValidationError("from and body are required")
		}
		return s.hub.IngestEmail(ctx, in)
	}, CachePrefix)
}

// SearchKB searches the upstream knowledge base
func (s *Service) SearchKB(ctx context.Context, query string) ([]aihub.KBArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewValidationError("search query is required")
	}
	key := fmt.Sprintf("%skb:search:%s", CachePrefix, strings.ToLower(strings.TrimSpace(query)))
	return cache.ReadThrough(ctx, s.cache, key, s.staleTime,
		func(ctx context.Context) ([]aihub.KBArticle, error) {
			return s.hub.SearchKB(ctx, query)
		})
}

// CreateKBArticle adds a knowledge-base article upstream
func (s *Service) CreateKBArticle(ctx context.Context, actorID string, in aihub.KBArticleInput) (*aihub.KBArticle, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "create KB article", func(ctx context.Context) (*aihub.KBArticle, error) {
		if in.Title == "" || in.Content == "" {
			return nil, domain.NewValidationError("title and content are required")
		}
		return s.hub.CreateKBArticle(ctx, in)
	}, CachePrefix+"kb:")
}

// UpdateKBArticle replaces an article upstream
func (s *Service) UpdateKBArticle(ctx context.Context, actorID, id string, in aihub.KBArticleInput) (*aihub.KBArticle, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "update KB article", func(ctx context.Context) (*aihub.KBArticle, error) {
		return s.hub.UpdateKBArticle(ctx, id, in)
	}, CachePrefix+"kb:")
}

// DeleteKBArticle removes an article upstream
func (s *Service) DeleteKBArticle(ctx context.Context, actorID, id string) error {
	return s.pipeline.RunVoid(ctx, actorID, "delete KB article", func(ctx context.Context) error {
		return s.hub.DeleteKBArticle(ctx, id)
	}, CachePrefix+"kb:")
}
