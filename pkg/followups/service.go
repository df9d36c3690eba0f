package followups

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// CachePrefix namespaces follow-up cache keys
const CachePrefix = "followups:"

// Store is the repository surface the service needs
type Store interface {
	List(ctx context.Context, f Filters) ([]models.FollowUp, error)
	Get(ctx context.Context, id string) (*models.FollowUp, error)
	Create(ctx context.Context, in CreateInput) (*models.FollowUp, error)
	Update(ctx context.Context, id string, in UpdateInput) (*models.FollowUp, error)
	Delete(ctx context.Context, id string) error
}

// Service handles follow-up business logic. Status moves Pending to one of
// Completed, Rescheduled or Cancelled through explicit actions; deletion
// requires explicit user confirmation upstream.
type Service struct {
	store     Store
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
}

// NewService creates a follow-up service
func NewService(store Store, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		store:     store,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
	}
}

// List returns follow-ups matching the filters, read through the query cache
func (s *Service) List(ctx context.Context, f Filters) ([]models.FollowUp, error) {
	return cache.ReadThrough(ctx, s.cache, listKey(f), s.staleTime, func(ctx context.Context) ([]models.FollowUp, error) {
		return s.store.List(ctx, f)
	})
}

// Get returns one follow-up
func (s *Service) Get(ctx context.Context, id string) (*models.FollowUp, error) {
	return s.store.Get(ctx, id)
}

// Create inserts a follow-up in status Pending
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*models.FollowUp, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "create follow-up", func(ctx context.Context) (*models.FollowUp, error) {
		if in.LeadID == "" || in.AgentID == "" {
			return nil, domain.NewValidationError("lead_id and agent_id are required")
		}
		if in.DueDate.IsZero() {
			return nil, domain.NewValidationError("due_date is required")
		}
		return s.store.Create(ctx, in)
	}, CachePrefix)
}

// Update applies a partial edit, validating any status transition
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (*models.FollowUp, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "update follow-up", func(ctx context.Context) (*models.FollowUp, error) {
		if in.Status != nil {
			current, err := s.store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if err := validateTransition(current.Status, *in.Status); err != nil {
				return nil, err
			}
		}
		return s.store.Update(ctx, id, in)
	}, CachePrefix)
}

// Delete removes a follow-up. Confirmation happens in the client; this is the
// committed path.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	return s.pipeline.RunVoid(ctx, actorID, "delete follow-up", func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	}, CachePrefix)
}

// DueOn returns pending follow-ups due on the given calendar day
func (s *Service) DueOn(ctx context.Context, day time.Time) ([]models.FollowUp, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from
	status := models.StatusPending
	return s.store.List(ctx, Filters{Status: status, DueFrom: &from, DueTo: &to})
}

func validateTransition(from, to string) error {
	switch to {
	case models.StatusCompleted, models.StatusRescheduled, models.StatusCancelled:
		if from != models.StatusPending {
			return domain.NewConflictError(fmt.Sprintf("cannot move a %s follow-up to %s", from, to))
		}
		return nil
	case models.StatusPending:
		// Re-opening is allowed only from Rescheduled
		if from != models.StatusRescheduled {
			return domain.NewConflictError(fmt.Sprintf("cannot move a %s follow-up back to Pending", from))
		}
		return nil
	}
	return domain.NewValidationError(fmt.Sprintf("invalid follow-up status: %q", to))
}

func listKey(f Filters) string {
	from, to := "", ""
	if f.DueFrom != nil {
		from = f.DueFrom.Format("2006-01-02")
	}
	if f.DueTo != nil {
		to = f.DueTo.Format("2006-01-02")
	}
	return fmt.Sprintf("%slist:lead=%s:agent=%s:status=%s:from=%s:to=%s",
		CachePrefix, f.LeadID, f.AgentID, f.Status, from, to)
}
