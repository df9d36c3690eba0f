package meetings

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// CachePrefix namespaces meeting cache keys
const CachePrefix = "meetings:"

// Store is the repository surface the service needs
type Store interface {
	List(ctx context.Context, f Filters) ([]models.Meeting, error)
	Get(ctx context.Context, id string) (*models.Meeting, error)
	Create(ctx context.Context, in CreateInput) (*models.Meeting, error)
	Update(ctx context.Context, id string, in UpdateInput) (*models.Meeting, error)
	Delete(ctx context.Context, id string) error
}

// Service handles meeting business logic. The meeting window is validated
// server-side: end_time must be after start_time.
type Service struct {
	store     Store
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
}

// NewService creates a meeting service
func NewService(store Store, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		store:     store,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
	}
}

// List returns meetings matching the filters, read through the query cache
func (s *Service) List(ctx context.Context, f Filters) ([]models.Meeting, error) {
	return cache.ReadThrough(ctx, s.cache, listKey(f), s.staleTime, func(ctx context.Context) ([]models.Meeting, error) {
		return s.store.List(ctx, f)
	})
}

// Get returns one meeting
func (s *Service) Get(ctx context.Context, id string) (*models.Meeting, error) {
	return s.store.Get(ctx, id)
}

// Create inserts a meeting in status Scheduled
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*models.Meeting, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "create meeting", func(ctx context.Context) (*models.Meeting, error) {
		if in.LeadID == "" || in.AgentID == "" {
			return nil, domain.NewValidationError("lead_id and agent_id are required")
		}
		if err := validateWindow(in.StartTime, in.EndTime); err != nil {
			return nil, err
		}
		return s.store.Create(ctx, in)
	}, CachePrefix)
}

// Update applies a partial edit, validating status and the meeting window
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (*models.Meeting, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "update meeting", func(ctx context.Context) (*models.Meeting, error) {
		if in.Status != nil {
			switch *in.Status {
			case models.StatusScheduled, models.StatusCompleted, models.StatusPending, models.StatusCancelled:
			default:
				return nil, domain.NewValidationError(fmt.Sprintf("invalid meeting status: %q", *in.Status))
			}
		}

		if in.StartTime != nil || in.EndTime != nil {
			current, err := s.store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			start, end := current.StartTime, current.EndTime
			if in.StartTime != nil {
				start = *in.StartTime
			}
			if in.EndTime != nil {
				end = *in.EndTime
			}
			if err := validateWindow(start, end); err != nil {
				return nil, err
			}
		}

		return s.store.Update(ctx, id, in)
	}, CachePrefix)
}

// Reschedule rewrites the meeting window and resets status to Scheduled
func (s *Service) Reschedule(ctx context.Context, actorID, id string, start, end time.Time) (*models.Meeting, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "reschedule meeting", func(ctx context.Context) (*models.Meeting, error) {
		if err := validateWindow(start, end); err != nil {
			return nil, err
		}
		status := models.StatusScheduled
		return s.store.Update(ctx, id, UpdateInput{
			StartTime: &start,
			EndTime:   &end,
			Status:    &status,
		})
	}, CachePrefix)
}

// Delete removes a meeting
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	return s.pipeline.RunVoid(ctx, actorID, "delete meeting", func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	}, CachePrefix)
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return domain.NewValidationError("start_time and end_time are required")
	}
	if !end.After(start) {
		return domain.NewValidationError("end_time must be after start_time")
	}
	return nil
}

func listKey(f Filters) string {
	from, to := "", ""
	if f.StartFrom != nil {
		from = f.StartFrom.Format("2006-01-02")
	}
	if f.StartTo != nil {
		to = f.StartTo.Format("2006-01-02")
	}
	return fmt.Sprintf("%slist:lead=%s:agent=%s:status=%s:from=%s:to=%s",
		CachePrefix, f.LeadID, f.AgentID, f.Status, from, to)
}
