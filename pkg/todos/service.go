package todos

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// CachePrefix namespaces todo cache keys
const CachePrefix = "todos:"

// Store is the repository surface the service needs
type Store interface {
	List(ctx context.Context, f Filters) ([]models.Todo, error)
	Get(ctx context.Context, id string) (*models.Todo, error)
	Create(ctx context.Context, in CreateInput) (*models.Todo, error)
	Update(ctx context.Context, id string, in UpdateInput) (*models.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Service handles personal task lists. Todos are owned by one user; access
// control is enforced here by comparing the actor to the record owner.
type Service struct {
	store     Store
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
}

// NewService creates a todo service
func NewService(store Store, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		store:     store,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
	}
}

// List returns todos matching the filters, read through the query cache
func (s *Service) List(ctx context.Context, f Filters) ([]models.Todo, error) {
	key := listKey(f)
	return cache.ReadThrough(ctx, s.cache, key, s.staleTime, func(ctx context.Context) ([]models.Todo, error) {
		return s.store.List(ctx, f)
	})
}

// Create inserts a todo owned by the actor
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*models.Todo, error) {
	in.UserID = actorID
	return mutation.Run(ctx, s.pipeline, actorID, "create todo", func(ctx context.Context) (*models.Todo, error) {
		if in.Title == "" {
			return nil, domain.NewValidationError("title is required")
		}
		return s.store.Create(ctx, in)
	}, CachePrefix)
}

// Update applies a partial edit after an ownership check
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (*models.Todo, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "update todo", func(ctx context.Context) (*models.Todo, error) {
		if err := s.checkOwner(ctx, actorID, id); err != nil {
			return nil, err
		}
		if in.Status != nil && *in.Status != models.StatusPending && *in.Status != models.StatusCompleted {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid todo status: %q", *in.Status))
		}
		return s.store.Update(ctx, id, in)
	}, CachePrefix)
}

// Delete removes a todo after an ownership check
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	return s.pipeline.RunVoid(ctx, actorID, "delete todo", func(ctx context.Context) error {
		if err := s.checkOwner(ctx, actorID, id); err != nil {
			return err
		}
		return s.store.Delete(ctx, id)
	}, CachePrefix)
}

func (s *Service) checkOwner(ctx context.Context, actorID, id string) error {
	td, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if td.UserID != actorID {
		return domain.NewForbiddenError("todo belongs to another user")
	}
	return nil
}

func listKey(f Filters) string {
	from, to := "", ""
	if f.DueFrom != nil {
		from = f.DueFrom.Format("2006-01-02")
	}
	if f.DueTo != nil {
		to = f.DueTo.Format("2006-01-02")
	}
	return fmt.Sprintf("%slist:user=%s:status=%s:from=%s:to=%s", CachePrefix, f.UserID, f.Status, from, to)
}
