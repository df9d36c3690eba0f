package users

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// CachePrefix namespaces user cache keys
const CachePrefix = "users:"

// Store is the repository surface the service needs
type Store interface {
	List(ctx context.Context, f Filters) ([]models.UserProfile, error)
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	Create(ctx context.Context, in CreateInput) (*models.UserProfile, error)
	Update(ctx context.Context, id string, in UpdateInput) (*models.UserProfile, error)
}

// Service handles user profile business logic. Profile edits run only through
// admin flows; role-reference invariants are enforced here, before any write.
type Service struct {
	store     Store
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
}

// NewService creates a user service
func NewService(store Store, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		store:     store,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
	}
}

// List returns users matching the filters, read through the query cache
func (s *Service) List(ctx context.Context, f Filters) ([]models.UserProfile, error) {
	key := fmt.Sprintf("%slist:role=%s:manager=%s", CachePrefix, f.Role, f.ManagerID)
	return cache.ReadThrough(ctx, s.cache, key, s.staleTime, func(ctx context.Context) ([]models.UserProfile, error) {
		return s.store.List(ctx, f)
	})
}

// Get returns one user profile
func (s *Service) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	return s.store.Get(ctx, id)
}

// GetByEmail returns one user profile by email
func (s *Service) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	return s.store.GetByEmail(ctx, email)
}

// Create inserts a user after validating role and manager reference
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*models.UserProfile, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "create user", func(ctx context.Context) (*models.UserProfile, error) {
		if err := s.validateRole(in.Role); err != nil {
			return nil, err
		}
		if err := s.validateManagerRef(ctx, in.ManagerID); err != nil {
			return nil, err
		}
		return s.store.Create(ctx, in)
	}, CachePrefix)
}

// Update applies a partial profile edit
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (*models.UserProfile, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "update user", func(ctx context.Context) (*models.UserProfile, error) {
		if in.Role != nil {
			if err := s.validateRole(*in.Role); err != nil {
				return nil, err
			}
		}
		if err := s.validateManagerRef(ctx, in.ManagerID); err != nil {
			return nil, err
		}
		return s.store.Update(ctx, id, in)
	}, CachePrefix)
}

// IsAgent reports whether id references an existing user with role agent
func (s *Service) IsAgent(ctx context.Context, id string) (bool, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return u.Role == models.RoleAgent, nil
}

func (s *Service) validateRole(role string) error {
	switch role {
	case models.RoleAgent, models.RoleManager, models.RoleSuperAdmin:
		return nil
	}
	return domain.NewValidationError(fmt.Sprintf("invalid role: %q", role))
}

// validateManagerRef enforces that manager_id, when set, references an
// existing user with role manager
func (s *Service) validateManagerRef(ctx context.Context, managerID *string) error {
	if managerID == nil {
		return nil
	}

	manager, err := s.store.Get(ctx, *managerID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewValidationError("manager_id does not reference an existing user")
		}
		return err
	}
	if manager.Role != models.RoleManager {
		return domain.NewValidationError("manager_id must reference a user with role manager")
	}
	return nil
}
