package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
	"github.com/pulsecrm/backend/pkg/phone"
)

// CachePrefix namespaces lead cache keys
const CachePrefix = "leads:"

// DefaultPhoneRegion is used when a client phone lacks a country prefix
const DefaultPhoneRegion = "US"

// Store is the repository surface the service needs
type Store interface {
	List(ctx context.Context, f Filters) ([]models.Lead, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
	Create(ctx context.Context, in CreateInput) (*models.Lead, error)
	Update(ctx context.Context, id string, in UpdateInput) (*models.Lead, error)
}

// AgentChecker verifies that an id references a user with role agent
type AgentChecker interface {
	IsAgent(ctx context.Context, id string) (bool, error)
}

// Service handles lead business logic. Leads are never deleted; status
// transitions and reassignment are the only mutations.
type Service struct {
	store     Store
	agents    AgentChecker
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
}

// NewService creates a lead service
func NewService(store Store, agents AgentChecker, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		store:     store,
		agents:    agents,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
	}
}

// List returns leads matching the filters, read through the query cache
func (s *Service) List(ctx context.Context, f Filters) ([]models.Lead, error) {
	return cache.ReadThrough(ctx, s.cache, listKey(f), s.staleTime, func(ctx context.Context) ([]models.Lead, error) {
		return s.store.List(ctx, f)
	})
}

// Get returns one lead
func (s *Service) Get(ctx context.Context, id string) (*models.Lead, error) {
	return s.store.Get(ctx, id)
}

// Create inserts a lead. The client phone, when present, is normalized to
// E.164; the assigned agent, when present, must hold role agent.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*models.Lead, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "create lead", func(ctx context.Context) (*models.Lead, error) {
		if in.ClientPhone != "" {
			normalized, err := phone.Normalize(in.ClientPhone, DefaultPhoneRegion)
			if err != nil {
				return nil, domain.NewValidationError("client phone is not a valid phone number")
			}
			in.ClientPhone = normalized
		}
		if err := s.checkAgentRef(ctx, in.AgentID); err != nil {
			return nil, err
		}
		return s.store.Create(ctx, in)
	}, CachePrefix)
}

// Update applies a partial lead edit (status transition, reassignment, field
// corrections)
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (*models.Lead, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "update lead", func(ctx context.Context) (*models.Lead, error) {
		if in.StatusBucket != nil {
			switch *in.StatusBucket {
			case models.TierP1, models.TierP2, models.TierP3:
			default:
				return nil, domain.NewValidationError(fmt.Sprintf("invalid status bucket: %q", *in.StatusBucket))
			}
		}
		if err := s.checkAgentRef(ctx, in.AgentID); err != nil {
			return nil, err
		}
		return s.store.Update(ctx, id, in)
	}, CachePrefix)
}

func (s *Service) checkAgentRef(ctx context.Context, agentID *string) error {
	if agentID == nil {
		return nil
	}
	ok, err := s.agents.IsAgent(ctx, *agentID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewValidationError("agent_id must reference an existing user with role agent")
	}
	return nil
}

func listKey(f Filters) string {
	from, to := "", ""
	if f.CreatedFrom != nil {
		from = f.CreatedFrom.Format("2006-01-02")
	}
	if f.CreatedTo != nil {
		to = f.CreatedTo.Format("2006-01-02")
	}
	return fmt.Sprintf("%slist:agent=%s:bucket=%s:source=%s:from=%s:to=%s",
		CachePrefix, f.AgentID, f.StatusBucket, f.LeadSource, from, to)
}
