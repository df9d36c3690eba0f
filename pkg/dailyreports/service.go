package dailyreports

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// CachePrefix namespaces daily report cache keys
const CachePrefix = "dailyreports:"

// Store is the repository surface the service needs
type Store interface {
	List(ctx context.Context, f Filters) ([]models.DailyReport, error)
	Get(ctx context.Context, id string) (*models.DailyReport, error)
	Exists(ctx context.Context, agentID string, date time.Time, teamType string) (bool, error)
	Create(ctx context.Context, dr models.DailyReport) (*models.DailyReport, error)
}

// Service handles daily report submission. Reports are immutable once
// submitted and unique per agent, date and team type. Each team type carries
// its own metric shape; the submitted fields must match the declared type,
// and the mismatch is rejected before anything is written.
type Service struct {
	store     Store
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
}

// NewService creates a daily report service
func NewService(store Store, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		store:     store,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
	}
}

// List returns daily reports matching the filters, read through the query cache
func (s *Service) List(ctx context.Context, f Filters) ([]models.DailyReport, error) {
	return cache.ReadThrough(ctx, s.cache, listKey(f), s.staleTime, func(ctx context.Context) ([]models.DailyReport, error) {
		return s.store.List(ctx, f)
	})
}

// Get returns one daily report
func (s *Service) Get(ctx context.Context, id string) (*models.DailyReport, error) {
	return s.store.Get(ctx, id)
}

// SubmitInput holds a new daily report. Exactly the metric fields of the
// declared TeamType must be set.
type SubmitInput struct {
	AgentID    string
	ReportDate time.Time
	TeamType   string

	OutreachCount  *int
	ResponsesCount *int

	ConnectionsSent *int
	MessagesSent    *int
	RepliesReceived *int

	EmailsSent   *int
	EmailsOpened *int
	Bounces      *int
}

// Submit validates and inserts a daily report. Shape validation runs before
// the duplicate check so a malformed submission never reaches the store.
func (s *Service) Submit(ctx context.Context, actorID string, in SubmitInput) (*models.DailyReport, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "submit daily report", func(ctx context.Context) (*models.DailyReport, error) {
		if in.AgentID == "" {
			return nil, domain.NewValidationError("agent_id is required")
		}
		if in.ReportDate.IsZero() {
			return nil, domain.NewValidationError("report_date is required")
		}
		if err := validateShape(in); err != nil {
			return nil, err
		}

		date := truncateToDay(in.ReportDate)
		exists, err := s.store.Exists(ctx, in.AgentID, date, in.TeamType)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.NewConflictError(fmt.Sprintf(
				"a %s report for %s already exists", in.TeamType, date.Format("2006-01-02")))
		}

		return s.store.Create(ctx, models.DailyReport{
			AgentID:         in.AgentID,
			ReportDate:      date,
			TeamType:        in.TeamType,
			OutreachCount:   in.OutreachCount,
			ResponsesCount:  in.ResponsesCount,
			ConnectionsSent: in.ConnectionsSent,
			MessagesSent:    in.MessagesSent,
			RepliesReceived: in.RepliesReceived,
			EmailsSent:      in.EmailsSent,
			EmailsOpened:    in.EmailsOpened,
			Bounces:         in.Bounces,
		})
	}, CachePrefix)
}

// validateShape enforces the tagged union between team_type and metric fields:
// every field of the declared type is required, every field of the other types
// must be absent.
func validateShape(in SubmitInput) error {
	type field struct {
		name string
		val  *int
	}
	shapes := map[string][]field{
		models.TeamTelesales: {
			{"outreach_count", in.OutreachCount},
			{"responses_count", in.ResponsesCount},
		},
		models.TeamLinkedin: {
			{"connections_sent", in.ConnectionsSent},
			{"messages_sent", in.MessagesSent},
			{"replies_received", in.RepliesReceived},
		},
		models.TeamColdEmail: {
			{"emails_sent", in.EmailsSent},
			{"emails_opened", in.EmailsOpened},
			{"bounces", in.Bounces},
		},
	}

	own, ok := shapes[in.TeamType]
	if !ok {
		return domain.NewValidationError(fmt.Sprintf("invalid team_type: %q", in.TeamType))
	}

	for _, f := range own {
		if f.val == nil {
			return domain.NewValidationError(fmt.Sprintf("%s is required for team_type %s", f.name, in.TeamType))
		}
		if *f.val < 0 {
			return domain.NewValidationError(fmt.Sprintf("%s must not be negative", f.name))
		}
	}
	for teamType, fields := range shapes {
		if teamType == in.TeamType {
			continue
		}
		for _, f := range fields {
			if f.val != nil {
				return domain.NewValidationError(fmt.Sprintf("%s does not belong to team_type %s", f.name, in.TeamType))
			}
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func listKey(f Filters) string {
	from, to := "", ""
	if f.DateFrom != nil {
		from = f.DateFrom.Format("2006-01-02")
	}
	if f.DateTo != nil {
		to = f.DateTo.Format("2006-01-02")
	}
	return fmt.Sprintf("%slist:agent=%s:team=%s:from=%s:to=%s",
		CachePrefix, f.AgentID, f.TeamType, from, to)
}
