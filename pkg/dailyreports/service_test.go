package dailyreports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

type fakeStore struct {
	rows    map[string]models.DailyReport
	creates int
	checks  int
}

func (f *fakeStore) List(ctx context.Context, filters Filters) ([]models.DailyReport, error) {
	out := []models.DailyReport{}
	for _, dr := range f.rows {
		if filters.AgentID != "" && dr.AgentID != filters.AgentID {
			continue
		}
		if filters.TeamType != "" && dr.TeamType != filters.TeamType {
			continue
		}
		out = append(out, dr)
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.DailyReport, error) {
	dr, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("daily report")
	}
	return &dr, nil
}

func (f *fakeStore) Exists(ctx context.Context, agentID string, date time.Time, teamType string) (bool, error) {
	f.checks++
	for _, dr := range f.rows {
		if dr.AgentID == agentID && dr.ReportDate.Equal(date) && dr.TeamType == teamType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Create(ctx context.Context, dr models.DailyReport) (*models.DailyReport, error) {
	f.creates++
	dr.ID = uuid.NewString()
	f.rows[dr.ID] = dr
	return &dr, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, n domain.Notification) {}

func setupService(t *testing.T) (*Service, *fakeStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	log := logger.Default()
	qc := cache.NewQueryCache(client, log)
	pipeline := mutation.New(qc, nopNotifier{}, log)

	store := &fakeStore{rows: make(map[string]models.DailyReport)}
	return NewService(store, qc, pipeline, time.Minute), store
}

func intPtr(n int) *int { return &n }

func TestService_SubmitTelesales(t *testing.T) {
	svc, _ := setupService(t)

	dr, err := svc.Submit(context.Background(), "agent-1", SubmitInput{
		AgentID:        "agent-1",
		ReportDate:     time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC),
		TeamType:       models.TeamTelesales,
		OutreachCount:  intPtr(10),
		ResponsesCount: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, *dr.OutreachCount)
	assert.Equal(t, 2, *dr.ResponsesCount)
	assert.Nil(t, dr.ConnectionsSent)
	// Report date is normalized to the calendar day
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), dr.ReportDate)
}

func TestService_SubmitShapeMismatchRejectedBeforeStore(t *testing.T) {
	svc, store := setupService(t)

	// Declared linkedin but carries only telesales-shaped fields
	_, err := svc.Submit(context.Background(), "agent-1", SubmitInput{
		AgentID:        "agent-1",
		ReportDate:     time.Now(),
		TeamType:       models.TeamLinkedin,
		OutreachCount:  intPtr(10),
		ResponsesCount: intPtr(2),
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	assert.Zero(t, store.checks, "validation must reject before any store call")
	assert.Zero(t, store.creates)
}

func TestService_SubmitMissingOwnField(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Submit(context.Background(), "agent-1", SubmitInput{
		AgentID:    "agent-1",
		ReportDate: time.Now(),
		TeamType:   models.TeamColdEmail,
		EmailsSent: intPtr(50),
		// emails_opened and bounces missing
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}

func TestService_SubmitRejectsForeignFieldAlongsideOwn(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Submit(context.Background(), "agent-1", SubmitInput{
		AgentID:        "agent-1",
		ReportDate:     time.Now(),
		TeamType:       models.TeamTelesales,
		OutreachCount:  intPtr(10),
		ResponsesCount: intPtr(2),
		EmailsSent:     intPtr(5),
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}

func TestService_SubmitDuplicateDayConflicts(t *testing.T) {
	svc, store := setupService(t)
	day := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	in := SubmitInput{
		AgentID:        "agent-1",
		ReportDate:     day,
		TeamType:       models.TeamTelesales,
		OutreachCount:  intPtr(10),
		ResponsesCount: intPtr(2),
	}
	_, err := svc.Submit(context.Background(), "agent-1", in)
	require.NoError(t, err)

	// Same agent, same day, same team: rejected even at a different hour
	in.ReportDate = day.Add(8 * time.Hour)
	_, err = svc.Submit(context.Background(), "agent-1", in)
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConflict, domain.CodeOf(err))
	assert.Equal(t, 1, store.creates)

	// A different team type on the same day is fine
	_, err = svc.Submit(context.Background(), "agent-1", SubmitInput{
		AgentID:         "agent-1",
		ReportDate:      day,
		TeamType:        models.TeamLinkedin,
		ConnectionsSent: intPtr(7),
		MessagesSent:    intPtr(3),
		RepliesReceived: intPtr(1),
	})
	require.NoError(t, err)
}

func TestService_SubmitRejectsUnknownTeamType(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Submit(context.Background(), "agent-1", SubmitInput{
		AgentID:    "agent-1",
		ReportDate: time.Now(),
		TeamType:   "door_to_door",
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}

func TestService_SubmitRejectsNegativeMetric(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Submit(context.Background(), "agent-1", SubmitInput{
		AgentID:        "agent-1",
		ReportDate:     time.Now(),
		TeamType:       models.TeamTelesales,
		OutreachCount:  intPtr(-1),
		ResponsesCount: intPtr(2),
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}
