package meetings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
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
	rows map[string]models.Meeting
	seq  int
}

func (f *fakeStore) List(ctx context.Context, filters Filters) ([]models.Meeting, error) {
	out := []models.Meeting{}
	for _, m := range f.rows {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.Meeting, error) {
	m, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("meeting")
	}
	return &m, nil
}

func (f *fakeStore) Create(ctx context.Context, in CreateInput) (*models.Meeting, error) {
	f.seq++
	m := models.Meeting{
		ID:        fmt.Sprintf("m-%d", f.seq),
		Title:     in.Title,
		LeadID:    in.LeadID,
		AgentID:   in.AgentID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Status:    models.StatusScheduled,
		CreatedAt: time.Now(),
	}
	f.rows[m.ID] = m
	return &m, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, in UpdateInput) (*models.Meeting, error) {
	m, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("meeting")
	}
	if in.Title != nil {
		m.Title = *in.Title
	}
	if in.StartTime != nil {
		m.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		m.EndTime = *in.EndTime
	}
	if in.Status != nil {
		m.Status = *in.Status
	}
	f.rows[id] = m
	return &m, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return domain.NewNotFoundError("meeting")
	}
	delete(f.rows, id)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, n domain.Notification) {}

func setupService(t *testing.T) *Service {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	log := logger.Default()
	qc := cache.NewQueryCache(client, log)
	pipeline := mutation.New(qc, nopNotifier{}, log)

	return NewService(&fakeStore{rows: make(map[string]models.Meeting)}, qc, pipeline, time.Minute)
}

func TestService_CreateValidatesWindow(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	now := time.Now()

	_, err := svc.Create(ctx, "agent-1", CreateInput{
		Title:     "Kickoff",
		LeadID:    "lead-1",
		AgentID:   "agent-1",
		StartTime: now.Add(2 * time.Hour),
		EndTime:   now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))

	m, err := svc.Create(ctx, "agent-1", CreateInput{
		Title:     "Kickoff",
		LeadID:    "lead-1",
		AgentID:   "agent-1",
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, m.Status)
}

func TestService_RescheduleResetsStatus(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	now := time.Now()

	m, err := svc.Create(ctx, "agent-1", CreateInput{
		Title:     "Demo",
		LeadID:    "lead-1",
		AgentID:   "agent-1",
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	cancelled := models.StatusCancelled
	m, err = svc.Update(ctx, "agent-1", m.ID, UpdateInput{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, m.Status)

	newStart := now.Add(24 * time.Hour)
	newEnd := now.Add(25 * time.Hour)
	m, err = svc.Reschedule(ctx, "agent-1", m.ID, newStart, newEnd)
	require.NoError(t, err)

	assert.Equal(t, models.StatusScheduled, m.Status)
	assert.True(t, m.StartTime.Equal(newStart))
	assert.True(t, m.EndTime.Equal(newEnd))
}

func TestService_UpdateWindowCrossValidates(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	now := time.Now()

	m, err := svc.Create(ctx, "agent-1", CreateInput{
		Title:     "Review",
		LeadID:    "lead-1",
		AgentID:   "agent-1",
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	// Moving only the end before the stored start must be rejected
	badEnd := now.Add(30 * time.Minute)
	_, err = svc.Update(ctx, "agent-1", m.ID, UpdateInput{EndTime: &badEnd})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}
