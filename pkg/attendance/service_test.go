package attendance

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
	rows map[string]models.Attendance // keyed by id
}

func (f *fakeStore) List(ctx context.Context, filters Filters) ([]models.Attendance, error) {
	out := []models.Attendance{}
	for _, a := range f.rows {
		if filters.UserID != "" && a.UserID != filters.UserID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) GetForDate(ctx context.Context, userID string, date time.Time) (*models.Attendance, error) {
	for _, a := range f.rows {
		if a.UserID == userID && a.Date.Equal(date) {
			copied := a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Create(ctx context.Context, a models.Attendance) (*models.Attendance, error) {
	a.ID = uuid.NewString()
	f.rows[a.ID] = a
	return &a, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, in UpdateInput) (*models.Attendance, error) {
	a, ok := f.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("attendance record")
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.CheckOutTime != nil {
		a.CheckOutTime = in.CheckOutTime
	}
	f.rows[id] = a
	return &a, nil
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

	return NewService(&fakeStore{rows: make(map[string]models.Attendance)}, qc, pipeline, time.Minute)
}

func TestService_CheckInOncePerDay(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	a, err := svc.CheckIn(ctx, "agent-1", "on site")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceCheckedIn, a.Status)
	require.NotNil(t, a.CheckInTime)

	// Second check-in the same day is a conflict
	_, err = svc.CheckIn(ctx, "agent-1", "")
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConflict, domain.CodeOf(err))

	// A different user is unaffected
	_, err = svc.CheckIn(ctx, "agent-2", "")
	require.NoError(t, err)
}

func TestService_CheckOutRequiresCheckIn(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.CheckOut(ctx, "agent-1")
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConflict, domain.CodeOf(err))

	_, err = svc.CheckIn(ctx, "agent-1", "")
	require.NoError(t, err)

	a, err := svc.CheckOut(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceCheckedOut, a.Status)
	require.NotNil(t, a.CheckOutTime)

	// Checking out twice is a conflict
	_, err = svc.CheckOut(ctx, "agent-1")
	require.Error(t, err)
}

func TestService_MarkLeaveBlocksDoubleBooking(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	day := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)

	a, err := svc.MarkLeave(ctx, "mgr-1", "agent-1", day, "vacation")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceOnLeave, a.Status)
	// Date is normalized to the calendar day
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), a.Date)

	_, err = svc.MarkLeave(ctx, "mgr-1", "agent-1", day, "again")
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConflict, domain.CodeOf(err))
}
