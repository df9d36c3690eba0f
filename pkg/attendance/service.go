package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/mutation"
)

// CachePrefix namespaces attendance cache keys
const CachePrefix = "attendance:"

// Store is the repository surface the service needs
type Store interface {
	List(ctx context.Context, f Filters) ([]models.Attendance, error)
	GetForDate(ctx context.Context, userID string, date time.Time) (*models.Attendance, error)
	Create(ctx context.Context, a models.Attendance) (*models.Attendance, error)
	Update(ctx context.Context, id string, in UpdateInput) (*models.Attendance, error)
}

// Service handles attendance. At most one record exists per user per calendar
// date: check-in creates it, check-out mutates it, and a second check-in on
// the same day is a conflict.
type Service struct {
	store     Store
	cache     *cache.QueryCache
	pipeline  *mutation.Pipeline
	staleTime time.Duration
	now       func() time.Time
}

// NewService creates an attendance service
func NewService(store Store, qc *cache.QueryCache, pipeline *mutation.Pipeline, staleTime time.Duration) *Service {
	return &Service{
		store:     store,
		cache:     qc,
		pipeline:  pipeline,
		staleTime: staleTime,
		now:       time.Now,
	}
}

// List returns attendance records, read through the query cache
func (s *Service) List(ctx context.Context, f Filters) ([]models.Attendance, error) {
	key := listKey(f)
	return cache.ReadThrough(ctx, s.cache, key, s.staleTime, func(ctx context.Context) ([]models.Attendance, error) {
		return s.store.List(ctx, f)
	})
}

// Today returns the actor's record for the current date, or nil
func (s *Service) Today(ctx context.Context, userID string) (*models.Attendance, error) {
	return s.store.GetForDate(ctx, userID, s.today())
}

// CheckIn creates today's record for the actor
func (s *Service) CheckIn(ctx context.Context, userID, notes string) (*models.Attendance, error) {
	return mutation.Run(ctx, s.pipeline, userID, "check in", func(ctx context.Context) (*models.Attendance, error) {
		existing, err := s.store.GetForDate(ctx, userID, s.today())
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.NewConflictError("already checked in today")
		}

		now := s.now()
		return s.store.Create(ctx, models.Attendance{
			UserID:      userID,
			Date:        s.today(),
			Status:      models.AttendanceCheckedIn,
			CheckInTime: &now,
			Notes:       notes,
		})
	}, CachePrefix)
}

// CheckOut closes today's record for the actor
func (s *Service) CheckOut(ctx context.Context, userID string) (*models.Attendance, error) {
	return mutation.Run(ctx, s.pipeline, userID, "check out", func(ctx context.Context) (*models.Attendance, error) {
		existing, err := s.store.GetForDate(ctx, userID, s.today())
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, domain.NewConflictError("not checked in today")
		}
		if existing.Status != models.AttendanceCheckedIn {
			return nil, domain.NewConflictError(fmt.Sprintf("cannot check out from status %s", existing.Status))
		}

		now := s.now()
		status := models.AttendanceCheckedOut
		return s.store.Update(ctx, existing.ID, UpdateInput{
			Status:       &status,
			CheckOutTime: &now,
		})
	}, CachePrefix)
}

// MarkLeave records a leave day for the given user
func (s *Service) MarkLeave(ctx context.Context, actorID, userID string, date time.Time, notes string) (*models.Attendance, error) {
	return mutation.Run(ctx, s.pipeline, actorID, "mark leave", func(ctx context.Context) (*models.Attendance, error) {
		day := truncateToDay(date)
		existing, err := s.store.GetForDate(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.NewConflictError("an attendance record already exists for that day")
		}
		return s.store.Create(ctx, models.Attendance{
			UserID: userID,
			Date:   day,
			Status: models.AttendanceOnLeave,
			Notes:  notes,
		})
	}, CachePrefix)
}

func (s *Service) today() time.Time {
	return truncateToDay(s.now())
}

func truncateToDay(t time.Time) time.Time {
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
	return fmt.Sprintf("%slist:user=%s:status=%s:from=%s:to=%s", CachePrefix, f.UserID, f.Status, from, to)
}
