package mutation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
)

// recorder captures the ordering of pipeline side effects
type recorder struct {
	events []string
}

func (r *recorder) Invalidate(ctx context.Context, prefix string) error {
	r.events = append(r.events, "invalidate:"+prefix)
	return nil
}

func (r *recorder) Notify(ctx context.Context, n domain.Notification) {
	r.events = append(r.events, "notify:"+string(n.Level)+":"+n.Action)
}

func TestPipeline_SuccessOrdering(t *testing.T) {
	rec := &recorder{}
	p := New(rec, rec, logger.Default())

	got, err := Run(context.Background(), p, "user1", "update follow-up", func(ctx context.Context) (string, error) {
		rec.events = append(rec.events, "write")
		return "row", nil
	}, "followups:", "dashboard:")

	require.NoError(t, err)
	assert.Equal(t, "row", got)

	// Write completes fully before any invalidation, notification last
	assert.Equal(t, []string{
		"write",
		"invalidate:followups:",
		"invalidate:dashboard:",
		"notify:success:update follow-up",
	}, rec.events)
}

func TestPipeline_FailureLeavesCacheUntouched(t *testing.T) {
	rec := &recorder{}
	p := New(rec, rec, logger.Default())

	boom := domain.NewValidationError("due date is required")
	_, err := Run(context.Background(), p, "user1", "create follow-up", func(ctx context.Context) (string, error) {
		return "", boom
	}, "followups:")

	require.ErrorIs(t, err, boom)

	// No partial invalidation on failure
	assert.Equal(t, []string{"notify:error:create follow-up"}, rec.events)
}

func TestPipeline_FailureNotificationCarriesMessage(t *testing.T) {
	var captured domain.Notification
	rec := &recorder{}
	p := New(rec, notifierFunc(func(ctx context.Context, n domain.Notification) { captured = n }), logger.Default())

	err := p.RunVoid(context.Background(), "user2", "delete meeting", func(ctx context.Context) error {
		return domain.NewConflictError("meeting already cancelled")
	})

	require.Error(t, err)
	assert.Equal(t, domain.NotifyError, captured.Level)
	assert.Equal(t, "meeting already cancelled", captured.Message)
	assert.Equal(t, "user2", captured.UserID)
}

func TestPipeline_GenericFallbackMessage(t *testing.T) {
	var captured domain.Notification
	rec := &recorder{}
	p := New(rec, notifierFunc(func(ctx context.Context, n domain.Notification) { captured = n }), logger.Default())

	err := p.RunVoid(context.Background(), "user3", "check in", func(ctx context.Context) error {
		return errors.New("dial tcp: connection refused")
	})

	require.Error(t, err)
	// Raw transport errors never reach the user verbatim
	assert.Equal(t, "An unexpected error occurred. Please try again.", captured.Message)
}

type notifierFunc func(ctx context.Context, n domain.Notification)

func (f notifierFunc) Notify(ctx context.Context, n domain.Notification) { f(ctx, n) }
