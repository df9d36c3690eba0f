// Package mutation orchestrates "write, then make dependent reads consistent,
// then notify the user" as one strictly ordered pipeline.
package mutation

import (
	"context"
	"time"

	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
)

// Invalidator is the slice of the query cache the pipeline needs
type Invalidator interface {
	Invalidate(ctx context.Context, prefix string) error
}

// Pipeline wraps repository writes. On success it invalidates each dependent
// cache-key prefix and emits a success notification; on failure it emits a
// failure notification and leaves cached reads untouched. The write always
// completes fully, including server confirmation, before any invalidation.
// There is no automatic retry: failures are surfaced and retry is left to
// explicit user action.
type Pipeline struct {
	cache    Invalidator
	notifier domain.Notifier
	log      logger.Logger
}

// New creates a mutation pipeline
func New(cache Invalidator, notifier domain.Notifier, log logger.Logger) *Pipeline {
	return &Pipeline{
		cache:    cache,
		notifier: notifier,
		log:      log,
	}
}

// Run executes a typed write through the pipeline. Prefixes are invalidated
// only after the write succeeds, in the order given.
func Run[T any](ctx context.Context, p *Pipeline, userID, action string, write func(context.Context) (T, error), prefixes ...string) (T, error) {
	var zero T

	result, err := write(ctx)
	if err != nil {
		p.log.Warn("mutation failed", "action", action, "error", err)
		p.notifier.Notify(ctx, domain.Notification{
			UserID:  userID,
			Level:   domain.NotifyError,
			Action:  action,
			Message: domain.MessageOf(err),
			At:      time.Now(),
		})
		return zero, err
	}

	for _, prefix := range prefixes {
		if err := p.cache.Invalidate(ctx, prefix); err != nil {
			// The write is already durable; a failed invalidation only
			// delays freshness until the entry TTL expires
			p.log.Warn("cache invalidation failed", "action", action, "prefix", prefix, "error", err)
		}
	}

	p.notifier.Notify(ctx, domain.Notification{
		UserID:  userID,
		Level:   domain.NotifySuccess,
		Action:  action,
		Message: action + " succeeded",
		At:      time.Now(),
	})

	return result, nil
}

// RunVoid executes a write that produces no value
func (p *Pipeline) RunVoid(ctx context.Context, userID, action string, write func(context.Context) error, prefixes ...string) error {
	_, err := Run(ctx, p, userID, action, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, write(ctx)
	}, prefixes...)
	return err
}
