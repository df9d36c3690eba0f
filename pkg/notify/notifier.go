// Package notify provides Notifier implementations. The front-end toast
// becomes a per-user event published on a Redis channel, which the realtime
// layer fans out to connected clients.
package notify

import (
	"context"
	"encoding/json"

	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
)

// ChannelPrefix namespaces per-user notification channels
const ChannelPrefix = "notify:"

// LogNotifier writes notifications to the structured log. Used in development
// and as the inner notifier for tests.
type LogNotifier struct {
	Log logger.Logger
}

// Notify logs the notification
func (n *LogNotifier) Notify(ctx context.Context, event domain.Notification) {
	n.Log.Info("notification",
		"user_id", event.UserID,
		"level", string(event.Level),
		"action", event.Action,
		"message", event.Message,
	)
}

// RedisNotifier publishes notifications to a per-user pub/sub channel
type RedisNotifier struct {
	client *cache.Client
	log    logger.Logger
}

// NewRedisNotifier creates a Redis-backed notifier
func NewRedisNotifier(client *cache.Client, log logger.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, log: log}
}

// Notify publishes the notification. Delivery is best effort: a publish
// failure is logged and never fails the mutation that produced the event.
func (n *RedisNotifier) Notify(ctx context.Context, event domain.Notification) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Error("failed encoding notification", "error", err)
		return
	}

	if err := n.client.Publish(ctx, ChannelPrefix+event.UserID, payload); err != nil {
		n.log.Warn("failed publishing notification", "user_id", event.UserID, "error", err)
	}
}

// Multi fans one notification out to several notifiers
type Multi []domain.Notifier

// Notify delivers the notification to every notifier
func (m Multi) Notify(ctx context.Context, event domain.Notification) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}
