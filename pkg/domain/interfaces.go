package domain

import (
	"context"
	"time"
)

// CacheRepository abstracts the cache backend so services and tests can
// substitute an in-memory implementation with deterministic timing.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// NotificationLevel classifies a user-facing notification
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
	NotifyWarning NotificationLevel = "warning"
)

// Notification is a user-facing event emitted by the mutation pipeline and
// background tasks. It is the backend rendering of the front-end toast.
type Notification struct {
	UserID  string            `json:"user_id"`
	Level   NotificationLevel `json:"level"`
	Action  string            `json:"action"`
	Message string            `json:"message"`
	At      time.Time         `json:"at"`
}

// Notifier delivers notifications. Injected as a port so core logic stays
// testable without a delivery channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
