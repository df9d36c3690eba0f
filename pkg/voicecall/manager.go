// Package voicecall manages AI voice-call sessions. One session may be active
// per user at a time; its id and last known status are persisted in Redis so a
// reconnecting client resumes polling instead of losing the call.
package voicecall

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulsecrm/backend/pkg/aihub"
	"github.com/pulsecrm/backend/pkg/cache"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/logger"
)

const (
	// DefaultPollInterval matches the upstream service's expected polling rate
	DefaultPollInterval = time.Second

	// MaxConsecutiveErrors stops a poller that keeps failing
	MaxConsecutiveErrors = 5

	sessionKeyPrefix = "voicecall:session:"
	sessionTTL       = 4 * time.Hour
)

// Terminal call statuses. Reaching one clears the session and stops polling.
const (
	StatusIdle      = "idle"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Caller is the slice of the AI microservice the manager needs
type Caller interface {
	StartCall(ctx context.Context, phone string) (*aihub.CallSession, error)
	CallStatus(ctx context.Context, sessionID string) (*aihub.CallSession, error)
	EndCall(ctx context.Context, sessionID string) (*aihub.CallSession, error)
}

// Session is the persisted state of an in-progress call
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

// Manager owns the session lifecycle and the per-session polling loops
type Manager struct {
	caller   Caller
	store    *cache.Client
	notifier domain.Notifier
	log      logger.Logger
	interval time.Duration

	mu      sync.Mutex
	pollers map[string]context.CancelFunc // keyed by session id
	wg      sync.WaitGroup
}

// NewManager creates a voice-call manager polling at DefaultPollInterval
func NewManager(caller Caller, store *cache.Client, notifier domain.Notifier, log logger.Logger) *Manager {
	return &Manager{
		caller:   caller,
		store:    store,
		notifier: notifier,
		log:      log,
		interval: DefaultPollInterval,
		pollers:  make(map[string]context.CancelFunc),
	}
}

// Start begins a call for the user and starts polling its status. A user with
// a live session must end it first.
func (m *Manager) Start(ctx context.Context, userID, phone string) (*Session, error) {
	if phone == "" {
		return nil, domain.NewValidationError("phone is required")
	}
	if existing, err := m.load(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil && !IsTerminal(existing.Status) {
		return nil, domain.NewConflictError("a call is already in progress")
	}

	upstream, err := m.caller.StartCall(ctx, phone)
	if err != nil {
		return nil, err
	}

	s := &Session{ID: upstream.ID, UserID: userID, Phone: phone, Status: upstream.Status}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	m.startPoller(s)
	return s, nil
}

// Resume reloads the user's persisted session and restarts polling if the
// call is still live. Returns nil when there is nothing to resume.
func (m *Manager) Resume(ctx context.Context, userID string) (*Session, error) {
	s, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	if IsTerminal(s.Status) {
		m.clear(ctx, userID)
		return nil, nil
	}
	m.startPoller(s)
	return s, nil
}

// Current returns the user's persisted session without touching the poller
func (m *Manager) Current(ctx context.Context, userID string) (*Session, error) {
	return m.load(ctx, userID)
}

// End terminates the user's call upstream and clears the session
func (m *Manager) End(ctx context.Context, userID string) (*Session, error) {
	s, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.NewNotFoundError("voice-call session")
	}

	m.stopPoller(s.ID)

	upstream, err := m.caller.EndCall(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Status = upstream.Status
	m.clear(ctx, userID)
	return s, nil
}

// Shutdown stops every poller and waits for them to exit
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for id, cancel := range m.pollers {
		cancel()
		delete(m.pollers, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// IsTerminal reports whether a call status ends the session
func IsTerminal(status string) bool {
	switch status {
	case StatusIdle, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// startPoller launches the polling loop unless one is already running for
// this session id.
func (m *Manager) startPoller(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, running := m.pollers[s.ID]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.pollers[s.ID] = cancel
	m.wg.Add(1)
	go m.poll(ctx, *s)
}

func (m *Manager) stopPoller(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.pollers[sessionID]; ok {
		cancel()
		delete(m.pollers, sessionID)
	}
}

func (m *Manager) poll(ctx context.Context, s Session) {
	defer m.wg.Done()
	defer m.stopPoller(s.ID)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	errCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		upstream, err := m.caller.CallStatus(ctx, s.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			errCount++
			m.log.Warn("voice call status poll failed",
				"session_id", s.ID, "consecutive_errors", errCount, "error", err)
			if errCount >= MaxConsecutiveErrors {
				m.notifier.Notify(ctx, domain.Notification{
					UserID:  s.UserID,
					Level:   domain.NotifyError,
					Action:  "voice call",
					Message: "Lost connection to the call. Please check the call status manually.",
					At:      time.Now().UTC(),
				})
				return
			}
			continue
		}
		errCount = 0

		if upstream.Status != s.Status {
			s.Status = upstream.Status
			if err := m.save(ctx, &s); err != nil {
				m.log.Warn("failed to persist call status", "session_id", s.ID, "error", err)
			}
		}

		if IsTerminal(s.Status) {
			m.clear(ctx, s.UserID)
			m.notifier.Notify(ctx, domain.Notification{
				UserID:  s.UserID,
				Level:   levelFor(s.Status),
				Action:  "voice call",
				Message: "Call " + s.Status,
				At:      time.Now().UTC(),
			})
			return
		}
	}
}

func levelFor(status string) domain.NotificationLevel {
	if status == StatusFailed {
		return domain.NotifyError
	}
	return domain.NotifySuccess
}

func (m *Manager) load(ctx context.Context, userID string) (*Session, error) {
	raw, err := m.store.Get(ctx, sessionKeyPrefix+userID)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to load voice-call session", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, domain.NewInternalError("failed to decode voice-call session", err)
	}
	return &s, nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return domain.NewInternalError("failed to encode voice-call session", err)
	}
	if err := m.store.Set(ctx, sessionKeyPrefix+s.UserID, raw, sessionTTL); err != nil {
		return domain.NewInternalError("failed to persist voice-call session", err)
	}
	return nil
}

func (m *Manager) clear(ctx context.Context, userID string) {
	if err := m.store.Delete(ctx, sessionKeyPrefix+userID); err != nil {
		m.log.Warn("failed to clear voice-call session", "user_id", userID, "error", err)
	}
}
