package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
)

// DefaultTTL bounds sessions whose token carries no expiry.
const DefaultTTL = 12 * time.Hour

// Manager creates, resolves and destroys officer sessions on top of a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	log   *zap.SugaredLogger
	now   func() time.Time

	mu        sync.RWMutex
	onDestroy []func(id string)
}

func NewManager(store Store, ttl time.Duration, log *zap.SugaredLogger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Manager{store: store, ttl: ttl, log: log, now: time.Now}
	if n, ok := store.(expiryNotifier); ok {
		n.OnExpire(m.expired)
	}
	return m
}

// OnDestroy registers fn to run after a session is destroyed.
func (m *Manager) OnDestroy(fn func(id string)) {
	m.mu.Lock()
	m.onDestroy = append(m.onDestroy, fn)
	m.mu.Unlock()
}

// Create stores a new session for officer. The session never outlives a JWT
// token's exp claim.
func (m *Manager) Create(ctx context.Context, officer v1.Officer, token string) (*Session, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}
	now := m.now()
	expires := now.Add(m.ttl)
	if exp, ok := TokenExpiry(token); ok {
		if !exp.After(now) {
			return nil, ErrTokenExpired
		}
		if exp.Before(expires) {
			expires = exp
		}
	}
	s := &Session{
		ID:        uuid.NewString(),
		Officer:   officer,
		Token:     token,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: expires,
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	metrics.SessionEvents.WithLabelValues("created").Inc()
	m.reportActive(ctx)
	m.log.Debugw("Session created", "officer", officer.EmployeeID, "expiresAt", expires)
	return s, nil
}

// Lookup returns the live session for id or ErrNotFound. Other errors mean
// the store could not answer.
func (m *Manager) Lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.log.Warnw("Failed to delete expired session", "error", err)
		}
		m.expired(id)
		return nil, ErrNotFound
	}
	return s, nil
}

// Touch records activity on s.
func (m *Manager) Touch(ctx context.Context, s *Session) error {
	s.LastSeen = m.now()
	return m.store.Save(ctx, s)
}

// Destroy removes the session and runs the destroy hooks.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.SessionEvents.WithLabelValues("destroyed").Inc()
	m.notify(id)
	m.reportActive(ctx)
	return nil
}

// Ping reports whether the store is able to answer lookups.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := m.store.Get(ctx, "readiness-probe")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (m *Manager) Close() error {
	return m.store.Close()
}

// ReportActive refreshes the active sessions gauge every interval until ctx
// is done. Stores that expire sessions on their own, like Redis, only show up
// in the gauge this way.
func (m *Manager) ReportActive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reportActive(ctx)
		}
	}
}

// expired handles a session that ran out, whether found by Lookup or by the
// store's sweeper.
func (m *Manager) expired(id string) {
	metrics.SessionEvents.WithLabelValues("expired").Inc()
	m.notify(id)
	m.reportActive(context.Background())
}

func (m *Manager) notify(id string) {
	m.mu.RLock()
	hooks := append([]func(string){}, m.onDestroy...)
	m.mu.RUnlock()
	for _, fn := range hooks {
		fn(id)
	}
}

func (m *Manager) reportActive(ctx context.Context) {
	c, ok := m.store.(counter)
	if !ok {
		return
	}
	n, err := c.Count(ctx)
	if err != nil {
		m.log.Debugw("Could not count active sessions", "error", err)
		return
	}
	metrics.ActiveSessions.Set(float64(n))
}
