// Package session keeps officer sessions on the server. A session binds the
// officer identity to the bearer token issued by the advisory API and is
// addressed by an opaque id carried in an HTTP-only cookie.
package session

import (
	"context"
	"errors"
	"time"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

var (
	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrTokenExpired is returned when creating a session for an expired token.
	ErrTokenExpired = errors.New("bearer token already expired")
)

type Session struct {
	ID        string     `json:"id"`
	Officer   v1.Officer `json:"officer"`
	Token     string     `json:"token"`
	CreatedAt time.Time  `json:"created_at"`
	LastSeen  time.Time  `json:"last_seen"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get returns ErrNotFound for missing ids and hands
// out expired sessions unchanged; the Manager decides what expiry means.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// expiryNotifier is implemented by stores that drop expired sessions on their
// own and can report which ones they dropped.
type expiryNotifier interface {
	OnExpire(fn func(id string))
}

// counter is implemented by stores that can count live sessions.
type counter interface {
	Count(ctx context.Context) (int, error)
}
