package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Expired entries are swept
// periodically.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	onExpire func(id string)
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewMemoryStore starts a store that sweeps expired sessions every interval.
// A non-positive interval disables the sweeper.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go m.sweepLoop(sweepInterval)
	}
	return m
}

// OnExpire sets the function the sweeper calls for every session it drops.
func (m *MemoryStore) OnExpire(fn func(id string)) {
	m.mu.Lock()
	m.onExpire = fn
	m.mu.Unlock()
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	m.sessions[s.ID] = *s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Count returns the number of sessions that have not expired.
func (m *MemoryStore) Count(context.Context) (int, error) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if !s.Expired(now) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep drops expired sessions and reports each one to the OnExpire hook,
// outside the lock.
func (m *MemoryStore) sweep() []string {
	now := m.now()
	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, id := range expired {
			hook(id)
		}
	}
	return expired
}
