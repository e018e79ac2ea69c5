// Package query is the read cache between console views and the advisory
// API. Reads are keyed, shared while fresh, de-duplicated while in flight and
// retried once on transient failure. Mutations invalidate by key prefix so
// the next read goes to the backend.
package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
)

const (
	DefaultStaleTime    = 5 * time.Minute
	DefaultRetries      = 1
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultFetchTimeout = 30 * time.Second
	DefaultIdleTimeout  = 30 * time.Minute
)

// Fetcher loads the value for a key from the backend.
type Fetcher func(ctx context.Context) (any, error)

type Options struct {
	StaleTime  time.Duration
	Retries    int
	RetryDelay time.Duration
	// FetchTimeout bounds a shared load, retries included. A load outlives
	// the request that started it so callers that joined it are not cut off.
	FetchTimeout time.Duration
	// IdleTimeout is how long an unread key is kept before Sweep drops it.
	IdleTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.StaleTime <= 0 {
		o.StaleTime = DefaultStaleTime
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	return o
}

type entry struct {
	value     any
	hasValue  bool
	fetchedAt time.Time
	usedAt    time.Time
	stale     bool
	// epoch of the last invalidation that touched this key
	invalidated uint64
}

type Cache struct {
	opts  Options
	group singleflight.Group
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	epoch   uint64
}

func New(opts Options) *Cache {
	return &Cache{
		opts:    opts.withDefaults(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

type fetchConfig struct {
	fresh bool
}

type FetchOption func(*fetchConfig)

// Fresh skips the stale-time check so the read always reaches the backend.
// Polling fragments use it.
func Fresh() FetchOption {
	return func(c *fetchConfig) { c.fresh = true }
}

// Fetch returns the cached value for key or loads it through fetch. When the
// load fails the last known value, if any, is returned together with the
// error so views can keep showing it.
func (c *Cache) Fetch(ctx context.Context, key string, fetch Fetcher, opts ...FetchOption) (any, error) {
	var cfg fetchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	c.mu.Lock()
	now := c.now()
	e, ok := c.entries[key]
	if ok {
		e.usedAt = now
	}
	if ok && e.hasValue && !cfg.fresh && !e.stale && now.Sub(e.fetchedAt) < c.opts.StaleTime {
		v := e.value
		c.mu.Unlock()
		metrics.CacheFetches.WithLabelValues("hit").Inc()
		return v, nil
	}
	if !ok {
		c.entries[key] = &entry{usedAt: now}
	}
	start := c.epoch
	c.mu.Unlock()
	metrics.CacheFetches.WithLabelValues("miss").Inc()

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()
		v, err := c.fetchWithRetry(loadCtx, fetch)
		if err == nil {
			c.store(key, v, start)
		}
		return v, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			metrics.CacheFetches.WithLabelValues("error").Inc()
			return c.lastKnown(key), res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return c.lastKnown(key), ctx.Err()
	}
}

func (c *Cache) store(key string, v any, start uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok {
		cur.value = v
		cur.hasValue = true
		cur.fetchedAt = c.now()
		cur.stale = cur.invalidated > start
	}
}

func (c *Cache) fetchWithRetry(ctx context.Context, fetch Fetcher) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(lastErr, ctx.Err())
			case <-time.After(c.opts.RetryDelay * time.Duration(attempt)):
			}
		}
		v, err := fetch(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// retryable excludes 401 and other 4xx responses as well as cancellation.
func retryable(err error) bool {
	if client.IsUnauthorized(err) || client.IsClientError(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Cache) lastKnown(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.hasValue {
		return e.value
	}
	return nil
}

// Invalidate marks every key starting with prefix stale. It returns the number
// of keys touched.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	n := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			e.stale = true
			e.invalidated = c.epoch
			c.group.Forget(key)
			n++
		}
	}
	metrics.CacheInvalidations.Add(float64(n))
	return n
}

// Drop removes every key starting with prefix.
func (c *Cache) Drop(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Sweep drops keys nobody has read within the idle timeout and returns how
// many it dropped. Sessions that end without a logout are reclaimed this way.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.opts.IdleTimeout)
	n := 0
	for key, e := range c.entries {
		if e.usedAt.Before(cutoff) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Run sweeps idle keys every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
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
			c.Sweep()
		}
	}
}

// Len returns the number of tracked keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Scope returns a view of the cache whose keys live under the session id.
func (c *Cache) Scope(sessionID string) *Scope {
	return &Scope{cache: c, prefix: sessionID + "/"}
}

// DropSession forgets everything cached for a session.
func (c *Cache) DropSession(sessionID string) {
	c.Drop(sessionID + "/")
}

// Scope is a per-session namespace of a Cache.
type Scope struct {
	cache  *Cache
	prefix string
}

func (s *Scope) Fetch(ctx context.Context, key string, fetch Fetcher, opts ...FetchOption) (any, error) {
	return s.cache.Fetch(ctx, s.prefix+key, fetch, opts...)
}

// Peek returns the last known value for key without fetching.
func (s *Scope) Peek(key string) (any, bool) {
	v := s.cache.lastKnown(s.prefix + key)
	return v, v != nil
}

func (s *Scope) Invalidate(prefixes ...string) int {
	n := 0
	for _, p := range prefixes {
		n += s.cache.Invalidate(s.prefix + p)
	}
	return n
}

// Get is the typed form of Scope.Fetch. A failed read yields the last known
// value of type T when there is one.
func Get[T any](ctx context.Context, s *Scope, key string, fetch func(ctx context.Context) (T, error), opts ...FetchOption) (T, error) {
	v, err := s.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, opts...)
	var zero T
	if v == nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.Join(err, errors.New("cached value has unexpected type"))
	}
	return typed, err
}
