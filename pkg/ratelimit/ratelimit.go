package ratelimit

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/digitalkrishi/officer-console/pkg/apiresponses"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
)

type Config struct {
	// Rate is the sustained number of requests per second per key.
	Rate float64
	// Burst is the number of requests allowed at once.
	Burst int
	// CleanupInterval controls how often idle keys are evicted.
	CleanupInterval time.Duration
	// MaxAge is how long a key may stay idle before eviction.
	MaxAge time.Duration
}

// DefaultLoginConfig limits login attempts per client IP.
func DefaultLoginConfig() Config {
	return Config{
		Rate:            5,
		Burst:           10,
		CleanupInterval: time.Minute,
		MaxAge:          5 * time.Minute,
	}
}

// DefaultOfficerConfig limits page and fragment traffic per officer. Polling
// fragments of several open tabs stay well below it.
func DefaultOfficerConfig() Config {
	return Config{
		Rate:            20,
		Burst:           60,
		CleanupInterval: time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// KeyFunc extracts the limiter key of a request. An empty key skips limiting.
type KeyFunc func(c *gin.Context) string

// ClientIP keys requests by client IP.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ContextString keys requests by a string stored in the gin context, falling
// back to the client IP.
func ContextString(key string) KeyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get(key); ok {
			if s, ok2 := v.(string); ok2 && s != "" {
				return s
			}
		}
		return c.ClientIP()
	}
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter holds one token bucket per key.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	config   Config
	name     string
	done     chan struct{}
	stopOnce sync.Once
}

// New starts a limiter; name labels its rejections in metrics.
func New(name string, cfg Config) *Limiter {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 5 * time.Minute
	}

	rl := &Limiter{
		entries: make(map[string]*entry),
		config:  cfg,
		name:    name,
		done:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow consumes a token for key.
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, exists := rl.entries[key]
	if !exists {
		e = &entry{
			limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst),
		}
		rl.entries[key] = e
	}
	e.lastAccess = time.Now()

	return e.limiter.Allow()
}

// Middleware rejects over-limit requests. onLimited renders the rejection;
// nil answers 429 with a JSON error.
func (rl *Limiter) Middleware(key KeyFunc, onLimited gin.HandlerFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	return func(c *gin.Context) {
		k := key(c)
		if k == "" || rl.Allow(k) {
			c.Next()
			return
		}
		metrics.RateLimitedRequests.WithLabelValues(rl.name).Inc()
		if onLimited != nil {
			onLimited(c)
		} else {
			apiresponses.RespondTooManyRequests(c)
		}
		c.Abort()
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *Limiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.cleanupStaleEntries()
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, e := range rl.entries {
		if now.Sub(e.lastAccess) > rl.config.MaxAge {
			delete(rl.entries, key)
		}
	}
}

// Len returns the number of tracked keys.
func (rl *Limiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

func (rl *Limiter) Config() Config {
	return rl.config
}
