package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/digitalkrishi/officer-console/pkg/metrics"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int32

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes
	// needed to close again.
	// Default: 2
	SuccessThreshold int

	// OpenTimeout is how long to wait before probing with a half-open request.
	// Default: 30s
	OpenTimeout time.Duration
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calls to a failing sink for OpenTimeout, then lets a
// single probe through.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	logger *zap.Logger
	now    func() time.Time

	mu               sync.Mutex
	state            CircuitState
	consecutiveFails int
	consecutiveSuccs int
	probing          bool
	openedAt         time.Time
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	metrics.AuditCircuitState.WithLabelValues(name).Set(float64(CircuitClosed))
	return &CircuitBreaker{
		name:   name,
		config: cfg,
		logger: logger.Named("circuit-breaker").With(zap.String("sink", name)),
		now:    time.Now,
	}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.acquire() {
		metrics.AuditSinkErrors.WithLabelValues(cb.name, "circuit_open").Inc()
		return ErrCircuitOpen
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) acquire() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.OpenTimeout {
			return false
		}
		cb.transitionLocked(CircuitHalfOpen)
		cb.probing = true
		return true
	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err != nil {
		cb.consecutiveSuccs = 0
		cb.consecutiveFails++
		switch cb.state {
		case CircuitClosed:
			if cb.consecutiveFails >= cb.config.FailureThreshold {
				cb.transitionLocked(CircuitOpen)
			}
		case CircuitHalfOpen:
			cb.transitionLocked(CircuitOpen)
		}
		return
	}

	cb.consecutiveFails = 0
	cb.consecutiveSuccs++
	if cb.state == CircuitHalfOpen && cb.consecutiveSuccs >= cb.config.SuccessThreshold {
		cb.transitionLocked(CircuitClosed)
	}
}

func (cb *CircuitBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.consecutiveFails = 0
	cb.consecutiveSuccs = 0
	if to == CircuitOpen {
		cb.openedAt = cb.now()
	}
	cb.logger.Info("circuit breaker state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	metrics.AuditCircuitState.WithLabelValues(cb.name).Set(float64(to))
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerSink wraps a Sink with circuit breaker protection.
type CircuitBreakerSink struct {
	sink    Sink
	breaker *CircuitBreaker
}

func NewCircuitBreakerSink(sink Sink, cfg CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerSink {
	return &CircuitBreakerSink{
		sink:    sink,
		breaker: NewCircuitBreaker(sink.Name(), cfg, logger),
	}
}

func (s *CircuitBreakerSink) Write(ctx context.Context, event *Event) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.sink.Write(ctx, event)
	})
}

func (s *CircuitBreakerSink) WriteBatch(ctx context.Context, events []*Event) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		if bs, ok := s.sink.(BatchSink); ok {
			return bs.WriteBatch(ctx, events)
		}
		for _, event := range events {
			if err := s.sink.Write(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *CircuitBreakerSink) Close() error {
	return s.sink.Close()
}

func (s *CircuitBreakerSink) Name() string {
	return s.sink.Name()
}

// Breaker returns the underlying circuit breaker for status checks.
func (s *CircuitBreakerSink) Breaker() *CircuitBreaker {
	return s.breaker
}
