package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	cb := NewCircuitBreaker("webhook", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}, zaptest.NewLogger(t))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	fail := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }
	ctx := context.Background()

	assert.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open circuit must not call through")

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, CircuitHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("kafka", CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second}, zaptest.NewLogger(t))
	now := time.Now()
	cb.now = func() time.Time { return now }

	ctx := context.Background()
	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("x") })
	require.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("still down") })
	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreakerSink_WrapsBatchAndSingle(t *testing.T) {
	batch := &recordingBatchSink{}
	s := NewCircuitBreakerSink(batch, DefaultCircuitBreakerConfig(), zaptest.NewLogger(t))
	assert.Equal(t, "recording", s.Name())

	require.NoError(t, s.Write(context.Background(), &Event{ID: "1"}))
	require.NoError(t, s.WriteBatch(context.Background(), []*Event{{ID: "2"}, {ID: "3"}}))
	assert.Len(t, batch.Events(), 3)
	assert.Equal(t, int64(1), batch.batches.Load())

	single := &recordingSink{}
	s2 := NewCircuitBreakerSink(single, DefaultCircuitBreakerConfig(), zaptest.NewLogger(t))
	require.NoError(t, s2.WriteBatch(context.Background(), []*Event{{ID: "a"}, {ID: "b"}}))
	assert.Len(t, single.Events(), 2)
	assert.Equal(t, CircuitClosed, s2.Breaker().State())

	require.NoError(t, s2.Close())
	assert.True(t, single.closed.Load())
}
