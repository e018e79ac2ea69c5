package query

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/client"
)

func counting(calls *atomic.Int32, value any, err error) Fetcher {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, err
	}
}

func TestFetchServesFreshValueFromCache(t *testing.T) {
	c := New(Options{StaleTime: time.Minute})
	var calls atomic.Int32

	v, err := c.Fetch(context.Background(), "dashboard", counting(&calls, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Fetch(context.Background(), "dashboard", counting(&calls, 2, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRefetchesAfterStaleTime(t *testing.T) {
	c := New(Options{StaleTime: time.Minute})
	now := time.Now()
	c.now = func() time.Time { return now }
	var calls atomic.Int32

	_, err := c.Fetch(context.Background(), "k", counting(&calls, "a", nil))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	v, err := c.Fetch(context.Background(), "k", counting(&calls, "b", nil))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchFreshBypassesCache(t *testing.T) {
	c := New(Options{})
	var calls atomic.Int32

	_, _ = c.Fetch(context.Background(), "k", counting(&calls, 1, nil))
	_, _ = c.Fetch(context.Background(), "k", counting(&calls, 1, nil), Fresh())
	_, _ = c.Fetch(context.Background(), "k", counting(&calls, 1, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidateByPrefix(t *testing.T) {
	c := New(Options{})
	scope := c.Scope("s1")
	ctx := context.Background()
	var calls atomic.Int32

	_, _ = scope.Fetch(ctx, "escalations:pending:all:100", counting(&calls, 1, nil))
	_, _ = scope.Fetch(ctx, "escalations:all:urgent:100", counting(&calls, 1, nil))
	_, _ = scope.Fetch(ctx, "profile", counting(&calls, 1, nil))
	require.Equal(t, int32(3), calls.Load())

	assert.Equal(t, 2, scope.Invalidate(KeyEscalations))

	_, _ = scope.Fetch(ctx, "escalations:pending:all:100", counting(&calls, 2, nil))
	_, _ = scope.Fetch(ctx, "profile", counting(&calls, 2, nil))
	assert.Equal(t, int32(4), calls.Load(), "only invalidated keys refetch")
}

func TestScopesAreIsolated(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	var calls atomic.Int32

	a, _ := c.Scope("officer-a").Fetch(ctx, "dashboard", counting(&calls, "a", nil))
	b, _ := c.Scope("officer-b").Fetch(ctx, "dashboard", counting(&calls, "b", nil))
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)

	c.Scope("officer-a").Invalidate(KeyDashboard)
	v, _ := c.Scope("officer-b").Fetch(ctx, "dashboard", counting(&calls, "b2", nil))
	assert.Equal(t, "b", v)

	c.DropSession("officer-a")
	assert.Equal(t, 1, c.Len())
}

func TestFetchRetriesOnce(t *testing.T) {
	c := New(Options{RetryDelay: time.Millisecond})
	var calls atomic.Int32
	v, err := c.Fetch(context.Background(), "k", func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), calls.Load())

	calls.Store(0)
	_, err = c.Fetch(context.Background(), "down", counting(&calls, nil, errors.New("down")))
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load(), "one retry only")
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	c := New(Options{RetryDelay: time.Millisecond})
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity} {
		var calls atomic.Int32
		_, err := c.Fetch(context.Background(), "k", counting(&calls, nil, &client.HTTPError{StatusCode: status}), Fresh())
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
	}
}

func TestFetchReturnsLastKnownValueOnError(t *testing.T) {
	c := New(Options{RetryDelay: time.Millisecond})
	var calls atomic.Int32
	_, err := c.Fetch(context.Background(), "k", counting(&calls, "old", nil))
	require.NoError(t, err)

	v, err := c.Fetch(context.Background(), "k", counting(&calls, nil, errors.New("boom")), Fresh())
	require.Error(t, err)
	assert.Equal(t, "old", v)
}

func TestFetchDeduplicatesConcurrentReads(t *testing.T) {
	c := New(Options{})
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Fetch(context.Background(), "k", fetch, Fresh())
		}(i)
	}
	// Give the goroutines time to join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestCanceledCallerDoesNotFailJoinedReads(t *testing.T) {
	c := New(Options{})
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "rows", nil
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Fetch(first, "escalations:pending:all:100", fetch, Fresh())
		firstErr <- err
	}()
	<-started

	type result struct {
		v   any
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := c.Fetch(context.Background(), "escalations:pending:all:100", fetch, Fresh())
		second <- result{v, err}
	}()
	// Let the second read join the flight before the first caller goes away.
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "rows", got.v)
	assert.Equal(t, int32(1), calls.Load())

	v, err := c.Fetch(context.Background(), "escalations:pending:all:100", counting(&calls, "other", nil))
	require.NoError(t, err)
	assert.Equal(t, "rows", v, "the shared load is cached")
}

func TestFetchTimeoutBoundsSharedLoad(t *testing.T) {
	c := New(Options{Retries: 0, FetchTimeout: 20 * time.Millisecond})
	_, err := c.Fetch(context.Background(), "k", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSweepDropsIdleKeys(t *testing.T) {
	c := New(Options{IdleTimeout: time.Minute})
	now := time.Now()
	c.now = func() time.Time { return now }
	var calls atomic.Int32

	_, _ = c.Scope("gone").Fetch(context.Background(), KeyDashboard, counting(&calls, 1, nil))
	now = now.Add(45 * time.Second)
	_, _ = c.Scope("active").Fetch(context.Background(), KeyDashboard, counting(&calls, 1, nil))
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Scope("active").Peek(KeyDashboard)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, c.Sweep())
	assert.Zero(t, c.Len())
}

func TestRunSweepsUntilCanceled(t *testing.T) {
	c := New(Options{IdleTimeout: time.Millisecond})
	var calls atomic.Int32
	_, _ = c.Fetch(context.Background(), "k", counting(&calls, 1, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, 5*time.Millisecond)
	}()
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestInvalidateDuringFlightKeepsEntryStale(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Fetch(ctx, "escalations:pending:all:100", func(context.Context) (any, error) {
			close(started)
			<-release
			return "before", nil
		})
	}()
	<-started
	c.Invalidate(KeyEscalations)
	close(release)
	<-done

	var calls atomic.Int32
	v, err := c.Fetch(ctx, "escalations:pending:all:100", counting(&calls, "after", nil))
	require.NoError(t, err)
	assert.Equal(t, "after", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetTyped(t *testing.T) {
	scope := New(Options{}).Scope("s")
	stats, err := Get(context.Background(), scope, KeyDashboard, func(context.Context) (*v1.DashboardStats, error) {
		return &v1.DashboardStats{PendingEscalations: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PendingEscalations)

	list, err := Get(context.Background(), scope, "missing", func(context.Context) ([]v1.Escalation, error) {
		return nil, &client.HTTPError{StatusCode: http.StatusNotFound}
	})
	require.Error(t, err)
	assert.Nil(t, list)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "escalations:pending:all:100", EscalationsKey(v1.DefaultEscalationFilter()))
	assert.Equal(t, "escalation:7", EscalationKey(7))
	assert.Equal(t, "analytics:30d", AnalyticsKey("30d"))
}

func TestScopePeek(t *testing.T) {
	scope := New(Options{}).Scope("s")
	_, ok := scope.Peek(EscalationKey(7))
	assert.False(t, ok)

	_, err := scope.Fetch(context.Background(), EscalationKey(7), func(context.Context) (any, error) {
		return &v1.Escalation{ID: 7, Status: v1.StatusResolved}, nil
	})
	require.NoError(t, err)
	scope.Invalidate(EscalationKey(7))

	v, ok := scope.Peek(EscalationKey(7))
	require.True(t, ok)
	assert.Equal(t, v1.StatusResolved, v.(*v1.Escalation).Status)
}
