package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
	"github.com/digitalkrishi/officer-console/pkg/query"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "KL-1001"}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = TokenExpiry(signedToken(t, time.Time{}))
	assert.False(t, ok, "token without exp")

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)

	_, ok = TokenExpiry("")
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(0)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	s := &Session{ID: "abc", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	got.Token = "mutated"
	again, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "tok", again.Token, "store must hand out copies")

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore(0)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, &Session{ID: "new", ExpiresAt: time.Now().Add(time.Minute)}))
	require.Equal(t, 2, store.Len())
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "expired sessions are not counted")

	old, err := store.Get(ctx, "old")
	require.NoError(t, err, "the manager decides about expiry")
	assert.True(t, old.Expired(time.Now()))

	var dropped []string
	store.OnExpire(func(id string) { dropped = append(dropped, id) })
	assert.Equal(t, []string{"old"}, store.sweep())
	assert.Equal(t, []string{"old"}, dropped)
	assert.Equal(t, 1, store.Len())
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "close is idempotent")
}

func TestManagerCreateBoundsExpiryByToken(t *testing.T) {
	mgr := NewManager(NewMemoryStore(0), 12*time.Hour, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	officer := v1.Officer{ID: 1, EmployeeID: "KL-1001", Name: "Meera"}

	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	s, err := mgr.Create(ctx, officer, signedToken(t, exp))
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.True(t, s.ExpiresAt.Equal(exp))

	opaque, err := mgr.Create(ctx, officer, "opaque")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), opaque.ExpiresAt, time.Minute)
	assert.NotEqual(t, s.ID, opaque.ID)

	_, err = mgr.Create(ctx, officer, signedToken(t, time.Now().Add(-time.Minute)))
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = mgr.Create(ctx, officer, "")
	require.Error(t, err)
}

func TestManagerLookupAndDestroy(t *testing.T) {
	mgr := NewManager(NewMemoryStore(0), time.Hour, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	var destroyed atomic.Value
	mgr.OnDestroy(func(id string) { destroyed.Store(id) })

	s, err := mgr.Create(ctx, v1.Officer{EmployeeID: "KL-7"}, "tok")
	require.NoError(t, err)

	got, err := mgr.Lookup(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "KL-7", got.Officer.EmployeeID)

	require.NoError(t, mgr.Touch(ctx, got))

	require.NoError(t, mgr.Destroy(ctx, s.ID))
	assert.Equal(t, s.ID, destroyed.Load())

	_, err = mgr.Lookup(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.Lookup(ctx, "")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mgr.Ping(ctx))
}

func TestManagerLookupExpired(t *testing.T) {
	mgr := NewManager(NewMemoryStore(0), time.Hour, nil)
	ctx := context.Background()
	s, err := mgr.Create(ctx, v1.Officer{}, "tok")
	require.NoError(t, err)

	var notified bool
	mgr.OnDestroy(func(string) { notified = true })
	mgr.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = mgr.Lookup(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, notified)
}

type failingStore struct{ Store }

func (failingStore) Get(context.Context, string) (*Session, error) {
	return nil, errors.New("connection refused")
}

func TestManagerPingReportsStoreFailure(t *testing.T) {
	mgr := NewManager(failingStore{}, time.Hour, nil)
	require.Error(t, mgr.Ping(context.Background()))

	_, err := mgr.Lookup(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSweptSessionsReleaseCachedReads(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	defer func() { _ = store.Close() }()
	mgr := NewManager(store, 200*time.Millisecond, zaptest.NewLogger(t).Sugar())
	cache := query.New(query.Options{})
	mgr.OnDestroy(cache.DropSession)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		s, err := mgr.Create(ctx, v1.Officer{EmployeeID: "KL-1"}, "tok")
		require.NoError(t, err)
		_, err = cache.Scope(s.ID).Fetch(ctx, query.KeyDashboard, func(context.Context) (any, error) {
			return &v1.DashboardStats{}, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 50, cache.Len())

	require.Eventually(t, func() bool {
		return store.Len() == 0 && cache.Len() == 0 && testutil.ToFloat64(metrics.ActiveSessions) == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestManagerReportsActiveSessions(t *testing.T) {
	store := NewMemoryStore(0)
	mgr := NewManager(store, time.Hour, nil)
	ctx := context.Background()

	a, err := mgr.Create(ctx, v1.Officer{}, "tok")
	require.NoError(t, err)
	_, err = mgr.Create(ctx, v1.Officer{}, "tok")
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActiveSessions))

	require.NoError(t, store.Save(ctx, &Session{ID: "stale", ExpiresAt: time.Now().Add(-time.Second)}))
	reportCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		mgr.ReportActive(reportCtx, 5*time.Millisecond)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActiveSessions), "expired entries are not active")

	require.NoError(t, mgr.Destroy(ctx, a.ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActiveSessions))
}

// fakeRedis keeps values and TTLs in a map.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	fail   error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStringResult("", f.fail)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			delete(f.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisStore(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake, "")
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s := &Session{ID: "abc", Officer: v1.Officer{Name: "Meera"}, Token: "tok", ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, time.Minute, fake.ttls[DefaultRedisPrefix+"abc"], "TTL follows the session expiry")

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Meera", got.Officer.Name)

	require.NoError(t, store.Save(ctx, &Session{ID: "forever", Token: "tok"}))
	assert.Zero(t, fake.ttls[DefaultRedisPrefix+"forever"], "no expiry means no TTL")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreSaveExpiredDeletes(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake, "krishi:test:")
	ctx := context.Background()

	s := &Session{ID: "gone", Token: "tok", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Save(ctx, s))
	require.Contains(t, fake.values, "krishi:test:gone")

	s.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Save(ctx, s))
	assert.NotContains(t, fake.values, "krishi:test:gone")
}

func TestRedisStoreErrors(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake, "")
	ctx := context.Background()

	fake.values[DefaultRedisPrefix+"bad"] = "{not json"
	_, err := store.Get(ctx, "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	fake.fail = errors.New("connection refused")
	_, err = store.Get(ctx, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read session")

	mgr := NewManager(store, time.Hour, nil)
	require.Error(t, mgr.Ping(ctx))
}

func TestManagerLookupExpiredRedisSession(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake, "")
	mgr := NewManager(store, time.Hour, nil)
	ctx := context.Background()

	s, err := mgr.Create(ctx, v1.Officer{}, "tok")
	require.NoError(t, err)
	var notified string
	mgr.OnDestroy(func(id string) { notified = id })
	mgr.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = mgr.Lookup(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, s.ID, notified)
	assert.NotContains(t, fake.values, DefaultRedisPrefix+s.ID)
}
