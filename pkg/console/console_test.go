package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/api"
	"github.com/digitalkrishi/officer-console/pkg/audit"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/config"
	"github.com/digitalkrishi/officer-console/pkg/query"
	"github.com/digitalkrishi/officer-console/pkg/session"
	"github.com/digitalkrishi/officer-console/pkg/theme"
)

// fakeBackend is an in-memory advisory API.
type fakeBackend struct {
	mu             sync.Mutex
	calls          map[string]int
	listQueries    []url.Values
	responses      []v1.RespondRequest
	profileUpdates []v1.ProfileUpdate
	escalations    []v1.Escalation
	fail           map[string]int
	server         *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	fb := &fakeBackend{
		calls: map[string]int{},
		fail:  map[string]int{},
		escalations: []v1.Escalation{
			{ID: 1, FarmerName: "Ravi Kumar", FarmerPhone: "+919800000001", QueryText: "Leaves of my banana plants are turning yellow", Priority: v1.PriorityUrgent, Status: v1.StatusPending, CreatedAt: now},
			{ID: 2, FarmerName: "Lakshmi", FarmerPhone: "+919800000002", QueryText: "When should I apply fertilizer to paddy?", Priority: v1.PriorityLow, Status: v1.StatusResolved, CreatedAt: now.Add(-time.Hour)},
			{ID: 3, FarmerName: "", FarmerPhone: "+919800000003", QueryText: "Pepper vines wilting after rain", Priority: v1.PriorityHigh, Status: v1.StatusInProgress, CreatedAt: now.Add(-2 * time.Hour)},
		},
	}
	fb.server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) count(key string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[key]
}

func (fb *fakeBackend) setFail(key string, code int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.fail[key] = code
}

func (fb *fakeBackend) lastListQuery() url.Values {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.listQueries) == 0 {
		return nil
	}
	return fb.listQueries[len(fb.listQueries)-1]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls[key]++
	if code, ok := fb.fail[key]; ok {
		writeJSON(w, code, map[string]string{"error": "forced failure"})
		return
	}

	switch {
	case key == "POST /officer/login":
		var req v1.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, v1.LoginResponse{
			Token:   "token-" + req.EmployeeID,
			Officer: v1.Officer{ID: 9, EmployeeID: req.EmployeeID, Name: "Anitha Menon", District: "Thrissur"},
		})
	case key == "GET /officer/dashboard":
		writeJSON(w, http.StatusOK, v1.DashboardStats{PendingEscalations: 12, ActiveCases: 5, ResolvedToday: 7, AvgResponseTime: "3.5 hours"})
	case key == "GET /officer/escalations":
		q := r.URL.Query()
		fb.listQueries = append(fb.listQueries, q)
		out := []v1.Escalation{}
		for _, e := range fb.escalations {
			if s := q.Get("status"); s != "all" && string(e.Status) != s {
				continue
			}
			if p := q.Get("priority"); p != "all" && string(e.Priority) != p {
				continue
			}
			out = append(out, e)
		}
		writeJSON(w, http.StatusOK, v1.EscalationList{Escalations: out})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/officer/escalations/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/officer/escalations/"), 10, 64)
		for _, e := range fb.escalations {
			if e.ID == id {
				writeJSON(w, http.StatusOK, e)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Escalation not found"})
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/officer/respond/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/officer/respond/"), 10, 64)
		var req v1.RespondRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		fb.responses = append(fb.responses, req)
		for i := range fb.escalations {
			if fb.escalations[i].ID == id {
				fb.escalations[i].Status = v1.StatusResolved
			}
		}
		writeJSON(w, http.StatusOK, v1.RespondResult{Success: true, Message: "Response sent", EscalationID: id, Status: v1.StatusResolved})
	case key == "GET /officer/analytics":
		writeJSON(w, http.StatusOK, v1.Analytics{
			Period:           r.URL.Query().Get("period"),
			TotalEscalations: 40,
			Resolved:         30,
			AvgResponseTime:  "4 hours",
			ByPriority:       map[v1.Priority]int{v1.PriorityUrgent: 4, v1.PriorityLow: 20},
			ByStatus:         map[v1.Status]int{v1.StatusResolved: 30, v1.StatusPending: 10},
			ResponseTimes:    []v1.ResponseTimeStat{{Date: "2026-03-01", Hours: 2}, {Date: "2026-03-02", Hours: 4}},
			TopIssues:        []v1.IssueCount{{Name: "Banana leaf spot", Count: 9}},
		})
	case key == "GET /officer/profile":
		writeJSON(w, http.StatusOK, v1.Officer{ID: 9, EmployeeID: "EMP001", Name: "Anitha Menon", Email: "anitha@example.org", Language: "en"})
	case key == "PUT /officer/profile":
		var u v1.ProfileUpdate
		_ = json.NewDecoder(r.Body).Decode(&u)
		fb.profileUpdates = append(fb.profileUpdates, u)
		writeJSON(w, http.StatusOK, v1.Officer{ID: 9, EmployeeID: "EMP001", Name: u.Name, Email: u.Email, Language: u.Language})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no route"})
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (s *recordingSink) Write(_ context.Context, e *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() error { return nil }
func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) types() []audit.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	backend  *fakeBackend
	sessions *session.Manager
	cache    *query.Cache
	audit    *audit.Manager
	sink     *recordingSink
	handler  http.Handler
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	fb := newFakeBackend(t)

	backend, err := client.New(client.WithServer(fb.server.URL))
	require.NoError(t, err)
	renderer, err := NewRenderer(RendererConfig{
		Branding:     "Krishi Officer Console",
		HtmxURL:      "/static/htmx.min.js",
		AssetVersion: "test",
		PollInterval: 30 * time.Second,
		Palette:      theme.Default(),
	}, logger.Sugar())
	require.NoError(t, err)

	store := session.NewMemoryStore(0)
	sessions := session.NewManager(store, time.Hour, logger.Sugar())
	cache := query.New(query.Options{Retries: 0})
	sink := &recordingSink{}
	auditMgr := audit.NewManager(sink, audit.ManagerConfig{WorkerCount: 1}, logger)

	opts := Options{
		Sessions: sessions,
		Cache:    cache,
		Backend:  backend,
		Audit:    auditMgr,
		Renderer: renderer,
	}
	for _, m := range mutate {
		m(&opts)
	}
	con, err := New(opts, logger.Sugar())
	require.NoError(t, err)

	srv := api.NewServer(logger, config.Defaults(), false)
	require.NoError(t, srv.RegisterAll(con.Controllers()))
	srv.NoRoute(con.NoRoute)

	t.Cleanup(func() {
		_ = auditMgr.Close()
		_ = sessions.Close()
	})
	return &harness{backend: fb, sessions: opts.Sessions, cache: cache, audit: auditMgr, sink: sink, handler: srv.Handler()}
}

// login creates a session directly and returns its cookie.
func (h *harness) login(t *testing.T) *http.Cookie {
	t.Helper()
	sess, err := h.sessions.Create(context.Background(), v1.Officer{EmployeeID: "EMP001", Name: "Anitha Menon", District: "Thrissur"}, "token-EMP001")
	require.NoError(t, err)
	return &http.Cookie{Name: config.DefaultCookieName, Value: sess.ID}
}

type reqOpt func(*http.Request)

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) {
		if c != nil {
			r.AddCookie(c)
		}
	}
}

func htmx() reqOpt {
	return func(r *http.Request) { r.Header.Set("HX-Request", "true") }
}

func (h *harness) get(path string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) post(path string, form url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func hxTrigger(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	require.NotEmpty(t, raw, "expected HX-Trigger header")
	var events map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &events))
	return events
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{}, zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
}

func TestGuard_UnauthenticatedRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/", "/escalations", "/escalations/rows", "/case/1", "/analytics", "/settings", "/dashboard/stats"} {
		t.Run(path, func(t *testing.T) {
			w := h.get(path)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))

			w = h.get(path, htmx())
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "/login", w.Header().Get("HX-Redirect"))
		})
	}
	assert.Zero(t, h.backend.count("GET /officer/escalations"))
}

func TestGuard_UnknownSessionClearsCookie(t *testing.T) {
	h := newHarness(t)
	w := h.get("/escalations", withCookie(&http.Cookie{Name: config.DefaultCookieName, Value: "stale"}))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), config.DefaultCookieName+"=;")
}

func TestGuard_LoginRedirectsWhenAuthenticated(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t)

	w := h.get("/login", withCookie(cookie))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = h.get("/login")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sign In")
}

func TestGuard_UnknownPathRedirectsToRoot(t *testing.T) {
	h := newHarness(t)
	w := h.get("/no/such/page")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*session.Session, error) {
	return nil, errors.New("redis: connection refused")
}
func (failingStore) Save(context.Context, *session.Session) error { return errors.New("down") }
func (failingStore) Delete(context.Context, string) error        { return errors.New("down") }
func (failingStore) Close() error                                 { return nil }

func TestGuard_StoreFailureRendersLoading(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Sessions = session.NewManager(failingStore{}, time.Hour, nil)
	})
	cookie := &http.Cookie{Name: config.DefaultCookieName, Value: "any"}

	w := h.get("/escalations", withCookie(cookie))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Loading...")
	assert.Contains(t, w.Body.String(), `http-equiv="refresh"`)

	w = h.get("/dashboard/stats", withCookie(cookie), htmx())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Header().Get("HX-Trigger"), "toast")
}

func TestAuthState_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unknown", AuthState(7).String())
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	t.Run("missing password is rejected locally", func(t *testing.T) {
		w := h.post("/login", url.Values{"employee_id": {"EMP001"}})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Password is required.")
		assert.Zero(t, h.backend.count("POST /officer/login"))
	})

	t.Run("invalid credentials", func(t *testing.T) {
		w := h.post("/login", url.Values{"employee_id": {"EMP001"}, "password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid employee ID or password.")
		assert.Contains(t, w.Body.String(), `value="EMP001"`)
		assert.Empty(t, w.Header().Get("Set-Cookie"))
	})

	t.Run("success sets cookie and redirects", func(t *testing.T) {
		w := h.post("/login", url.Values{"employee_id": {" EMP001 "}, "password": {"secret"}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		setCookie := w.Header().Get("Set-Cookie")
		assert.Contains(t, setCookie, config.DefaultCookieName+"=")
		assert.Contains(t, setCookie, "HttpOnly")
		assert.Contains(t, setCookie, "SameSite=Lax")

		resp := w.Result()
		defer func() { _ = resp.Body.Close() }()
		var cookie *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == config.DefaultCookieName {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		sess, err := h.sessions.Lookup(context.Background(), cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, "EMP001", sess.Officer.EmployeeID)
		assert.Equal(t, "token-EMP001", sess.Token)
	})

	t.Run("backend failure", func(t *testing.T) {
		h.backend.setFail("POST /officer/login", http.StatusInternalServerError)
		w := h.post("/login", url.Values{"employee_id": {"EMP001"}, "password": {"secret"}})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "Login failed. Please try again later.")
	})

	require.NoError(t, h.audit.Close())
	assert.Contains(t, h.sink.types(), audit.EventOfficerLogin)
	assert.Contains(t, h.sink.types(), audit.EventOfficerLoginFailed)
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := ratelimitForTest(t)
	h := newHarness(t, func(o *Options) { o.LoginLimiter = limiter })

	form := url.Values{"employee_id": {"EMP001"}, "password": {"wrong"}}
	assert.Equal(t, http.StatusUnauthorized, h.post("/login", form).Code)

	w := h.post("/login", form)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many login attempts")
	assert.Equal(t, 1, h.backend.count("POST /officer/login"))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t)

	w := h.post("/logout", nil, withCookie(cookie))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	_, err := h.sessions.Lookup(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, h.audit.Close())
	assert.Contains(t, h.sink.types(), audit.EventOfficerLogout)
}

func TestBackendUnauthorizedEndsSession(t *testing.T) {
	pages := []struct {
		path    string
		backend string
	}{
		{"/dashboard/stats", "GET /officer/dashboard"},
		{"/escalations", "GET /officer/escalations"},
		{"/case/1", "GET /officer/escalations/1"},
		{"/analytics", "GET /officer/analytics"},
		{"/settings", "GET /officer/profile"},
	}
	for _, p := range pages {
		t.Run(p.path, func(t *testing.T) {
			h := newHarness(t)
			cookie := h.login(t)
			h.backend.setFail(p.backend, http.StatusUnauthorized)

			w := h.get(p.path, withCookie(cookie), htmx())
			assert.Equal(t, "/login", w.Header().Get("HX-Redirect"))

			w = h.get("/", withCookie(cookie))
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))

			require.NoError(t, h.audit.Close())
			assert.Contains(t, h.sink.types(), audit.EventSessionExpired)
		})
	}
}

func TestBackendUnauthorizedDropsCachedData(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t)

	require.Equal(t, http.StatusOK, h.get("/escalations", withCookie(cookie)).Code)
	require.Positive(t, h.cache.Len())

	h.backend.setFail("GET /officer/dashboard", http.StatusUnauthorized)
	h.get("/dashboard/stats", withCookie(cookie), htmx())
	assert.Zero(t, h.cache.Len())
}
