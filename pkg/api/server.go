package api

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/digitalkrishi/officer-console/pkg/apiresponses"
	"github.com/digitalkrishi/officer-console/pkg/config"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
	"github.com/digitalkrishi/officer-console/pkg/system"
	"github.com/digitalkrishi/officer-console/pkg/version"
)

// Component names this binary in version output and user agents.
const Component = "officer-console"

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	gin    *gin.Engine
	config config.Config
	log    *zap.Logger

	mu     sync.Mutex
	checks map[string]ReadinessCheck
	http   *http.Server
}

func NewServer(log *zap.Logger, cfg config.Config, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.GinzapWithConfig(log, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			SkipPaths:  []string{"/healthz", "/readyz"},
		}),
		ginzap.RecoveryWithZap(log, true),
		requestLogger(log.Sugar()),
	)
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	if debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins:     []string{"http://localhost:8080", "http://127.0.0.1:8080"},
				AllowMethods:     []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:     []string{"Origin", "Content-Type", "HX-Request", "HX-Target", "HX-Trigger", "HX-Current-URL"},
				ExposeHeaders:    []string{"HX-Trigger", "HX-Redirect"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:    engine,
		config: cfg,
		log:    log,
		checks: map[string]ReadinessCheck{},
	}

	engine.GET("/healthz", s.healthz)
	engine.GET("/readyz", s.readyz)
	engine.GET("/api/config", s.getConfig)
	engine.GET("/api/version", s.getVersion)

	return s
}

// requestLogger stores a request-scoped sugared logger in the gin context.
func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(system.ReqLoggerKey, log.With("method", c.Request.Method, "path", c.Request.URL.Path))
		c.Next()
	}
}

// AddReadinessCheck registers a dependency consulted by /readyz.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// EnableMetrics serves Prometheus metrics on the console listener.
func (s *Server) EnableMetrics() {
	s.gin.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))
}

// ServeAssets mounts static files under urlPrefix.
func (s *Server) ServeAssets(urlPrefix string, handler gin.HandlerFunc) {
	s.gin.GET(urlPrefix+"/*filepath", handler)
	s.gin.HEAD(urlPrefix+"/*filepath", handler)
}

// NoRoute sets the handlers for unmatched paths.
func (s *Server) NoRoute(handlers ...gin.HandlerFunc) {
	s.gin.NoRoute(handlers...)
}

func (s *Server) RegisterAll(controllers []APIController) error {
	for _, c := range controllers {
		if err := c.Register(s.gin.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns the root handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen binds the configured address and serves until Shutdown is called.
// It returns nil after a graceful shutdown. tlsOpts adjust the TLS config when
// certificates are configured.
func (s *Server) Listen(tlsOpts ...func(*tls.Config)) error {
	l, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		return err
	}
	return s.Serve(l, tlsOpts...)
}

// Serve is Listen on an existing listener.
func (s *Server) Serve(l net.Listener, tlsOpts ...func(*tls.Config)) error {
	timeouts := s.config.Server.Timeouts
	srv := &http.Server{
		Handler:           s.gin,
		ReadTimeout:       timeouts.GetReadTimeout(),
		ReadHeaderTimeout: timeouts.GetReadHeaderTimeout(),
		WriteTimeout:      timeouts.GetWriteTimeout(),
		IdleTimeout:       timeouts.GetIdleTimeout(),
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	var err error
	if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		for _, opt := range tlsOpts {
			opt(srv.TLSConfig)
		}
		s.log.Info("Serving console over TLS", zap.String("address", l.Addr().String()))
		err = srv.ServeTLS(l, s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
	} else {
		s.log.Info("Serving console", zap.String("address", l.Addr().String()))
		err = srv.Serve(l)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv != nil {
		_ = srv.Close()
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readyz(c *gin.Context) {
	s.mu.Lock()
	checks := make(map[string]ReadinessCheck, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, check := range checks {
		if err := check(ctx); err != nil {
			system.GetReqLogger(c, s.log.Sugar()).Warnw("Readiness check failed", "check", name, "error", err)
			apiresponses.RespondServiceUnavailable(c, name)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// FrontendConfig is the public console configuration served at /api/config.
type FrontendConfig struct {
	BrandingName        string `json:"brandingName"`
	BaseURL             string `json:"baseURL,omitempty"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, FrontendConfig{
		BrandingName:        s.config.Frontend.BrandingName,
		BaseURL:             s.config.Frontend.BaseURL,
		PollIntervalSeconds: int(s.config.Polling.GetInterval().Seconds()),
	})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get(Component))
}
