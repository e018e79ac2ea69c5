package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/digitalkrishi/officer-console/pkg/api"
	"github.com/digitalkrishi/officer-console/pkg/audit"
	"github.com/digitalkrishi/officer-console/pkg/cli"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/config"
	"github.com/digitalkrishi/officer-console/pkg/console"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
	"github.com/digitalkrishi/officer-console/pkg/query"
	"github.com/digitalkrishi/officer-console/pkg/ratelimit"
	"github.com/digitalkrishi/officer-console/pkg/session"
	"github.com/digitalkrishi/officer-console/pkg/system"
	"github.com/digitalkrishi/officer-console/pkg/telemetry"
	"github.com/digitalkrishi/officer-console/pkg/theme"
	"github.com/digitalkrishi/officer-console/pkg/version"
)

func main() {
	cliConfig := cli.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cliConfig); err != nil {
		stdlog.Fatalf("officer console: %v", err)
	}
}

func run(ctx context.Context, cliConfig *cli.Config) error {
	zl, err := system.NewLogger(cliConfig.Debug)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	log := zl.Sugar()
	log.With("version", version.Version).Info("Starting officer console")
	cliConfig.Print(log)

	cfg, err := loadConfig(cliConfig)
	if err != nil {
		return err
	}
	if cliConfig.Debug {
		log.Infof("%#v", cfg.Redacted())
	}

	_, shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    api.Component,
		ServiceVersion: version.Version,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warnw("Error flushing traces", "error", err)
		}
	}()

	store, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, cfg.Session.GetTTL(), log)
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Warnw("Error closing session store", "error", err)
		}
	}()

	backend, err := client.New(
		client.WithServer(cfg.Backend.URL),
		client.WithTimeout(cfg.Backend.GetTimeout()),
		client.WithUserAgent(version.UserAgent(api.Component)),
		client.WithTLSConfig(cfg.Backend.CAFile, cfg.Backend.InsecureSkipVerify),
		client.WithVerbose(cfg.Backend.Verbose, log),
		client.WithObserver(metrics.ObserveBackend),
	)
	if err != nil {
		return fmt.Errorf("error creating advisory API client: %w", err)
	}

	auditManager, err := audit.NewFromConfig(cfg.Audit, zl)
	if err != nil {
		return fmt.Errorf("error creating audit manager: %w", err)
	}
	defer func() { _ = auditManager.Close() }()

	renderer, err := console.NewRenderer(console.RendererConfig{
		Branding:     cfg.Frontend.BrandingName,
		HtmxURL:      cfg.Frontend.HtmxURL,
		AssetVersion: version.Get(api.Component).ShortCommit(),
		PollInterval: cfg.Polling.GetInterval(),
		Palette:      theme.Default(),
	}, log)
	if err != nil {
		return fmt.Errorf("error parsing templates: %w", err)
	}

	retries := cfg.Query.GetRetries()
	cache := query.New(query.Options{
		StaleTime:    cfg.Query.GetStaleTime(),
		Retries:      retries,
		RetryDelay:   cfg.Query.GetRetryDelay(),
		FetchTimeout: time.Duration(retries+1)*cfg.Backend.GetTimeout() + time.Duration(retries)*cfg.Query.GetRetryDelay(),
		IdleTimeout:  cfg.Query.GetIdleTimeout(),
	})
	go cache.Run(ctx, cfg.Query.GetSweepInterval())
	go sessions.ReportActive(ctx, cfg.Session.GetSweepInterval())

	opts := console.Options{
		Sessions:     sessions,
		Cache:        cache,
		Backend:      backend,
		Audit:        auditManager,
		Renderer:     renderer,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
	}
	if !cfg.RateLimit.Disabled {
		login := ratelimit.DefaultLoginConfig()
		login.Rate = cfg.RateLimit.LoginRPS
		login.Burst = cfg.RateLimit.LoginBurst
		opts.LoginLimiter = ratelimit.New("login", login)
		defer opts.LoginLimiter.Stop()
		opts.OfficerLimiter = ratelimit.New("officer", ratelimit.DefaultOfficerConfig())
		defer opts.OfficerLimiter.Stop()
	}
	con, err := console.New(opts, log)
	if err != nil {
		return err
	}

	server := api.NewServer(zl, cfg, cliConfig.Debug)
	if err := server.RegisterAll(con.Controllers()); err != nil {
		return fmt.Errorf("error registering console controllers: %w", err)
	}
	if cliConfig.AssetsDir != "" {
		log.Infow("Serving static assets from disk", "dir", cliConfig.AssetsDir)
		server.ServeAssets("/static", api.ServeLocalAssets("/static", cliConfig.AssetsDir))
	} else {
		assets, err := api.EmbedFolder(console.Assets(), "static")
		if err != nil {
			return fmt.Errorf("error mounting static assets: %w", err)
		}
		server.ServeAssets("/static", api.ServeAssets("/static", assets))
	}
	server.NoRoute(con.NoRoute)
	server.AddReadinessCheck("sessions", sessions.Ping)

	var metricsServer *http.Server
	if cliConfig.MetricsOnMainListener() {
		server.EnableMetrics()
	} else {
		metricsServer = startMetricsServer(cliConfig.MetricsAddr, log)
	}

	var tlsOpts []func(*tls.Config)
	if !cliConfig.EnableHTTP2 {
		tlsOpts = append(tlsOpts, cli.DisableHTTP2)
	}

	auditManager.SystemEvent(ctx, audit.EventSystemStartup, map[string]interface{}{
		"version": version.Version,
		"address": cfg.Server.ListenAddress,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Listen(tlsOpts...) }()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("console server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cli.ParseShutdownTimeout(cliConfig.ShutdownTimeout, log)
	log.Infow("Shutting down officer console", "timeout", timeout)
	auditManager.SystemEvent(context.Background(), audit.EventSystemShutdown, nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Graceful shutdown did not finish, closing connections", "error", err)
		server.Close()
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return <-serveErr
}

// loadConfig reads the dotenv file, the YAML file and the environment, in
// that order, and applies command line overrides.
func loadConfig(cliConfig *cli.Config) (config.Config, error) {
	if err := config.LoadEnvFile(cliConfig.EnvFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(cliConfig.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("error loading console config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, fmt.Errorf("error reading environment: %w", err)
	}
	if cliConfig.ListenAddr != "" {
		cfg.Server.ListenAddress = cliConfig.ListenAddr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid console config: %w", err)
	}
	return cfg, nil
}

func newSessionStore(ctx context.Context, cfg config.Session) (session.Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		rdb, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("error connecting to redis session store: %w", err)
		}
		return session.NewRedisStore(rdb, cfg.RedisPrefix), nil
	case config.StoreMemory, "":
		return session.NewMemoryStore(cfg.GetSweepInterval()), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.Store)
}

func startMetricsServer(addr string, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: config.DefaultReadHeaderTimeout}
	go func() {
		log.Infow("Serving metrics", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Metrics server failed", "error", err)
		}
	}()
	return srv
}
