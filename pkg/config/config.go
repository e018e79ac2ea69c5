package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultListenAddress     = ":8080"
	DefaultBackendURL        = "https://api.digitalkrishi.com"
	DefaultBackendTimeout    = 10 * time.Second
	DefaultSessionTTL        = 12 * time.Hour
	DefaultSweepInterval     = 5 * time.Minute
	DefaultCookieName        = "krishi_session"
	DefaultPollInterval      = 30 * time.Second
	DefaultStaleTime         = 5 * time.Minute
	DefaultRetryDelay        = 500 * time.Millisecond
	DefaultCacheIdleTimeout  = 30 * time.Minute
	DefaultLoginRPS          = 5.0
	DefaultLoginBurst        = 10
	DefaultAuditQueueSize    = 1000
	DefaultAuditWorkers      = 2
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Server struct {
	ListenAddress  string         `yaml:"listenAddress"`
	TLSCertFile    string         `yaml:"tlsCertFile"`
	TLSKeyFile     string         `yaml:"tlsKeyFile"`
	TrustedProxies []string       `yaml:"trustedProxies"` // IPs/CIDRs to trust for X-Forwarded-For
	Timeouts       ServerTimeouts `yaml:"timeouts"`
}

type ServerTimeouts struct {
	ReadTimeout       string `yaml:"readTimeout"`
	ReadHeaderTimeout string `yaml:"readHeaderTimeout"`
	WriteTimeout      string `yaml:"writeTimeout"`
	IdleTimeout       string `yaml:"idleTimeout"`
}

func (t *ServerTimeouts) GetReadTimeout() time.Duration {
	return parseDurationOrDefault(t.ReadTimeout, DefaultReadTimeout)
}

func (t *ServerTimeouts) GetReadHeaderTimeout() time.Duration {
	return parseDurationOrDefault(t.ReadHeaderTimeout, DefaultReadHeaderTimeout)
}

func (t *ServerTimeouts) GetWriteTimeout() time.Duration {
	return parseDurationOrDefault(t.WriteTimeout, DefaultWriteTimeout)
}

func (t *ServerTimeouts) GetIdleTimeout() time.Duration {
	return parseDurationOrDefault(t.IdleTimeout, DefaultIdleTimeout)
}

// Backend points at the advisory REST API.
type Backend struct {
	URL                string `yaml:"url"`
	Timeout            string `yaml:"timeout"`
	CAFile             string `yaml:"caFile"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	// Verbose dumps every request and response at debug level.
	Verbose bool `yaml:"verbose"`
}

func (b *Backend) GetTimeout() time.Duration {
	return parseDurationOrDefault(b.Timeout, DefaultBackendTimeout)
}

type Session struct {
	// Store is "memory" or "redis".
	Store         string `yaml:"store"`
	TTL           string `yaml:"ttl"`
	SweepInterval string `yaml:"sweepInterval"`
	RedisURL      string `yaml:"redisURL"`
	RedisPrefix   string `yaml:"redisPrefix"`
	CookieName    string `yaml:"cookieName"`
	CookieSecure  bool   `yaml:"cookieSecure"`
}

func (s *Session) GetTTL() time.Duration {
	return parseDurationOrDefault(s.TTL, DefaultSessionTTL)
}

func (s *Session) GetSweepInterval() time.Duration {
	return parseDurationOrDefault(s.SweepInterval, DefaultSweepInterval)
}

// Polling controls the refresh interval of dashboard and list fragments.
type Polling struct {
	Interval string `yaml:"interval"`
}

func (p *Polling) GetInterval() time.Duration {
	return parseDurationOrDefault(p.Interval, DefaultPollInterval)
}

type Query struct {
	StaleTime  string `yaml:"staleTime"`
	Retries    *int   `yaml:"retries"`
	RetryDelay string `yaml:"retryDelay"`
	// IdleTimeout drops cached reads nobody asked for in this long.
	IdleTimeout   string `yaml:"idleTimeout"`
	SweepInterval string `yaml:"sweepInterval"`
}

func (q *Query) GetIdleTimeout() time.Duration {
	return parseDurationOrDefault(q.IdleTimeout, DefaultCacheIdleTimeout)
}

func (q *Query) GetSweepInterval() time.Duration {
	return parseDurationOrDefault(q.SweepInterval, DefaultSweepInterval)
}

func (q *Query) GetStaleTime() time.Duration {
	return parseDurationOrDefault(q.StaleTime, DefaultStaleTime)
}

func (q *Query) GetRetryDelay() time.Duration {
	return parseDurationOrDefault(q.RetryDelay, DefaultRetryDelay)
}

// GetRetries defaults to a single retry.
func (q *Query) GetRetries() int {
	if q.Retries == nil || *q.Retries < 0 {
		return 1
	}
	return *q.Retries
}

type RateLimit struct {
	Disabled   bool    `yaml:"disabled"`
	LoginRPS   float64 `yaml:"loginRPS"`
	LoginBurst int     `yaml:"loginBurst"`
}

type Audit struct {
	Enabled   bool         `yaml:"enabled"`
	QueueSize int          `yaml:"queueSize"`
	Workers   int          `yaml:"workers"`
	Webhook   AuditWebhook `yaml:"webhook"`
	Kafka     AuditKafka   `yaml:"kafka"`
}

type AuditWebhook struct {
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	Timeout   string            `yaml:"timeout"`
	BatchSize int               `yaml:"batchSize"`
}

type AuditKafka struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	Compression string   `yaml:"compression"` // none, gzip, snappy, lz4, zstd
	TLS         bool     `yaml:"tls"`
	CAFile      string   `yaml:"caFile"`
	// SASLMechanism is one of PLAIN, SCRAM-SHA-256, SCRAM-SHA-512.
	SASLMechanism string `yaml:"saslMechanism"`
	SASLUsername  string `yaml:"saslUsername"`
	SASLPassword  string `yaml:"saslPassword"`
}

type Telemetry struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is otlp, stdout or none.
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"samplingRate"`
}

type Frontend struct {
	// BrandingName overrides the product name shown in the shell.
	BrandingName string `yaml:"brandingName"`
	// BaseURL is the externally visible URL of the console.
	BaseURL string `yaml:"baseURL"`
	// HtmxURL is the script source for htmx.
	HtmxURL string `yaml:"htmxURL"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	Backend   Backend   `yaml:"backend"`
	Session   Session   `yaml:"session"`
	Polling   Polling   `yaml:"polling"`
	Query     Query     `yaml:"query"`
	RateLimit RateLimit `yaml:"rateLimit"`
	Audit     Audit     `yaml:"audit"`
	Telemetry Telemetry `yaml:"telemetry"`
	Frontend  Frontend  `yaml:"frontend"`
}

// Defaults returns a configuration usable without any file.
func Defaults() Config {
	return Config{
		Server:    Server{ListenAddress: DefaultListenAddress},
		Backend:   Backend{URL: DefaultBackendURL},
		Session:   Session{Store: StoreMemory, CookieName: DefaultCookieName},
		RateLimit: RateLimit{LoginRPS: DefaultLoginRPS, LoginBurst: DefaultLoginBurst},
		Audit:     Audit{Enabled: true, QueueSize: DefaultAuditQueueSize, Workers: DefaultAuditWorkers},
		Frontend: Frontend{
			BrandingName: "Krishi Officer Console",
			HtmxURL:      "https://unpkg.com/htmx.org@1.9.12",
		},
	}
}

// Load reads the YAML file at path over Defaults. A missing file yields the
// defaults; unreadable or malformed files are errors.
func Load(path string) (Config, error) {
	if path == "" {
		path = "./config.yaml"
	}
	config := Defaults()

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("trying to open console config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
	}
	config.fillDefaults()
	return config, nil
}

// fillDefaults restores defaults for fields a file set to empty values.
func (c *Config) fillDefaults() {
	def := Defaults()
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = def.Server.ListenAddress
	}
	if c.Backend.URL == "" {
		c.Backend.URL = def.Backend.URL
	}
	if c.Session.Store == "" {
		c.Session.Store = def.Session.Store
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = def.Session.CookieName
	}
	if c.RateLimit.LoginRPS == 0 {
		c.RateLimit.LoginRPS = def.RateLimit.LoginRPS
	}
	if c.RateLimit.LoginBurst == 0 {
		c.RateLimit.LoginBurst = def.RateLimit.LoginBurst
	}
	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = def.Audit.QueueSize
	}
	if c.Audit.Workers == 0 {
		c.Audit.Workers = def.Audit.Workers
	}
	if c.Frontend.BrandingName == "" {
		c.Frontend.BrandingName = def.Frontend.BrandingName
	}
	if c.Frontend.HtmxURL == "" {
		c.Frontend.HtmxURL = def.Frontend.HtmxURL
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url must be an absolute http(s) URL, got %q", c.Backend.URL))
	}
	switch c.Session.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Session.RedisURL == "" {
			errs = append(errs, errors.New("session.redisURL is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.store must be %q or %q, got %q", StoreMemory, StoreRedis, c.Session.Store))
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tlsCertFile and server.tlsKeyFile must be set together"))
	}
	if c.Polling.GetInterval() < 5*time.Second {
		errs = append(errs, fmt.Errorf("polling.interval must be at least 5s, got %s", c.Polling.GetInterval()))
	}
	if !c.RateLimit.Disabled && (c.RateLimit.LoginRPS <= 0 || c.RateLimit.LoginBurst <= 0) {
		errs = append(errs, errors.New("rateLimit.loginRPS and rateLimit.loginBurst must be positive"))
	}
	if len(c.Audit.Kafka.Brokers) > 0 && c.Audit.Kafka.Topic == "" {
		errs = append(errs, errors.New("audit.kafka.topic is required when brokers are set"))
	}
	if c.Audit.Webhook.URL != "" {
		if u, err := url.Parse(c.Audit.Webhook.URL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("audit.webhook.url is invalid: %q", c.Audit.Webhook.URL))
		}
	}
	switch c.Telemetry.Exporter {
	case "", "otlp", "stdout", "none":
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter must be otlp, stdout or none, got %q", c.Telemetry.Exporter))
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.samplingRate must be within [0,1], got %v", c.Telemetry.SamplingRate))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Session.RedisURL != "" {
		if u, err := url.Parse(c.Session.RedisURL); err == nil && u.User != nil {
			u.User = url.User("redacted")
			c.Session.RedisURL = u.String()
		}
	}
	if len(c.Audit.Webhook.Headers) > 0 {
		headers := make(map[string]string, len(c.Audit.Webhook.Headers))
		for k := range c.Audit.Webhook.Headers {
			headers[k] = "redacted"
		}
		c.Audit.Webhook.Headers = headers
	}
	if c.Audit.Kafka.SASLPassword != "" {
		c.Audit.Kafka.SASLPassword = "redacted"
	}
	return c
}

func parseDurationOrDefault(value string, defaultVal time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// ParseOptionalDuration parses value, returning 0 for an empty string.
func ParseOptionalDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %s", value)
	}
	return d, nil
}
