package cli

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 15 * time.Second

type Config struct {
	Debug bool

	// Configuration files
	ConfigPath string
	EnvFile    string

	// Servers
	ListenAddr  string
	MetricsAddr string
	EnableHTTP2 bool

	ShutdownTimeout string

	// AssetsDir serves /static from disk instead of the embedded files.
	AssetsDir string
}

// Parse parses os.Args. It exits on invalid flags like flag.Parse.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	return cfg
}

// ParseArgs parses args into a Config. Flag defaults come from the
// environment so container deployments can configure the console without
// arguments.
func ParseArgs(args []string) (*Config, error) {
	config := &Config{}
	fs := flag.NewFlagSet("krishi-console", flag.ContinueOnError)

	fs.BoolVar(&config.Debug, "debug", getEnvBool("KRISHI_DEBUG", false), "Enable debug level logging")

	fs.StringVar(&config.ConfigPath, "config", getEnvString("KRISHI_CONFIG_PATH", "./config.yaml"),
		"Path to the console configuration file. A missing file is not an error")
	fs.StringVar(&config.EnvFile, "env-file", getEnvString("KRISHI_ENV_FILE", ".env"),
		"Path to a dotenv file loaded before the environment is read")

	fs.StringVar(&config.ListenAddr, "listen-address", getEnvString("KRISHI_LISTEN_ADDRESS", ""),
		"The address the console binds to (host:port). Overrides server.listenAddress from the config file")
	fs.StringVar(&config.MetricsAddr, "metrics-bind-address", getEnvString("METRICS_BIND_ADDRESS", "0.0.0.0:8081"),
		"The address the metrics endpoint binds to. Use 0 to serve /metrics on the console listener instead")
	fs.BoolVar(&config.EnableHTTP2, "enable-http2", getEnvBool("ENABLE_HTTP2", false),
		"If set, HTTP/2 will be enabled for the console server when serving TLS")

	fs.StringVar(&config.ShutdownTimeout, "shutdown-timeout", getEnvString("KRISHI_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout.String()),
		"Time allowed for in-flight requests on shutdown (e.g., '15s')")

	fs.StringVar(&config.AssetsDir, "assets-dir", getEnvString("KRISHI_ASSETS_DIR", ""),
		"Serve static assets from this directory instead of the embedded copy, for development")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		"debug", c.Debug,
		"config_path", c.ConfigPath,
		"env_file", c.EnvFile,
		"listen_address", c.ListenAddr,
		"metrics_bind_address", c.MetricsAddr,
		"enable_http2", c.EnableHTTP2,
		"shutdown_timeout", c.ShutdownTimeout,
		"assets_dir", c.AssetsDir,
	)
}

// MetricsOnMainListener reports whether /metrics is served by the console
// server rather than a dedicated listener.
func (c *Config) MetricsOnMainListener() bool {
	return c.MetricsAddr == "" || c.MetricsAddr == "0"
}

// DisableHTTP2 is used to configure TLS options to disable HTTP/2.
// This is important because HTTP/2 has known vulnerabilities (CVE-2023-44487, CVE-2024-3156).
func DisableHTTP2(c *tls.Config) {
	c.NextProtos = []string{"http/1.1"}
}

func ParseShutdownTimeout(value string, log *zap.SugaredLogger) time.Duration {
	timeout, err := parseDuration("shutdown-timeout", value, DefaultShutdownTimeout)
	if err != nil {
		log.Warn(err)
	}
	return timeout
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	duration := def
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			duration = d
		} else {
			if err == nil {
				err = fmt.Errorf("must be positive")
			}
			return def, fmt.Errorf("invalid %s %q; using default %s: %w", name, value, def.String(), err)
		}
	}

	return duration, nil
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}
