package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file settings from KRISHI_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("KRISHI_API_URL"); ok {
		c.Backend.URL = v
	}
	if v, ok := lookup("KRISHI_API_TIMEOUT"); ok {
		c.Backend.Timeout = v
	}
	if v, ok := lookup("KRISHI_LISTEN_ADDRESS"); ok {
		c.Server.ListenAddress = v
	}
	if v, ok := lookup("KRISHI_SESSION_STORE"); ok {
		c.Session.Store = strings.ToLower(v)
	}
	if v, ok := lookup("KRISHI_SESSION_TTL"); ok {
		c.Session.TTL = v
	}
	if v, ok := lookup("KRISHI_REDIS_URL"); ok {
		c.Session.RedisURL = v
	}
	if v, ok := lookup("KRISHI_COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KRISHI_COOKIE_SECURE: %w", err)
		}
		c.Session.CookieSecure = b
	}
	if v, ok := lookup("KRISHI_POLL_INTERVAL"); ok {
		c.Polling.Interval = v
	}
	if v, ok := lookup("KRISHI_AUDIT_WEBHOOK_URL"); ok {
		c.Audit.Webhook.URL = v
	}
	if v, ok := lookup("KRISHI_AUDIT_KAFKA_BROKERS"); ok {
		c.Audit.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("KRISHI_AUDIT_KAFKA_TOPIC"); ok {
		c.Audit.Kafka.Topic = v
	}
	if v, ok := lookup("KRISHI_OTEL_ENDPOINT"); ok {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = v
	}
	if v, ok := lookup("KRISHI_OTEL_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KRISHI_OTEL_ENABLED: %w", err)
		}
		c.Telemetry.Enabled = b
	}
	if v, ok := lookup("KRISHI_BRANDING_NAME"); ok {
		c.Frontend.BrandingName = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
