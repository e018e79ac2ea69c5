package audit

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/digitalkrishi/officer-console/pkg/config"
)

// NewFromConfig builds the sink chain described by cfg and starts a Manager
// on it. The log sink is always present; webhook and Kafka sinks are added
// when configured and wrapped in a circuit breaker. A disabled audit
// configuration yields a nil Manager, which is safe to call.
func NewFromConfig(cfg config.Audit, logger *zap.Logger) (*Manager, error) {
	if !cfg.Enabled {
		logger.Info("audit trail disabled")
		return nil, nil
	}

	sinks := []Sink{NewLogSink(logger)}
	batchSize := 0

	if cfg.Webhook.URL != "" {
		timeout, err := config.ParseOptionalDuration(cfg.Webhook.Timeout)
		if err != nil {
			return nil, fmt.Errorf("audit.webhook.timeout: %w", err)
		}
		webhook, err := NewWebhookSink(WebhookSinkConfig{
			URL:     cfg.Webhook.URL,
			Headers: cfg.Webhook.Headers,
			Timeout: timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewCircuitBreakerSink(webhook, DefaultCircuitBreakerConfig(), logger))
		batchSize = cfg.Webhook.BatchSize
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kcfg := KafkaSinkConfig{
			Brokers:          cfg.Kafka.Brokers,
			Topic:            cfg.Kafka.Topic,
			CompressionCodec: cfg.Kafka.Compression,
		}
		if cfg.Kafka.TLS {
			kcfg.TLS = &KafkaTLSConfig{Enabled: true}
			if cfg.Kafka.CAFile != "" {
				ca, err := os.ReadFile(cfg.Kafka.CAFile)
				if err != nil {
					return nil, fmt.Errorf("failed to read kafka CA file: %w", err)
				}
				kcfg.TLS.CACert = ca
			}
		}
		if cfg.Kafka.SASLMechanism != "" {
			kcfg.SASL = &KafkaSASLConfig{
				Mechanism: cfg.Kafka.SASLMechanism,
				Username:  cfg.Kafka.SASLUsername,
				Password:  cfg.Kafka.SASLPassword,
			}
		}
		kafkaSink, err := NewKafkaSink(kcfg, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewCircuitBreakerSink(kafkaSink, DefaultCircuitBreakerConfig(), logger))
	}

	mcfg := DefaultManagerConfig()
	mcfg.QueueSize = cfg.QueueSize
	mcfg.WorkerCount = cfg.Workers
	if batchSize > 0 {
		mcfg.BatchSize = batchSize
	}

	var sink Sink = sinks[0]
	if len(sinks) > 1 {
		sink = NewMultiSink(sinks, logger)
	}
	return NewManager(sink, mcfg, logger), nil
}
