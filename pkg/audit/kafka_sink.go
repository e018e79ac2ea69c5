package audit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
	"go.uber.org/zap"

	"github.com/digitalkrishi/officer-console/pkg/metrics"
)

// KafkaSinkConfig configures a KafkaSink.
type KafkaSinkConfig struct {
	Name    string
	Brokers []string
	Topic   string
	TLS     *KafkaTLSConfig
	SASL    *KafkaSASLConfig

	// BatchSize is the maximum number of messages per produce request.
	// Default: 100
	BatchSize int

	// BatchTimeout flushes partial batches.
	// Default: 1s
	BatchTimeout time.Duration

	// WriteTimeout bounds a single write.
	// Default: 10s
	WriteTimeout time.Duration

	// RequiredAcks: -1 all replicas, 0 none, 1 leader.
	// Default: -1
	RequiredAcks int

	// CompressionCodec is one of none, gzip, snappy, lz4, zstd.
	// Default: snappy
	CompressionCodec string
}

// KafkaTLSConfig holds TLS configuration for Kafka connections.
type KafkaTLSConfig struct {
	Enabled bool
	// CACert is the PEM-encoded CA certificate for verifying the brokers.
	CACert             []byte
	InsecureSkipVerify bool
}

// KafkaSASLConfig holds SASL authentication configuration.
type KafkaSASLConfig struct {
	// Mechanism is one of PLAIN, SCRAM-SHA-256, SCRAM-SHA-512.
	Mechanism string
	Username  string
	Password  string
}

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes audit events to a Kafka topic, keyed by event id.
type KafkaSink struct {
	name   string
	writer messageWriter
	logger *zap.Logger
	mu     sync.Mutex
	closed bool

	messagesWritten atomic.Int64
	messagesFailed  atomic.Int64
	batchesSent     atomic.Int64
}

func NewKafkaSink(cfg KafkaSinkConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	transport := &kafka.Transport{}
	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config: %w", err)
		}
		transport.TLS = tlsConfig
	}
	if cfg.SASL != nil && cfg.SASL.Mechanism != "" {
		mechanism, err := buildSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, fmt.Errorf("failed to build SASL mechanism: %w", err)
		}
		transport.SASL = mechanism
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	requiredAcks := cfg.RequiredAcks
	if requiredAcks == 0 {
		requiredAcks = -1
	}
	compression, err := compressionCodec(cfg.CompressionCodec)
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              batchSize,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequiredAcks(requiredAcks),
		Compression:            compression,
		Transport:              transport,
		AllowAutoTopicCreation: false,
	}

	name := cfg.Name
	if name == "" {
		name = "kafka"
	}
	logger.Info("Kafka audit sink created",
		zap.String("name", name),
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.Bool("tls_enabled", cfg.TLS != nil && cfg.TLS.Enabled),
		zap.Bool("sasl_enabled", cfg.SASL != nil && cfg.SASL.Mechanism != ""))

	return newKafkaSinkWithWriter(name, writer, logger), nil
}

func newKafkaSinkWithWriter(name string, writer messageWriter, logger *zap.Logger) *KafkaSink {
	return &KafkaSink{
		name:   name,
		writer: writer,
		logger: logger.Named("kafka-audit"),
	}
}

func compressionCodec(codec string) (kafka.Compression, error) {
	switch strings.ToLower(codec) {
	case "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	case "snappy", "":
		return kafka.Snappy, nil
	default:
		return 0, fmt.Errorf("unsupported compression codec: %s", codec)
	}
}

// classifyKafkaError categorizes Kafka errors for metrics and logging.
func classifyKafkaError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "SASL") || strings.Contains(errStr, "authentication"):
		return "auth"
	case strings.Contains(errStr, "authorization") || strings.Contains(errStr, "ACL"):
		return "authorization"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return "timeout"
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return "network"
	case strings.Contains(errStr, "broker") || strings.Contains(errStr, "leader"):
		return "broker"
	case strings.Contains(errStr, "topic"):
		return "topic"
	case strings.Contains(errStr, "TLS") || strings.Contains(errStr, "certificate"):
		return "tls"
	default:
		return "other"
	}
}

func toMessage(event *Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	headers := []kafka.Header{
		{Key: "event-type", Value: []byte(event.Type)},
		{Key: "severity", Value: []byte(event.Severity)},
		{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
	}
	if event.Actor.EmployeeID != "" {
		headers = append(headers, kafka.Header{Key: "actor", Value: []byte(event.Actor.EmployeeID)})
	}
	if event.RequestContext != nil && event.RequestContext.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation-id", Value: []byte(event.RequestContext.CorrelationID)})
	}
	return kafka.Message{
		Key:     []byte(event.ID),
		Value:   value,
		Headers: headers,
	}, nil
}

func (s *KafkaSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *KafkaSink) Write(ctx context.Context, event *Event) error {
	return s.WriteBatch(ctx, []*Event{event})
}

// WriteBatch produces all events in one call. Events that cannot be
// serialized are skipped and counted as failed.
func (s *KafkaSink) WriteBatch(ctx context.Context, events []*Event) error {
	if s.isClosed() {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "closed").Inc()
		return errors.New("kafka sink is closed")
	}
	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := toMessage(event)
		if err != nil {
			s.messagesFailed.Add(1)
			metrics.AuditSinkErrors.WithLabelValues(s.name, "serialization").Inc()
			s.logger.Warn("failed to marshal audit event, skipping",
				zap.String("event_id", event.ID),
				zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	err := s.writer.WriteMessages(ctx, messages...)
	duration := time.Since(start)
	metrics.AuditSinkLatency.WithLabelValues(s.name).Observe(duration.Seconds())
	if err != nil {
		errorType := classifyKafkaError(err)
		metrics.AuditSinkErrors.WithLabelValues(s.name, errorType).Inc()
		s.messagesFailed.Add(int64(len(messages)))

		logFields := []zap.Field{
			zap.Error(err),
			zap.String("error_type", errorType),
			zap.Duration("duration", duration),
			zap.Int("batch_size", len(messages)),
		}
		switch errorType {
		case "network", "dns", "timeout":
			s.logger.Warn("Kafka sink temporarily unavailable", logFields...)
		case "auth", "authorization", "tls":
			s.logger.Error("Kafka connection rejected", logFields...)
		default:
			s.logger.Error("failed to write audit events to Kafka", logFields...)
		}
		return fmt.Errorf("failed to write to Kafka (%s): %w", errorType, err)
	}

	s.messagesWritten.Add(int64(len(messages)))
	s.batchesSent.Add(1)
	return nil
}

func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.Info("closing Kafka audit sink",
		zap.String("name", s.name),
		zap.Int64("messages_written", s.messagesWritten.Load()),
		zap.Int64("messages_failed", s.messagesFailed.Load()),
		zap.Int64("batches_sent", s.batchesSent.Load()))

	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}

func (s *KafkaSink) Name() string {
	return s.name
}

// MessageStats returns message statistics for monitoring.
func (s *KafkaSink) MessageStats() (written, failed, batches int64) {
	return s.messagesWritten.Load(), s.messagesFailed.Load(), s.batchesSent.Load()
}

func buildTLSConfig(cfg *KafkaTLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // test brokers only
	}
	if len(cfg.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.CACert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

func buildSASLMechanism(cfg *KafkaSASLConfig) (sasl.Mechanism, error) {
	switch strings.ToUpper(cfg.Mechanism) {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	case "SCRAM-SHA-256":
		mechanism, err := scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to create SCRAM-SHA-256 mechanism: %w", err)
		}
		return mechanism, nil
	case "SCRAM-SHA-512":
		mechanism, err := scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to create SCRAM-SHA-512 mechanism: %w", err)
		}
		return mechanism, nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}
