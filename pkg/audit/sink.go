package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/digitalkrishi/officer-console/pkg/metrics"
)

// Sink defines the interface for audit event destinations.
type Sink interface {
	// Write sends an audit event to the sink.
	Write(ctx context.Context, event *Event) error

	// Close releases any resources held by the sink.
	Close() error

	// Name returns the sink's identifier.
	Name() string
}

// BatchSink is an optional interface for sinks that support batch writes.
type BatchSink interface {
	Sink
	WriteBatch(ctx context.Context, events []*Event) error
}

// LogSink writes audit events to a structured logger.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

func (s *LogSink) Write(_ context.Context, event *Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("severity", string(event.Severity)),
		zap.Time("timestamp", event.Timestamp),
		zap.String("actor_employee_id", event.Actor.EmployeeID),
		zap.String("target_kind", event.Target.Kind),
		zap.String("target_name", event.Target.Name),
	}

	if event.Actor.District != "" {
		fields = append(fields, zap.String("actor_district", event.Actor.District))
	}
	if event.Actor.SourceIP != "" {
		fields = append(fields, zap.String("actor_ip", event.Actor.SourceIP))
	}
	if event.RequestContext != nil {
		if event.RequestContext.SessionRef != "" {
			fields = append(fields, zap.String("session_ref", event.RequestContext.SessionRef))
		}
		if event.RequestContext.CorrelationID != "" {
			fields = append(fields, zap.String("correlation_id", event.RequestContext.CorrelationID))
		}
	}

	if len(event.Details) > 0 {
		if detailsJSON, err := json.Marshal(event.Details); err == nil {
			fields = append(fields, zap.String("details", string(detailsJSON)))
		}
	}

	s.logger.Info("audit_event", fields...)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}

func (s *LogSink) Name() string {
	return "log"
}

// WebhookSink sends audit events to an external HTTP endpoint.
type WebhookSink struct {
	name           string
	url            string
	httpClient     *http.Client
	headers        map[string]string
	logger         *zap.Logger
	eventsWritten  atomic.Int64
	eventsFailed   atomic.Int64
	batchesWritten atomic.Int64
}

// WebhookSinkConfig configures a WebhookSink.
type WebhookSinkConfig struct {
	Name    string
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

func NewWebhookSink(cfg WebhookSinkConfig, logger *zap.Logger) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = "webhook"
	}

	sink := &WebhookSink{
		name:       name,
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		headers:    cfg.Headers,
		logger:     logger.Named("webhook-sink"),
	}
	sink.logger.Info("Webhook audit sink created",
		zap.String("name", name),
		zap.String("url", cfg.URL),
		zap.Duration("timeout", timeout))
	return sink, nil
}

// Write posts a single event as JSON.
func (s *WebhookSink) Write(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		s.eventsFailed.Add(1)
		metrics.AuditSinkErrors.WithLabelValues(s.name, "serialization").Inc()
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if err := s.post(ctx, body, 1); err != nil {
		s.eventsFailed.Add(1)
		return err
	}
	s.eventsWritten.Add(1)
	return nil
}

// WriteBatch posts events wrapped as {"events": [...], "count": n}.
func (s *WebhookSink) WriteBatch(ctx context.Context, events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	batchPayload := struct {
		Events []*Event `json:"events"`
		Count  int      `json:"count"`
	}{
		Events: events,
		Count:  len(events),
	}
	body, err := json.Marshal(batchPayload)
	if err != nil {
		s.eventsFailed.Add(int64(len(events)))
		metrics.AuditSinkErrors.WithLabelValues(s.name, "serialization").Inc()
		return fmt.Errorf("failed to marshal batch payload: %w", err)
	}
	if err := s.post(ctx, body, len(events)); err != nil {
		s.eventsFailed.Add(int64(len(events)))
		return err
	}
	s.eventsWritten.Add(int64(len(events)))
	s.batchesWritten.Add(1)
	return nil
}

func (s *WebhookSink) post(ctx context.Context, body []byte, count int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Batch-Size", strconv.Itoa(count))
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	metrics.AuditSinkLatency.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "network").Inc()
		s.logger.Debug("webhook request failed",
			zap.String("url", s.url),
			zap.Int("batch_size", count),
			zap.String("error", err.Error()))
		return fmt.Errorf("failed to send audit events to %s: %w", s.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "status").Inc()
		s.logger.Debug("webhook returned error",
			zap.String("url", s.url),
			zap.Int("batch_size", count),
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("webhook %s returned error status: %d", s.url, resp.StatusCode)
	}
	return nil
}

// Stats returns the webhook sink statistics.
func (s *WebhookSink) Stats() (written, failed, batches int64) {
	return s.eventsWritten.Load(), s.eventsFailed.Load(), s.batchesWritten.Load()
}

func (s *WebhookSink) Close() error {
	s.logger.Info("closing webhook audit sink",
		zap.String("name", s.name),
		zap.Int64("events_written", s.eventsWritten.Load()),
		zap.Int64("events_failed", s.eventsFailed.Load()),
		zap.Int64("batches_written", s.batchesWritten.Load()))
	return nil
}

func (s *WebhookSink) Name() string {
	return s.name
}

// MultiSink writes to multiple sinks. A failing sink does not stop delivery
// to the others.
type MultiSink struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewMultiSink(sinks []Sink, logger *zap.Logger) *MultiSink {
	return &MultiSink{
		sinks:  sinks,
		logger: logger,
	}
}

func (s *MultiSink) Write(ctx context.Context, event *Event) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, event); err != nil {
			s.logger.Warn("audit sink write failed",
				zap.String("sink", sink.Name()),
				zap.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch uses WriteBatch on sinks that support it and falls back to
// single writes otherwise.
func (s *MultiSink) WriteBatch(ctx context.Context, events []*Event) error {
	var errs []error
	for _, sink := range s.sinks {
		if bs, ok := sink.(BatchSink); ok {
			if err := bs.WriteBatch(ctx, events); err != nil {
				s.logger.Warn("audit sink batch write failed",
					zap.String("sink", sink.Name()),
					zap.Int("batch_size", len(events)),
					zap.String("error", err.Error()))
				errs = append(errs, err)
			}
			continue
		}
		for _, event := range events {
			if err := sink.Write(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *MultiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MultiSink) Name() string {
	return "multi"
}

// Sinks returns the wrapped sinks.
func (s *MultiSink) Sinks() []Sink {
	return s.sinks
}
