package audit

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
)

// Manager coordinates audit event creation and distribution. Emit never
// blocks the request that triggered the event.
type Manager struct {
	sink       Sink
	batchSink  BatchSink
	asyncQueue chan *Event
	logger     *zap.Logger
	config     ManagerConfig

	// mu guards sends on asyncQueue against a concurrent Close.
	mu     sync.RWMutex
	closed atomic.Bool
	wg     sync.WaitGroup

	queuedEvents    atomic.Int64
	droppedEvents   atomic.Int64
	processedEvents atomic.Int64
}

// ManagerConfig configures the audit Manager.
type ManagerConfig struct {
	// QueueSize is the size of the async event queue.
	// Default: 1000
	QueueSize int

	// WorkerCount is the number of async processing workers.
	// Default: 2
	WorkerCount int

	// BatchSize is the number of events to batch before flushing.
	// Only used with BatchSink implementations.
	// Default: 50
	BatchSize int

	// BatchTimeout is the maximum time to wait before flushing a partial batch.
	// Default: 200ms
	BatchTimeout time.Duration

	// WriteTimeout is the timeout for writing to sinks.
	// Default: 5s
	WriteTimeout time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		QueueSize:    1000,
		WorkerCount:  2,
		BatchSize:    50,
		BatchTimeout: 200 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// NewManager starts the worker pool. Batch workers are used when sink
// implements BatchSink.
func NewManager(sink Sink, cfg ManagerConfig, logger *zap.Logger) *Manager {
	def := DefaultManagerConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	m := &Manager{
		sink:       sink,
		asyncQueue: make(chan *Event, cfg.QueueSize),
		logger:     logger.Named("audit-manager"),
		config:     cfg,
	}
	if batchSink, ok := sink.(BatchSink); ok {
		m.batchSink = batchSink
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		m.wg.Add(1)
		if m.batchSink != nil {
			go m.processBatchQueue(i)
		} else {
			go m.processQueue(i)
		}
	}

	m.logger.Info("audit manager started",
		zap.String("sink", sink.Name()),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Int("workers", cfg.WorkerCount),
		zap.Bool("batch_enabled", m.batchSink != nil))
	return m
}

func prepare(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityForEventType(event.Type)
	}
}

// Emit queues an event. If the queue is full or the manager is closed the
// event is dropped and counted.
func (m *Manager) Emit(_ context.Context, event *Event) {
	if m == nil || event == nil {
		return
	}
	prepare(event)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed.Load() {
		m.droppedEvents.Add(1)
		metrics.AuditEventsDropped.WithLabelValues("closed").Inc()
		return
	}

	select {
	case m.asyncQueue <- event:
		m.queuedEvents.Add(1)
		metrics.AuditQueueDepth.Set(float64(len(m.asyncQueue)))
	default:
		m.droppedEvents.Add(1)
		metrics.AuditEventsDropped.WithLabelValues("queue_full").Inc()
		m.logger.Warn("audit queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
}

// EmitSync writes the event directly to the sink.
func (m *Manager) EmitSync(ctx context.Context, event *Event) error {
	prepare(event)
	if err := m.sink.Write(ctx, event); err != nil {
		return err
	}
	m.processedEvents.Add(1)
	metrics.AuditEventsProcessed.WithLabelValues(string(event.Type)).Inc()
	return nil
}

func (m *Manager) processQueue(workerID int) {
	defer m.wg.Done()

	for event := range m.asyncQueue {
		metrics.AuditQueueDepth.Set(float64(len(m.asyncQueue)))
		ctx, cancel := context.WithTimeout(context.Background(), m.config.WriteTimeout)
		if err := m.sink.Write(ctx, event); err != nil {
			m.logger.Error("failed to write audit event",
				zap.Int("worker", workerID),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		} else {
			m.processedEvents.Add(1)
			metrics.AuditEventsProcessed.WithLabelValues(string(event.Type)).Inc()
		}
		cancel()
	}
}

func (m *Manager) processBatchQueue(workerID int) {
	defer m.wg.Done()

	batch := make([]*Event, 0, m.config.BatchSize)
	ticker := time.NewTicker(m.config.BatchTimeout)
	defer ticker.Stop()

	flushBatch := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.config.WriteTimeout)
		if err := m.batchSink.WriteBatch(ctx, batch); err != nil {
			m.logger.Error("failed to write audit batch",
				zap.Int("worker", workerID),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
		} else {
			m.processedEvents.Add(int64(len(batch)))
			for _, event := range batch {
				metrics.AuditEventsProcessed.WithLabelValues(string(event.Type)).Inc()
			}
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-m.asyncQueue:
			if !ok {
				flushBatch()
				return
			}
			metrics.AuditQueueDepth.Set(float64(len(m.asyncQueue)))
			batch = append(batch, event)
			if len(batch) >= m.config.BatchSize {
				flushBatch()
			}
		case <-ticker.C:
			flushBatch()
		}
	}
}

// Close drains the queue, waits for the workers and closes the sink.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if m.closed.Swap(true) {
		m.mu.Unlock()
		return nil
	}
	close(m.asyncQueue)
	m.mu.Unlock()

	m.wg.Wait()
	metrics.AuditQueueDepth.Set(0)

	m.logger.Info("audit manager stopped",
		zap.Int64("processed", m.processedEvents.Load()),
		zap.Int64("dropped", m.droppedEvents.Load()))
	return m.sink.Close()
}

func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		QueuedEvents:    m.queuedEvents.Load(),
		ProcessedEvents: m.processedEvents.Load(),
		DroppedEvents:   m.droppedEvents.Load(),
		QueueLength:     len(m.asyncQueue),
		QueueCapacity:   cap(m.asyncQueue),
	}
}

// ManagerStats contains audit manager statistics.
type ManagerStats struct {
	QueuedEvents    int64
	ProcessedEvents int64
	DroppedEvents   int64
	QueueLength     int
	QueueCapacity   int
}

// --- Helper methods for console events ---

// OfficerActor builds the actor for an authenticated officer.
func OfficerActor(officer v1.Officer, sourceIP, userAgent string) Actor {
	return Actor{
		EmployeeID: officer.EmployeeID,
		District:   officer.District,
		SourceIP:   sourceIP,
		UserAgent:  userAgent,
	}
}

func (m *Manager) OfficerLogin(ctx context.Context, actor Actor, sessionRef string) {
	m.Emit(ctx, &Event{
		Type:           EventOfficerLogin,
		Actor:          actor,
		Target:         Target{Kind: KindOfficer, Name: actor.EmployeeID},
		RequestContext: &RequestContext{SessionRef: sessionRef},
	})
}

func (m *Manager) OfficerLoginFailed(ctx context.Context, actor Actor, reason string, statusCode int) {
	m.Emit(ctx, &Event{
		Type:   EventOfficerLoginFailed,
		Actor:  actor,
		Target: Target{Kind: KindOfficer, Name: actor.EmployeeID},
		Details: map[string]interface{}{
			"reason":     reason,
			"statusCode": statusCode,
		},
	})
}

func (m *Manager) OfficerLogout(ctx context.Context, actor Actor, sessionRef string) {
	m.Emit(ctx, &Event{
		Type:           EventOfficerLogout,
		Actor:          actor,
		Target:         Target{Kind: KindOfficer, Name: actor.EmployeeID},
		RequestContext: &RequestContext{SessionRef: sessionRef},
	})
}

// SessionExpired records that the advisory API rejected the session token.
func (m *Manager) SessionExpired(ctx context.Context, actor Actor, sessionRef, path string) {
	m.Emit(ctx, &Event{
		Type:           EventSessionExpired,
		Actor:          actor,
		Target:         Target{Kind: KindOfficer, Name: actor.EmployeeID},
		RequestContext: &RequestContext{SessionRef: sessionRef, Path: path},
	})
}

func (m *Manager) EscalationResponded(ctx context.Context, actor Actor, id int64, result *v1.RespondResult) {
	details := map[string]interface{}{}
	if result != nil {
		if result.Status != "" {
			details["status"] = string(result.Status)
		}
		if result.Message != "" {
			details["message"] = result.Message
		}
	}
	m.Emit(ctx, &Event{
		Type:    EventEscalationResponded,
		Actor:   actor,
		Target:  Target{Kind: KindEscalation, Name: strconv.FormatInt(id, 10)},
		Details: details,
	})
}

func (m *Manager) EscalationRespondFailed(ctx context.Context, actor Actor, id int64, err error) {
	details := map[string]interface{}{}
	if err != nil {
		details["error"] = err.Error()
	}
	m.Emit(ctx, &Event{
		Type:    EventEscalationRespondFailed,
		Actor:   actor,
		Target:  Target{Kind: KindEscalation, Name: strconv.FormatInt(id, 10)},
		Details: details,
	})
}

// ProfileUpdated records which profile fields changed, never their values.
func (m *Manager) ProfileUpdated(ctx context.Context, actor Actor, fields []string) {
	m.Emit(ctx, &Event{
		Type:    EventProfileUpdated,
		Actor:   actor,
		Target:  Target{Kind: KindOfficer, Name: actor.EmployeeID},
		Details: map[string]interface{}{"fields": fields},
	})
}

func (m *Manager) SystemEvent(ctx context.Context, eventType EventType, details map[string]interface{}) {
	m.Emit(ctx, &Event{
		Type:    eventType,
		Target:  Target{Kind: KindConsole, Name: "officer-console"},
		Details: details,
	})
}
