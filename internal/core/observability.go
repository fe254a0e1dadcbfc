package core

import (
	"context"
	"log/slog"
	"time"

	"growvertising/pkg/domain"
)

// Logger receives structured service events. Key/value pairs follow the
// slog convention of alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the service Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps the supplied slog logger. A nil logger falls back to
// slog.Default().
func NewSlogLogger(logger *slog.Logger) SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogLogger{logger: logger}
}

func (l SlogLogger) Debug(msg string, kv ...any) { l.logger.Debug(msg, kv...) }
func (l SlogLogger) Info(msg string, kv ...any)  { l.logger.Info(msg, kv...) }
func (l SlogLogger) Warn(msg string, kv ...any)  { l.logger.Warn(msg, kv...) }
func (l SlogLogger) Error(msg string, kv ...any) { l.logger.Error(msg, kv...) }

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span, recording the operation error if any.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// AuditStatus marks an audit entry as a success or error outcome.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes a completed service operation for compliance trails.
type AuditEntry struct {
	Operation string            `json:"operation"`
	Entity    domain.EntityType `json:"entity"`
	Action    domain.Action     `json:"action"`
	EntityID  string            `json:"entity_id,omitempty"`
	Status    AuditStatus       `json:"status"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
}

// AuditRecorder receives audit entries emitted by the service.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// Clock supplies the service's notion of the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type auditProfile struct {
	entity domain.EntityType
	action domain.Action
}

// auditProfiles maps instrumented operation names to the entity and action
// they audit as. Operations absent from the table produce no audit entries.
var auditProfiles = map[string]auditProfile{
	"start_growing":    {entity: domain.EntityPlant, action: domain.ActionCreate},
	"advance_progress": {entity: domain.EntityPlant, action: domain.ActionUpdate},
	"harvest":          {entity: domain.EntityHarvest, action: domain.ActionCreate},
	"submit_upload":    {entity: domain.EntityUpload, action: domain.ActionCreate},
	"submit_comment":   {entity: domain.EntityComment, action: domain.ActionCreate},
	"like_upload":      {entity: domain.EntityUpload, action: domain.ActionUpdate},
	"like_comment":     {entity: domain.EntityComment, action: domain.ActionUpdate},
	"create_campaign":  {entity: domain.EntityCampaign, action: domain.ActionCreate},
	"request_seed_kit": {entity: domain.EntityCampaign, action: domain.ActionUpdate},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	profile, ok := auditProfiles[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    profile.entity,
		Action:    profile.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, opErr error, duration time.Duration) {
	profile, ok := auditProfiles[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    profile.entity,
		Action:    profile.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	s.audit.Record(ctx, entry)
}

// instrument wraps a service operation with tracing, metrics, audit, and
// logging. The callback returns the identifier of the affected entity for
// the audit trail.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := s.clock.Now()

	entityID, err := fn(ctx)

	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.recordAuditError(ctx, operation, entityID, err, duration)
		s.logger.Error("operation failed", "operation", operation, "error", err)
		return err
	}
	s.recordAuditSuccess(ctx, operation, entityID, duration)
	s.logger.Debug("operation completed", "operation", operation, "entity_id", entityID, "duration", duration)
	return nil
}
