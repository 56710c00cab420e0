package core

import (
	"context"
	"time"

	"roadmapcore/pkg/domain"
)

// Logger receives structured service events. The args follow the slog
// convention of alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the current time for audit stamps and document metadata.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface. A nil function falls
// back to the system clock; all times are normalized to UTC.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// MetricsRecorder aggregates operation timing and outcome counters.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan represents an in-flight trace of a single operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

// AuditStatus reports whether an audited operation succeeded.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry captures one completed service operation for audit trails.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Operation
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries; implementations must be safe for
// concurrent use.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type serviceOptions struct {
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		clock:   ClockFunc(nil),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
}

// ServiceOption customizes service construction.
type ServiceOption func(*serviceOptions)

// WithLogger attaches a structured logger to the service.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for audit stamps.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetricsRecorder attaches a metrics sink to the service.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithTracer attaches a tracer that spans each service operation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithAuditRecorder attaches an audit sink to the service.
func WithAuditRecorder(audit AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if audit != nil {
			o.audit = audit
		}
	}
}

// rulesEngineProvider is implemented by stores that expose their engine.
type rulesEngineProvider interface {
	RulesEngine() *domain.RulesEngine
}

func extractRulesEngine(store PersistentStore) *domain.RulesEngine {
	if provider, ok := store.(rulesEngineProvider); ok {
		return provider.RulesEngine()
	}
	return nil
}

// nowFuncProvider is implemented by stores with an overridable time source.
type nowFuncProvider interface {
	NowFunc() func() time.Time
}

// selectNowFunc prefers the store's own time source so that persisted
// timestamps and audit stamps agree, then the configured clock, then UTC now.
func selectNowFunc(store PersistentStore, clock Clock) func() time.Time {
	if provider, ok := store.(nowFuncProvider); ok {
		if fn := provider.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	if clock != nil {
		return clock.Now
	}
	return func() time.Time { return time.Now().UTC() }
}
