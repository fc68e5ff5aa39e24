// Package trace times connector steps. Each step gets an OpenTelemetry span
// and, when a sink is configured, a profile record.
package trace

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/DjordjeVuckovic/qstone"

// Step is the phase of a computation a record belongs to.
type Step string

const (
	StepPre   Step = "PRE"
	StepRun   Step = "RUN"
	StepPost  Step = "POST"
	StepQuery Step = "QUERY"
)

// JobTypeConnection tags records produced by the connector.
const JobTypeConnection = "CONNECTION"

// Record is one timed step. Start and End are Unix nanoseconds.
type Record struct {
	ID      uuid.UUID `json:"id"`
	User    string    `json:"user"`
	ProgID  string    `json:"prog_id"`
	JobID   string    `json:"job_id"`
	JobType string    `json:"job_type"`
	JobStep Step      `json:"job_step"`
	Label   string    `json:"label,omitempty"`
	Start   int64     `json:"start"`
	End     int64     `json:"end"`
	Success bool      `json:"success"`
}

// Name is the profile name used by file sinks:
// job_<job>_<step>_<type>[_<label>].
func (r Record) Name() string {
	parts := []string{"job", r.JobID, string(r.JobStep), r.JobType}
	if r.Label != "" {
		parts = append(parts, r.Label)
	}
	return strings.Join(parts, "_")
}

// Sink persists profile records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Identity says who a record belongs to.
type Identity struct {
	User   string
	ProgID string
	JobID  string
}

type Option func(*Tracer)

func WithSink(s Sink) Option {
	return func(t *Tracer) {
		t.sink = s
	}
}

func WithIdentity(id Identity) Option {
	return func(t *Tracer) {
		t.identity = id
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracer) {
		t.logger = l
	}
}

// Tracer wraps steps. The nil *Tracer is valid and only runs the step.
type Tracer struct {
	tracer   oteltrace.Tracer
	meter    metric.Meter
	sink     Sink
	identity Identity
	logger   *slog.Logger

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
}

// New uses the global OpenTelemetry providers; configure them with
// otel.SetTracerProvider / otel.SetMeterProvider before constructing.
func New(opts ...Option) *Tracer {
	t := &Tracer{
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
		logger:   slog.Default(),
		counters: make(map[string]metric.Int64Counter),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Step runs fn as the given step and returns fn's error unchanged. Failing to
// persist the record is logged, never returned.
func (t *Tracer) Step(ctx context.Context, step Step, jobType, label string, fn func(ctx context.Context) error) error {
	if t == nil {
		return fn(ctx)
	}

	spanName := jobType + "." + string(step)
	if label != "" {
		spanName += "." + label
	}
	ctx, span := t.tracer.Start(ctx, spanName, oteltrace.WithAttributes(
		attribute.String("qstone.job_id", t.identity.JobID),
		attribute.String("qstone.job_step", string(step)),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	end := time.Now()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if t.sink != nil {
		rec := Record{
			ID:      uuid.New(),
			User:    t.identity.User,
			ProgID:  t.identity.ProgID,
			JobID:   t.identity.JobID,
			JobType: jobType,
			JobStep: step,
			Label:   label,
			Start:   start.UnixNano(),
			End:     end.UnixNano(),
			Success: err == nil,
		}
		if werr := t.sink.Write(ctx, rec); werr != nil {
			t.logger.Warn("failed to write profile record", "name", rec.Name(), "error", werr)
		}
	}
	return err
}

// Count adds one to the named counter.
func (t *Tracer) Count(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if t == nil {
		return
	}
	t.mu.Lock()
	c, ok := t.counters[name]
	if !ok {
		var err error
		c, err = t.meter.Int64Counter(name)
		if err != nil {
			t.mu.Unlock()
			return
		}
		t.counters[name] = c
	}
	t.mu.Unlock()
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (t *Tracer) Close() error {
	if t == nil || t.sink == nil {
		return nil
	}
	return t.sink.Close()
}
