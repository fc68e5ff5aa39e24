// Package connector is the entry point callers use to execute circuits. A
// Connector owns exactly one backend adapter, chosen at construction.
package connector

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

// Config is everything a connector needs. It is copied at construction.
type Config struct {
	Protocol domain.ProtocolKind
	Endpoint domain.EndpointConfig
	// LockPath is the shared marker file; empty or "NONE" disables locking.
	LockPath string
}

type Connector struct {
	cfg    Config
	conn   connection.Connection
	logger *slog.Logger
	tracer *trace.Tracer
}

// New validates cfg and instantiates its adapter. Errors are
// *apperr.ConfigError.
func New(cfg Config, opts ...connection.Option) (*Connector, error) {
	if err := validateEndpoint(cfg.Protocol, cfg.Endpoint); err != nil {
		return nil, err
	}
	conn, err := NewConnection(cfg.Protocol, opts...)
	if err != nil {
		return nil, err
	}
	return newWithConnection(cfg, conn, opts...), nil
}

func newWithConnection(cfg Config, conn connection.Connection, opts ...connection.Option) *Connector {
	o := connection.NewOptions(opts...)
	cfg.Endpoint.Timeouts = cfg.Endpoint.Timeouts.WithDefaults()
	return &Connector{
		cfg:    cfg,
		conn:   conn,
		logger: o.Logger,
		tracer: o.Tracer,
	}
}

func (c *Connector) Protocol() domain.ProtocolKind {
	return c.cfg.Protocol
}

// Endpoint returns a copy of the endpoint configuration.
func (c *Connector) Endpoint() domain.EndpointConfig {
	return c.cfg.Endpoint
}

// Backend names the owned adapter.
func (c *Connector) Backend() string {
	return c.conn.Name()
}

// Run executes the circuit at circuitPath reps times.
//
// Callers must check IsEmpty on the result: transport failures and lock
// timeouts are reported as the empty result, not as errors. Returned errors
// are configuration, translation or validation errors, plus RPC transport
// errors.
func (c *Connector) Run(ctx context.Context, circuitPath string, reps int) (domain.ExecutionResult, error) {
	if reps < 0 {
		return domain.EmptyResult(), apperr.NewValidation("repetitions must not be negative")
	}
	if reps == 0 {
		return c.emptyResult(), nil
	}

	protocol := attribute.String("protocol", c.cfg.Protocol.String())
	c.tracer.Count(ctx, "qstone.connector.runs", protocol)

	res, err := c.conn.Run(ctx, connection.Request{
		CircuitPath: circuitPath,
		Reps:        reps,
		Endpoint:    c.cfg.Endpoint,
		LockPath:    c.cfg.LockPath,
	})
	if err != nil {
		return domain.EmptyResult(), err
	}
	if res.IsEmpty() {
		c.tracer.Count(ctx, "qstone.connector.empty_results", protocol)
		c.logger.Warn("run produced no result", "protocol", c.cfg.Protocol, "circuit", circuitPath, "reps", reps)
	}
	return res, nil
}

// emptyResult is the empty result stamped with the adapter's fixed
// provenance, when it has one.
func (c *Connector) emptyResult() domain.ExecutionResult {
	res := domain.EmptyResult()
	if p, ok := c.conn.(connection.Provenancer); ok {
		res.Mode, res.Origin = p.Provenance()
		res.Timestamp = domain.Now()
	}
	return res
}

// QueryQPUConfig asks the backend to describe itself. It returns
// apperr.ErrUnsupported when the adapter cannot.
func (c *Connector) QueryQPUConfig(ctx context.Context) (domain.QpuConfiguration, error) {
	q, ok := c.conn.(connection.ConfigQuerier)
	if !ok {
		return domain.QpuConfiguration{}, apperr.ErrUnsupported
	}
	return q.QueryQPUConfig(ctx, c.cfg.Endpoint)
}
