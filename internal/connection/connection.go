// Package connection defines the contract every backend adapter implements
// and the pieces they share: step outcomes, the lock-guarded critical
// section and packet identifiers.
package connection

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/DjordjeVuckovic/qstone/internal/circuit"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

// Program is a circuit in the form a backend consumes.
type Program struct {
	Source string
	// Native is the backend dialect; passthrough backends leave it equal to Source.
	Native    string
	Registers []circuit.Register
}

// Request is one run. Endpoint is passed by value on every call.
type Request struct {
	CircuitPath string
	Reps        int
	Endpoint    domain.EndpointConfig
	// LockPath names the shared marker file; empty disables locking.
	LockPath string
}

// Response is a backend's raw answer plus what is needed to read it.
type Response struct {
	Body     []byte
	Endpoint domain.EndpointConfig
	Program  Program
}

// Connection is implemented by each backend adapter.
//
// Run returns either a populated result or the empty one. Configuration and
// translation errors are returned as errors; how transport failures surface
// is adapter specific.
type Connection interface {
	Name() string
	Prepare(ctx context.Context, req Request) (Program, error)
	Run(ctx context.Context, req Request) (domain.ExecutionResult, error)
	Interpret(resp Response) (domain.ExecutionResult, error)
}

// ConfigQuerier is implemented by adapters that can describe the remote QPU.
type ConfigQuerier interface {
	QueryQPUConfig(ctx context.Context, endpoint domain.EndpointConfig) (domain.QpuConfiguration, error)
}

// Provenancer is implemented by adapters whose results always carry the same
// mode and origin, so even an empty result can say where it came from.
type Provenancer interface {
	Provenance() (mode, origin string)
}

// Options are shared by every adapter constructor.
type Options struct {
	Logger *slog.Logger
	Tracer *trace.Tracer
	// HTTPClient is used by HTTP based adapters. Per-request timeouts are
	// applied through the request context, not the client.
	HTTPClient *http.Client
}

type Option func(*Options)

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithTracer(t *trace.Tracer) Option {
	return func(o *Options) {
		o.Tracer = t
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = hc
	}
}

func NewOptions(opts ...Option) Options {
	o := Options{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	return o
}

var packetSpace = big.NewInt(1 << 31)

// NewPacketID draws a correlation token uniformly from [0, 2^31).
func NewPacketID() int64 {
	n, err := rand.Int(rand.Reader, packetSpace)
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}
	return n.Int64()
}

// PassthroughProgram reads the circuit and hands its text over unchanged.
func PassthroughProgram(path string) (Program, error) {
	c, err := circuit.Read(path)
	if err != nil {
		return Program{}, err
	}
	return Program{Source: c.Source, Native: c.Source, Registers: c.Registers}, nil
}
