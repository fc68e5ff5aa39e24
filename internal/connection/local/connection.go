// Package local is the no-hardware fallback. It samples uniformly random
// readouts for the circuit's classical registers without any network or lock.
package local

import (
	"context"
	"math/rand/v2"

	"github.com/DjordjeVuckovic/qstone/internal/circuit"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/result"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

const (
	Name   = "local"
	Origin = "local"
)

var provenance = result.Provenance{Mode: domain.ModeTagRandom, Origin: Origin}

type Connection struct {
	opts    connection.Options
	sampler *Sampler
}

var _ connection.Connection = (*Connection)(nil)

func New(opts ...connection.Option) *Connection {
	return NewWithSource(nil, opts...)
}

// NewWithSource makes sampling reproducible. A nil src is seeded randomly.
func NewWithSource(src rand.Source, opts ...connection.Option) *Connection {
	return &Connection{
		opts:    connection.NewOptions(opts...),
		sampler: NewSampler(src),
	}
}

func (c *Connection) Name() string {
	return Name
}

func (c *Connection) Prepare(ctx context.Context, req connection.Request) (connection.Program, error) {
	var prog connection.Program
	err := c.opts.Tracer.Step(ctx, trace.StepPre, trace.JobTypeConnection, "", func(context.Context) error {
		var err error
		prog, err = connection.PassthroughProgram(req.CircuitPath)
		return err
	})
	return prog, err
}

// Run draws one bit-string per repetition over all classical registers
// concatenated in declaration order and keeps only their frequency table.
// Endpoint and lock path are ignored.
func (c *Connection) Run(ctx context.Context, req connection.Request) (domain.ExecutionResult, error) {
	prog, err := c.Prepare(ctx, req)
	if err != nil {
		return domain.EmptyResult(), err
	}

	var res domain.ExecutionResult
	_ = c.opts.Tracer.Step(ctx, trace.StepPost, trace.JobTypeConnection, "get_outcomes", func(context.Context) error {
		res = c.sample(prog.Registers, req.Reps)
		return nil
	})
	return res, nil
}

func (c *Connection) sample(regs []circuit.Register, reps int) domain.ExecutionResult {
	width := 0
	for _, r := range regs {
		width += r.Width
	}
	if reps <= 0 || width == 0 {
		empty := domain.EmptyResult()
		empty.Mode = provenance.Mode
		empty.Origin = provenance.Origin
		empty.Timestamp = domain.Now()
		return empty
	}

	return result.FromCounts(c.sampler.Tally(width, reps), provenance)
}

// Provenance is the mode and origin every local result carries.
func (c *Connection) Provenance() (mode, origin string) {
	return provenance.Mode, provenance.Origin
}

// Interpret accepts a frequency table or per-shot array, tagged as a random
// source.
func (c *Connection) Interpret(resp connection.Response) (domain.ExecutionResult, error) {
	return result.Normalize(resp.Body, provenance)
}
