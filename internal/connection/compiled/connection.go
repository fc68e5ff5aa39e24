// Package compiled is the vendor-compiled backend adapter.
//
// The circuit is lowered by a compiler service into the vendor's native
// program, compiled for the target and run on an execution service, either
// a device or a QVM emulator. Compilation and execution happen inside the
// resource lock.
package compiled

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/circuit"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/lock"
	"github.com/DjordjeVuckovic/qstone/internal/result"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

const (
	Name = "compiled"

	// DefaultRegister is the classical register read back when declared.
	DefaultRegister = "c"

	requestLabel = "_request_and_process"
)

var errEmptyBody = errors.New("empty response body")

type Connection struct {
	opts connection.Options
}

var _ connection.Connection = (*Connection)(nil)

func New(opts ...connection.Option) *Connection {
	return &Connection{opts: connection.NewOptions(opts...)}
}

func (c *Connection) Name() string {
	return Name
}

// Prepare reads the circuit and has the compiler translate it. A program the
// compiler rejects is a *apperr.TranslationError; a compiler that cannot be
// reached is a *apperr.TransportError.
func (c *Connection) Prepare(ctx context.Context, req connection.Request) (connection.Program, error) {
	var prog connection.Program
	err := c.opts.Tracer.Step(ctx, trace.StepPre, trace.JobTypeConnection, "", func(ctx context.Context) error {
		circ, err := circuit.Read(req.CircuitPath)
		if err != nil {
			return err
		}

		compilerURL := req.Endpoint.CompilerURL()
		if compilerURL == "" {
			return apperr.NewConfig("compiled endpoint has no compiler host")
		}
		compiler := NewCompilerClient(compilerURL, c.opts.HTTPClient)
		native, out, err := compiler.Translate(ctx, circ.Source, req.Endpoint.Timeouts.WithDefaults().HTTP)
		if err != nil {
			return apperr.NewTranslation(req.CircuitPath, err)
		}
		if !out.OK() {
			return out.Err
		}

		prog = connection.Program{Source: circ.Source, Native: native, Registers: circ.Registers}
		return nil
	})
	return prog, err
}

func (c *Connection) Run(ctx context.Context, req connection.Request) (domain.ExecutionResult, error) {
	session, err := Dial(ctx, c.opts.HTTPClient, req.Endpoint)
	if err != nil {
		return domain.EmptyResult(), err
	}
	c.opts.Logger.Debug("session established",
		"target", session.Target,
		"as_qvm", session.AsVirtual,
		"compiler_version", session.CompilerVersion,
		"executor_version", session.ExecutorVersion,
	)

	prog, err := c.Prepare(ctx, req)
	if err != nil {
		if apperr.IsTransport(err) {
			c.opts.Logger.Error("request failed", "step", "translate", "error", err)
			return domain.EmptyResult(), nil
		}
		return domain.EmptyResult(), err
	}

	timeouts := req.Endpoint.Timeouts.WithDefaults()
	l := lock.New(req.LockPath)
	waiter := lock.NewWaiter(timeouts.LockInterval, timeouts.Lock)
	register := readoutRegister(prog.Registers)

	out, err := connection.Critical(ctx, l, waiter, func(ctx context.Context) connection.Outcome {
		var out connection.Outcome
		_ = c.opts.Tracer.Step(ctx, trace.StepRun, trace.JobTypeConnection, requestLabel, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeouts.Run)
			defer cancel()
			out = c.compileAndExecute(ctx, session, prog, register, req.Reps, timeouts)
			return out.Err
		})
		return out
	})
	if err != nil {
		return domain.EmptyResult(), err
	}

	switch {
	case out.LockTimedOut():
		c.opts.Logger.Error("timeout waiting for lock", "lock", l.Path(), "budget", timeouts.Lock, "target", session.Target)
		c.opts.Tracer.Count(ctx, "qstone.lock.timeouts", attribute.String("connection", Name))
		return domain.EmptyResult(), nil
	case !out.OK():
		c.opts.Logger.Error("request failed",
			"target", session.Target,
			"status", out.StatusCode,
			"outcome", out.Status.String(),
			"error", out.Err,
		)
		return domain.EmptyResult(), nil
	}

	var res domain.ExecutionResult
	_ = c.opts.Tracer.Step(ctx, trace.StepPost, trace.JobTypeConnection, "", func(context.Context) error {
		res, err = c.Interpret(connection.Response{Body: out.Body, Endpoint: req.Endpoint, Program: prog})
		return err
	})
	if err != nil {
		c.opts.Logger.Error("failed to interpret backend response", "target", session.Target, "error", err)
		return domain.EmptyResult(), nil
	}
	return res, nil
}

func (c *Connection) compileAndExecute(ctx context.Context, s *Session, prog connection.Program, register string, reps int, timeouts domain.Timeouts) connection.Outcome {
	exe, out := s.Compiler.Compile(ctx, CompileRequest{
		Program: prog.Native,
		Target:  s.Target,
		AsQVM:   s.AsVirtual,
		Shots:   reps,
	}, timeouts.HTTP)
	if !out.OK() {
		return out
	}
	return s.Executor.Multishot(ctx, exe, register, reps, timeouts.Run)
}

// Interpret reads the per-shot values of the readout register. Results are
// already ordered, so the mapping is the identity over the register width.
func (c *Connection) Interpret(resp connection.Response) (domain.ExecutionResult, error) {
	register := readoutRegister(resp.Program.Registers)

	var registers map[string][][]int
	if err := json.Unmarshal(resp.Body, &registers); err != nil {
		return domain.EmptyResult(), fmt.Errorf("decode register map: %w", err)
	}
	shots, ok := registers[register]
	if !ok {
		return domain.EmptyResult(), fmt.Errorf("register %q missing from response", register)
	}

	mode := domain.ModeTagReal
	if AsVirtual(resp.Endpoint) {
		mode = domain.ModeTagSimulated
	}
	return result.FromShots(shots, result.Provenance{Mode: mode, Origin: origin(resp.Endpoint)}), nil
}

// readoutRegister picks DefaultRegister when declared, otherwise the first
// declared register.
func readoutRegister(regs []circuit.Register) string {
	for _, r := range regs {
		if r.Name == DefaultRegister {
			return r.Name
		}
	}
	if len(regs) > 0 {
		return regs[0].Name
	}
	return DefaultRegister
}
