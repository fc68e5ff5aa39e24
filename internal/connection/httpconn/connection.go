// Package httpconn is the submit/poll HTTP backend adapter.
//
// A run submits the circuit to {base}/execute and then fetches the result for
// the same packet from {base}/results. Both requests happen inside the
// resource lock; transport failures and lock timeouts degrade to the empty
// result plus a diagnostic.
package httpconn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/lock"
	"github.com/DjordjeVuckovic/qstone/internal/result"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

const (
	Name = "http"

	ExecutePath = "/execute"
	ResultsPath = "/results"
	ConfigPath  = "/qpu/config"

	requestLabel = "_request_and_process"
)

// SubmitRequest is the body of POST /execute.
type SubmitRequest struct {
	Circuit string `json:"circuit"`
	PktID   int64  `json:"pkt_id"`
	Reps    int    `json:"reps"`
}

// SubmitResponse is returned by POST /execute on accept.
type SubmitResponse struct {
	JobID int64 `json:"job_id"`
}

// ResultsRequest is the body of GET /results.
type ResultsRequest struct {
	PktID int64 `json:"pkt_id"`
}

type Connection struct {
	opts connection.Options
}

var (
	_ connection.Connection    = (*Connection)(nil)
	_ connection.ConfigQuerier = (*Connection)(nil)
)

func New(opts ...connection.Option) *Connection {
	return &Connection{opts: connection.NewOptions(opts...)}
}

func (c *Connection) Name() string {
	return Name
}

// Prepare is a passthrough: the gateway accepts OpenQASM as is.
func (c *Connection) Prepare(ctx context.Context, req connection.Request) (connection.Program, error) {
	var prog connection.Program
	err := c.opts.Tracer.Step(ctx, trace.StepPre, trace.JobTypeConnection, "", func(context.Context) error {
		var err error
		prog, err = connection.PassthroughProgram(req.CircuitPath)
		return err
	})
	return prog, err
}

func (c *Connection) Run(ctx context.Context, req connection.Request) (domain.ExecutionResult, error) {
	prog, err := c.Prepare(ctx, req)
	if err != nil {
		return domain.EmptyResult(), err
	}

	base := req.Endpoint.BaseURL()
	if base == "" {
		return domain.EmptyResult(), apperr.NewConfig("http endpoint has no host")
	}

	timeouts := req.Endpoint.Timeouts.WithDefaults()
	l := lock.New(req.LockPath)
	waiter := lock.NewWaiter(timeouts.LockInterval, timeouts.Lock)
	pktID := connection.NewPacketID()

	out, err := connection.Critical(ctx, l, waiter, func(ctx context.Context) connection.Outcome {
		var out connection.Outcome
		_ = c.opts.Tracer.Step(ctx, trace.StepRun, trace.JobTypeConnection, requestLabel, func(ctx context.Context) error {
			out = c.requestAndProcess(ctx, base, SubmitRequest{Circuit: prog.Native, PktID: pktID, Reps: req.Reps}, timeouts)
			return out.Err
		})
		return out
	})
	if err != nil {
		return domain.EmptyResult(), err
	}

	switch {
	case out.LockTimedOut():
		c.opts.Logger.Error("timeout waiting for lock", "lock", l.Path(), "budget", timeouts.Lock, "pkt_id", pktID)
		c.opts.Tracer.Count(ctx, "qstone.lock.timeouts", attribute.String("connection", Name))
		return domain.EmptyResult(), nil
	case !out.OK():
		c.opts.Logger.Error("request failed",
			"base", base,
			"pkt_id", pktID,
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
		c.opts.Logger.Error("failed to interpret backend response", "base", base, "pkt_id", pktID, "error", err)
		return domain.EmptyResult(), nil
	}
	return res, nil
}

// requestAndProcess submits the circuit and, once accepted, fetches its result.
func (c *Connection) requestAndProcess(ctx context.Context, base string, submit SubmitRequest, timeouts domain.Timeouts) connection.Outcome {
	accepted := connection.CallJSON(ctx, c.opts.HTTPClient, http.MethodPost, base+ExecutePath, submit, timeouts.Submit, "submit")
	if !accepted.OK() {
		return accepted
	}

	var ack SubmitResponse
	if err := json.Unmarshal(accepted.Body, &ack); err == nil {
		c.opts.Logger.Debug("circuit accepted", "pkt_id", submit.PktID, "job_id", ack.JobID)
	}

	return connection.CallJSON(ctx, c.opts.HTTPClient, http.MethodGet, base+ResultsPath, ResultsRequest{PktID: submit.PktID}, timeouts.HTTP, "results")
}

// Interpret normalizes the /results body. An empty body is the empty result.
func (c *Connection) Interpret(resp connection.Response) (domain.ExecutionResult, error) {
	return result.Normalize(resp.Body, result.Provenance{
		Mode:   domain.ModeTagRemote,
		Origin: resp.Endpoint.BaseURL(),
	})
}

// QueryQPUConfig fetches the node's capability descriptor from {base}/qpu/config.
func (c *Connection) QueryQPUConfig(ctx context.Context, endpoint domain.EndpointConfig) (domain.QpuConfiguration, error) {
	base := endpoint.BaseURL()
	if base == "" {
		return domain.QpuConfiguration{}, apperr.NewConfig("http endpoint has no host")
	}

	var cfg domain.QpuConfiguration
	err := c.opts.Tracer.Step(ctx, trace.StepQuery, trace.JobTypeConnection, "", func(ctx context.Context) error {
		out := connection.CallJSON(ctx, c.opts.HTTPClient, http.MethodGet, base+ConfigPath, nil, endpoint.Timeouts.WithDefaults().HTTP, "qpu config")
		if !out.OK() {
			return out.Err
		}
		if err := json.Unmarshal(out.Body, &cfg); err != nil {
			return apperr.NewTransport("qpu config", out.StatusCode, fmt.Errorf("decode: %w", err))
		}
		return nil
	})
	if err != nil {
		return domain.QpuConfiguration{}, err
	}
	return cfg, nil
}
