// Package rpc is the gRPC backend adapter. Each run is one unary call to
// qpu.QPU/RunQuantumCircuit; the backend serializes its own requests, so no
// lock is taken.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/result"
	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

const Name = "rpc"

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

func (c *Connection) Prepare(ctx context.Context, req connection.Request) (connection.Program, error) {
	var prog connection.Program
	err := c.opts.Tracer.Step(ctx, trace.StepPre, trace.JobTypeConnection, "", func(context.Context) error {
		var err error
		prog, err = connection.PassthroughProgram(req.CircuitPath)
		return err
	})
	return prog, err
}

// Run sends the circuit and decodes the JSON payload carried in the response.
// Channel failures are returned as *apperr.TransportError together with the
// empty result.
func (c *Connection) Run(ctx context.Context, req connection.Request) (domain.ExecutionResult, error) {
	prog, err := c.Prepare(ctx, req)
	if err != nil {
		return domain.EmptyResult(), err
	}

	addr := req.Endpoint.Address()
	if addr == "" {
		return domain.EmptyResult(), apperr.NewConfig("rpc endpoint has no host")
	}
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return domain.EmptyResult(), apperr.NewConfigWrap("rpc endpoint "+addr, err)
	}
	defer cc.Close()

	client := NewQPUClient(cc)
	in := CircuitRequest{Circuit: prog.Native, PktID: connection.NewPacketID()}
	timeout := req.Endpoint.Timeouts.WithDefaults().HTTP

	var resp CircuitResponse
	err = c.opts.Tracer.Step(ctx, trace.StepRun, trace.JobTypeConnection, "", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var err error
		resp, err = client.RunQuantumCircuit(callCtx, in)
		return err
	})
	if err != nil {
		code := status.Code(err)
		c.opts.Logger.Error("request failed", "step", "rpc", "address", addr, "code", code.String(), "pkt_id", in.PktID, "error", err)
		return domain.EmptyResult(), apperr.NewTransport("rpc", int(code), err)
	}

	var res domain.ExecutionResult
	_ = c.opts.Tracer.Step(ctx, trace.StepPost, trace.JobTypeConnection, "", func(context.Context) error {
		res, err = c.Interpret(connection.Response{Body: []byte(resp.Result), Endpoint: req.Endpoint, Program: prog})
		return err
	})
	if err != nil {
		c.opts.Logger.Error("failed to interpret backend response", "step", "rpc", "address", addr, "error", err)
		return domain.EmptyResult(), nil
	}
	return res, nil
}

func (c *Connection) Interpret(resp connection.Response) (domain.ExecutionResult, error) {
	return result.Normalize(resp.Body, result.Provenance{
		Mode:   domain.ModeTagRemote,
		Origin: resp.Endpoint.Address(),
	})
}
