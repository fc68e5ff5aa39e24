// Package node emulates a QPU node: it accepts circuits over the HTTP
// submit/poll contract and the qpu.QPU gRPC service and runs them one at a
// time on a QPU.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/DjordjeVuckovic/qstone/internal/connection/rpc"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
)

const (
	DefaultQueueSize = 64
	// DefaultRPCShots is used for gRPC submissions, which carry no shot count.
	DefaultRPCShots = 100
)

var ErrQueueFull = errors.New("job queue is full")

type job struct {
	pktID int64
	qasm  string
	reps  int
}

type outcome struct {
	result domain.ExecutionResult
	err    error
}

// Node queues submitted jobs and runs them in order on a single worker.
// A result is kept until it has been fetched once.
type Node struct {
	qpu      QPU
	logger   *slog.Logger
	queue    chan job
	rpcShots int

	mu      sync.Mutex
	results map[int64]outcome
	waiters map[int64]chan struct{}

	running atomic.Bool
}

var _ rpc.QPUServer = (*Node)(nil)

type Option func(*Node)

func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		n.logger = l
	}
}

func WithRPCShots(shots int) Option {
	return func(n *Node) {
		n.rpcShots = shots
	}
}

func WithQueueSize(size int) Option {
	return func(n *Node) {
		n.queue = make(chan job, size)
	}
}

func New(qpu QPU, opts ...Option) *Node {
	n := &Node{
		qpu:      qpu,
		logger:   slog.Default(),
		queue:    make(chan job, DefaultQueueSize),
		rpcShots: DefaultRPCShots,
		results:  make(map[int64]outcome),
		waiters:  make(map[int64]chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Config describes the underlying QPU.
func (n *Node) Config() domain.QpuConfiguration {
	return n.qpu.Config()
}

// Submit queues a job without waiting for it to run.
func (n *Node) Submit(pktID int64, qasm string, reps int) error {
	select {
	case n.queue <- job{pktID: pktID, qasm: qasm, reps: reps}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Work runs queued jobs until ctx is done.
func (n *Node) Work(ctx context.Context) {
	n.running.Store(true)
	defer n.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-n.queue:
			res, err := n.qpu.Exec(ctx, j.qasm, j.reps)
			if err != nil {
				n.logger.Error("job failed", "pkt_id", j.pktID, "error", err)
			} else {
				n.logger.Info("job completed", "pkt_id", j.pktID, "reps", j.reps)
			}
			n.complete(j.pktID, outcome{result: res, err: err})
		}
	}
}

func (n *Node) complete(pktID int64, out outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results[pktID] = out
	if ch, ok := n.waiters[pktID]; ok {
		close(ch)
		delete(n.waiters, pktID)
	}
}

// Await blocks until the result for pktID exists or ctx is done, and then
// forgets it.
func (n *Node) Await(ctx context.Context, pktID int64) (domain.ExecutionResult, error) {
	for {
		n.mu.Lock()
		if out, ok := n.results[pktID]; ok {
			delete(n.results, pktID)
			n.mu.Unlock()
			return out.result, out.err
		}
		ch, ok := n.waiters[pktID]
		if !ok {
			ch = make(chan struct{})
			n.waiters[pktID] = ch
		}
		n.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.EmptyResult(), ctx.Err()
		case <-ch:
		}
	}
}

// Healthy reports whether the worker is running.
func (n *Node) Healthy(context.Context) bool {
	return n.running.Load()
}

// RunQuantumCircuit serves the gRPC contract through the same queue as HTTP
// submissions and returns the frequency table as JSON.
func (n *Node) RunQuantumCircuit(ctx context.Context, in rpc.CircuitRequest) (rpc.CircuitResponse, error) {
	if err := n.Submit(in.PktID, in.Circuit, n.rpcShots); err != nil {
		return rpc.CircuitResponse{}, status.Error(codes.ResourceExhausted, err.Error())
	}
	res, err := n.Await(ctx, in.PktID)
	if err != nil {
		if ctx.Err() != nil {
			return rpc.CircuitResponse{}, status.FromContextError(ctx.Err()).Err()
		}
		return rpc.CircuitResponse{}, status.Error(codes.InvalidArgument, err.Error())
	}
	data, err := json.Marshal(res.Counts)
	if err != nil {
		return rpc.CircuitResponse{}, err
	}
	return rpc.CircuitResponse{
		Result:   string(data),
		Capacity: int32(n.qpu.Config().NumRequiredQubits),
	}, nil
}
