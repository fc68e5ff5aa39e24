package node

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/circuit"
	"github.com/DjordjeVuckovic/qstone/internal/connection/local"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/result"
)

// QPU executes circuits on behalf of the node.
type QPU interface {
	Exec(ctx context.Context, qasm string, shots int) (domain.ExecutionResult, error)
	Config() domain.QpuConfiguration
}

// MockQPU answers every circuit with uniformly random readouts over its
// classical registers.
type MockQPU struct {
	cfg     domain.QpuConfiguration
	origin  string
	sampler *local.Sampler
}

func NewMockQPU(cfg domain.QpuConfiguration, src rand.Source) *MockQPU {
	return &MockQPU{cfg: cfg, origin: "mock", sampler: local.NewSampler(src)}
}

func (q *MockQPU) Config() domain.QpuConfiguration {
	return q.cfg
}

func (q *MockQPU) Exec(_ context.Context, qasm string, shots int) (domain.ExecutionResult, error) {
	c, err := circuit.Parse(qasm)
	if err != nil {
		return domain.EmptyResult(), apperr.NewValidationWrap("invalid circuit", err)
	}
	if shots < 0 {
		return domain.EmptyResult(), apperr.NewValidation(fmt.Sprintf("invalid number of shots: %d", shots))
	}
	return result.FromShots(q.sampler.Sample(c.Width(), shots), result.Provenance{
		Mode:   domain.ModeTagRandom,
		Origin: q.origin,
	}), nil
}
