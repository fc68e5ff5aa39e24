package sink

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

type Type string

const (
	None Type = "none"
	JSON Type = "json"
	PG   Type = "pg"
	ES   Type = "es"
)

type Config struct {
	Type
	Dir string
	Pg  *PoolConfig
	Es  *ClientConfig
}

// New builds the sink for cfg.Type. None yields a nil sink, which the tracer
// treats as "spans only".
func New(ctx context.Context, cfg Config) (trace.Sink, error) {
	switch cfg.Type {
	case None, "":
		return nil, nil

	case JSON:
		return NewJSONDir(cfg.Dir)

	case PG:
		if cfg.Pg == nil || cfg.Pg.ConnStr == "" {
			return nil, fmt.Errorf("PostgreSQL connection string is not set")
		}
		return NewPgSink(ctx, *cfg.Pg)

	case ES:
		if cfg.Es == nil || len(cfg.Es.Addresses) == 0 {
			return nil, fmt.Errorf("elasticsearch configuration is incomplete: addresses are missing")
		}
		return NewEsSink(*cfg.Es)

	default:
		return nil, fmt.Errorf("unsupported trace sink type: %s, expected one of %v", cfg.Type, []Type{None, JSON, PG, ES})
	}
}
