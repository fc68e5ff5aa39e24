package sink

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/qstone/internal/trace"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createProfileTable = `
CREATE TABLE IF NOT EXISTS qstone_profile (
	id       UUID PRIMARY KEY,
	usr      TEXT NOT NULL,
	prog_id  TEXT NOT NULL,
	job_id   TEXT NOT NULL,
	job_type TEXT NOT NULL,
	job_step TEXT NOT NULL,
	label    TEXT,
	start_ns BIGINT NOT NULL,
	end_ns   BIGINT NOT NULL,
	success  BOOLEAN NOT NULL
)`

const insertProfile = `
INSERT INTO qstone_profile (id, usr, prog_id, job_id, job_type, job_step, label, start_ns, end_ns, success)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

type PoolConfig struct {
	ConnStr string
}

// PgSink stores records in the qstone_profile table, shared by every job.
type PgSink struct {
	pool *pgxpool.Pool
}

func NewPgSink(ctx context.Context, cfg PoolConfig) (*PgSink, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	if _, err := pool.Exec(ctx, createProfileTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure profile table: %w", err)
	}

	return &PgSink{pool: pool}, nil
}

func (s *PgSink) Write(ctx context.Context, rec trace.Record) error {
	_, err := s.pool.Exec(ctx, insertProfile,
		rec.ID, rec.User, rec.ProgID, rec.JobID, rec.JobType, string(rec.JobStep),
		rec.Label, rec.Start, rec.End, rec.Success,
	)
	if err != nil {
		return fmt.Errorf("insert profile record: %w", err)
	}
	return nil
}

func (s *PgSink) Close() error {
	s.pool.Close()
	return nil
}
