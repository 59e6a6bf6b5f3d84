package db

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool builds the primary-store connection pool from DATABASE_URL. The
// primary being down at boot is an expected condition: the pool is created
// lazily and an unreachable database only logs a warning, it never fails
// startup. DATABASE_URL may be empty, in which case the process runs on the
// fallback store alone and NewPool returns a nil pool.
func NewPool(ctx context.Context, log zerolog.Logger) (*pgxpool.Pool, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Warn().Msg("DATABASE_URL not set, running on fallback store only")
		return nil, nil
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("primary store unreachable at startup, fallback store active")
	}
	return pool, nil
}
