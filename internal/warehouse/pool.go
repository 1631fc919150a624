package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Open creates a pgxpool.Pool for the target warehouse DSN and pings it.
// The Archive and Stage daemons call it once in Setup and keep the pool
// until Cleanup; it is not reopened or closed per job.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening warehouse pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging warehouse")
	}
	return pool, nil
}
