package locker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Locker implements port/locker.AdvisoryLocker with transaction-scoped
// Postgres advisory locks, so prompt edits are serialised across every server
// sharing the DB. The lock lives as long as a transaction held open on one
// pooled connection; commit, rollback or a dropped connection all release it.
type Locker struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Locker {
	return &Locker{pool: pool}
}

// WithLock blocks until key is free, then runs fn. fn's own queries use other
// connections and are not part of the lock transaction.
func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
			return fmt.Errorf("acquire advisory lock %d: %w", key, err)
		}
		return fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("with lock %d: %w", key, err)
	}
	return nil
}
