package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portidempotency "github.com/alanyang/prompt-vault/internal/port/idempotency"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Check looks up an idempotency key. Returns the stored response, whether
// the key exists, and any error.
func (r *Repository) Check(ctx context.Context, key string) (portidempotency.Response, bool, error) {
	query := `SELECT status, body FROM processed_operations WHERE idempotency_key = $1`

	var resp portidempotency.Response
	err := r.pool.QueryRow(ctx, query, key).Scan(&resp.Status, &resp.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return portidempotency.Response{}, false, nil
		}
		return portidempotency.Response{}, false, fmt.Errorf("checking idempotency key: %w", err)
	}
	return resp, true, nil
}

// Store records a processed operation. The first response for a key wins.
func (r *Repository) Store(ctx context.Context, key string, opType string, resp portidempotency.Response) error {
	query := `
		INSERT INTO processed_operations (idempotency_key, operation_type, status, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING`

	body := resp.Body
	if body == nil {
		body = []byte{}
	}
	_, err := r.pool.Exec(ctx, query, key, opType, resp.Status, body)
	if err != nil {
		return fmt.Errorf("storing idempotency key: %w", err)
	}
	return nil
}

// Prune deletes processed operations older than cutoff.
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM processed_operations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
