package idempotency

import (
	"context"
	"time"
)

// Retention is how long a processed key is remembered.
const Retention = 24 * time.Hour

// Response is a stored HTTP result replayed for a repeated idempotency key.
type Response struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyStore remembers the outcome of mutating requests by key.
type IdempotencyStore interface {
	// Check returns the stored response and whether the key was seen.
	Check(ctx context.Context, key string) (Response, bool, error)
	Store(ctx context.Context, key string, opType string, resp Response) error
}

// Pruner drops responses recorded before cutoff and returns how many went.
// [ISP] Only the background pruner needs this; request handling does not.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
