package locker

import "context"

// AdvisoryLocker serialises critical sections keyed by an int64.
// The prompt service uses it to make each load-mutate-save of one prompt
// exclusive. The Postgres implementation must lock and unlock on the same DB
// connection, as session-level pg_advisory_lock requires.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}
