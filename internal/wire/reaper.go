package wire

import (
	"context"
	"log/slog"
	"time"

	portidempotency "github.com/alanyang/prompt-vault/internal/port/idempotency"
)

// startReaper prunes idempotency keys older than portidempotency.Retention
// every interval until ctx ends. One pass runs immediately so keys left over
// from before a restart do not wait a full interval.
func startReaper(ctx context.Context, pruner portidempotency.Pruner, interval time.Duration) {
	if interval <= 0 {
		slog.Info("reaper: disabled")
		return
	}

	reap := func() {
		cutoff := time.Now().Add(-portidempotency.Retention)
		n, err := pruner.Prune(ctx, cutoff)
		if err != nil {
			slog.Error("reaper: prune idempotency keys failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("reaper: pruned idempotency keys", "count", n, "cutoff", cutoff)
		}
	}

	go func() {
		reap()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reap()
			}
		}
	}()
}
