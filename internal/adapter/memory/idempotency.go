package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	portidempotency "github.com/alanyang/prompt-vault/internal/port/idempotency"
)

const idempotencyNamespace = "idempotency"

type IdempotencyStore struct {
	store *Store
}

func NewIdempotencyStore(store *Store) *IdempotencyStore {
	return &IdempotencyStore{store: store}
}

func (s *IdempotencyStore) Check(ctx context.Context, key string) (portidempotency.Response, bool, error) {
	data, err := s.store.Get(ctx, idempotencyNamespace, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return portidempotency.Response{}, false, nil
		}
		return portidempotency.Response{}, false, fmt.Errorf("checking idempotency key: %w", err)
	}

	var resp portidempotency.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return portidempotency.Response{}, false, fmt.Errorf("unmarshaling idempotent response: %w", err)
	}
	return resp, true, nil
}

// Store keeps the first response recorded for key.
func (s *IdempotencyStore) Store(ctx context.Context, key string, _ string, resp portidempotency.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling idempotent response: %w", err)
	}
	s.store.SetIfAbsent(ctx, idempotencyNamespace, key, data, portidempotency.Retention)
	return nil
}

// Prune drops keys written before cutoff. Entries expire Retention after
// they are written, so sweeping at cutoff+Retention removes exactly those.
func (s *IdempotencyStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	return int64(s.store.Sweep(cutoff.Add(portidempotency.Retention))), nil
}
