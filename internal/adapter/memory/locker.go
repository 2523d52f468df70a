package memory

import (
	"context"
	"sync"
)

// Locker implements port/locker.AdvisoryLocker within one process. Each key
// gets a one-slot channel so waiting honours ctx cancellation.
type Locker struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[int64]chan struct{})}
}

func (l *Locker) slot(key int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-ch }()

	return fn(ctx)
}
