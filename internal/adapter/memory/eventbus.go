package memory

import (
	"context"
	"sync"

	"github.com/alanyang/prompt-vault/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-vault/internal/port/eventbus"
)

// EventBus is an in-process port/eventbus.EventBus. Handlers run
// synchronously on the publishing goroutine.
type EventBus struct {
	mu   sync.RWMutex
	subs map[event.Channel]map[*subscription]porteventbus.Handler
}

func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[event.Channel]map[*subscription]porteventbus.Handler),
	}
}

func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	ch := event.ChannelFor(e.Type)

	eb.mu.RLock()
	handlers := make([]porteventbus.Handler, 0, len(eb.subs[ch]))
	for _, h := range eb.subs[ch] {
		handlers = append(handlers, h)
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	return nil
}

// Subscribe registers handler until Unsubscribe is called or ctx ends.
func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	sub := &subscription{bus: eb, ch: ch, done: make(chan struct{})}

	eb.mu.Lock()
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[*subscription]porteventbus.Handler)
	}
	eb.subs[ch][sub] = handler
	eb.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()
	return sub, nil
}

type subscription struct {
	bus  *EventBus
	ch   event.Channel
	once sync.Once
	done chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.ch], s)
		s.bus.mu.Unlock()
		close(s.done)
	})
}
