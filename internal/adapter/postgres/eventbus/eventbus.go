package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/prompt-vault/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-vault/internal/port/eventbus"
)

const channelPrefix = "prompt_vault_"

// EventBus implements port/eventbus.EventBus over Postgres LISTEN/NOTIFY, so
// every server process sharing the database sees every prompt event.
//
// One pooled connection LISTENs on all domain channels while at least one
// subscription is live and fans notifications out to local handlers. A lost
// connection is re-established with backoff; events sent while it was down
// are not replayed.
type EventBus struct {
	pool *pgxpool.Pool

	mu   sync.RWMutex
	subs map[event.Channel]map[*subscription]struct{}
	stop context.CancelFunc // non-nil while the listener runs
}

func New(pool *pgxpool.Pool) *EventBus {
	return &EventBus{
		pool: pool,
		subs: make(map[event.Channel]map[*subscription]struct{}),
	}
}

// Publish sends an event via Postgres NOTIFY on the domain channel for the event type.
func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	channel := channelName(event.ChannelFor(e.Type))
	_, err = eb.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(payload))
	if err != nil {
		return fmt.Errorf("publishing event on channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe registers handler for events on ch until ctx ends or the
// subscription is cancelled. The first subscriber starts the shared listener
// and gets its connection error, if any.
func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.stop == nil {
		conn, err := eb.listen(ctx)
		if err != nil {
			return nil, err
		}
		listenCtx, stop := context.WithCancel(context.Background())
		eb.stop = stop
		go eb.run(listenCtx, conn)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ctx:     subCtx,
		cancel:  cancel,
		handler: handler,
		done:    make(chan struct{}),
	}
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[*subscription]struct{})
	}
	eb.subs[ch][sub] = struct{}{}

	go func() {
		<-subCtx.Done()
		eb.remove(ch, sub)
		close(sub.done)
	}()

	return sub, nil
}

// listen acquires a connection and LISTENs on every domain channel.
func (eb *EventBus) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := eb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for LISTEN: %w", err)
	}
	for _, ch := range event.Channels {
		channel := channelName(ch)
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			conn.Release()
			return nil, fmt.Errorf("executing LISTEN on channel %s: %w", channel, err)
		}
	}
	return conn, nil
}

func (eb *EventBus) run(ctx context.Context, conn *pgxpool.Conn) {
	defer func() {
		if conn != nil {
			conn.Exec(context.Background(), "UNLISTEN *") //nolint:errcheck
			conn.Release()
		}
	}()

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("event listener connection lost, reconnecting", "error", err)
			conn.Release()
			if conn, err = eb.reconnect(ctx); err != nil {
				return
			}
			continue
		}

		var e event.Event
		if err := json.Unmarshal([]byte(notification.Payload), &e); err != nil {
			slog.Warn("dropping malformed event payload", "channel", notification.Channel, "error", err)
			continue
		}
		eb.dispatch(event.Channel(strings.TrimPrefix(notification.Channel, channelPrefix)), e)
	}
}

// reconnect retries listen until it succeeds or ctx ends.
func (eb *EventBus) reconnect(ctx context.Context) (*pgxpool.Conn, error) {
	return retry.DoWithData(
		func() (*pgxpool.Conn, error) { return eb.listen(ctx) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("event listener reconnect failed", "attempt", n+1, "error", err)
		}),
	)
}

func (eb *EventBus) dispatch(ch event.Channel, e event.Event) {
	eb.mu.RLock()
	targets := make([]*subscription, 0, len(eb.subs[ch]))
	for sub := range eb.subs[ch] {
		targets = append(targets, sub)
	}
	eb.mu.RUnlock()

	for _, sub := range targets {
		if sub.ctx.Err() == nil {
			sub.handler(sub.ctx, e)
		}
	}
}

// remove drops sub and stops the listener once nobody is subscribed.
func (eb *EventBus) remove(ch event.Channel, sub *subscription) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.subs[ch], sub)
	if len(eb.subs[ch]) == 0 {
		delete(eb.subs, ch)
	}
	if len(eb.subs) == 0 && eb.stop != nil {
		eb.stop()
		eb.stop = nil
	}
}

// channelName converts a domain Channel to a safe Postgres channel identifier.
func channelName(ch event.Channel) string {
	return channelPrefix + string(ch)
}

type subscription struct {
	ctx     context.Context
	cancel  context.CancelFunc
	handler porteventbus.Handler
	done    chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}
