// Package eventbus fans room events out to every live subscription.
//
// Publishing never blocks: each subscription owns a bounded buffer and an
// event that does not fit is dropped for that subscription only. Publishes
// are serialized, so all subscriptions observe the same order.
package eventbus

import (
	"errors"
	"sync"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"go.uber.org/zap"
)

const DefaultBufferSize = 1000

const dropLogInterval = 5 * time.Second

var (
	ErrBusClosed          = errors.New("event bus is closed")
	ErrSubscriptionClosed = errors.New("subscription is closed")
)

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(ev domain.Event) error
}

// Subscriber is the consumer side of the bus.
type Subscriber interface {
	Subscribe() (*Subscription, error)
}

// Observer receives bus activity, typically for metrics.
type Observer interface {
	EventPublished(eventType domain.EventType, delivered int)
	EventDropped(eventType domain.EventType)
	SubscriptionOpened()
	SubscriptionClosed()
}

type noopObserver struct{}

func (noopObserver) EventPublished(domain.EventType, int) {}
func (noopObserver) EventDropped(domain.EventType)        {}
func (noopObserver) SubscriptionOpened()                  {}
func (noopObserver) SubscriptionClosed()                  {}

type Option func(*Bus)

func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(b *Bus) {
		if o != nil {
			b.observer = o
		}
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	seq    uint64
	closed bool

	bufferSize int
	observer   Observer
	logger     *zap.SugaredLogger

	// drop warnings are coalesced to one line per dropLogInterval
	lastDropLog     time.Time
	droppedSinceLog uint64
}

func New(opts ...Option) *Bus {
	b := &Bus{
		subs:       make(map[uint64]*Subscription),
		bufferSize: DefaultBufferSize,
		observer:   noopObserver{},
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.For(b.logger, logging.EventBus, logging.Publish)
	return b
}

// Publish stamps ev with the next sequence number and offers an independent
// copy to every subscription. It only fails once the bus is closed.
func (b *Bus) Publish(ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.seq++
	ev.Seq = b.seq

	delivered := 0
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev.Clone():
			delivered++
		default:
			sub.dropped.Add(1)
			b.observer.EventDropped(ev.Type)
			b.noteDrop(sub, ev)
		}
	}

	b.observer.EventPublished(ev.Type, delivered)
	return nil
}

// noteDrop must be called with b.mu held.
func (b *Bus) noteDrop(sub *Subscription, ev domain.Event) {
	b.droppedSinceLog++

	now := time.Now()
	if now.Sub(b.lastDropLog) < dropLogInterval {
		return
	}

	params := logging.Params(map[logging.ExtraKey]any{
		logging.EventType: ev.Type,
		logging.Seq:       ev.Seq,
	})
	params = append(params, "subscription", sub.id, "dropped_since_last_log", b.droppedSinceLog)
	b.logger.Warnw("subscriber buffer full, dropping event", params...)

	b.lastDropLog = now
	b.droppedSinceLog = 0
}

// Subscribe registers a new subscription with an empty buffer. Only events
// published after Subscribe returns are delivered to it.
func (b *Bus) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	b.nextID++
	sub := &Subscription{
		id:  b.nextID,
		bus: b,
		ch:  make(chan domain.Event, b.bufferSize),
	}
	b.subs[sub.id] = sub
	b.observer.SubscriptionOpened()

	return sub, nil
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
	b.observer.SubscriptionClosed()
}

// Close ends every subscription. Receivers drain what is buffered and then
// observe end of stream. Further Publish and Subscribe calls fail.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
		b.observer.SubscriptionClosed()
	}
	b.logger.Infow("event bus closed", "last_seq", b.seq)
}

func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
