package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hilthontt/watchparty/internal/domain"
)

// Subscription is one consumer's view of the bus.
type Subscription struct {
	id      uint64
	bus     *Bus
	ch      chan domain.Event
	dropped atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
}

// Events is closed when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Receive waits for the next event. It returns ErrBusClosed once the bus
// has shut down and the buffer is drained, ErrSubscriptionClosed after Close,
// or the context error.
func (s *Subscription) Receive(ctx context.Context) (domain.Event, error) {
	select {
	case ev, ok := <-s.ch:
		if !ok {
			if s.closed.Load() {
				return domain.Event{}, ErrSubscriptionClosed
			}
			return domain.Event{}, ErrBusClosed
		}
		return ev, nil
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	}
}

// Close unregisters the subscription. It is safe to call more than once and
// after the bus has closed.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.bus.unsubscribe(s.id)
	})
}

// Dropped counts events discarded because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}
