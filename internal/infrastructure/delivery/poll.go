package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
)

const DefaultPollTimeout = 25 * time.Second

// ErrNoEvent means the poll window elapsed without an event.
var ErrNoEvent = errors.New("no event before poll timeout")

const (
	PollOutcomeEvent        = "event"
	PollOutcomeTimeout      = "timeout"
	PollOutcomeClosed       = "closed"
	PollOutcomeDisconnected = "disconnected"
)

// Poll waits up to timeout for the next event published after the call
// starts. Events published between two polls are not seen by either.
func Poll(ctx context.Context, bus eventbus.Subscriber, timeout time.Duration, opts ...Option) (domain.Event, error) {
	o := newOptions(opts)

	sub, err := bus.Subscribe()
	if err != nil {
		if errors.Is(err, eventbus.ErrBusClosed) {
			o.observer.PollCompleted(PollOutcomeClosed)
		}
		return domain.Event{}, fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ev, err := sub.Receive(waitCtx)
	switch {
	case err == nil:
		o.observer.PollCompleted(PollOutcomeEvent)
		return ev, nil
	case errors.Is(err, eventbus.ErrBusClosed):
		o.observer.PollCompleted(PollOutcomeClosed)
		return domain.Event{}, err
	case ctx.Err() != nil:
		o.observer.PollCompleted(PollOutcomeDisconnected)
		return domain.Event{}, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		o.observer.PollCompleted(PollOutcomeTimeout)
		return domain.Event{}, ErrNoEvent
	default:
		return domain.Event{}, err
	}
}
