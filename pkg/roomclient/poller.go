package roomclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hilthontt/watchparty/internal/domain"
)

const (
	DefaultMinInterval    = 100 * time.Millisecond
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
)

// EventPoller is the part of Client a Poller needs.
type EventPoller interface {
	Poll(ctx context.Context) (*domain.Event, error)
}

// Poller re-issues long polls back to back. Failures back off exponentially
// up to MaxBackoff, and consecutive requests are always at least MinInterval
// apart so a misbehaving server cannot cause a tight loop.
type Poller struct {
	Client         EventPoller
	MinInterval    time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// OnError observes failed polls; the loop keeps going regardless.
	OnError func(error)
}

func NewPoller(client EventPoller) *Poller {
	return &Poller{
		Client:         client,
		MinInterval:    DefaultMinInterval,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

// Run delivers events to handle until ctx is cancelled, then returns
// ctx.Err().
func (p *Poller) Run(ctx context.Context, handle func(domain.Event)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff

	var last time.Time
	for {
		if err := sleep(ctx, p.MinInterval-time.Since(last)); err != nil {
			return err
		}
		last = time.Now()

		ev, err := p.Client.Poll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			if p.OnError != nil {
				p.OnError(err)
			}
			if err := sleep(ctx, b.NextBackOff()); err != nil {
				return err
			}
			continue
		}

		b.Reset()
		if ev != nil {
			handle(*ev)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
