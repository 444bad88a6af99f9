package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
)

// Sink is one client connection. Writes happen from a single goroutine.
type Sink interface {
	WriteEvent(eventType domain.EventType, seq uint64, data []byte) error
	WriteKeepAlive() error
}

// Stream subscribes to bus and forwards every event to sink, with a
// keep-alive write whenever keepAlive elapses without traffic. It returns nil
// when the bus closes, ctx.Err() when the client disconnects and the write
// error when the transport fails. The subscription is always released.
func Stream(ctx context.Context, bus eventbus.Subscriber, keepAlive time.Duration, sink Sink, opts ...Option) error {
	o := newOptions(opts)
	log := logging.For(o.logger, logging.Delivery, logging.SubCategory(o.transport))

	sub, err := bus.Subscribe()
	if err != nil {
		if errors.Is(err, eventbus.ErrBusClosed) {
			return nil
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	o.observer.StreamOpened(o.transport)
	defer o.observer.StreamClosed(o.transport)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-sub.Events():
			if !ok {
				log.Debugw("event bus closed, ending stream")
				return nil
			}

			data, err := o.encoder(ev)
			if err != nil {
				o.observer.EncodeFailed(o.transport)
				log.Errorw("failed to encode event, skipping",
					logging.Params(map[logging.ExtraKey]any{
						logging.EventType:    ev.Type,
						logging.Seq:          ev.Seq,
						logging.ErrorMessage: err.Error(),
					})...,
				)
				continue
			}

			if err := sink.WriteEvent(ev.Type, ev.Seq, data); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			ticker.Reset(keepAlive)

		case <-ticker.C:
			if err := sink.WriteKeepAlive(); err != nil {
				return fmt.Errorf("write keep-alive: %w", err)
			}
		}
	}
}
