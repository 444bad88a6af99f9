package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/contracts"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// MessagePublisher is implemented by messaging.RabbitMQ.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

// Mirror copies every bus event to the broker for audit consumers. It is a
// regular bus subscriber, so a slow broker only costs the mirror its own
// dropped events.
type Mirror struct {
	publisher MessagePublisher
	logger    *zap.SugaredLogger
}

func NewMirror(publisher MessagePublisher, logger *zap.SugaredLogger) *Mirror {
	return &Mirror{
		publisher: publisher,
		logger:    logging.For(logger, logging.RabbitMQ, logging.Mirror),
	}
}

// Run forwards events until ctx is done or the bus closes.
func (m *Mirror) Run(ctx context.Context, bus eventbus.Subscriber) error {
	sub, err := bus.Subscribe()
	if err != nil {
		if errors.Is(err, eventbus.ErrBusClosed) {
			return nil
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	for {
		ev, err := sub.Receive(ctx)
		switch {
		case err == nil:
		case errors.Is(err, eventbus.ErrBusClosed):
			return nil
		default:
			return err
		}

		if err := m.forward(ctx, ev); err != nil {
			m.logger.Errorw("failed to mirror event",
				logging.Params(map[logging.ExtraKey]any{
					logging.EventType:    ev.Type,
					logging.Seq:          ev.Seq,
					logging.ErrorMessage: err.Error(),
				})...,
			)
		}
	}
}

func (m *Mirror) forward(ctx context.Context, ev domain.Event) error {
	data, err := domain.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return m.publisher.PublishMessage(ctx, contracts.RoutingKey(ev.Type), contracts.AmqpMessage{
		EventType: ev.Type,
		Seq:       ev.Seq,
		Data:      data,
	})
}
