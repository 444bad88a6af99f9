// Package delivery moves bus events to a client over a transport. Stream
// pushes every event until the client goes away; Poll waits for exactly one.
package delivery

import (
	"github.com/hilthontt/watchparty/internal/domain"
	"go.uber.org/zap"
)

// Observer receives delivery activity, typically for metrics.
type Observer interface {
	StreamOpened(transport string)
	StreamClosed(transport string)
	EncodeFailed(transport string)
	PollCompleted(outcome string)
}

type noopObserver struct{}

func (noopObserver) StreamOpened(string)  {}
func (noopObserver) StreamClosed(string)  {}
func (noopObserver) EncodeFailed(string)  {}
func (noopObserver) PollCompleted(string) {}

// Encoder turns an event into its wire payload.
type Encoder func(domain.Event) ([]byte, error)

type options struct {
	encoder   Encoder
	observer  Observer
	logger    *zap.SugaredLogger
	transport string
}

type Option func(*options)

func WithEncoder(enc Encoder) Option {
	return func(o *options) {
		if enc != nil {
			o.encoder = enc
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTransport labels logs and metrics, for example "sse" or "ws".
func WithTransport(name string) Option {
	return func(o *options) {
		o.transport = name
	}
}

func newOptions(opts []Option) options {
	o := options{
		encoder:   domain.EncodeEvent,
		observer:  noopObserver{},
		logger:    zap.NewNop().Sugar(),
		transport: "stream",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
