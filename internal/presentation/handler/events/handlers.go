// Package events serves the bus to clients over SSE, WebSocket and long-poll.
package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/watchparty/internal/infrastructure/delivery"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
	"github.com/hilthontt/watchparty/internal/infrastructure/json"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"github.com/hilthontt/watchparty/internal/infrastructure/ws"
	"go.uber.org/zap"
)

const (
	sseRetry = 3 * time.Second

	// pollWriteSlack keeps the server write deadline clear of the poll wait.
	pollWriteSlack = 10 * time.Second
)

type Config struct {
	KeepAlive      time.Duration
	PollTimeout    time.Duration
	AllowedOrigins []string
}

type Handler struct {
	bus      eventbus.Subscriber
	cfg      Config
	upgrader *websocket.Upgrader
	observer delivery.Observer
	logger   *zap.SugaredLogger
}

func NewHandler(bus eventbus.Subscriber, cfg Config, observer delivery.Observer, logger *zap.SugaredLogger) *Handler {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = delivery.DefaultPollTimeout
	}
	return &Handler{
		bus:      bus,
		cfg:      cfg,
		upgrader: ws.NewUpgrader(cfg.AllowedOrigins),
		observer: observer,
		logger:   logger,
	}
}

func (h *Handler) options(transport string) []delivery.Option {
	return []delivery.Option{
		delivery.WithTransport(transport),
		delivery.WithObserver(h.observer),
		delivery.WithLogger(h.logger),
	}
}

// StreamHandler serves GET /events as Server-Sent Events.
func (h *Handler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	log := logging.For(h.logger, logging.Delivery, logging.SSE)
	rc := http.NewResponseController(w)

	// The stream outlives the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warnw("failed to clear write deadline", "error", err)
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", sseRetry.Milliseconds()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		log.Errorw("streaming unsupported by response writer", "error", err)
		return
	}

	err := delivery.Stream(r.Context(), h.bus, h.cfg.KeepAlive, &sseSink{w: w, rc: rc}, h.options("sse")...)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Infow("event stream ended", "error", err)
	}
}

// WebSocketHandler serves GET /ws. Events are JSON text frames and
// keep-alives are pings.
func (h *Handler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	log := logging.For(h.logger, logging.Delivery, logging.WebSocket)

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugw("websocket upgrade failed", "error", err)
		return
	}

	conn := ws.NewConn(raw)
	ctx := conn.WatchDisconnect(r.Context(), 2*h.cfg.KeepAlive)

	err = delivery.Stream(ctx, h.bus, h.cfg.KeepAlive, conn, h.options("ws")...)

	code, reason := websocket.CloseNormalClosure, ""
	switch {
	case err == nil:
		code, reason = websocket.CloseGoingAway, "server shutting down"
	case !errors.Is(err, context.Canceled):
		log.Infow("websocket stream ended", "error", err)
	}
	_ = conn.Close(code, reason)
}

// PollHandler serves GET /longpoll: one event as JSON, 204 when the wait
// elapses, 503 once the bus is closed.
func (h *Handler) PollHandler(w http.ResponseWriter, r *http.Request) {
	log := logging.For(h.logger, logging.Delivery, logging.LongPoll)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(h.cfg.PollTimeout + pollWriteSlack)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warnw("failed to extend write deadline", "error", err)
	}

	ev, err := delivery.Poll(r.Context(), h.bus, h.cfg.PollTimeout, h.options("longpoll")...)
	switch {
	case err == nil:
		w.Header().Set("Cache-Control", "no-store")
		json.Write(w, http.StatusOK, ev)
	case errors.Is(err, delivery.ErrNoEvent):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, eventbus.ErrBusClosed):
		json.WriteUnavailableError(w, "event bus is closed")
	case r.Context().Err() != nil:
		// client went away, nothing to write
	default:
		log.Errorw("poll failed", "error", err)
		json.WriteInternalError(w, err)
	}
}
