package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hilthontt/watchparty/internal/infrastructure/json"
)

const pingTimeout = 2 * time.Second

var startTime = time.Now()

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BusStatus is the part of the event bus health cares about.
type BusStatus interface {
	Closed() bool
	SubscriberCount() int
}

type Handler struct {
	store Pinger
	bus   BusStatus
}

func NewHandler(store Pinger, bus BusStatus) *Handler {
	return &Handler{store: store, bus: bus}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(startTime).Round(time.Second).String(),
		Store:       "ok",
		EventBus:    "ok",
		Subscribers: h.bus.SubscriberCount(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Store = err.Error()
	}
	if h.bus.Closed() {
		resp.Status = "unhealthy"
		resp.EventBus = "closed"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	json.Write(w, status, resp)
}
