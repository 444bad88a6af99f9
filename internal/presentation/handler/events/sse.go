package events

import (
	"fmt"
	"net/http"

	"github.com/hilthontt/watchparty/internal/domain"
)

// sseSink writes text/event-stream frames and flushes after each one.
type sseSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s *sseSink) WriteEvent(eventType domain.EventType, seq uint64, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\nid: %d\ndata: %s\n\n", eventType, seq, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseSink) WriteKeepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}
