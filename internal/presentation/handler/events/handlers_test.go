package events

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, bus *eventbus.Bus, cfg Config) *httptest.Server {
	t.Helper()
	h := NewHandler(bus, cfg, nil, zap.NewNop().Sugar())

	r := chi.NewRouter()
	r.Get("/events", h.StreamHandler)
	r.Get("/ws", h.WebSocketHandler)
	r.Get("/longpoll", h.PollHandler)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func waitForSubscribers(t *testing.T, bus *eventbus.Bus, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == n }, 2*time.Second, time.Millisecond)
}

func joined(id string) domain.Event {
	return domain.NewEvent(domain.UserJoined{UserID: id, Username: id}, time.Unix(1700000000, 0))
}

// readFrame returns the next blank-line terminated SSE frame.
func readFrame(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

// readEventFrame skips keep-alive comments.
func readEventFrame(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	for {
		frame := readFrame(t, r)
		if len(frame) == 1 && frame[0] == ": keep-alive" {
			continue
		}
		return frame
	}
}

func TestStreamHandler_SSEFrames(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	srv := newServer(t, bus, Config{KeepAlive: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{"retry: 3000"}, readFrame(t, reader))

	waitForSubscribers(t, bus, 1)
	require.NoError(t, bus.Publish(joined("alice")))

	frame := readEventFrame(t, reader)
	require.Len(t, frame, 3)
	assert.Equal(t, "event: user_joined", frame[0])
	assert.Equal(t, "id: 1", frame[1])
	assert.JSONEq(t,
		`{"event_type":"user_joined","data":{"user_id":"alice","username":"alice"},"timestamp":1700000000,"seq":1}`,
		strings.TrimPrefix(frame[2], "data: "))

	assert.Equal(t, []string{": keep-alive"}, readFrame(t, reader))

	cancel()
	waitForSubscribers(t, bus, 0)
}

func TestStreamHandler_EndsWhenBusCloses(t *testing.T) {
	bus := eventbus.New()
	srv := newServer(t, bus, Config{KeepAlive: time.Minute})

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	waitForSubscribers(t, bus, 1)
	bus.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "retry: 3000\n\n", string(body))
}

func TestPollHandler(t *testing.T) {
	t.Run("no content on timeout", func(t *testing.T) {
		bus := eventbus.New()
		defer bus.Close()
		srv := newServer(t, bus, Config{PollTimeout: 30 * time.Millisecond})

		resp, err := http.Get(srv.URL + "/longpoll")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("one event", func(t *testing.T) {
		bus := eventbus.New()
		defer bus.Close()
		srv := newServer(t, bus, Config{PollTimeout: 2 * time.Second})

		type result struct {
			status int
			body   string
		}
		done := make(chan result, 1)
		go func() {
			resp, err := http.Get(srv.URL + "/longpoll")
			if err != nil {
				done <- result{}
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			done <- result{status: resp.StatusCode, body: string(body)}
		}()

		waitForSubscribers(t, bus, 1)
		require.NoError(t, bus.Publish(joined("bob")))

		res := <-done
		assert.Equal(t, http.StatusOK, res.status)
		assert.JSONEq(t,
			`{"event_type":"user_joined","data":{"user_id":"bob","username":"bob"},"timestamp":1700000000,"seq":1}`,
			res.body)
	})

	t.Run("unavailable after close", func(t *testing.T) {
		bus := eventbus.New()
		bus.Close()
		srv := newServer(t, bus, Config{PollTimeout: time.Second})

		resp, err := http.Get(srv.URL + "/longpoll")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestWebSocketHandler(t *testing.T) {
	bus := eventbus.New()
	srv := newServer(t, bus, Config{KeepAlive: time.Minute})

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer client.Close()

	waitForSubscribers(t, bus, 1)
	require.NoError(t, bus.Publish(joined("carol")))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Contains(t, string(data), `"event_type":"user_joined"`)

	bus.Close()
	_, _, err = client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestWebSocketHandler_ClientDisconnectReleasesSubscription(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	srv := newServer(t, bus, Config{KeepAlive: time.Minute})

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	waitForSubscribers(t, bus, 1)

	require.NoError(t, client.Close())
	waitForSubscribers(t, bus, 0)
}
