package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/hilthontt/watchparty/internal/application/room"
	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/configs"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
	"github.com/hilthontt/watchparty/internal/infrastructure/metrics"
	"github.com/hilthontt/watchparty/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/watchparty/internal/infrastructure/repository"
	eventsHandler "github.com/hilthontt/watchparty/internal/presentation/handler/events"
	healthHandler "github.com/hilthontt/watchparty/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/watchparty/internal/presentation/handler/rooms"
	"github.com/hilthontt/watchparty/internal/presentation/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testApp struct {
	srv *httptest.Server
	bus *eventbus.Bus
}

func newTestApp(t *testing.T, limiter ratelimiter.Limiter) *testApp {
	t.Helper()
	cfg := configs.Default()
	logger := zap.NewNop().Sugar()

	m := metrics.New()
	bus := eventbus.New(eventbus.WithObserver(m))
	t.Cleanup(bus.Close)

	store := repository.NewMemoryStore(100)
	svc := room.NewService(store, bus, logger)

	app := NewApplication(*cfg,
		roomHandler.NewHandler(svc, logger),
		eventsHandler.NewHandler(bus, eventsHandler.Config{KeepAlive: time.Minute, PollTimeout: 2 * time.Second}, m, logger),
		healthHandler.NewHandler(store, bus),
		m,
		logger,
		limiter,
	)

	srv := httptest.NewServer(app.Mount())
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, bus: bus}
}

func (a *testApp) do(t *testing.T, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(utils.AuthTokenHeader, token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (a *testApp) join(t *testing.T, name string) string {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/join", "", `{"username":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out struct {
		UserID    string           `json:"user_id"`
		Username  string           `json:"username"`
		RoomState domain.RoomState `json:"room_state"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, out.UserID, resp.Header.Get(utils.AuthTokenHeader))
	assert.Equal(t, name, out.Username)
	return out.UserID
}

func TestJoinAndSnapshot(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.join(t, "Alice")
	app.join(t, "Bob")

	resp, body := app.do(t, http.MethodGet, "/api/room", alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state domain.RoomState
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Len(t, state.Users, 2)
	assert.Nil(t, state.CurrentVideo)
}

func TestJoin_ValidationError(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := app.do(t, http.MethodPost, "/api/join", "", `{"username":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"error":"Bad Request"`)

	resp, _ = app.do(t, http.MethodPost, "/api/join", "", `{"username":"x","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/room"},
		{http.MethodPut, "/api/video"},
		{http.MethodPost, "/api/messages"},
		{http.MethodDelete, "/api/queue/1"},
	} {
		resp, _ := app.do(t, route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, route.path)
	}
}

func TestVideoUpdateReachesLongPoll(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.join(t, "Alice")

	type result struct {
		status int
		body   []byte
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Get(app.srv.URL + "/longpoll")
		if err != nil {
			done <- result{}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		done <- result{status: resp.StatusCode, body: body}
	}()

	require.Eventually(t, func() bool { return app.bus.SubscriberCount() == 1 }, 2*time.Second, time.Millisecond)

	resp, body := app.do(t, http.MethodPut, "/api/video", alice,
		`{"video_id":"abc","current_position":12.5,"is_playing":true}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(body))

	res := <-done
	require.Equal(t, http.StatusOK, res.status)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(res.body, &ev))
	assert.Equal(t, domain.EventVideoUpdate, ev.Type)
	data := ev.Data.(domain.VideoUpdated)
	assert.Equal(t, 12.5, data.CurrentPosition)
	assert.Equal(t, alice, data.UpdatedBy)
}

func TestVideoUpdate_Validation(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.join(t, "Alice")

	resp, _ := app.do(t, http.MethodPut, "/api/video", alice, `{"current_position":-1,"is_playing":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPut, "/api/video", alice, `{"is_playing":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueueAndChatRoutes(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.join(t, "Alice")

	resp, _ := app.do(t, http.MethodPost, "/api/queue", alice, `{"video_id":"v1","video_url":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := app.do(t, http.MethodPost, "/api/queue", alice, `{"video_id":"v1","video_url":"https://youtu.be/v1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	// v1 started playing right away, so the queue is empty again.
	resp, body = app.do(t, http.MethodGet, "/api/queue", alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"queue":[]}`, string(body))

	resp, _ = app.do(t, http.MethodPost, "/api/video/next", alice, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.do(t, http.MethodDelete, "/api/queue/42", alice, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.do(t, http.MethodDelete, "/api/queue/abc", alice, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = app.do(t, http.MethodPost, "/api/messages", alice, `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = app.do(t, http.MethodGet, "/api/messages?limit=10", alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msgs struct {
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &msgs))
	require.Len(t, msgs.Messages, 1)
	assert.Equal(t, "hello", msgs.Messages[0].Content)

	resp, _ = app.do(t, http.MethodGet, "/api/messages?limit=500", alice, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPost, "/api/messages", "ghost", `{"content":"boo"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPost, "/api/leave", alice, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimiter.NewFixedWindowRateLimiter(2, time.Minute)
	defer limiter.Close()
	app := newTestApp(t, limiter)

	for i := 0; i < 2; i++ {
		resp, _ := app.do(t, http.MethodGet, "/healthz", "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, _ := app.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestMetricsAndHealth(t *testing.T) {
	app := newTestApp(t, nil)
	app.join(t, "Alice")

	resp, _ := app.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := app.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.True(t, strings.Contains(text, `watchparty_eventbus_published_total{event_type="user_joined"} 1`), text)
	assert.Contains(t, text, `route="/api/join"`)

	resp, _ = app.do(t, http.MethodGet, "/debug/vars", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
