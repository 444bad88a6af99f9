package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_BusObserver(t *testing.T) {
	m := New()

	m.EventPublished(domain.EventVideoUpdate, 3)
	m.EventPublished(domain.EventVideoUpdate, 3)
	m.EventDropped(domain.EventVideoUpdate)
	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues("video_update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("video_update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptions))
}

func TestMetrics_DeliveryObserver(t *testing.T) {
	m := New()

	m.StreamOpened("sse")
	m.StreamOpened("ws")
	m.StreamClosed("sse")
	m.EncodeFailed("ws")
	m.PollCompleted("event")
	m.PollCompleted("timeout")
	m.PollCompleted("timeout")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.openStreams.WithLabelValues("sse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openStreams.WithLabelValues("ws")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.encodeFailures.WithLabelValues("ws")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pollResults.WithLabelValues("timeout")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.EventDropped(domain.EventUserJoined)
	m.ObserveRequest(http.MethodGet, "/api/room", http.StatusOK, 5*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `watchparty_eventbus_dropped_total{event_type="user_joined"} 1`)
	assert.Contains(t, string(body), `watchparty_http_requests_total{method="GET",route="/api/room",status="200"} 1`)
}
