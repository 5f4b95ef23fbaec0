package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("node-1")
	m.MessageReceived("ok")
	m.MessageReceived("ok")
	m.MessageReceived("invalid_message")
	m.ReplySent("GET_VERSION")
	m.PeerConnected()
	m.PeerConnected()
	m.PeerDisconnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.received.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.received.WithLabelValues("invalid_message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("GET_VERSION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.peers))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("node-1")
	m.ReplySent("INVALID_FORMAT")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `p2pwire_node_replies_sent_total{command="INVALID_FORMAT",node="node-1"} 1`), body)
}
