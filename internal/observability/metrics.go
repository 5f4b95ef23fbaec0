package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts node traffic on its own registry. It satisfies
// p2pwire.MetricsRecorder.
type Metrics struct {
	registry *prometheus.Registry
	received *prometheus.CounterVec
	replies  *prometheus.CounterVec
	peers    prometheus.Gauge
}

func NewMetrics(node string) *Metrics {
	labels := prometheus.Labels{"node": node}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "p2pwire",
				Subsystem:   "node",
				Name:        "messages_received_total",
				Help:        "Inbound messages by decode result.",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "p2pwire",
				Subsystem:   "node",
				Name:        "replies_sent_total",
				Help:        "Replies sent by command.",
				ConstLabels: labels,
			},
			[]string{"command"},
		),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "p2pwire",
			Subsystem:   "node",
			Name:        "connected_peers",
			Help:        "Currently connected peers.",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(m.received, m.replies, m.peers)
	return m
}

func (m *Metrics) MessageReceived(result string) {
	m.received.WithLabelValues(result).Inc()
}

func (m *Metrics) ReplySent(cmd string) {
	m.replies.WithLabelValues(cmd).Inc()
}

func (m *Metrics) PeerConnected() {
	m.peers.Inc()
}

func (m *Metrics) PeerDisconnected() {
	m.peers.Dec()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
