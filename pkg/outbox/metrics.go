package outbox

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// relayMetrics is shared by every Publisher and Relay in the process;
// promauto registers on the default registry, so construction must
// happen exactly once.
type relayMetrics struct {
	enqueued   *prometheus.CounterVec
	dispatched *prometheus.CounterVec
	dead       *prometheus.CounterVec
	pruned     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	pending    *prometheus.GaugeVec
	locked     *prometheus.GaugeVec
	leader     *prometheus.GaugeVec
}

var sharedMetrics = sync.OnceValue(func() *relayMetrics {
	return &relayMetrics{
		enqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "events_enqueued_total",
			Help:      "Events written to an outbox table.",
		}, []string{"table", "topic"}),
		dispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "events_dispatched_total",
			Help:      "Dispatch attempts by result.",
		}, []string{"table", "topic", "result"}),
		dead: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "events_dead_total",
			Help:      "Events parked after exhausting their delivery attempts.",
		}, []string{"table", "topic"}),
		pruned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "events_pruned_total",
			Help:      "Rows removed by the cleaner, split by published and dead.",
		}, []string{"table", "kind"}),
		latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "outbox",
			Name:      "dispatch_seconds",
			Help:      "Dispatch latency by result.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}, []string{"table", "topic", "result"}),
		pending: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "outbox",
			Name:      "queue_pending",
			Help:      "Unpublished events per table.",
		}, []string{"table"}),
		locked: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "outbox",
			Name:      "queue_locked",
			Help:      "Unpublished events currently claimed by a relay.",
		}, []string{"table"}),
		leader: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "outbox",
			Name:      "relay_leader",
			Help:      "1 when this instance holds the relay lease for a table.",
		}, []string{"table"}),
	}
})
