package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ImportMetrics covers the bulk import pipelines. The entity label is the
// import kind (members, giving).
type ImportMetrics struct {
	RowsTotal    *prometheus.CounterVec
	BatchesTotal *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
}

var importSingleton = sync.OnceValue(func() *ImportMetrics {
	return &ImportMetrics{
		RowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "import",
			Name:      "rows_total",
			Help:      "Total number of processed import rows.",
		}, []string{"entity", "result"}),
		BatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "import",
			Name:      "batches_total",
			Help:      "Total number of import batches by final status.",
		}, []string{"entity", "status"}),
		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "import",
			Name:      "duration_seconds",
			Help:      "End to end duration of an import request.",
			Buckets: []float64{
				0.05, 0.1, 0.2, 0.5,
				1, 2, 5, 10, 30, 60,
			},
		}, []string{"entity"}),
	}
})

// Imports returns the process-wide import metrics.
func Imports() *ImportMetrics {
	return importSingleton()
}
