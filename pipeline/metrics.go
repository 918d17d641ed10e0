package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "flightline_load_latency_seconds",
		Help: "Input parse latency distribution",
	})
	transformLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "flightline_transform_latency_seconds",
		Help: "Filter/normalize/derive latency distribution",
	})
	rowsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flightline_rows_dropped_total",
		Help: "Rows removed by the pipeline, by reason",
	}, []string{"reason"})
	rowsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flightline_rows_emitted_total",
		Help: "Rows in emitted cleaned tables",
	})
)

func init() {
	// Register Prometheus metrics.
	prometheus.MustRegister(loadLatency, transformLatency, rowsDropped, rowsEmitted)
}
