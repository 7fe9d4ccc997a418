package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type importMetrics struct {
	rowsTotal      *prometheus.CounterVec
	batchesTotal   *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	parseFailures  *prometheus.CounterVec
	validatedRows  *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_import",
			Name:      "rows_total",
			Help:      "Rows handled by batch imports, by outcome.",
		}, []string{"target", "outcome"}),
		batchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_import",
			Name:      "batches_total",
			Help:      "Finished batch imports, by final phase.",
		}, []string{"target", "phase"}),
		batchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger_import",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of batch imports.",
			Buckets: []float64{
				0.01, 0.05, 0.1, 0.5,
				1, 2, 5, 10, 30, 60, 120, 300,
			},
		}, []string{"target"}),
		parseFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_import",
			Name:      "parse_failures_total",
			Help:      "Uploads rejected before mapping, by reason.",
		}, []string{"kind"}),
		validatedRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger_import",
			Name:      "validated_rows_total",
			Help:      "Rows classified by validation, by status.",
		}, []string{"target", "status"}),
		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger_import",
			Name:      "active_sessions",
			Help:      "Import sessions currently held in memory.",
		}),
	}
})

func observeRow(target, outcome string) {
	metricsSingleton().rowsTotal.WithLabelValues(target, outcome).Inc()
}

func observeBatch(target string, phase ImportPhase, res ImportResult) {
	m := metricsSingleton()
	m.batchesTotal.WithLabelValues(target, string(phase)).Inc()
	m.batchDuration.WithLabelValues(target).Observe(res.Duration.Seconds())
	if res.Cancelled > 0 {
		m.rowsTotal.WithLabelValues(target, "cancelled").Add(float64(res.Cancelled))
	}
}

func observeParseFailure(kind ParseErrorKind) {
	metricsSingleton().parseFailures.WithLabelValues(string(kind)).Inc()
}

func observeValidation(target string, counts ValidationCounts) {
	m := metricsSingleton()
	m.validatedRows.WithLabelValues(target, string(StatusValid)).Add(float64(counts.Valid))
	m.validatedRows.WithLabelValues(target, string(StatusWarning)).Add(float64(counts.Warning))
	m.validatedRows.WithLabelValues(target, string(StatusError)).Add(float64(counts.Error))
}
