package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by the
// loader pipeline and the viewer.
type Metrics struct {
	// Refresh run metrics.
	RowsExtracted prometheus.Counter
	RowsDropped   prometheus.Counter
	RowsLoaded    prometheus.Counter
	FetchDuration prometheus.Histogram
	RunDuration   prometheus.Histogram
	LastRefresh   prometheus.Gauge

	// Viewer query metrics.
	Queries       *prometheus.CounterVec // labels: outcome={ok,empty,error}
	QueryDuration prometheus.Histogram
	StoreRows     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsExtracted,
		m.RowsDropped,
		m.RowsLoaded,
		m.FetchDuration,
		m.RunDuration,
		m.LastRefresh,
		m.Queries,
		m.QueryDuration,
		m.StoreRows,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vaccine_etl",
			Name:      "rows_extracted_total",
			Help:      "Tidy coverage rows melted from the remote dataset.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vaccine_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows removed by the refresh filter.",
		}),
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vaccine_etl",
			Name:      "rows_loaded_total",
			Help:      "Rows written to the coverage store.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vaccine_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the remote dataset fetch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vaccine_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-transform-load run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaccine_etl",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaccine_etl",
			Name:      "viewer_queries_total",
			Help:      "Dashboard queries by outcome.",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vaccine_etl",
			Name:      "viewer_query_duration_seconds",
			Help:      "Duration of a dashboard query-render cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		StoreRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaccine_etl",
			Name:      "store_rows",
			Help:      "Rows in the coverage store as of the last readiness check.",
		}),
	}
}
