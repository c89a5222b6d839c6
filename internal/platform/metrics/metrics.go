package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spektr-org/noshow/engine"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	matched       prometheus.Histogram
	records       prometheus.Gauge
	reloads       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "noshow_queries_total",
			Help: "Dashboard queries by outcome",
		}, []string{"outcome"}), // computed, no_selection, cache_hit
		queryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "noshow_query_duration_seconds",
			Help:    "Dashboard query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		}),
		matched: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "noshow_query_matched_records",
			Help:    "Appointments matched per computed query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Name: "noshow_dataset_records",
			Help: "Appointments in the loaded dataset",
		}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "noshow_dataset_reloads_total",
			Help: "Dataset reloads by result",
		}, []string{"result"}),
	}
}

// Observe records one engine query. Pass it to engine.WithObserver.
func (m *Metrics) Observe(ev engine.QueryEvent) {
	m.queries.WithLabelValues(string(ev.Outcome)).Inc()
	m.queryDuration.Observe(ev.Duration.Seconds())
	if ev.Outcome == engine.QueryComputed {
		m.matched.Observe(float64(ev.Matched))
	}
}

func (m *Metrics) SetDatasetRecords(n int) {
	m.records.Set(float64(n))
}

func (m *Metrics) Reloaded(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
