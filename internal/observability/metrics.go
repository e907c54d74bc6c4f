// Package observability exposes Prometheus metrics for the dashboard engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const metricsNamespace = "portfolio"

// Metrics groups every collector of the service. A nil *Metrics is valid
// and records nothing, which keeps tests and the CLI free of registries.
type Metrics struct {
	// Recomputations counts full pipeline runs. Labels: trigger (render, event, reset)
	Recomputations *prometheus.CounterVec

	// RecomputeSeconds measures evaluate+aggregate+project time on a memo miss.
	RecomputeSeconds prometheus.Histogram

	// MemoLookups counts dashboard memo lookups. Labels: result (hit, miss)
	MemoLookups *prometheus.CounterVec

	// LoadFailures counts failed collection loads. Labels: collection
	LoadFailures *prometheus.CounterVec

	// StoreVersion is the current entity store version.
	StoreVersion prometheus.Gauge

	// ActiveSessions tracks open dashboard sessions.
	ActiveSessions prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recomputations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "recomputations_total",
			Help:      "Full filter/aggregate/join recomputations.",
		}, []string{"trigger"}),
		RecomputeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "recompute_duration_seconds",
			Help:      "Time spent recomputing a dashboard.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		MemoLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "memo_lookups_total",
			Help:      "Dashboard memo lookups by result.",
		}, []string{"result"}),
		LoadFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "load_failures_total",
			Help:      "Failed collection loads.",
		}, []string{"collection"}),
		StoreVersion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "version",
			Help:      "Current entity store version.",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Open dashboard sessions.",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveRecompute(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.Recomputations.WithLabelValues(trigger).Inc()
	m.RecomputeSeconds.Observe(d.Seconds())
}

func (m *Metrics) MemoLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.MemoLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) LoadFailed(collection string) {
	if m == nil {
		return
	}
	m.LoadFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) SetStoreVersion(v uint64) {
	if m == nil {
		return
	}
	m.StoreVersion.Set(float64(v))
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	if m == nil {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
