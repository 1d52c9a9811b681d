// Package metrics registers and records the gateway's Prometheus metrics:
// request outcomes, stream updates by kind, session lifecycle, and
// transport retry behavior.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the metric instances and their registry.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	streamUpdatesTotal *prometheus.CounterVec

	sessionsActive      prometheus.GaugeFunc
	sessionClosesTotal  *prometheus.CounterVec
	transportAttempts   prometheus.Histogram
	modelListRefreshSec prometheus.Gauge
}

// NewCollector creates a Collector on its own registry. sessionCount is
// polled on scrape for the active-session gauge; pass nil to skip it.
func NewCollector(sessionCount func() int) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	c := &Collector{registry: registry}

	c.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ganymede",
		Name:      "requests_total",
		Help:      "Chat-completion requests by model and outcome.",
	}, []string{"model", "outcome"})

	c.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ganymede",
		Name:      "request_duration_seconds",
		Help:      "End-to-end request duration by model.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"model"})

	c.streamUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ganymede",
		Name:      "stream_updates_total",
		Help:      "Server stream updates by kind.",
	}, []string{"kind"})

	c.sessionClosesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ganymede",
		Name:      "session_closes_total",
		Help:      "Session closes by reason.",
	}, []string{"reason"})

	c.transportAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ganymede",
		Name:      "transport_attempts",
		Help:      "Attempts needed per successful unary backend call.",
		Buckets:   []float64{1, 2, 3, 4, 5},
	})

	c.modelListRefreshSec = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ganymede",
		Name:      "model_list_refresh_timestamp_seconds",
		Help:      "Unix time of the last successful model list refresh.",
	})

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.streamUpdatesTotal,
		c.sessionClosesTotal,
		c.transportAttempts,
		c.modelListRefreshSec,
	)

	if sessionCount != nil {
		c.sessionsActive = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ganymede",
			Name:      "sessions_active",
			Help:      "Currently cached backend sessions.",
		}, func() float64 { return float64(sessionCount()) })
		registry.MustRegister(c.sessionsActive)
	}

	return c
}

// ObserveRequest records one finished request.
func (c *Collector) ObserveRequest(model, outcome string, elapsed time.Duration) {
	c.requestsTotal.WithLabelValues(model, outcome).Inc()
	c.requestDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveStreamUpdate records one server stream update by kind.
func (c *Collector) ObserveStreamUpdate(kind string) {
	c.streamUpdatesTotal.WithLabelValues(kind).Inc()
}

// ObserveSessionClose records one session close by reason.
func (c *Collector) ObserveSessionClose(reason string) {
	c.sessionClosesTotal.WithLabelValues(reason).Inc()
}

// ObserveTransportAttempts records how many attempts a unary call took.
func (c *Collector) ObserveTransportAttempts(attempts int) {
	c.transportAttempts.Observe(float64(attempts))
}

// ObserveModelListRefresh records a successful model list refresh.
func (c *Collector) ObserveModelListRefresh() {
	c.modelListRefreshSec.SetToCurrentTime()
}
