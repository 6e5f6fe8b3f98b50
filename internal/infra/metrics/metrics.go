// Package metrics exposes Prometheus instruments for the client core.
//
// A nil *Collector is valid and records nothing, so callers never need to
// guard instrument calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "srapi"

// Collector holds the client instruments.
type Collector struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	wsConnects *prometheus.CounterVec
	wsOpen     *prometheus.GaugeVec
	wsMessages *prometheus.CounterVec
	gatherer   prometheus.Gatherer
}

// New registers the client instruments on reg. A nil reg uses a fresh
// private registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests performed, by backend, method and outcome.",
		}, []string{"backend", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time until the response head was available.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"backend", "method"}),
		wsConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connects_total",
			Help:      "WebSocket connect attempts, by backend and result.",
		}, []string{"backend", "result"}),
		wsOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "open_streams",
			Help:      "WebSocket streams currently open.",
		}, []string{"backend"}),
		wsMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "WebSocket data messages, by backend and direction.",
		}, []string{"backend", "direction"}),
		gatherer: reg,
	}

	reg.MustRegister(c.requests, c.duration, c.wsConnects, c.wsOpen, c.wsMessages)
	return c
}

// Outcome buckets a request result: a status class ("2xx", "4xx", ...) or
// "error" when no response was obtained.
func Outcome(status int, err error) string {
	if err != nil || status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// ObserveRequest records one finished request.
func (c *Collector) ObserveRequest(backend, method string, status int, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(backend, method, Outcome(status, err)).Inc()
	c.duration.WithLabelValues(backend, method).Observe(elapsed.Seconds())
}

// ObserveConnect records a websocket connect attempt.
func (c *Collector) ObserveConnect(backend string, err error) {
	if c == nil {
		return
	}
	result := "open"
	if err != nil {
		result = "failed"
	}
	c.wsConnects.WithLabelValues(backend, result).Inc()
	if err == nil {
		c.wsOpen.WithLabelValues(backend).Inc()
	}
}

// StreamClosed records the release of an open stream.
func (c *Collector) StreamClosed(backend string) {
	if c == nil {
		return
	}
	c.wsOpen.WithLabelValues(backend).Dec()
}

// ObserveMessage records one data message; direction is "in" or "out".
func (c *Collector) ObserveMessage(backend, direction string) {
	if c == nil {
		return
	}
	c.wsMessages.WithLabelValues(backend, direction).Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
