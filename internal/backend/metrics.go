package backend

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records every outbound call to the relief backend.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_requests_total",
				Help: "Total number of requests sent to the relief backend.",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_request_duration_seconds",
				Help:    "Relief backend request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_request_retries_total",
				Help: "Read requests retried after a transient failure.",
			},
			[]string{"operation"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.retries)
	}
	return m
}

func (m *Metrics) observe(op string, status int, took time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(op, label).Inc()
	m.duration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) retried(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}
