// Package metrics 提供 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_typeset"

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// 排版指标，kind 为空表示成功
	TypesetTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "typeset",
			Name:      "total",
			Help:      "Total number of typeset operations",
		},
		[]string{"backend", "kind"},
	)

	TypesetDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "typeset",
			Name:      "duration_seconds",
			Help:      "Typeset operation duration in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"backend"},
	)

	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Outbound calls to formatting backends",
		},
		[]string{"backend", "endpoint", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open WebSocket connections",
		},
	)
)

// RecordTypeset 记录一次排版结果
func RecordTypeset(backend, kind string, seconds float64) {
	if kind == "" {
		kind = "ok"
	}
	TypesetTotal.WithLabelValues(backend, kind).Inc()
	TypesetDuration.WithLabelValues(backend).Observe(seconds)
}
