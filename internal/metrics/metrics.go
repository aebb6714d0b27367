// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"scriptwizard/internal/apperr"
)

const namespace = "scriptwizard"

var (
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
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120, 600},
		},
		[]string{"method", "path"},
	)

	// 外部生成服务调用
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Total number of calls to external generation services",
		},
		[]string{"op", "status"},
	)

	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "External generation call duration in seconds",
			Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"op"},
	)

	// 向导操作结果
	WizardOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "operations_total",
			Help:      "Wizard generation operations by outcome",
		},
		[]string{"op", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "active_sessions",
			Help:      "Number of live wizard sessions",
		},
	)
)

// ObserveUpstream 记录一次外部服务调用
func ObserveUpstream(op string, err error, elapsed time.Duration) {
	UpstreamCallsTotal.WithLabelValues(op, outcome(err)).Inc()
	UpstreamCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveOperation 记录一次向导操作
func ObserveOperation(op string, err error) {
	WizardOperationsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, apperr.ErrUpstreamShape):
		return "bad_response"
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrStepIncomplete):
		return "invalid"
	case errors.Is(err, apperr.ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
