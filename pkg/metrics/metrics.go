// Package metrics exposes audit server metrics for Prometheus scraping.
//
// All methods are safe on a nil *Metrics, so callers that run without
// metrics (stdio mode, CLI audits) need no branching.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "a11y"

// Outcome labels for ToolCalls.
const (
	OutcomeSuccess      = "success"
	OutcomeToolError    = "tool_error"
	OutcomeInvalidInput = "invalid_params"
	OutcomeUnknownTool  = "unknown_tool"
)

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls      *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	violations     *prometheus.CounterVec
	activeSessions prometheus.Gauge
	scriptFetches  *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		// Custom registry so tests and embedders never touch the default one.
		registry: prometheus.NewRegistry(),

		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool calls handled, by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call latency including browser launch and page load",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
			},
			[]string{"tool"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Accessibility violations found, by impact",
			},
			[]string{"impact"},
		),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_sessions_active",
			Help:      "Browser sessions currently open",
		}),
		scriptFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_script_loads_total",
				Help:      "Rule engine script loads, by result",
			},
			[]string{"result"},
		),
	}

	cs := []prometheus.Collector{
		m.toolCalls,
		m.callDuration,
		m.violations,
		m.activeSessions,
		m.scriptFetches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveCall records one finished tool call.
func (m *Metrics) ObserveCall(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.callDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveViolations adds one violation per entry, labelled by impact.
// Ungraded violations are counted as "unknown".
func (m *Metrics) ObserveViolations(impacts []string) {
	if m == nil {
		return
	}
	for _, impact := range impacts {
		if impact == "" {
			impact = "unknown"
		}
		m.violations.WithLabelValues(impact).Inc()
	}
}

// SessionOpened and SessionClosed track live browser sessions.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// ObserveScriptLoad records whether loading the rule engine succeeded.
func (m *Metrics) ObserveScriptLoad(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.scriptFetches.WithLabelValues(result).Inc()
}
