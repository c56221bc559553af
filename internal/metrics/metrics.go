package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lexdraft/internal/assistant"
)

// Metrics owns a private registry so tests and multiple servers never clash.
type Metrics struct {
	Registry *prometheus.Registry

	llmCalls    *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
	httpCalls   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		llmCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexdraft_llm_calls_total",
				Help: "Language model requests by task and outcome",
			},
			[]string{"task", "status"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexdraft_llm_call_duration_seconds",
				Help:    "Language model request latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
			},
			[]string{"task"},
		),
		httpCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexdraft_http_requests_total",
				Help: "HTTP requests served by the web UI",
			},
			[]string{"path", "code"},
		),
	}
	m.Registry.MustRegister(m.llmCalls, m.llmDuration, m.httpCalls)
	return m
}

// OnCallComplete implements assistant.Observer.
func (m *Metrics) OnCallComplete(ev assistant.CallEvent) {
	status := "ok"
	switch {
	case ev.Cached:
		status = "cached"
	case !ev.Success:
		status = ev.ErrorCode
	}
	m.llmCalls.WithLabelValues(string(ev.Task), status).Inc()
	if !ev.Cached {
		m.llmDuration.WithLabelValues(string(ev.Task)).Observe(ev.Latency.Seconds())
	}
}

func (m *Metrics) ObserveHTTP(path string, code int) {
	m.httpCalls.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
