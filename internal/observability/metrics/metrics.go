package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters/histograms for the conversational core.
type AssistantMetrics struct {
	turnsTotal     *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	modelLatency   *prometheus.HistogramVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinica",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Total chat turns by outcome",
		}, []string{"outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinica",
			Subsystem: "assistant",
			Name:      "tool_calls_total",
			Help:      "Total executed actions by name and outcome",
		}, []string{"action", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinica",
			Subsystem: "assistant",
			Name:      "model_latency_seconds",
			Help:      "Latency of completion provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.toolCallsTotal, m.modelLatency)
	return m
}

func (m *AssistantMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *AssistantMetrics) ObserveToolCall(action, outcome string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *AssistantMetrics) ObserveModelLatency(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(kind).Observe(seconds)
}
