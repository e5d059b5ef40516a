package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestAssistantMetrics_NilSafe(t *testing.T) {
	var m *AssistantMetrics
	// Must not panic.
	m.ObserveTurn("success")
	m.ObserveToolCall("create_patient", "success")
	m.ObserveModelLatency("tools", 0.5)
}

func TestAssistantMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAssistantMetrics(reg)

	m.ObserveTurn("conflict")
	m.ObserveToolCall("schedule_appointment", "conflict")
	m.ObserveModelLatency("tools", 0.1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) != 3 {
		t.Errorf("expected 3 metric families, got %d", len(families))
	}
}
