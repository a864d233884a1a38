package experiment

import (
	"strings"
	"testing"

	"github.com/averline/splitkit/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestCheckGuardrails_ConversionHarm(t *testing.T) {
	svc, _ := newTestService()

	// 60% relative drop exceeds the default 20% harm threshold.
	result := svc.CheckGuardrails("exp", domain.GuardrailMetrics{
		ConversionRate:         f(0.02),
		BaselineConversionRate: f(0.05),
	}, nil)
	if !result.Violated {
		t.Error("Expected violation for 60% conversion drop")
	}

	// 10% drop stays inside the threshold.
	result = svc.CheckGuardrails("exp", domain.GuardrailMetrics{
		ConversionRate:         f(0.045),
		BaselineConversionRate: f(0.05),
	}, nil)
	if result.Violated {
		t.Errorf("Expected no violation for 10%% drop, got reasons %v", result.Reasons)
	}
}

func TestCheckGuardrails_ZeroBaseline(t *testing.T) {
	svc, _ := newTestService()

	result := svc.CheckGuardrails("exp", domain.GuardrailMetrics{
		ConversionRate:         f(0.05),
		BaselineConversionRate: f(0),
	}, nil)
	if result.Violated {
		t.Errorf("Expected zero baseline to skip the conversion check, got %v", result.Reasons)
	}
}

func TestCheckGuardrails_ErrorRateAndLatency(t *testing.T) {
	svc, _ := newTestService()

	result := svc.CheckGuardrails("exp", domain.GuardrailMetrics{
		ErrorRate:    f(0.10),
		P95LatencyMS: f(4500),
	}, nil)
	if !result.Violated {
		t.Fatal("Expected violations for error rate and latency")
	}
	if len(result.Reasons) != 2 {
		t.Fatalf("Expected 2 reasons, got %v", result.Reasons)
	}
	if !strings.Contains(result.Reasons[0], "error rate") {
		t.Errorf("Expected error rate reason first, got %q", result.Reasons[0])
	}
	if !strings.Contains(result.Reasons[1], "latency") {
		t.Errorf("Expected latency reason second, got %q", result.Reasons[1])
	}
}

func TestCheckGuardrails_ReasonOrder(t *testing.T) {
	svc, _ := newTestService()

	result := svc.CheckGuardrails("exp", domain.GuardrailMetrics{
		ErrorRate:              f(0.10),
		P95LatencyMS:           f(4500),
		ConversionRate:         f(0.01),
		BaselineConversionRate: f(0.05),
	}, nil)
	if len(result.Reasons) != 3 {
		t.Fatalf("Expected 3 reasons, got %v", result.Reasons)
	}
	for i, want := range []string{"error rate", "latency", "conversion"} {
		if !strings.Contains(result.Reasons[i], want) {
			t.Errorf("Reason %d: expected %q, got %q", i, want, result.Reasons[i])
		}
	}
}

func TestCheckGuardrails_MissingMetrics(t *testing.T) {
	svc, _ := newTestService()

	result := svc.CheckGuardrails("exp", domain.GuardrailMetrics{}, nil)
	if result.Violated {
		t.Errorf("Expected absent metrics to skip evaluation, got %v", result.Reasons)
	}
}

func TestCheckGuardrails_CustomThresholds(t *testing.T) {
	svc, _ := newTestService()

	thresholds := domain.GuardrailThresholds{
		ErrorRate:      0.20,
		P95LatencyMS:   10000,
		ConversionHarm: -0.5,
	}
	result := svc.CheckGuardrails("exp", domain.GuardrailMetrics{
		ErrorRate:    f(0.10),
		P95LatencyMS: f(4500),
	}, &thresholds)
	if result.Violated {
		t.Errorf("Expected relaxed thresholds to pass, got %v", result.Reasons)
	}
}

func TestCheckGuardrails_BoundaryNotViolated(t *testing.T) {
	svc, _ := newTestService()

	// Exactly at the threshold is not a violation; only exceeding it is.
	result := svc.CheckGuardrails("exp", domain.GuardrailMetrics{
		ErrorRate: f(0.05),
	}, nil)
	if result.Violated {
		t.Errorf("Expected error rate at threshold to pass, got %v", result.Reasons)
	}
}
