package domain

import (
	"time"
)

// ExperimentAssignment records which variant a subject was bucketed into.
// For a given subject and experiment the variant is stable for the lifetime
// of the session, across service restarts.
type ExperimentAssignment struct {
	SubjectID    string    `json:"subject_id"`
	ExperimentID string    `json:"experiment_id"`
	Variant      string    `json:"variant"`
	AssignedAt   time.Time `json:"assigned_at"`
	// Tracked is true once the assignment event has been sent to the
	// analytics sink. Assignment events are deduplicated on this field,
	// not on a separate table.
	Tracked bool `json:"tracked"`
}

// GuardrailMetrics carries experiment health metrics for guardrail
// evaluation. All fields are optional; absent fields are excluded from
// evaluation rather than treated as zero.
type GuardrailMetrics struct {
	ErrorRate              *float64 `json:"error_rate,omitempty"`
	P95LatencyMS           *float64 `json:"p95_latency_ms,omitempty"`
	ConversionRate         *float64 `json:"conversion_rate,omitempty"`
	BaselineConversionRate *float64 `json:"baseline_conversion_rate,omitempty"`
}

// GuardrailThresholds configures the limits guardrail metrics are checked
// against.
type GuardrailThresholds struct {
	// ErrorRate is the maximum tolerated error rate.
	ErrorRate float64 `json:"error_rate"`
	// P95LatencyMS is the maximum tolerated p95 latency in milliseconds.
	P95LatencyMS float64 `json:"p95_latency_ms"`
	// ConversionHarm is the most negative tolerated relative change in
	// conversion rate versus baseline, e.g. -0.2 for a 20% drop.
	ConversionHarm float64 `json:"conversion_harm"`
}

// DefaultGuardrailThresholds returns the stock guardrail limits.
func DefaultGuardrailThresholds() GuardrailThresholds {
	return GuardrailThresholds{
		ErrorRate:      0.05,
		P95LatencyMS:   3000,
		ConversionHarm: -0.2,
	}
}

// GuardrailResult is the outcome of a guardrail evaluation. Violated is
// true iff Reasons is non-empty.
type GuardrailResult struct {
	Violated bool     `json:"violated"`
	Reasons  []string `json:"reasons"`
}
