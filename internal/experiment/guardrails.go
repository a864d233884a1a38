package experiment

import (
	"fmt"

	"github.com/averline/splitkit/internal/domain"
)

// CheckGuardrails evaluates experiment health metrics against thresholds
// (nil uses the defaults). Absent metric fields are excluded from
// evaluation, never treated as zero. Reasons are ordered: error rate, then
// latency, then conversion harm.
func (s *Service) CheckGuardrails(experimentID string, metrics domain.GuardrailMetrics, thresholds *domain.GuardrailThresholds) domain.GuardrailResult {
	t := domain.DefaultGuardrailThresholds()
	if thresholds != nil {
		t = *thresholds
	}

	var reasons []string

	if metrics.ErrorRate != nil && *metrics.ErrorRate > t.ErrorRate {
		reasons = append(reasons, fmt.Sprintf(
			"error rate %.4f exceeds threshold %.4f", *metrics.ErrorRate, t.ErrorRate))
	}

	if metrics.P95LatencyMS != nil && *metrics.P95LatencyMS > t.P95LatencyMS {
		reasons = append(reasons, fmt.Sprintf(
			"p95 latency %.0fms exceeds threshold %.0fms", *metrics.P95LatencyMS, t.P95LatencyMS))
	}

	// The conversion check needs a positive baseline; a zero or absent
	// baseline skips it rather than dividing by zero.
	if metrics.ConversionRate != nil && metrics.BaselineConversionRate != nil && *metrics.BaselineConversionRate > 0 {
		change := (*metrics.ConversionRate - *metrics.BaselineConversionRate) / *metrics.BaselineConversionRate
		if change < t.ConversionHarm {
			reasons = append(reasons, fmt.Sprintf(
				"conversion rate changed %.1f%%, below harm threshold %.1f%%",
				change*100, t.ConversionHarm*100))
		}
	}

	result := domain.GuardrailResult{
		Violated: len(reasons) > 0,
		Reasons:  reasons,
	}
	if result.Violated {
		s.logger.Warn("experiment guardrails violated",
			"experiment_id", experimentID, "reasons", reasons)
	}
	return result
}
