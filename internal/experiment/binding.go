package experiment

import (
	"context"
)

// Binding pairs a resolved variant with an exposure tracker bound to the
// same subject and experiment, for callers that render a variant in one
// place and report exposure later.
type Binding struct {
	Variant       string
	TrackExposure func(ctx context.Context) error
}

// Bind assigns the subject (sticky, computed once) and returns the variant
// together with a zero-argument-per-experiment exposure tracker.
func (s *Service) Bind(ctx context.Context, subjectID, experimentID string, variants []string, weights []float64) (Binding, error) {
	variant, err := s.Assign(ctx, subjectID, experimentID, variants, weights)
	if err != nil {
		return Binding{}, err
	}
	return Binding{
		Variant: variant,
		TrackExposure: func(ctx context.Context) error {
			return s.TrackExposed(ctx, subjectID, experimentID)
		},
	}, nil
}
