// Package experiment implements deterministic A/B variant assignment with
// session stickiness, guardrail evaluation, and assignment/exposure
// tracking.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/averline/splitkit/internal/analytics"
	"github.com/averline/splitkit/internal/domain"
	"github.com/averline/splitkit/internal/store"
)

// Service assigns subjects to experiment variants and tracks the resulting
// events. Assignments are memoized in the repository, so the stored variant
// is always authoritative over a re-computed draw.
type Service struct {
	repo   store.Repository
	sink   analytics.Sink
	logger *slog.Logger

	// draw is the bucketing source, overridable in tests.
	draw func(subjectID, experimentID string) float64
}

// NewService creates an experiment service.
func NewService(repo store.Repository, sink analytics.Sink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		sink:   sink,
		logger: logger.With("component", "experiment"),
		draw:   hashDraw,
	}
}

// Assign returns the subject's variant for an experiment, bucketing the
// subject on first call and returning the stored assignment thereafter.
// Weights follow variant order; absent weights mean a uniform split, and
// weights not summing to 1 are normalized first. The variant list must be
// non-empty.
func (s *Service) Assign(ctx context.Context, subjectID, experimentID string, variants []string, weights []float64) (string, error) {
	if experimentID == "" {
		return "", fmt.Errorf("%w: experiment id is required", domain.ErrInvalidArgument)
	}
	if len(variants) == 0 {
		return "", fmt.Errorf("%w: at least one variant is required", domain.ErrInvalidArgument)
	}

	existing, err := s.repo.GetAssignment(ctx, subjectID, experimentID)
	if err != nil {
		return "", fmt.Errorf("load assignment: %w", err)
	}
	if existing != nil {
		return existing.Variant, nil
	}

	variant := variants[0]
	if len(variants) > 1 {
		variant = pickVariant(variants, weights, s.draw(subjectID, experimentID))
	}

	a := &domain.ExperimentAssignment{
		SubjectID:    subjectID,
		ExperimentID: experimentID,
		Variant:      variant,
		AssignedAt:   time.Now(),
	}
	if err := s.repo.PutAssignment(ctx, a); err != nil {
		return "", fmt.Errorf("persist assignment: %w", err)
	}

	// Tracking failures must not fail the assignment itself.
	if err := s.TrackAssigned(ctx, subjectID, experimentID); err != nil {
		s.logger.Warn("assignment tracking failed",
			"experiment_id", experimentID, "subject_id", subjectID, "error", err)
	}

	return variant, nil
}

// Assignment returns the stored assignment, or nil when the subject has not
// been assigned for this experiment.
func (s *Service) Assignment(ctx context.Context, subjectID, experimentID string) (*domain.ExperimentAssignment, error) {
	a, err := s.repo.GetAssignment(ctx, subjectID, experimentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	return a, nil
}
