package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/averline/splitkit/internal/shared"
)

// Event names sent to the analytics sink.
const (
	eventAssigned = "experiment_assigned"
	eventExposed  = "experiment_exposed"
)

// TrackAssigned emits the assignment event for a subject's stored
// assignment, at most once per session per experiment. The dedup state is
// the Tracked field on the assignment record itself; a second call, or a
// call without any stored assignment, is a silent no-op.
func (s *Service) TrackAssigned(ctx context.Context, subjectID, experimentID string) error {
	a, err := s.repo.GetAssignment(ctx, subjectID, experimentID)
	if err != nil {
		return fmt.Errorf("load assignment: %w", err)
	}
	if a == nil || a.Tracked {
		return nil
	}

	err = s.sink.Track(ctx, eventAssigned, map[string]any{
		"subject_id":    subjectID,
		"experiment_id": experimentID,
		"variant":       a.Variant,
		"assigned_at":   a.AssignedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("track assignment: %w", err)
	}

	return s.markTracked(ctx, subjectID, experimentID)
}

// TrackExposed emits an exposure event for the subject's stored assignment.
// Exposure without a prior assignment is a caller error: it is logged as a
// warning and otherwise a no-op. Unlike assignment tracking, exposures are
// not deduplicated; every call after assignment tracks.
func (s *Service) TrackExposed(ctx context.Context, subjectID, experimentID string) error {
	a, err := s.repo.GetAssignment(ctx, subjectID, experimentID)
	if err != nil {
		return fmt.Errorf("load assignment: %w", err)
	}
	if a == nil {
		s.logger.Warn("no assignment found for experiment",
			"experiment_id", experimentID, "subject_id", subjectID)
		return nil
	}

	err = s.sink.Track(ctx, eventExposed, map[string]any{
		"subject_id":    subjectID,
		"experiment_id": experimentID,
		"variant":       a.Variant,
	})
	if err != nil {
		return fmt.Errorf("track exposure: %w", err)
	}
	return nil
}

// markTracked retries on SQLite busy/locked conflicts with exponential
// backoff, since the mark can race the cleanup worker.
func (s *Service) markTracked(ctx context.Context, subjectID, experimentID string) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.repo.MarkTracked(ctx, subjectID, experimentID)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) {
			break
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			s.logger.Debug("mark tracked hit busy database, retrying",
				"experiment_id", experimentID, "attempt", i+1, "delay", delay)
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("mark assignment tracked: %w", err)
}
