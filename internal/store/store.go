// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/averline/splitkit/internal/domain"
)

// Repository defines the interface for persisting experiment assignments.
// Records are namespaced by (subject_id, experiment_id) so stickiness
// survives service restarts within the same browser session.
type Repository interface {
	// GetAssignment retrieves an assignment, or nil when none exists.
	GetAssignment(ctx context.Context, subjectID, experimentID string) (*domain.ExperimentAssignment, error)

	// PutAssignment creates or replaces an assignment record.
	PutAssignment(ctx context.Context, a *domain.ExperimentAssignment) error

	// MarkTracked flags an assignment as having had its assignment event
	// sent. Marking a missing or already-tracked assignment is a no-op.
	MarkTracked(ctx context.Context, subjectID, experimentID string) error

	// ListAssignments retrieves all assignments for a subject.
	ListAssignments(ctx context.Context, subjectID string) ([]*domain.ExperimentAssignment, error)

	// CleanupExpiredAssignments removes assignments not touched within ttl.
	CleanupExpiredAssignments(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies connectivity and returns an error if the store is unreachable.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
