package store

import (
	"context"
	"sync"
	"time"

	"github.com/averline/splitkit/internal/domain"
)

// MemoryStore implements Repository in memory. It is used in tests and
// wherever session stickiness does not need to survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[memoryKey]*memoryRecord
}

type memoryKey struct {
	subjectID    string
	experimentID string
}

type memoryRecord struct {
	assignment domain.ExperimentAssignment
	updatedAt  time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[memoryKey]*memoryRecord),
	}
}

// GetAssignment retrieves an assignment, or nil when none exists.
func (s *MemoryStore) GetAssignment(_ context.Context, subjectID, experimentID string) (*domain.ExperimentAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.assignments[memoryKey{subjectID, experimentID}]; ok {
		out := rec.assignment
		return &out, nil
	}
	return nil, nil
}

// PutAssignment creates or replaces an assignment record.
func (s *MemoryStore) PutAssignment(_ context.Context, a *domain.ExperimentAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[memoryKey{a.SubjectID, a.ExperimentID}] = &memoryRecord{
		assignment: *a,
		updatedAt:  time.Now(),
	}
	return nil
}

// MarkTracked flags an assignment as having had its assignment event sent.
func (s *MemoryStore) MarkTracked(_ context.Context, subjectID, experimentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.assignments[memoryKey{subjectID, experimentID}]; ok {
		rec.assignment.Tracked = true
		rec.updatedAt = time.Now()
	}
	return nil
}

// ListAssignments retrieves all assignments for a subject.
func (s *MemoryStore) ListAssignments(_ context.Context, subjectID string) ([]*domain.ExperimentAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ExperimentAssignment
	for key, rec := range s.assignments {
		if key.subjectID == subjectID {
			a := rec.assignment
			out = append(out, &a)
		}
	}
	return out, nil
}

// CleanupExpiredAssignments removes assignments not touched within ttl.
func (s *MemoryStore) CleanupExpiredAssignments(_ context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for key, rec := range s.assignments {
		if rec.updatedAt.Before(threshold) {
			delete(s.assignments, key)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
