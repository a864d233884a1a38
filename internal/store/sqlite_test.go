package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/averline/splitkit/internal/domain"
)

func newTestSQLite(t *testing.T) (Repository, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo, dbPath
}

func TestSQLite_AssignmentRoundtrip(t *testing.T) {
	repo, _ := newTestSQLite(t)
	ctx := context.Background()

	missing, err := repo.GetAssignment(ctx, "anon_1", "exp")
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing assignment, got %+v", missing)
	}

	assignedAt := time.Now().Truncate(time.Second)
	a := &domain.ExperimentAssignment{
		SubjectID:    "anon_1",
		ExperimentID: "exp",
		Variant:      "treatment",
		AssignedAt:   assignedAt,
	}
	if err := repo.PutAssignment(ctx, a); err != nil {
		t.Fatalf("PutAssignment failed: %v", err)
	}

	got, err := repo.GetAssignment(ctx, "anon_1", "exp")
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored assignment")
	}
	if got.Variant != "treatment" {
		t.Errorf("Expected variant treatment, got %q", got.Variant)
	}
	if !got.AssignedAt.Equal(assignedAt) {
		t.Errorf("Expected assigned_at %v, got %v", assignedAt, got.AssignedAt)
	}
	if got.Tracked {
		t.Error("Expected new assignment untracked")
	}
}

func TestSQLite_StickinessSurvivesReopen(t *testing.T) {
	repo, dbPath := newTestSQLite(t)
	ctx := context.Background()

	a := &domain.ExperimentAssignment{
		SubjectID:    "anon_1",
		ExperimentID: "exp",
		Variant:      "b",
		AssignedAt:   time.Now(),
	}
	if err := repo.PutAssignment(ctx, a); err != nil {
		t.Fatalf("PutAssignment failed: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	got, err := reopened.GetAssignment(ctx, "anon_1", "exp")
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if got == nil || got.Variant != "b" {
		t.Errorf("Expected assignment to survive reopen, got %+v", got)
	}
}

func TestSQLite_MarkTracked(t *testing.T) {
	repo, _ := newTestSQLite(t)
	ctx := context.Background()

	a := &domain.ExperimentAssignment{
		SubjectID:    "anon_1",
		ExperimentID: "exp",
		Variant:      "a",
		AssignedAt:   time.Now(),
	}
	if err := repo.PutAssignment(ctx, a); err != nil {
		t.Fatalf("PutAssignment failed: %v", err)
	}

	if err := repo.MarkTracked(ctx, "anon_1", "exp"); err != nil {
		t.Fatalf("MarkTracked failed: %v", err)
	}

	got, err := repo.GetAssignment(ctx, "anon_1", "exp")
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if !got.Tracked {
		t.Error("Expected assignment marked tracked")
	}

	// Marking a missing assignment logs but does not fail.
	if err := repo.MarkTracked(ctx, "anon_1", "other"); err != nil {
		t.Errorf("MarkTracked for missing assignment should not fail: %v", err)
	}
}

func TestSQLite_ListAssignments(t *testing.T) {
	repo, _ := newTestSQLite(t)
	ctx := context.Background()

	for _, exp := range []string{"exp_a", "exp_b"} {
		a := &domain.ExperimentAssignment{
			SubjectID:    "anon_1",
			ExperimentID: exp,
			Variant:      "x",
			AssignedAt:   time.Now(),
		}
		if err := repo.PutAssignment(ctx, a); err != nil {
			t.Fatalf("PutAssignment failed: %v", err)
		}
	}

	list, err := repo.ListAssignments(ctx, "anon_1")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 assignments, got %d", len(list))
	}

	other, err := repo.ListAssignments(ctx, "anon_2")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no assignments for other subject, got %d", len(other))
	}
}

func TestSQLite_CleanupExpiredAssignments(t *testing.T) {
	repo, _ := newTestSQLite(t)
	ctx := context.Background()

	a := &domain.ExperimentAssignment{
		SubjectID:    "anon_1",
		ExperimentID: "exp",
		Variant:      "a",
		AssignedAt:   time.Now(),
	}
	if err := repo.PutAssignment(ctx, a); err != nil {
		t.Fatalf("PutAssignment failed: %v", err)
	}

	// A generous TTL keeps the fresh assignment.
	deleted, err := repo.CleanupExpiredAssignments(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected nothing deleted, got %d", deleted)
	}

	// A negative TTL puts the threshold in the future, expiring everything.
	deleted, err = repo.CleanupExpiredAssignments(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	got, err := repo.GetAssignment(ctx, "anon_1", "exp")
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected assignment removed, got %+v", got)
	}
}
