package experiment

import (
	"context"
	"testing"
)

func TestTrackAssigned_Dedup(t *testing.T) {
	svc, rec := newTestService()
	ctx := context.Background()

	// Assign fires the assignment event once.
	if _, err := svc.Assign(ctx, "anon_1", "exp", []string{"a", "b"}, nil); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	// Direct calls after that must be silent no-ops.
	if err := svc.TrackAssigned(ctx, "anon_1", "exp"); err != nil {
		t.Fatalf("TrackAssigned failed: %v", err)
	}
	if err := svc.TrackAssigned(ctx, "anon_1", "exp"); err != nil {
		t.Fatalf("TrackAssigned failed: %v", err)
	}

	var assigned int
	for _, ev := range rec.Events() {
		if ev.Event == eventAssigned {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("Expected exactly 1 assignment event, got %d", assigned)
	}
}

func TestTrackAssigned_NoAssignment(t *testing.T) {
	svc, rec := newTestService()

	if err := svc.TrackAssigned(context.Background(), "anon_1", "never_assigned"); err != nil {
		t.Fatalf("TrackAssigned failed: %v", err)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("Expected no events without an assignment, got %d", n)
	}
}

func TestTrackExposed_WithoutAssignment(t *testing.T) {
	svc, rec := newTestService()

	if err := svc.TrackExposed(context.Background(), "anon_1", "never_assigned"); err != nil {
		t.Fatalf("TrackExposed should not fail: %v", err)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("Expected no exposure event without an assignment, got %d", n)
	}
}

func TestTrackExposed_NoDedup(t *testing.T) {
	svc, rec := newTestService()
	ctx := context.Background()

	if _, err := svc.Assign(ctx, "anon_1", "exp", []string{"a"}, nil); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.TrackExposed(ctx, "anon_1", "exp"); err != nil {
			t.Fatalf("TrackExposed failed: %v", err)
		}
	}

	var exposed int
	for _, ev := range rec.Events() {
		if ev.Event == eventExposed {
			exposed++
		}
	}
	if exposed != 3 {
		t.Errorf("Expected 3 exposure events, got %d", exposed)
	}
}

func TestTrackEvents_CarryVariant(t *testing.T) {
	svc, rec := newTestService()
	ctx := context.Background()

	variant, err := svc.Assign(ctx, "anon_1", "exp", []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := svc.TrackExposed(ctx, "anon_1", "exp"); err != nil {
		t.Fatalf("TrackExposed failed: %v", err)
	}

	for _, ev := range rec.Events() {
		if ev.Properties["variant"] != variant {
			t.Errorf("Event %s: expected variant %q, got %v", ev.Event, variant, ev.Properties["variant"])
		}
		if ev.Properties["subject_id"] != "anon_1" {
			t.Errorf("Event %s: expected subject anon_1, got %v", ev.Event, ev.Properties["subject_id"])
		}
	}
}
