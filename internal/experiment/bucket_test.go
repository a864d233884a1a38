package experiment

import (
	"testing"
)

func TestHashDraw_Deterministic(t *testing.T) {
	a := hashDraw("anon_123", "checkout_test")
	b := hashDraw("anon_123", "checkout_test")
	if a != b {
		t.Errorf("Expected identical draws, got %v and %v", a, b)
	}
}

func TestHashDraw_Range(t *testing.T) {
	subjects := []string{"", "anon_1", "anon_2", "a-long-subject-identifier"}
	for _, s := range subjects {
		d := hashDraw(s, "exp")
		if d < 0 || d >= 1 {
			t.Errorf("Draw for %q out of [0,1): %v", s, d)
		}
	}
}

func TestHashDraw_DistinguishesExperiments(t *testing.T) {
	a := hashDraw("anon_123", "exp_a")
	b := hashDraw("anon_123", "exp_b")
	if a == b {
		t.Errorf("Expected different draws for different experiments, both %v", a)
	}
}

func TestPickVariant_WeightBoundaries(t *testing.T) {
	variants := []string{"a", "b"}
	weights := []float64{0.9, 0.1}

	if got := pickVariant(variants, weights, 0.05); got != "a" {
		t.Errorf("Expected a for draw 0.05, got %q", got)
	}
	if got := pickVariant(variants, weights, 0.95); got != "b" {
		t.Errorf("Expected b for draw 0.95, got %q", got)
	}
}

func TestPickVariant_ThresholdPastAllBoundaries(t *testing.T) {
	// Floating point can leave the draw at or past the final cumulative
	// boundary; the last variant must win rather than selection failing.
	got := pickVariant([]string{"a", "b", "c"}, []float64{0.5, 0.3, 0.2}, 1.0)
	if got != "c" {
		t.Errorf("Expected last variant c, got %q", got)
	}
}

func TestNormalizeWeights_NotSummingToOne(t *testing.T) {
	norm := normalizeWeights(2, []float64{3, 1})
	if norm[0] != 0.75 || norm[1] != 0.25 {
		t.Errorf("Expected [0.75 0.25], got %v", norm)
	}
}

func TestNormalizeWeights_FallsBackToUniform(t *testing.T) {
	cases := []struct {
		name    string
		weights []float64
	}{
		{"nil", nil},
		{"length mismatch", []float64{0.5}},
		{"all zero", []float64{0, 0}},
		{"negative", []float64{-1, 2}},
	}

	for _, tc := range cases {
		norm := normalizeWeights(2, tc.weights)
		if norm[0] != 0.5 || norm[1] != 0.5 {
			t.Errorf("%s: expected uniform split, got %v", tc.name, norm)
		}
	}
}
