package embed

import (
	"math"
	"testing"
)

func TestCosine_Identical(t *testing.T) {
	v := []float32{0.5, 0.5, 0.7}
	if sim := Cosine(v, v); math.Abs(sim-1) > 1e-9 {
		t.Errorf("expected 1 for identical vectors, got %v", sim)
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if sim := Cosine(a, b); sim != 0 {
		t.Errorf("expected 0 for orthogonal vectors, got %v", sim)
	}
}

func TestCosine_OppositeClampedToZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if sim := Cosine(a, b); sim != 0 {
		t.Errorf("expected negative similarity clamped to 0, got %v", sim)
	}
}

func TestCosine_MismatchedLengths(t *testing.T) {
	if sim := Cosine([]float32{1, 2}, []float32{1}); sim != 0 {
		t.Errorf("expected 0 for mismatched vectors, got %v", sim)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	if sim := Cosine([]float32{0, 0}, []float32{1, 1}); sim != 0 {
		t.Errorf("expected 0 for zero vector, got %v", sim)
	}
}
