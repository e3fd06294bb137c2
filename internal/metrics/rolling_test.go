package metrics

import (
	"math"
	"testing"
)

func TestEmptyWindow(t *testing.T) {
	r := NewRolling(8)
	s := r.Stats()
	if s.Samples != 0 || s.MeanPower != 0 || s.PeakPower != 0 {
		t.Errorf("empty window stats = %+v", s)
	}
}

func TestPartialWindow(t *testing.T) {
	r := NewRolling(8)
	r.Push(10, 1)
	r.Push(20, 3)

	s := r.Stats()
	if s.Samples != 2 {
		t.Fatalf("samples = %d, want 2", s.Samples)
	}
	if math.Abs(s.MeanPower-15) > 1e-12 {
		t.Errorf("mean power = %f, want 15", s.MeanPower)
	}
	if math.Abs(s.PeakPower-20) > 1e-12 {
		t.Errorf("peak power = %f, want 20", s.PeakPower)
	}
	if math.Abs(s.MeanSpeed-2) > 1e-12 {
		t.Errorf("mean speed = %f, want 2", s.MeanSpeed)
	}
}

func TestWindowEviction(t *testing.T) {
	r := NewRolling(3)
	for _, p := range []float64{100, 1, 2, 3} {
		r.Push(p, 0)
	}
	s := r.Stats()
	if s.Samples != 3 {
		t.Fatalf("samples = %d, want 3", s.Samples)
	}
	// The 100 sample has been evicted.
	if math.Abs(s.MeanPower-2) > 1e-12 {
		t.Errorf("mean power = %f, want 2", s.MeanPower)
	}
	if math.Abs(s.PeakPower-3) > 1e-12 {
		t.Errorf("peak power = %f, want 3", s.PeakPower)
	}
}

func TestStdDev(t *testing.T) {
	r := NewRolling(4)
	for _, p := range []float64{2, 4, 4, 6} {
		r.Push(p, 0)
	}
	s := r.Stats()
	// Sample standard deviation of {2,4,4,6}.
	want := math.Sqrt(8.0 / 3.0)
	if math.Abs(s.StdDevPower-want) > 1e-12 {
		t.Errorf("stddev = %f, want %f", s.StdDevPower, want)
	}
}

func TestReset(t *testing.T) {
	r := NewRolling(4)
	r.Push(5, 5)
	r.Reset()
	if s := r.Stats(); s.Samples != 0 {
		t.Errorf("samples after reset = %d, want 0", s.Samples)
	}
}
