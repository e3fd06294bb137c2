// Package metrics accumulates rolling statistics over the engine's
// published outputs.
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerStats summarizes recent electrical output and shaft speed.
type PowerStats struct {
	MeanPower   float64
	StdDevPower float64
	PeakPower   float64
	MeanSpeed   float64
	Samples     int
}

// Rolling keeps a fixed-size window of power and speed samples.
type Rolling struct {
	power []float64
	speed []float64
	idx   int
	full  bool
}

// NewRolling returns a window of the given capacity (minimum 1).
func NewRolling(capacity int) *Rolling {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling{
		power: make([]float64, capacity),
		speed: make([]float64, capacity),
	}
}

// Push records one sample, evicting the oldest once the window is full.
func (r *Rolling) Push(power, speed float64) {
	r.power[r.idx] = power
	r.speed[r.idx] = speed
	r.idx++
	if r.idx == len(r.power) {
		r.idx = 0
		r.full = true
	}
}

func (r *Rolling) window() ([]float64, []float64) {
	if r.full {
		return r.power, r.speed
	}
	return r.power[:r.idx], r.speed[:r.idx]
}

// Stats computes the window summary. Empty windows return zeros.
func (r *Rolling) Stats() PowerStats {
	power, speed := r.window()
	if len(power) == 0 {
		return PowerStats{}
	}
	s := PowerStats{
		MeanPower: stat.Mean(power, nil),
		PeakPower: floats.Max(power),
		MeanSpeed: stat.Mean(speed, nil),
		Samples:   len(power),
	}
	if len(power) > 1 {
		s.StdDevPower = stat.StdDev(power, nil)
	}
	return s
}

// Reset empties the window.
func (r *Rolling) Reset() {
	r.idx = 0
	r.full = false
}
