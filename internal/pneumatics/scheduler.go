// Package pneumatics schedules air injection and venting for the floaters
// and keeps the compressed-air tank bookkeeping.
//
// The scheduler is a hybrid of discrete events and continuous ramps: a
// threshold crossing on the loop starts a transition, and the transition
// itself advances the fill fraction linearly each tick. Event count is
// bounded by floater count, so there is no event queue; each floater simply
// carries its active ramp rate.
package pneumatics

import (
	"math"

	"github.com/ole-kvern/buoysim/internal/buoyancy"
)

// fillSnapTol absorbs float accumulation error at the end of a ramp so a
// completed transition lands on exactly 0 or 1.
const fillSnapTol = 1e-9

// System owns tank pressure and the per-floater transition ramps.
type System struct {
	TankPressure      float64 // Pa
	NominalPressure   float64 // Pa, compressor setpoint
	InjectionDuration float64 // s
	VentDuration      float64 // s
	BottomAngle       float64 // rad, injection threshold
	TopAngle          float64 // rad, vent threshold
	PressureDropPerM3 float64 // Pa per m^3 of injected volume
	RecoveryRate      float64 // 1/s, first-order recovery toward nominal

	// Diagnostic counters.
	Conflicts  uint64 // threshold crossings ignored mid-transition
	Injections uint64 // completed fills
	Vents      uint64 // completed vents

	rates []float64 // signed fill rate per floater, 0 when idle
	prev  []float64 // loop position at the previous tick
}

// New returns a scheduler sized for n floaters with the tank at nominal
// pressure.
func New(n int, nominalPressure, injectionDuration, ventDuration, bottomAngle, topAngle, pressureDropPerM3, recoveryRate float64) *System {
	return &System{
		TankPressure:      nominalPressure,
		NominalPressure:   nominalPressure,
		InjectionDuration: injectionDuration,
		VentDuration:      ventDuration,
		BottomAngle:       bottomAngle,
		TopAngle:          topAngle,
		PressureDropPerM3: pressureDropPerM3,
		RecoveryRate:      recoveryRate,
		rates:             make([]float64, n),
		prev:              make([]float64, n),
	}
}

// Prime records the current floater positions as the crossing baseline.
// Call once after the floaters are placed, and again after any reset that
// moves them.
func (s *System) Prime(floaters []buoyancy.Floater) {
	if len(s.rates) != len(floaters) {
		s.rates = make([]float64, len(floaters))
		s.prev = make([]float64, len(floaters))
	}
	for i := range floaters {
		s.prev[i] = floaters[i].LoopPosition
		s.rates[i] = 0
	}
}

// Step detects threshold crossings, advances active fill/vent ramps and
// recovers tank pressure. It mutates floater fill fractions and valve
// states and returns the valve events of this tick.
func (s *System) Step(floaters []buoyancy.Floater, t, dt float64) []Event {
	var events []Event

	for i := range floaters {
		f := &floaters[i]
		cur := f.LoopPosition
		prev := s.prev[i]

		atBottom := crossed(prev, cur, s.BottomAngle)
		atTop := crossed(prev, cur, s.TopAngle)

		if atBottom || atTop {
			switch {
			case f.Valve != buoyancy.ValveClosed:
				// Mid-transition crossings are ignored so position jitter
				// cannot double-inject. Counted for diagnostics.
				s.Conflicts++
			case atBottom && f.FillFraction < 1:
				f.Valve = buoyancy.ValveInjecting
				s.rates[i] = (1 - f.FillFraction) / s.InjectionDuration
				s.TankPressure -= f.Volume * s.PressureDropPerM3
				if s.TankPressure < 0 {
					s.TankPressure = 0
				}
				events = append(events, Event{FloaterID: f.ID, Type: InjectStart, Time: t})
			case atTop && f.FillFraction == 1:
				f.Valve = buoyancy.ValveVenting
				s.rates[i] = -1 / s.VentDuration
				events = append(events, Event{FloaterID: f.ID, Type: VentStart, Time: t})
			}
		}

		switch f.Valve {
		case buoyancy.ValveInjecting:
			f.FillFraction += s.rates[i] * dt
			if f.FillFraction >= 1-fillSnapTol {
				f.FillFraction = 1
				f.Valve = buoyancy.ValveClosed
				s.rates[i] = 0
				s.Injections++
				events = append(events, Event{FloaterID: f.ID, Type: InjectEnd, Time: t})
			}
		case buoyancy.ValveVenting:
			f.FillFraction += s.rates[i] * dt
			if f.FillFraction <= fillSnapTol {
				f.FillFraction = 0
				f.Valve = buoyancy.ValveClosed
				s.rates[i] = 0
				s.Vents++
				events = append(events, Event{FloaterID: f.ID, Type: VentEnd, Time: t})
			}
		}

		s.prev[i] = cur
	}

	// First-order recovery toward the compressor setpoint.
	gain := s.RecoveryRate * dt
	if gain > 1 {
		gain = 1
	}
	s.TankPressure += (s.NominalPressure - s.TankPressure) * gain

	return events
}

// Clone deep-copies the scheduler, including ramp and baseline slices.
func (s *System) Clone() *System {
	c := *s
	c.rates = append([]float64(nil), s.rates...)
	c.prev = append([]float64(nil), s.prev...)
	return &c
}

// IsFinite reports whether tank pressure is a usable number.
func (s *System) IsFinite() bool {
	return !math.IsNaN(s.TankPressure) && !math.IsInf(s.TankPressure, 0)
}

// angDelta returns the signed shortest angular distance from b to a,
// in [-pi, pi).
func angDelta(a, b float64) float64 {
	d := math.Mod(a-b+math.Pi, buoyancy.TwoPi)
	if d < 0 {
		d += buoyancy.TwoPi
	}
	return d - math.Pi
}

// crossed reports whether the movement prev -> cur passed through the
// threshold angle, in either direction of travel. A floater sitting exactly
// on the threshold does not count as crossing it.
func crossed(prev, cur, threshold float64) bool {
	d := angDelta(cur, prev)
	if d == 0 {
		return false
	}
	a := angDelta(threshold, prev)
	if d > 0 {
		return a > 0 && a <= d
	}
	return a < 0 && a >= d
}
