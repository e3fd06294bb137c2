package buoyancy

import "math"

// Physical constants and loop geometry.
const (
	TwoPi = 2 * math.Pi

	DefaultWaterDensity = 1000.0 // kg/m^3
	DefaultGravity      = 9.81   // m/s^2
	DefaultDragCoeff    = 0.8
)

// Environment carries the fluid parameters the force model depends on.
type Environment struct {
	WaterDensity float64
	Gravity      float64
	DragCoeff    float64
}

// DefaultEnvironment returns fresh water at standard gravity.
func DefaultEnvironment() Environment {
	return Environment{
		WaterDensity: DefaultWaterDensity,
		Gravity:      DefaultGravity,
		DragCoeff:    DefaultDragCoeff,
	}
}

// ForceSet holds the three forces acting on one floater, in newtons,
// positive upward.
type ForceSet struct {
	Buoyant float64
	Weight  float64
	Drag    float64
}

// Net is the upward force surplus the floater contributes before the chain
// direction is applied.
func (fs ForceSet) Net() float64 {
	return fs.Buoyant - fs.Weight - fs.Drag
}

// IsFinite reports whether all three components are finite.
func (fs ForceSet) IsFinite() bool {
	for _, v := range [...]float64{fs.Buoyant, fs.Weight, fs.Drag} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Forces computes the buoyant, weight and drag force for a floater moving at
// tangential velocity v (m/s, positive upward). Pure; the floater is not
// mutated and FillFraction is used as-is.
func Forces(f *Floater, v float64, env Environment, eff Effects) ForceSet {
	buoyant := env.WaterDensity * env.Gravity * f.Volume * f.FillFraction
	buoyant *= eff.BuoyancyFactor()

	retained := (1 - f.FillFraction) * f.WaterMass(env.WaterDensity)
	weight := (f.MassEmpty + retained) * env.Gravity

	drag := 0.5 * env.DragCoeff * env.WaterDensity * f.CrossSection * v * v
	if v < 0 {
		drag = -drag
	}
	drag *= eff.DragFactor()

	return ForceSet{Buoyant: buoyant, Weight: weight, Drag: drag}
}
