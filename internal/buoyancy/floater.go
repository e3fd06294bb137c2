package buoyancy

import "fmt"

// ValveState tracks the pneumatic valve of a single floater.
type ValveState uint8

const (
	ValveClosed ValveState = iota
	ValveInjecting
	ValveVenting
)

func (v ValveState) String() string {
	switch v {
	case ValveClosed:
		return "CLOSED"
	case ValveInjecting:
		return "INJECTING"
	case ValveVenting:
		return "VENTING"
	default:
		return fmt.Sprintf("ValveState(%d)", uint8(v))
	}
}

// Floater is one buoyant chamber on the chain loop.
//
// LoopPosition is the angular position along the loop in [0, 2pi), derived
// from the chain angle plus the floater's fixed base phase. Direction is +1
// on the ascending side and -1 on the descending side.
type Floater struct {
	ID           int
	Volume       float64 // m^3
	MassEmpty    float64 // kg
	CrossSection float64 // m^2, projected area used for drag

	FillFraction float64 // 0 = water-filled, 1 = air-filled
	LoopPosition float64 // rad, [0, 2pi)
	Direction    float64 // +1 ascending, -1 descending
	Valve        ValveState

	BasePhase float64 // rad, fixed offset along the loop
}

// WaterMass returns the mass of water displaced by a completely filled
// chamber, which is also the mass retained inside an empty one.
func (f *Floater) WaterMass(waterDensity float64) float64 {
	return waterDensity * f.Volume
}

// NewRing creates n floaters evenly spaced around the loop, water-filled,
// valves closed.
func NewRing(n int, volume, massEmpty, crossSection float64) []Floater {
	floaters := make([]Floater, n)
	for i := range floaters {
		floaters[i] = Floater{
			ID:           i,
			Volume:       volume,
			MassEmpty:    massEmpty,
			CrossSection: crossSection,
			BasePhase:    TwoPi * float64(i) / float64(n),
		}
	}
	return floaters
}
