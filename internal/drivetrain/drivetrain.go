// Package drivetrain couples the chain sprocket to the generator shaft
// through a one-way clutch and a flywheel.
//
// The clutch transmits torque only while the reflected chain speed is at or
// above the generator speed; otherwise the two shafts integrate
// independently and the generator side coasts on the flywheel. The
// engage/disengage decision uses a hysteresis margin so speed jitter around
// the crossover cannot chatter the clutch.
package drivetrain

import (
	"errors"
	"math"
)

// ClutchState is the one-way clutch position.
type ClutchState uint8

const (
	Disengaged ClutchState = iota
	Engaged
)

func (s ClutchState) String() string {
	if s == Engaged {
		return "ENGAGED"
	}
	return "DISENGAGED"
}

// HysteresisMargin is the default speed band (rad/s) around the crossover
// within which the clutch holds its current state.
const HysteresisMargin = 0.05

var (
	ErrNonPositiveInertia = errors.New("drivetrain: inertia must be positive")
	ErrInvalidGearRatio   = errors.New("drivetrain: gear ratio must be positive")
)

// NextClutchState applies the hysteresis transition rule. Pure.
func NextClutchState(state ClutchState, omegaChainRefl, omegaGen, epsilon float64) ClutchState {
	switch state {
	case Disengaged:
		if omegaChainRefl >= omegaGen+epsilon {
			return Engaged
		}
	case Engaged:
		if omegaChainRefl < omegaGen-epsilon {
			return Disengaged
		}
	}
	return state
}

// Drivetrain holds the coupled shaft state. OmegaGen never goes negative:
// the generator is not driven in reverse.
type Drivetrain struct {
	GearRatio float64 // N, omega_gen = N * omega_chain when engaged
	JChain    float64 // kg m^2
	JFlywheel float64 // kg m^2
	JGen      float64 // kg m^2

	// Viscous bearing drag, N m s / rad, applied per shaft.
	ChainDrag float64
	GenDrag   float64

	Epsilon float64 // hysteresis margin, rad/s

	Clutch   ClutchState
	OmegaGen float64
}

// New validates the inertias and gear ratio and returns a drivetrain in the
// disengaged state. Non-positive inertia is a configuration fault, not a
// runtime one.
func New(gearRatio, jChain, jFlywheel, jGen float64) (*Drivetrain, error) {
	if gearRatio <= 0 {
		return nil, ErrInvalidGearRatio
	}
	if jChain <= 0 || jFlywheel <= 0 || jGen <= 0 {
		return nil, ErrNonPositiveInertia
	}
	return &Drivetrain{
		GearRatio: gearRatio,
		JChain:    jChain,
		JFlywheel: jFlywheel,
		JGen:      jGen,
		Epsilon:   HysteresisMargin,
		Clutch:    Disengaged,
	}, nil
}

// JTotal is the lumped inertia seen by the generator shaft while engaged.
func (d *Drivetrain) JTotal() float64 {
	return d.JChain*d.GearRatio*d.GearRatio + d.JFlywheel + d.JGen
}

// Step evaluates the clutch transition for this tick and integrates both
// shaft speeds over dt. tauChain is the sprocket torque on the chain shaft,
// tauLoad the generator load torque (positive = braking). It takes the
// current chain speed and returns the new one; OmegaGen is updated in place.
func (d *Drivetrain) Step(tauChain, tauLoad, omegaChain, dt float64) float64 {
	n := d.GearRatio
	d.Clutch = NextClutchState(d.Clutch, omegaChain*n, d.OmegaGen, d.Epsilon)

	switch d.Clutch {
	case Engaged:
		drag := d.GenDrag*d.OmegaGen + d.ChainDrag*omegaChain*n
		alpha := (tauChain*n - tauLoad - drag) / d.JTotal()
		d.OmegaGen += alpha * dt
		if d.OmegaGen < 0 {
			d.OmegaGen = 0
		}
		omegaChain = d.OmegaGen / n

	case Disengaged:
		// No torque path: the chain side sees only its own torque and drag.
		alphaChain := (tauChain - d.ChainDrag*omegaChain) / d.JChain
		omegaChain += alphaChain * dt

		alphaGen := -(tauLoad + d.GenDrag*d.OmegaGen) / (d.JFlywheel + d.JGen)
		d.OmegaGen += alphaGen * dt
		if d.OmegaGen < 0 {
			d.OmegaGen = 0
		}
	}

	return omegaChain
}

// KineticEnergy returns the stored rotational energy of both shafts, each
// weighed by its own inertia at its own speed.
func (d *Drivetrain) KineticEnergy(omegaChain float64) float64 {
	chainSide := 0.5 * d.JChain * omegaChain * omegaChain
	genSide := 0.5 * (d.JFlywheel + d.JGen) * d.OmegaGen * d.OmegaGen
	return chainSide + genSide
}

// IsFinite reports whether the generator speed is a usable number.
func (d *Drivetrain) IsFinite() bool {
	return !math.IsNaN(d.OmegaGen) && !math.IsInf(d.OmegaGen, 0)
}
