// Package generator models the electrical machine as a controllable load
// torque with an efficiency, closing the loop on either shaft speed or
// torque.
//
// Positive load torque brakes the shaft and generates power; negative load
// torque motors the shaft (drawing power), which the speed regulator uses
// to pull the generator up toward its setpoint.
package generator

import (
	"errors"
	"fmt"
	"math"
)

// Mode selects the regulation target.
type Mode uint8

const (
	SpeedRegulation Mode = iota
	TorqueRegulation
)

func (m Mode) String() string {
	if m == TorqueRegulation {
		return "TORQUE_REGULATION"
	}
	return "SPEED_REGULATION"
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "speed":
		return SpeedRegulation, nil
	case "torque":
		return TorqueRegulation, nil
	default:
		return 0, fmt.Errorf("generator: unknown mode %q", s)
	}
}

var ErrInvalidLimits = errors.New("generator: max torque and efficiency must be positive")

// Controller computes the generator load torque each tick.
//
// In speed regulation the PI law acts on the speed error (omega - target):
// running above the setpoint raises the braking torque, running below it
// drives the torque negative so the machine motors back up. In torque
// regulation the commanded torque is the clamped constant target and speed
// floats with the drivetrain.
type Controller struct {
	Mode         Mode
	TargetSpeed  float64 // rad/s
	TargetTorque float64 // N m
	MaxTorque    float64 // N m, symmetric clamp
	Efficiency   float64 // (0, 1]
	Kp           float64
	Ki           float64

	// OverloadAfter is how long the command may sit at the clamp before
	// the overload condition is raised. Non-fatal; the loop keeps running.
	OverloadAfter float64 // s

	Commanded float64 // last commanded torque

	integral  float64
	satFor    float64 // continuous time at the clamp, s
	overload  bool
	overloads uint64
}

// New validates the torque and efficiency limits.
func New(mode Mode, maxTorque, efficiency float64) (*Controller, error) {
	if maxTorque <= 0 || efficiency <= 0 || efficiency > 1 {
		return nil, ErrInvalidLimits
	}
	return &Controller{
		Mode:          mode,
		MaxTorque:     maxTorque,
		Efficiency:    efficiency,
		OverloadAfter: 2.0,
	}, nil
}

// Compute returns the load torque for this tick given the current generator
// speed. Saturation time and the overload latch are updated as a side
// effect; the caller reads them through Overloaded and OverloadCount.
func (c *Controller) Compute(omegaGen, dt float64) float64 {
	var cmd float64
	switch c.Mode {
	case TorqueRegulation:
		cmd = c.TargetTorque
	case SpeedRegulation:
		err := omegaGen - c.TargetSpeed
		c.integral += err * dt
		cmd = c.Kp*err + c.Ki*c.integral
	}

	saturated := false
	if cmd > c.MaxTorque {
		cmd = c.MaxTorque
		saturated = true
	} else if cmd < -c.MaxTorque {
		cmd = -c.MaxTorque
		saturated = true
	}

	if saturated {
		c.satFor += dt
		if !c.overload && c.satFor > c.OverloadAfter {
			c.overload = true
			c.overloads++
		}
	} else {
		c.satFor = 0
		c.overload = false
	}

	c.Commanded = cmd
	return cmd
}

// Power returns the electrical output for the last commanded torque at the
// given shaft speed. Positive while generating, negative while motoring.
func (c *Controller) Power(omegaGen float64) float64 {
	return c.Commanded * omegaGen * c.Efficiency
}

// Overloaded reports whether the command has been saturated longer than
// OverloadAfter.
func (c *Controller) Overloaded() bool { return c.overload }

// OverloadCount returns how many distinct overload episodes have occurred.
func (c *Controller) OverloadCount() uint64 { return c.overloads }

// Reset clears the integral and overload state, keeping the tuning.
func (c *Controller) Reset() {
	c.integral = 0
	c.satFor = 0
	c.overload = false
	c.Commanded = 0
}

// SetSpeedTarget switches to speed regulation with fresh integral state.
func (c *Controller) SetSpeedTarget(target, kp, ki float64) {
	c.Mode = SpeedRegulation
	c.TargetSpeed = target
	c.Kp = kp
	c.Ki = ki
	c.Reset()
}

// SetTorqueTarget switches to constant-torque regulation.
func (c *Controller) SetTorqueTarget(target float64) {
	c.Mode = TorqueRegulation
	c.TargetTorque = target
	c.Reset()
}

// IsFinite reports whether the commanded torque is a usable number.
func (c *Controller) IsFinite() bool {
	return !math.IsNaN(c.Commanded) && !math.IsInf(c.Commanded, 0)
}
