// Package chain converts floater forces into sprocket torque and drives
// floater positions from the chain angle.
package chain

import (
	"math"

	"github.com/ole-kvern/buoysim/internal/buoyancy"
)

// Chain models the sprocket and the closed loop the floaters ride.
// Positions in [0, pi) are the ascending side, [pi, 2pi) the descending
// side; positive Omega moves the ascending side upward.
type Chain struct {
	Radius float64 // sprocket radius, m
	Theta  float64 // chain angle, rad
	Omega  float64 // chain angular velocity, rad/s
}

func New(radius float64) *Chain {
	return &Chain{Radius: radius}
}

// Wrap normalizes an angle into [0, 2pi).
func Wrap(theta float64) float64 {
	theta = math.Mod(theta, buoyancy.TwoPi)
	if theta < 0 {
		theta += buoyancy.TwoPi
	}
	return theta
}

// DirectionAt returns +1 for the ascending half of the loop, -1 for the
// descending half.
func DirectionAt(pos float64) float64 {
	if Wrap(pos) < math.Pi {
		return 1
	}
	return -1
}

// SyncFloaters places every floater at its base phase advanced by the
// current chain angle and refreshes its direction.
func (c *Chain) SyncFloaters(floaters []buoyancy.Floater) {
	for i := range floaters {
		f := &floaters[i]
		f.LoopPosition = Wrap(f.BasePhase + c.Theta)
		f.Direction = DirectionAt(f.LoopPosition)
	}
}

// Velocity returns the signed vertical velocity of a floater, positive
// upward. Ascending floaters move up under positive chain rotation,
// descending floaters move down.
func (c *Chain) Velocity(f *buoyancy.Floater) float64 {
	return f.Direction * c.Omega * c.Radius
}

// NetForce sums each floater's force surplus projected onto the chain's
// direction of travel. O(n), pure.
func (c *Chain) NetForce(floaters []buoyancy.Floater, env buoyancy.Environment, eff buoyancy.Effects) float64 {
	net := 0.0
	for i := range floaters {
		f := &floaters[i]
		fs := buoyancy.Forces(f, c.Velocity(f), env, eff)
		net += f.Direction * fs.Net()
	}
	return net
}

// Torque converts a net tangential force into sprocket torque.
func (c *Chain) Torque(netForce float64) float64 {
	return netForce * c.Radius
}
