package chain

import (
	"math"
	"testing"

	"github.com/ole-kvern/buoysim/internal/buoyancy"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{buoyancy.TwoPi, 0},
		{buoyancy.TwoPi + 0.5, 0.5},
		{-0.5, buoyancy.TwoPi - 0.5},
		{3 * buoyancy.TwoPi, 0},
	}
	for _, tt := range tests {
		if got := Wrap(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Wrap(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestDirectionBySide(t *testing.T) {
	if DirectionAt(0.1) != 1 {
		t.Error("ascending side should be +1")
	}
	if DirectionAt(math.Pi+0.1) != -1 {
		t.Error("descending side should be -1")
	}
}

func TestSyncFloaters(t *testing.T) {
	c := New(0.5)
	c.Theta = math.Pi / 2

	floaters := buoyancy.NewRing(2, 0.1, 5, 0.2)
	c.SyncFloaters(floaters)

	if math.Abs(floaters[0].LoopPosition-math.Pi/2) > 1e-12 {
		t.Errorf("floater 0 position = %f", floaters[0].LoopPosition)
	}
	if floaters[0].Direction != 1 {
		t.Error("floater 0 should be ascending")
	}
	// Second floater: base pi plus pi/2 = 3pi/2, descending.
	if math.Abs(floaters[1].LoopPosition-3*math.Pi/2) > 1e-12 {
		t.Errorf("floater 1 position = %f", floaters[1].LoopPosition)
	}
	if floaters[1].Direction != -1 {
		t.Error("floater 1 should be descending")
	}
}

func TestNetForceTwoSides(t *testing.T) {
	env := buoyancy.DefaultEnvironment()
	c := New(0.5)

	// One buoyant floater rising, one heavy floater sinking: both
	// contribute positive net force through their direction sign.
	floaters := buoyancy.NewRing(2, 0.1, 5, 0.2)
	c.SyncFloaters(floaters)
	floaters[0].FillFraction = 1 // ascending, buoyant
	floaters[1].FillFraction = 0 // descending, heavy

	net := c.NetForce(floaters, env, buoyancy.Effects{})

	up := buoyancy.Forces(&floaters[0], 0, env, buoyancy.Effects{}).Net()
	down := buoyancy.Forces(&floaters[1], 0, env, buoyancy.Effects{}).Net()
	want := up - down

	if math.Abs(net-want) > 1e-9 {
		t.Errorf("net force = %f, want %f", net, want)
	}
	if net <= 0 {
		t.Errorf("buoyant-up heavy-down configuration should drive the chain, net = %f", net)
	}
}

func TestTorqueIsForceTimesRadius(t *testing.T) {
	c := New(0.75)
	if got := c.Torque(100); math.Abs(got-75) > 1e-12 {
		t.Errorf("torque = %f, want 75", got)
	}
}

func TestVelocitySign(t *testing.T) {
	c := New(0.5)
	c.Omega = 2.0

	f := buoyancy.Floater{Direction: 1}
	if v := c.Velocity(&f); math.Abs(v-1.0) > 1e-12 {
		t.Errorf("ascending velocity = %f, want 1.0", v)
	}
	f.Direction = -1
	if v := c.Velocity(&f); math.Abs(v+1.0) > 1e-12 {
		t.Errorf("descending velocity = %f, want -1.0", v)
	}
}
