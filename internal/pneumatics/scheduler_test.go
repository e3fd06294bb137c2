package pneumatics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ole-kvern/buoysim/internal/buoyancy"
)

func newTestSystem(n int) *System {
	return New(n, 500000, 0.5, 0.3, 1.0, 1.0+math.Pi, 120000, 0.5)
}

func TestCrossed(t *testing.T) {
	tests := []struct {
		name            string
		prev, cur, th   float64
		want            bool
	}{
		{"forward through", 0.9, 1.1, 1.0, true},
		{"forward short", 0.8, 0.9, 1.0, false},
		{"landing exactly on threshold", 0.9, 1.0, 1.0, true},
		{"starting exactly on threshold", 1.0, 1.1, 1.0, false},
		{"no movement", 1.0, 1.0, 1.0, false},
		{"backward through", 1.1, 0.9, 1.0, true},
		{"wraparound forward", buoyancy.TwoPi - 0.1, 0.1, 0.0, true},
		{"wraparound not reaching", buoyancy.TwoPi - 0.3, buoyancy.TwoPi - 0.1, 0.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := crossed(tt.prev, tt.cur, tt.th); got != tt.want {
				t.Errorf("crossed(%f, %f, %f) = %v, want %v", tt.prev, tt.cur, tt.th, got, tt.want)
			}
		})
	}
}

func TestInjectionRampCompletes(t *testing.T) {
	sys := newTestSystem(1)
	floaters := []buoyancy.Floater{{ID: 0, Volume: 0.1, LoopPosition: 0.95}}
	sys.Prime(floaters)

	// Cross the bottom threshold.
	floaters[0].LoopPosition = 1.05
	events := sys.Step(floaters, 0, 0.01)

	if len(events) != 1 || events[0].Type != InjectStart {
		t.Fatalf("expected INJECT_START, got %v", events)
	}
	if floaters[0].Valve != buoyancy.ValveInjecting {
		t.Fatalf("valve = %v, want INJECTING", floaters[0].Valve)
	}

	// 0.5s of injection at dt=0.01: the crossing tick already ramped once.
	var last []Event
	for i := 0; i < 49; i++ {
		last = sys.Step(floaters, float64(i+1)*0.01, 0.01)
	}

	if floaters[0].FillFraction != 1.0 {
		t.Errorf("fill fraction = %v, want exactly 1.0", floaters[0].FillFraction)
	}
	if floaters[0].Valve != buoyancy.ValveClosed {
		t.Errorf("valve = %v, want CLOSED after fill", floaters[0].Valve)
	}
	if len(last) != 1 || last[0].Type != InjectEnd {
		t.Errorf("expected INJECT_END on final tick, got %v", last)
	}
	if sys.Injections != 1 {
		t.Errorf("injections = %d, want 1", sys.Injections)
	}

	env := buoyancy.DefaultEnvironment()
	fs := buoyancy.Forces(&floaters[0], 0, env, buoyancy.Effects{})
	want := env.WaterDensity * env.Gravity * 0.1
	if math.Abs(fs.Buoyant-want) > 1e-6 {
		t.Errorf("buoyant force after fill = %f, want %f", fs.Buoyant, want)
	}
}

func TestVentRampCompletes(t *testing.T) {
	sys := newTestSystem(1)
	top := sys.TopAngle
	floaters := []buoyancy.Floater{{ID: 0, Volume: 0.1, FillFraction: 1, LoopPosition: top - 0.05}}
	sys.Prime(floaters)

	floaters[0].LoopPosition = top + 0.05
	events := sys.Step(floaters, 0, 0.01)
	if len(events) != 1 || events[0].Type != VentStart {
		t.Fatalf("expected VENT_START, got %v", events)
	}

	for i := 0; i < 29; i++ {
		sys.Step(floaters, float64(i+1)*0.01, 0.01)
	}

	if floaters[0].FillFraction != 0.0 {
		t.Errorf("fill fraction = %v, want exactly 0.0", floaters[0].FillFraction)
	}
	if sys.Vents != 1 {
		t.Errorf("vents = %d, want 1", sys.Vents)
	}

	env := buoyancy.DefaultEnvironment()
	fs := buoyancy.Forces(&floaters[0], 0, env, buoyancy.Effects{})
	if fs.Buoyant != 0 {
		t.Errorf("buoyant force after vent = %f, want 0", fs.Buoyant)
	}
}

func TestTopCrossingPartialFillIgnored(t *testing.T) {
	sys := newTestSystem(1)
	top := sys.TopAngle
	floaters := []buoyancy.Floater{{ID: 0, FillFraction: 0.5, LoopPosition: top - 0.05}}
	sys.Prime(floaters)

	floaters[0].LoopPosition = top + 0.05
	events := sys.Step(floaters, 0, 0.01)
	if len(events) != 0 {
		t.Errorf("partially filled floater must not vent, got %v", events)
	}
	if floaters[0].Valve != buoyancy.ValveClosed {
		t.Errorf("valve = %v, want CLOSED", floaters[0].Valve)
	}
}

func TestMidTransitionCrossingCounted(t *testing.T) {
	sys := newTestSystem(1)
	floaters := []buoyancy.Floater{{ID: 0, Volume: 0.1, LoopPosition: 0.95}}
	sys.Prime(floaters)

	floaters[0].LoopPosition = 1.05
	sys.Step(floaters, 0, 0.01) // starts injecting

	// Jitter back and forth over the threshold mid-transition.
	floaters[0].LoopPosition = 0.95
	sys.Step(floaters, 0.01, 0.01)
	floaters[0].LoopPosition = 1.05
	sys.Step(floaters, 0.02, 0.01)

	if sys.Conflicts != 2 {
		t.Errorf("conflicts = %d, want 2", sys.Conflicts)
	}
	if floaters[0].Valve != buoyancy.ValveInjecting {
		t.Errorf("jitter interrupted the transition: valve = %v", floaters[0].Valve)
	}
}

func TestTankPressureDropAndRecovery(t *testing.T) {
	sys := newTestSystem(1)
	floaters := []buoyancy.Floater{{ID: 0, Volume: 0.1, LoopPosition: 0.95}}
	sys.Prime(floaters)

	floaters[0].LoopPosition = 1.05
	sys.Step(floaters, 0, 0.01)

	dropped := sys.NominalPressure - 0.1*sys.PressureDropPerM3
	if sys.TankPressure >= sys.NominalPressure {
		t.Errorf("tank pressure did not drop: %f", sys.TankPressure)
	}
	// A little recovery already happened on the same tick.
	if sys.TankPressure < dropped {
		t.Errorf("tank pressure %f below expected floor %f", sys.TankPressure, dropped)
	}

	for i := 0; i < 5000; i++ {
		sys.Step(floaters, float64(i)*0.01, 0.01)
	}
	if math.Abs(sys.TankPressure-sys.NominalPressure) > 1 {
		t.Errorf("tank pressure did not recover: %f vs %f", sys.TankPressure, sys.NominalPressure)
	}
}

func TestFillFractionStaysBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sys := newTestSystem(4)
	floaters := buoyancy.NewRing(4, 0.1, 5, 0.2)
	for i := range floaters {
		floaters[i].LoopPosition = floaters[i].BasePhase
	}
	sys.Prime(floaters)

	// Randomized loop positions, including jitter across both thresholds.
	for step := 0; step < 20000; step++ {
		for i := range floaters {
			floaters[i].LoopPosition = rng.Float64() * buoyancy.TwoPi
		}
		sys.Step(floaters, float64(step)*0.01, 0.01)
		for i := range floaters {
			ff := floaters[i].FillFraction
			if ff < 0 || ff > 1 {
				t.Fatalf("step %d: floater %d fill fraction out of range: %v", step, i, ff)
			}
		}
	}
}

func TestZeroDtAdvancesNothing(t *testing.T) {
	sys := newTestSystem(1)
	floaters := []buoyancy.Floater{{ID: 0, Volume: 0.1, LoopPosition: 0.95}}
	sys.Prime(floaters)

	floaters[0].LoopPosition = 1.05
	sys.Step(floaters, 0, 0.01)
	fill := floaters[0].FillFraction
	tank := sys.TankPressure

	events := sys.Step(floaters, 0.01, 0)
	if len(events) != 0 {
		t.Errorf("zero-dt step emitted events: %v", events)
	}
	if floaters[0].FillFraction != fill {
		t.Errorf("zero-dt step changed fill: %v -> %v", fill, floaters[0].FillFraction)
	}
	if sys.TankPressure != tank {
		t.Errorf("zero-dt step changed tank pressure: %v -> %v", tank, sys.TankPressure)
	}
}
