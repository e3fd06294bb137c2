package engine_test

import (
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ole-kvern/buoysim/internal/buoyancy"
	"github.com/ole-kvern/buoysim/internal/config"
	"github.com/ole-kvern/buoysim/internal/engine"
	"github.com/ole-kvern/buoysim/internal/pneumatics"
)

func TestEngineScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Engine Scenarios Suite")
}

// singleFloaterConfig describes a one-floater rig that self-runs: the
// floater starts buoyant at the bottom of the ascending side, rises, vents
// at the top, falls down the descending side and is re-injected at the
// bottom.
func singleFloaterConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Floaters.Count = 1
	cfg.Floaters.Volume = 0.1
	cfg.Floaters.MassEmpty = 12
	cfg.Floaters.CrossSection = 0.2
	cfg.Drivetrain.JChain = 50
	cfg.Drivetrain.ChainDrag = 5
	cfg.Generator.Mode = "torque"
	cfg.Generator.TargetTorque = 0
	cfg.Pneumatics.InjectionDuration = 0.5
	cfg.Pneumatics.VentDuration = 0.4
	return cfg
}

func firstEvent(events []pneumatics.Event, typ pneumatics.EventType) (pneumatics.Event, bool) {
	for _, ev := range events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return pneumatics.Event{}, false
}

var _ = Describe("single-floater plant cycle", func() {
	const dt = 0.01

	var (
		eng    *engine.Engine
		trace  []engine.Snapshot
		events []pneumatics.Event
	)

	BeforeEach(func() {
		var err error
		eng, err = engine.New(singleFloaterConfig(), nil)
		Expect(err).NotTo(HaveOccurred())

		trace = nil
		events = nil
		for i := 0; i < 12000; i++ { // 120 s of simulated time
			eng.Step(dt)
			snap := *eng.Latest()
			trace = append(trace, snap)
			events = append(events, snap.Events...)
		}
	})

	It("completes full injection and vent cycles in order", func() {
		injStart, ok := firstEvent(events, pneumatics.InjectStart)
		Expect(ok).To(BeTrue(), "no injection started")
		injEnd, ok := firstEvent(events, pneumatics.InjectEnd)
		Expect(ok).To(BeTrue(), "no injection completed")
		ventStart, ok := firstEvent(events, pneumatics.VentStart)
		Expect(ok).To(BeTrue(), "no vent started")
		ventEnd, ok := firstEvent(events, pneumatics.VentEnd)
		Expect(ok).To(BeTrue(), "no vent completed")

		Expect(injStart.Time).To(BeNumerically("<", injEnd.Time))
		Expect(ventStart.Time).To(BeNumerically("<", ventEnd.Time))
	})

	It("fills the floater over the injection duration and lands on exactly 1.0", func() {
		injStart, ok := firstEvent(events, pneumatics.InjectStart)
		Expect(ok).To(BeTrue())
		injEnd, ok := firstEvent(events, pneumatics.InjectEnd)
		Expect(ok).To(BeTrue())

		Expect(injEnd.Time - injStart.Time).To(BeNumerically("~", 0.5, 0.02))

		// Locate the snapshot carrying the completion event.
		for _, snap := range trace {
			if _, done := firstEvent(snap.Events, pneumatics.InjectEnd); done {
				Expect(snap.Floaters[0].FillFraction).To(Equal(1.0))
				break
			}
		}
	})

	It("produces the full buoyant force once filled", func() {
		env := buoyancy.DefaultEnvironment()
		f := buoyancy.Floater{Volume: 0.1, MassEmpty: 12, CrossSection: 0.2, FillFraction: 1}
		fs := buoyancy.Forces(&f, 0, env, buoyancy.Effects{})
		Expect(fs.Buoyant).To(BeNumerically("~", env.WaterDensity*env.Gravity*0.1, 1e-9))
	})

	It("empties the floater over the vent duration and lands on exactly 0.0", func() {
		ventStart, ok := firstEvent(events, pneumatics.VentStart)
		Expect(ok).To(BeTrue())
		ventEnd, ok := firstEvent(events, pneumatics.VentEnd)
		Expect(ok).To(BeTrue())

		Expect(ventEnd.Time - ventStart.Time).To(BeNumerically("~", 0.4, 0.02))

		for _, snap := range trace {
			if _, done := firstEvent(snap.Events, pneumatics.VentEnd); done {
				Expect(snap.Floaters[0].FillFraction).To(Equal(0.0))
				break
			}
		}
	})

	It("draws down tank pressure on injection and recovers it", func() {
		cfg := eng.Config()
		var sawDrop bool
		for _, snap := range trace {
			if snap.TankPressure < cfg.Pneumatics.NominalPressure-1000 {
				sawDrop = true
				break
			}
		}
		Expect(sawDrop).To(BeTrue(), "tank pressure never dropped")
		Expect(trace[len(trace)-1].TankPressure).To(BeNumerically(">", 0))
	})

	It("keeps every fill fraction inside [0,1]", func() {
		for _, snap := range trace {
			for _, f := range snap.Floaters {
				Expect(f.FillFraction).To(And(
					BeNumerically(">=", 0.0),
					BeNumerically("<=", 1.0),
				))
			}
		}
	})

	It("engages the clutch when the chain outruns the generator and spins it up", func() {
		engagedAt := -1
		for i, snap := range trace {
			if snap.ClutchEngaged {
				engagedAt = i
				break
			}
		}
		Expect(engagedAt).To(BeNumerically(">", 0), "clutch never engaged")

		prev := trace[engagedAt-1]
		Expect(prev.ClutchEngaged).To(BeFalse())
		Expect(trace[engagedAt].OmegaGen).To(BeNumerically(">", prev.OmegaGen))
	})

	It("never drives the generator backward", func() {
		for _, snap := range trace {
			Expect(snap.OmegaGen).To(BeNumerically(">=", 0.0))
		}
	})
})

var _ = Describe("speed regulation", func() {
	const dt = 0.01

	// A balanced all-heavy ring produces zero net force, so the chain
	// stays at rest and the generator dynamics are isolated.
	balancedConfig := func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Floaters.Count = 8
		cfg.Floaters.PrimeAscending = false
		cfg.Drivetrain.GenDrag = 0
		cfg.Generator.Mode = "speed"
		cfg.Generator.TargetSpeed = 31.4
		cfg.Generator.Kp = 5
		cfg.Generator.Ki = 0
		return cfg
	}

	It("pulls the generator shaft onto the setpoint", func() {
		eng, err := engine.New(balancedConfig(), nil)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 6000; i++ { // 60 s
			eng.Step(dt)
		}

		snap := eng.Latest()
		Expect(snap.OmegaChain).To(BeNumerically("~", 0.0, 1e-6))
		Expect(math.Abs(snap.OmegaGen - 31.4)).To(BeNumerically("<", 0.1))
	})

	It("reports output power consistent with torque, speed and efficiency", func() {
		cfg := balancedConfig()
		eng, err := engine.New(cfg, nil)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 6000; i++ {
			eng.Step(dt)
		}

		snap := eng.Latest()
		want := snap.LoadTorque * snap.OmegaGen * cfg.Generator.Efficiency
		Expect(snap.OutputPower).To(BeNumerically("~", want, 1e-9))
	})
})
