package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ole-kvern/buoysim/internal/buoyancy"
	"github.com/ole-kvern/buoysim/internal/chain"
	"github.com/ole-kvern/buoysim/internal/config"
	"github.com/ole-kvern/buoysim/internal/drivetrain"
	"github.com/ole-kvern/buoysim/internal/generator"
	"github.com/ole-kvern/buoysim/internal/metrics"
	"github.com/ole-kvern/buoysim/internal/pneumatics"
)

// statsWindow is the rolling sample window for output statistics.
const statsWindow = 1024

// Clock tracks simulation time. Dt is fixed for the lifetime of a run;
// wall-clock jitter never leaks into the integration.
type Clock struct {
	Time float64
	Dt   float64
	Tick uint64
}

// Engine owns all simulation entities and advances them tick by tick.
// Methods are not safe for concurrent use except Apply, Latest, Subscribe,
// Running and Config; the tick loop itself must run on a single goroutine.
type Engine struct {
	cfg   config.Config
	log   *zap.Logger
	runID string

	clock   Clock
	running bool

	floaters []buoyancy.Floater
	env      buoyancy.Environment
	effects  buoyancy.Effects
	ch       *chain.Chain
	drive    *drivetrain.Drivetrain
	pneumo   *pneumatics.System
	gen      *generator.Controller
	stats    *metrics.Rolling

	// Per-tick transients, kept for the snapshot.
	netForce    float64
	chainTorque float64
	loadTorque  float64
	outputPower float64

	skippedTicks  uint64
	pendingEvents []pneumatics.Event

	latest atomic.Pointer[Snapshot]

	// mu guards the command queue and subscriber list, and synchronizes
	// the off-thread reads of running and cfg (Running, Config) with the
	// loop-side writes.
	mu    sync.Mutex
	queue []Command
	subs  []chan Snapshot
}

// New validates cfg and builds a fully initialized, running engine. A nil
// logger disables logging.
func New(cfg *config.Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:     log,
		runID:   uuid.NewString(),
		running: true,
	}
	if err := e.rebuild(cfg); err != nil {
		return nil, err
	}
	log.Info("engine initialized",
		zap.String("run_id", e.runID),
		zap.Int("floaters", len(e.floaters)),
		zap.Float64("dt", e.clock.Dt),
		zap.String("generator_mode", e.gen.Mode.String()),
	)
	return e, nil
}

// rebuild constructs the full entity set from cfg. Used at init and on
// reset; the old entities are discarded wholesale.
func (e *Engine) rebuild(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	drive, err := drivetrain.New(cfg.Drivetrain.GearRatio,
		cfg.Drivetrain.JChain, cfg.Drivetrain.JFlywheel, cfg.Drivetrain.JGenerator)
	if err != nil {
		return err
	}
	drive.ChainDrag = cfg.Drivetrain.ChainDrag
	drive.GenDrag = cfg.Drivetrain.GenDrag
	if cfg.Drivetrain.Hysteresis > 0 {
		drive.Epsilon = cfg.Drivetrain.Hysteresis
	}

	mode, err := generator.ParseMode(cfg.Generator.Mode)
	if err != nil {
		return err
	}
	gen, err := generator.New(mode, cfg.Generator.MaxTorque, cfg.Generator.Efficiency)
	if err != nil {
		return err
	}
	gen.TargetSpeed = cfg.Generator.TargetSpeed
	gen.TargetTorque = cfg.Generator.TargetTorque
	gen.Kp = cfg.Generator.Kp
	gen.Ki = cfg.Generator.Ki
	if cfg.Generator.OverloadAfter > 0 {
		gen.OverloadAfter = cfg.Generator.OverloadAfter
	}

	e.mu.Lock()
	e.cfg = *cfg
	e.mu.Unlock()
	e.env = buoyancy.Environment{
		WaterDensity: cfg.Env.WaterDensity,
		Gravity:      cfg.Env.Gravity,
		DragCoeff:    cfg.Env.DragCoeff,
	}
	e.effects = cfg.Effects
	e.ch = chain.New(cfg.Chain.Radius)
	e.drive = drive
	e.gen = gen
	e.floaters = buoyancy.NewRing(cfg.Floaters.Count,
		cfg.Floaters.Volume, cfg.Floaters.MassEmpty, cfg.Floaters.CrossSection)
	e.ch.SyncFloaters(e.floaters)
	e.primeFloaters()
	e.pneumo = pneumatics.New(cfg.Floaters.Count,
		cfg.Pneumatics.NominalPressure,
		cfg.Pneumatics.InjectionDuration, cfg.Pneumatics.VentDuration,
		cfg.Pneumatics.BottomAngle, cfg.Pneumatics.TopAngle,
		cfg.Pneumatics.PressureDropPerM3, cfg.Pneumatics.RecoveryRate)
	e.pneumo.Prime(e.floaters)
	e.stats = metrics.NewRolling(statsWindow)

	e.clock = Clock{Dt: cfg.Sim.Dt}
	e.netForce, e.chainTorque, e.loadTorque, e.outputPower = 0, 0, 0, 0
	e.skippedTicks = 0
	e.pendingEvents = nil

	e.publish()
	return nil
}

// resizeFloaters rebuilds the floater ring in place, keeping chain,
// drivetrain and generator state.
func (e *Engine) resizeFloaters(n int) {
	e.floaters = buoyancy.NewRing(n,
		e.cfg.Floaters.Volume, e.cfg.Floaters.MassEmpty, e.cfg.Floaters.CrossSection)
	e.ch.SyncFloaters(e.floaters)
	e.primeFloaters()
	e.pneumo.Prime(e.floaters)
}

// primeFloaters starts ascending-side floaters buoyant when configured.
func (e *Engine) primeFloaters() {
	if !e.cfg.Floaters.PrimeAscending {
		return
	}
	for i := range e.floaters {
		if e.floaters[i].Direction > 0 {
			e.floaters[i].FillFraction = 1
		}
	}
}

// setRunning flips the pause flag under the state lock so Running can read
// it off-thread.
func (e *Engine) setRunning(v bool) {
	e.mu.Lock()
	e.running = v
	e.mu.Unlock()
}

// updateConfig mutates the active configuration under the state lock so
// Config can read it off-thread.
func (e *Engine) updateConfig(fn func(cfg *config.Config)) {
	e.mu.Lock()
	fn(&e.cfg)
	e.mu.Unlock()
}

// Apply queues a command for the next tick boundary. Safe for concurrent
// use; never blocks on the tick loop.
func (e *Engine) Apply(cmd Command) {
	e.mu.Lock()
	e.queue = append(e.queue, cmd)
	e.mu.Unlock()
}

func (e *Engine) drainCommands() {
	e.mu.Lock()
	pending := e.queue
	e.queue = nil
	e.mu.Unlock()
	for _, cmd := range pending {
		cmd.apply(e)
	}
}

// Step applies queued commands and advances the simulation by dt. A
// non-positive dt is a complete no-op: no commands, no integration, no
// event detection, state bit-identical afterward.
func (e *Engine) Step(dt float64) {
	if dt <= 0 {
		return
	}
	e.drainCommands()
	e.tick(dt)
}

// backup holds everything a tick mutates, for rollback on instability.
type backup struct {
	floaters    []buoyancy.Floater
	ch          chain.Chain
	drive       drivetrain.Drivetrain
	pneumo      *pneumatics.System
	gen         generator.Controller
	netForce    float64
	chainTorque float64
	loadTorque  float64
	outputPower float64
}

func (e *Engine) capture() backup {
	return backup{
		floaters:    append([]buoyancy.Floater(nil), e.floaters...),
		ch:          *e.ch,
		drive:       *e.drive,
		pneumo:      e.pneumo.Clone(),
		gen:         *e.gen,
		netForce:    e.netForce,
		chainTorque: e.chainTorque,
		loadTorque:  e.loadTorque,
		outputPower: e.outputPower,
	}
}

func (e *Engine) restore(b backup) {
	e.floaters = b.floaters
	*e.ch = b.ch
	*e.drive = b.drive
	e.pneumo = b.pneumo
	*e.gen = b.gen
	e.netForce = b.netForce
	e.chainTorque = b.chainTorque
	e.loadTorque = b.loadTorque
	e.outputPower = b.outputPower
}

// tick runs one fixed-step advance. It always completes: either the whole
// mutation commits or the whole mutation is rolled back.
func (e *Engine) tick(dt float64) {
	b := e.capture()
	wasOverloaded := e.gen.Overloaded()

	e.ch.Theta = chain.Wrap(e.ch.Theta + e.ch.Omega*dt)
	e.ch.SyncFloaters(e.floaters)

	events := e.pneumo.Step(e.floaters, e.clock.Time, dt)

	e.netForce = e.ch.NetForce(e.floaters, e.env, e.effects)
	e.chainTorque = e.ch.Torque(e.netForce)

	e.loadTorque = e.gen.Compute(e.drive.OmegaGen, dt)
	e.ch.Omega = e.drive.Step(e.chainTorque, e.loadTorque, e.ch.Omega, dt)
	e.outputPower = e.gen.Power(e.drive.OmegaGen)

	if !e.stateFinite() {
		e.restore(b)
		e.skippedTicks++
		e.log.Warn("numerical instability, tick rolled back",
			zap.Float64("time", e.clock.Time),
			zap.Uint64("skipped_total", e.skippedTicks),
		)
	} else {
		e.pendingEvents = append(e.pendingEvents, events...)
		if e.gen.Overloaded() && !wasOverloaded {
			e.log.Warn("generator overload",
				zap.Float64("time", e.clock.Time),
				zap.Float64("commanded_torque", e.gen.Commanded),
				zap.Float64("max_torque", e.gen.MaxTorque),
			)
		}
	}

	// Simulation time advances even across a skipped tick so the loop can
	// move past the fault.
	e.clock.Time += dt
	e.clock.Tick++

	e.stats.Push(e.outputPower, e.drive.OmegaGen)
	if e.clock.Tick%uint64(e.cfg.Sim.SnapshotStride) == 0 {
		e.publish()
	}
}

func (e *Engine) stateFinite() bool {
	for _, v := range [...]float64{
		e.ch.Theta, e.ch.Omega,
		e.netForce, e.chainTorque, e.loadTorque, e.outputPower,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if !e.drive.IsFinite() || !e.gen.IsFinite() || !e.pneumo.IsFinite() {
		return false
	}
	for i := range e.floaters {
		f := &e.floaters[i]
		if math.IsNaN(f.FillFraction) || math.IsInf(f.FillFraction, 0) ||
			math.IsNaN(f.LoopPosition) || math.IsInf(f.LoopPosition, 0) {
			return false
		}
	}
	return true
}

// Run drives the tick loop at wall-clock pace, one fixed dt per ticker
// fire, until ctx is canceled. Pausing stops integration but keeps the
// command queue responsive. Cancellation is cooperative: a tick in flight
// always completes.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.clock.Dt * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Info("run loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			e.log.Info("run loop stopped", zap.Float64("time", e.clock.Time))
			return ctx.Err()
		case <-ticker.C:
			e.drainCommands()
			// A reset may have swapped in a config with a new dt.
			if next := time.Duration(e.clock.Dt * float64(time.Second)); next != interval {
				interval = next
				ticker.Reset(interval)
				e.log.Info("tick interval changed", zap.Duration("interval", interval))
			}
			if e.running {
				e.tick(e.clock.Dt)
			}
		}
	}
}

// publish builds an immutable snapshot, stores it as latest, and fans it
// out to subscribers without ever blocking the loop.
func (e *Engine) publish() {
	snap := e.buildSnapshot()
	e.latest.Store(snap)

	e.mu.Lock()
	subs := e.subs
	e.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- *snap:
		default: // slow consumer drops frames
		}
	}
}

func (e *Engine) buildSnapshot() *Snapshot {
	floaters := make([]FloaterState, len(e.floaters))
	for i := range e.floaters {
		f := &e.floaters[i]
		floaters[i] = FloaterState{
			ID:           f.ID,
			LoopPosition: f.LoopPosition,
			Direction:    f.Direction,
			FillFraction: f.FillFraction,
			Valve:        f.Valve.String(),
		}
	}

	events := e.pendingEvents
	e.pendingEvents = nil

	return &Snapshot{
		RunID:         e.runID,
		Tick:          e.clock.Tick,
		Time:          e.clock.Time,
		Dt:            e.clock.Dt,
		Running:       e.running,
		ClutchEngaged: e.drive.Clutch == drivetrain.Engaged,
		ThetaChain:    e.ch.Theta,
		OmegaChain:    e.ch.Omega,
		OmegaGen:      e.drive.OmegaGen,
		NetForce:      e.netForce,
		ChainTorque:   e.chainTorque,
		LoadTorque:    e.loadTorque,
		OutputPower:   e.outputPower,
		TankPressure:  e.pneumo.TankPressure,
		Floaters:      floaters,
		Events:        events,
		Diag: Diagnostics{
			SkippedTicks:        e.skippedTicks,
			SchedulingConflicts: e.pneumo.Conflicts,
			Injections:          e.pneumo.Injections,
			Vents:               e.pneumo.Vents,
			OverloadActive:      e.gen.Overloaded(),
			OverloadCount:       e.gen.OverloadCount(),
		},
		Stats: e.stats.Stats(),
	}
}

// Latest returns the most recently published snapshot. Never nil after New.
func (e *Engine) Latest() *Snapshot {
	return e.latest.Load()
}

// Subscribe registers a snapshot channel fed every SnapshotStride ticks.
// The channel is buffered; frames are dropped rather than blocking the
// loop.
func (e *Engine) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 16)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

// Running reports whether the worker loop is integrating. Safe for
// concurrent use.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// RunID identifies this engine instance in snapshots and logs.
func (e *Engine) RunID() string { return e.runID }

// Config returns a copy of the active configuration. Safe for concurrent
// use.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Time returns the current simulation time.
func (e *Engine) Time() float64 { return e.clock.Time }
