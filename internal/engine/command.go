package engine

import (
	"go.uber.org/zap"

	"github.com/ole-kvern/buoysim/internal/config"
	"github.com/ole-kvern/buoysim/internal/generator"
)

// Command is a mutation request queued by external callers and applied at
// the next tick boundary. Commands never run concurrently with a tick.
type Command interface {
	apply(e *Engine)
}

// Pause stops the worker loop from ticking; queued commands still apply.
type Pause struct{}

func (Pause) apply(e *Engine) {
	if e.running {
		e.setRunning(false)
		e.log.Info("simulation paused", zap.Float64("time", e.clock.Time))
	}
}

// Resume restarts a paused worker loop.
type Resume struct{}

func (Resume) apply(e *Engine) {
	if !e.running {
		e.setRunning(true)
		e.log.Info("simulation resumed", zap.Float64("time", e.clock.Time))
	}
}

// Reset destroys and recreates the full entity set. A nil Cfg reuses the
// engine's current configuration. An invalid Cfg is rejected and logged;
// the running state is kept.
type Reset struct {
	Cfg *config.Config
}

func (r Reset) apply(e *Engine) {
	cfg := r.Cfg
	if cfg == nil {
		c := e.cfg
		cfg = &c
	}
	if err := e.rebuild(cfg); err != nil {
		e.log.Error("reset rejected", zap.Error(err))
		return
	}
	e.log.Info("simulation reset", zap.Int("floaters", len(e.floaters)))
}

// SetGeneratorMode switches regulation mode and retunes the controller.
type SetGeneratorMode struct {
	Mode         string // "speed" or "torque"
	TargetSpeed  float64
	TargetTorque float64
	Kp, Ki       float64
}

func (c SetGeneratorMode) apply(e *Engine) {
	switch c.Mode {
	case "speed":
		e.gen.SetSpeedTarget(c.TargetSpeed, c.Kp, c.Ki)
	case "torque":
		e.gen.SetTorqueTarget(c.TargetTorque)
	default:
		e.log.Error("unknown generator mode", zap.String("mode", c.Mode))
		return
	}
	e.updateConfig(func(cfg *config.Config) {
		cfg.Generator.Mode = c.Mode
		cfg.Generator.TargetSpeed = c.TargetSpeed
		cfg.Generator.TargetTorque = c.TargetTorque
	})
	e.log.Info("generator mode changed", zap.String("mode", c.Mode))
}

// SetTarget retunes the active mode's setpoint without clearing controller
// state.
type SetTarget struct {
	Value float64
}

func (c SetTarget) apply(e *Engine) {
	if e.gen.Mode == generator.TorqueRegulation {
		e.gen.TargetTorque = c.Value
		e.updateConfig(func(cfg *config.Config) { cfg.Generator.TargetTorque = c.Value })
	} else {
		e.gen.TargetSpeed = c.Value
		e.updateConfig(func(cfg *config.Config) { cfg.Generator.TargetSpeed = c.Value })
	}
}

// SetFloaterCount rebuilds the floater ring with n floaters. Chain and
// drivetrain state are preserved; the new floaters start water-filled.
type SetFloaterCount struct {
	N int
}

func (c SetFloaterCount) apply(e *Engine) {
	if c.N < 1 {
		e.log.Error("floater count must be at least 1", zap.Int("n", c.N))
		return
	}
	e.updateConfig(func(cfg *config.Config) { cfg.Floaters.Count = c.N })
	e.resizeFloaters(c.N)
	e.log.Info("floater count changed", zap.Int("n", c.N))
}

// ToggleEffect enables or disables a named force-assist effect.
type ToggleEffect struct {
	Name    string
	Enabled bool
}

func (c ToggleEffect) apply(e *Engine) {
	if err := e.effects.Toggle(c.Name, c.Enabled); err != nil {
		e.log.Error("toggle effect", zap.Error(err))
		return
	}
	e.updateConfig(func(cfg *config.Config) { cfg.Effects = e.effects })
	e.log.Info("effect toggled", zap.String("effect", c.Name), zap.Bool("enabled", c.Enabled))
}
