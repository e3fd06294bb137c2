package buoyancy

import "fmt"

// Effect names accepted by Effects.Toggle.
const (
	EffectNanobubble = "nanobubble"
	EffectThermal    = "thermal"
)

// Effects is the explicit block of named force-assist multipliers. Each
// effect is a tunable factor with its own enable flag; disabled effects
// contribute a factor of exactly 1.
type Effects struct {
	// Nanobubble aeration lowers the effective drag on the moving floaters.
	NanobubbleEnabled    bool    `yaml:"nanobubble_enabled"`
	NanobubbleDragFactor float64 `yaml:"nanobubble_drag_factor"`

	// Thermal expansion of the injected air boosts the buoyant force.
	ThermalEnabled        bool    `yaml:"thermal_enabled"`
	ThermalBuoyancyFactor float64 `yaml:"thermal_buoyancy_factor"`
}

// DefaultEffects returns all effects disabled with conventional factors.
func DefaultEffects() Effects {
	return Effects{
		NanobubbleDragFactor:  0.7,
		ThermalBuoyancyFactor: 1.1,
	}
}

func (e Effects) BuoyancyFactor() float64 {
	if e.ThermalEnabled && e.ThermalBuoyancyFactor > 0 {
		return e.ThermalBuoyancyFactor
	}
	return 1
}

func (e Effects) DragFactor() float64 {
	if e.NanobubbleEnabled && e.NanobubbleDragFactor > 0 {
		return e.NanobubbleDragFactor
	}
	return 1
}

// Toggle enables or disables an effect by name.
func (e *Effects) Toggle(name string, enabled bool) error {
	switch name {
	case EffectNanobubble:
		e.NanobubbleEnabled = enabled
	case EffectThermal:
		e.ThermalEnabled = enabled
	default:
		return fmt.Errorf("buoyancy: unknown effect %q", name)
	}
	return nil
}
