// Package config defines the engine configuration, its defaults and
// validation, and YAML load/save helpers.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ole-kvern/buoysim/internal/buoyancy"
	"github.com/ole-kvern/buoysim/internal/drivetrain"
)

// Configuration faults abort startup; they are never runtime errors.
var (
	ErrInvalidTimestep = errors.New("config: dt must be positive")
	ErrInvalidFloater  = errors.New("config: floater volume, mass and area must be positive")
	ErrInvalidChain    = errors.New("config: sprocket radius must be positive")
	ErrInvalidPneumo   = errors.New("config: pneumatic durations and pressures must be positive")
	ErrInvalidStride   = errors.New("config: snapshot stride must be at least 1")
)

const (
	DefaultDt             = 0.01
	DefaultFloaterCount   = 8
	DefaultFloaterVolume  = 0.1  // m^3
	DefaultFloaterMass    = 12.0 // kg empty
	DefaultFloaterArea    = 0.2  // m^2
	DefaultSprocketRadius = 0.5  // m

	DefaultTargetSpeed = 31.4 // rad/s, ~300 rpm
	DefaultKp          = 5.0
	DefaultKi          = 0.5
)

type Config struct {
	Sim        SimConfig        `yaml:"sim"`
	Floaters   FloaterConfig    `yaml:"floaters"`
	Chain      ChainConfig      `yaml:"chain"`
	Drivetrain DrivetrainConfig `yaml:"drivetrain"`
	Pneumatics PneumaticsConfig `yaml:"pneumatics"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Env        EnvConfig        `yaml:"environment"`
	Effects    buoyancy.Effects `yaml:"effects"`
}

type SimConfig struct {
	Dt             float64 `yaml:"dt"`
	Duration       float64 `yaml:"duration"`
	SnapshotStride int     `yaml:"snapshot_stride"`
}

type FloaterConfig struct {
	Count        int     `yaml:"count"`
	Volume       float64 `yaml:"volume"`
	MassEmpty    float64 `yaml:"mass_empty"`
	CrossSection float64 `yaml:"cross_section"`

	// PrimeAscending starts ascending-side floaters air-filled so the
	// loop has net drive from the first tick. An all-heavy ring is
	// force-balanced and would never move.
	PrimeAscending bool `yaml:"prime_ascending"`
}

type ChainConfig struct {
	Radius float64 `yaml:"radius"`
}

type DrivetrainConfig struct {
	GearRatio  float64 `yaml:"gear_ratio"`
	JChain     float64 `yaml:"j_chain"`
	JFlywheel  float64 `yaml:"j_flywheel"`
	JGenerator float64 `yaml:"j_generator"`
	ChainDrag  float64 `yaml:"chain_drag"`
	GenDrag    float64 `yaml:"gen_drag"`
	Hysteresis float64 `yaml:"hysteresis"`
}

type PneumaticsConfig struct {
	InjectionDuration float64 `yaml:"injection_duration"`
	VentDuration      float64 `yaml:"vent_duration"`
	BottomAngle       float64 `yaml:"bottom_angle"`
	TopAngle          float64 `yaml:"top_angle"`
	NominalPressure   float64 `yaml:"nominal_pressure"`
	PressureDropPerM3 float64 `yaml:"pressure_drop_per_m3"`
	RecoveryRate      float64 `yaml:"recovery_rate"`
}

type GeneratorConfig struct {
	Mode          string  `yaml:"mode"` // "speed" or "torque"
	TargetSpeed   float64 `yaml:"target_speed"`
	TargetTorque  float64 `yaml:"target_torque"`
	MaxTorque     float64 `yaml:"max_torque"`
	Efficiency    float64 `yaml:"efficiency"`
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	OverloadAfter float64 `yaml:"overload_after"`
}

type EnvConfig struct {
	WaterDensity float64 `yaml:"water_density"`
	Gravity      float64 `yaml:"gravity"`
	DragCoeff    float64 `yaml:"drag_coeff"`
}

func DefaultConfig() *Config {
	return &Config{
		Sim: SimConfig{
			Dt:             DefaultDt,
			Duration:       60.0,
			SnapshotStride: 1,
		},
		Floaters: FloaterConfig{
			Count:          DefaultFloaterCount,
			Volume:         DefaultFloaterVolume,
			MassEmpty:      DefaultFloaterMass,
			CrossSection:   DefaultFloaterArea,
			PrimeAscending: true,
		},
		Chain: ChainConfig{
			Radius: DefaultSprocketRadius,
		},
		Drivetrain: DrivetrainConfig{
			GearRatio:  2.0,
			JChain:     5.0,
			JFlywheel:  20.0,
			JGenerator: 2.0,
			ChainDrag:  0.8,
			GenDrag:    0.05,
			Hysteresis: drivetrain.HysteresisMargin,
		},
		Pneumatics: PneumaticsConfig{
			InjectionDuration: 0.5,
			VentDuration:      0.4,
			BottomAngle:       0.1,
			TopAngle:          math.Pi + 0.1,
			NominalPressure:   500000,
			PressureDropPerM3: 120000,
			RecoveryRate:      0.5,
		},
		Generator: GeneratorConfig{
			Mode:          "speed",
			TargetSpeed:   DefaultTargetSpeed,
			MaxTorque:     300,
			Efficiency:    0.92,
			Kp:            DefaultKp,
			Ki:            DefaultKi,
			OverloadAfter: 2.0,
		},
		Env: EnvConfig{
			WaterDensity: buoyancy.DefaultWaterDensity,
			Gravity:      buoyancy.DefaultGravity,
			DragCoeff:    buoyancy.DefaultDragCoeff,
		},
		Effects: buoyancy.DefaultEffects(),
	}
}

// Validate checks every section; the first fault is returned wrapped in the
// matching sentinel.
func (c *Config) Validate() error {
	if c.Sim.Dt <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidTimestep, c.Sim.Dt)
	}
	if c.Sim.SnapshotStride < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidStride, c.Sim.SnapshotStride)
	}
	if c.Floaters.Count < 1 {
		return fmt.Errorf("%w: count %d", ErrInvalidFloater, c.Floaters.Count)
	}
	if c.Floaters.Volume <= 0 || c.Floaters.MassEmpty <= 0 || c.Floaters.CrossSection <= 0 {
		return fmt.Errorf("%w: volume %g, mass %g, area %g",
			ErrInvalidFloater, c.Floaters.Volume, c.Floaters.MassEmpty, c.Floaters.CrossSection)
	}
	if c.Chain.Radius <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidChain, c.Chain.Radius)
	}
	if c.Drivetrain.GearRatio <= 0 {
		return fmt.Errorf("%w: got %g", drivetrain.ErrInvalidGearRatio, c.Drivetrain.GearRatio)
	}
	if c.Drivetrain.JChain <= 0 || c.Drivetrain.JFlywheel <= 0 || c.Drivetrain.JGenerator <= 0 {
		return fmt.Errorf("%w: chain %g, flywheel %g, generator %g",
			drivetrain.ErrNonPositiveInertia,
			c.Drivetrain.JChain, c.Drivetrain.JFlywheel, c.Drivetrain.JGenerator)
	}
	if c.Pneumatics.InjectionDuration <= 0 || c.Pneumatics.VentDuration <= 0 ||
		c.Pneumatics.NominalPressure <= 0 {
		return fmt.Errorf("%w: injection %g, vent %g, pressure %g", ErrInvalidPneumo,
			c.Pneumatics.InjectionDuration, c.Pneumatics.VentDuration, c.Pneumatics.NominalPressure)
	}
	if c.Generator.Mode != "speed" && c.Generator.Mode != "torque" {
		return fmt.Errorf("config: unknown generator mode %q", c.Generator.Mode)
	}
	if c.Generator.MaxTorque <= 0 || c.Generator.Efficiency <= 0 || c.Generator.Efficiency > 1 {
		return fmt.Errorf("config: max torque %g and efficiency %g out of range",
			c.Generator.MaxTorque, c.Generator.Efficiency)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
