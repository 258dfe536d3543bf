package sim

import (
	"fmt"
	"runtime"

	"github.com/electroworks/ionsim/geom"
)

// Config is the immutable snapshot of every tunable physics constant,
// captured once at the start of each step. Collaborators update the pending
// config under the simulation lock; physics code only ever reads the copy.
type Config struct {
	DT float64

	// Quadtree parameters.
	Theta   float64
	Epsilon float64
	LeafCap int

	CoulombConstant float64

	// Half extents of the reflecting domain.
	DomainWidth  float64
	DomainHeight float64

	// Uniform external field added to every tree evaluation.
	BackgroundField geom.Vec

	// Base velocity damping per 0.01 time units; scaled by DT and by the
	// per-species damping factor.
	DampingBase float64

	// Collision resolution.
	CollisionPasses    int
	CollisionPassScale float64 // relaxation factor on each pairwise separation; >1 over-relaxes
	CollisionSoftness  float64 // global scale on per-species softness
	MaxLJForce         float64

	// Electron drift-spring dynamics.
	ElectronSpringK           float64
	ElectronMaxSpeedFactor    float64
	ElectronDriftRadiusFactor float64

	// Electron hopping.
	HopRadiusFactor      float64
	BVTransferCoeff      float64 // Butler-Volmer symmetry factor alpha
	BVOverpotentialScale float64
	BVExchangeCurrent    float64
	PhiPerCharge         float64 // local potential per unit net charge
	OverpotentialMargin  float64 // allowed margin above equilibrium potential
	HopAlignmentBias     float64
	VacancyPolarGain     float64

	// Electron-sea protection.
	SurroundRadiusFactor float64
	SurroundThreshold    int

	// Optional force stages.
	StackPressureEnabled  bool
	StackPressureStrength float64
	StackPressureDepth    float64

	OutOfPlaneEnabled bool
	ZStiffness        float64
	ZDamping          float64
	MaxZ              float64
	ZNoiseScale       float64

	// SEI formation.
	SEIEnabled           bool
	SEIFormationRate     float64
	SEIFormationBias     float64
	SEIElectronsPerEvent int
	SEIRadiusScale       float64

	// Intercalation.
	IntercalationEnabled bool
	IntercalationRate    float64
	HostCapacity         float64 // absorbed ions per host particle

	// Thermostat.
	TargetTemperature  float64
	ThermostatInterval int

	// Foil PID gains (OverpotentialMode).
	FoilKp, FoilKi, FoilKd float64

	Workers int
}

// DefaultConfig returns the empirically tuned defaults. Everything here is a
// calibration constant, not a first-principles value.
func DefaultConfig() Config {
	return Config{
		DT:      0.0025,
		Theta:   1.0,
		Epsilon: 2.0,
		LeafCap: 1,

		CoulombConstant: 449.4,

		DomainWidth:  350,
		DomainHeight: 350,

		DampingBase: 0.999,

		CollisionPasses:    7,
		CollisionPassScale: 1.5,
		CollisionSoftness:  1.0,
		MaxLJForce:         100,

		ElectronSpringK:           0.05,
		ElectronMaxSpeedFactor:    1.2,
		ElectronDriftRadiusFactor: 1.2,

		HopRadiusFactor:      1.8,
		BVTransferCoeff:      0.5,
		BVOverpotentialScale: 0.5,
		BVExchangeCurrent:    80,
		PhiPerCharge:         1.0,
		OverpotentialMargin:  0.05,
		HopAlignmentBias:     1.0,
		VacancyPolarGain:     0.0,

		SurroundRadiusFactor: 2.2,
		SurroundThreshold:    5,

		StackPressureStrength: 2.0,
		StackPressureDepth:    20,

		ZStiffness:  4.0,
		ZDamping:    1.5,
		MaxZ:        1.0,
		ZNoiseScale: 0.15,

		SEIFormationRate:     0.4,
		SEIFormationBias:     1.0,
		SEIElectronsPerEvent: 1,
		SEIRadiusScale:       1.3,

		IntercalationRate: 0.01,
		HostCapacity:      1.0,

		TargetTemperature:  300,
		ThermostatInterval: 100,

		FoilKp: 2.0,
		FoilKi: 0.5,
		FoilKd: 0.0,

		Workers: runtime.NumCPU(),
	}
}

// CheckInit validates a config before it is accepted as the pending
// snapshot.
func (cfg *Config) CheckInit() error {
	if cfg.DT <= 0 {
		return fmt.Errorf("Timestep must be positive, but is %g.", cfg.DT)
	}
	if cfg.Theta < 0 {
		return fmt.Errorf("Theta must be non-negative, but is %g.", cfg.Theta)
	}
	if cfg.DomainWidth <= 0 || cfg.DomainHeight <= 0 {
		return fmt.Errorf(
			"Domain half extents must be positive, but are %g x %g.",
			cfg.DomainWidth, cfg.DomainHeight,
		)
	}
	if cfg.CollisionPasses < 1 {
		return fmt.Errorf(
			"Need at least one collision pass, but got %d.", cfg.CollisionPasses,
		)
	}
	if cfg.CollisionPassScale <= 0 || cfg.CollisionPassScale >= 2 {
		return fmt.Errorf(
			"Collision pass scale must be in (0, 2), but is %g.",
			cfg.CollisionPassScale,
		)
	}
	if cfg.BVTransferCoeff <= 0 || cfg.BVTransferCoeff >= 1 {
		return fmt.Errorf(
			"Butler-Volmer transfer coefficient must be in (0, 1), but is %g.",
			cfg.BVTransferCoeff,
		)
	}
	if cfg.ThermostatInterval < 1 {
		return fmt.Errorf(
			"Thermostat interval must be at least 1, but is %d.",
			cfg.ThermostatInterval,
		)
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	return nil
}
