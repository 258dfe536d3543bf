package sim

import (
	"math"

	"github.com/electroworks/ionsim/species"
)

// Boltzmann constant in simulation energy units per kelvin.
const kBoltzmann = 8.617333262e-5

// Clamp on the per-application velocity rescale so a single thermostat tick
// never violently reshapes the velocity distribution.
const (
	minThermoScale = 0.1
	maxThermoScale = 10.0
)

// applyThermostat rescales liquid-phase velocities toward the target
// temperature. Solids and foils are left alone so lattice structure is not
// shaken apart. Bulk drift is excluded from the temperature estimate and
// preserved through the rescale.
func (s *Simulation) applyThermostat() {
	if s.cfg.TargetTemperature <= 0 {
		return
	}

	liquid := s.neighborBuf[:0]
	for i := range s.bodies {
		if species.IsLiquid(s.bodies[i].Species) {
			liquid = append(liquid, i)
		}
	}
	s.neighborBuf = liquid
	if len(liquid) == 0 {
		return
	}

	var driftX, driftY, totalMass float64
	for _, i := range liquid {
		b := &s.bodies[i]
		driftX += b.Mass * b.Vel.X
		driftY += b.Mass * b.Vel.Y
		totalMass += b.Mass
	}
	driftX /= totalMass
	driftY /= totalMass

	ke := 0.0
	for _, i := range liquid {
		b := &s.bodies[i]
		dx, dy := b.Vel.X-driftX, b.Vel.Y-driftY
		ke += 0.5 * b.Mass * (dx*dx + dy*dy)
	}
	// Two translational degrees of freedom per particle.
	current := ke / (float64(len(liquid)) * kBoltzmann)

	if current <= 1e-3 {
		s.bootstrapVelocities(liquid)
		return
	}

	scale := math.Sqrt(s.cfg.TargetTemperature / current)
	if scale < minThermoScale {
		scale = minThermoScale
	} else if scale > maxThermoScale {
		scale = maxThermoScale
	}
	for _, i := range liquid {
		b := &s.bodies[i]
		b.Vel.X = driftX + (b.Vel.X-driftX)*scale
		b.Vel.Y = driftY + (b.Vel.Y-driftY)*scale
	}

	s.log.WithField("temperature", current).
		WithField("scale", scale).
		Debug("Thermostat applied")
}

// bootstrapVelocities seeds a Maxwell-Boltzmann distribution at the target
// temperature. Used when the liquid starts cold, where a multiplicative
// rescale has nothing to amplify.
func (s *Simulation) bootstrapVelocities(liquid []int) {
	for _, i := range liquid {
		b := &s.bodies[i]
		sigma := math.Sqrt(kBoltzmann * s.cfg.TargetTemperature / b.Mass)
		b.Vel.X = s.rng.Gaussian(0, sigma)
		b.Vel.Y = s.rng.Gaussian(0, sigma)
	}
	s.log.WithField("particles", len(liquid)).
		Debug("Thermostat bootstrapped cold liquid")
}

// Temperature reports the instantaneous drift-corrected liquid temperature.
// Returns zero when no liquid particles exist.
func (s *Simulation) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var driftX, driftY, totalMass float64
	n := 0
	for i := range s.bodies {
		b := &s.bodies[i]
		if !species.IsLiquid(b.Species) {
			continue
		}
		driftX += b.Mass * b.Vel.X
		driftY += b.Mass * b.Vel.Y
		totalMass += b.Mass
		n++
	}
	if n == 0 {
		return 0
	}
	driftX /= totalMass
	driftY /= totalMass

	ke := 0.0
	for i := range s.bodies {
		b := &s.bodies[i]
		if !species.IsLiquid(b.Species) {
			continue
		}
		dx, dy := b.Vel.X-driftX, b.Vel.Y-driftY
		ke += 0.5 * b.Mass * (dx*dx + dy*dy)
	}
	return ke / (float64(n) * kBoltzmann)
}
