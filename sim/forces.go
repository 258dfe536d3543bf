package sim

import (
	"math"

	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

// accumForces populates every body's acceleration from the four independent
// contributions: Coulomb, Lennard-Jones, polar dipole and stack pressure.
// Contributions are additive; no coupling between force types happens here.
func (s *Simulation) accumForces() {
	s.parallel(len(s.bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.bodies[i].Acc = geom.Vec{}
		}
	})

	s.applyCoulomb()
	s.applyLJ()
	s.applyPolar()
	s.applyRepulsion()
	if s.cfg.StackPressureEnabled {
		s.applyStackPressure()
	}
}

// applyCoulomb accumulates the tree-evaluated electrostatic acceleration:
// q * E / m. Bodies with no charge and no dipole skip the walk entirely.
func (s *Simulation) applyCoulomb() {
	k := s.cfg.CoulombConstant
	bg := s.cfg.BackgroundField
	s.parallel(len(s.bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.bodies[i]
			if b.Charge == 0 && !b.PolarDipole() {
				continue
			}
			field := s.tree.FieldAt(s.bodies, b.Pos, b.Radius, k).Add(bg)
			if b.Charge != 0 {
				b.Acc = b.Acc.Add(field.Scale(b.Charge / b.Mass))
			}
		}
	})
}

// applyLJ accumulates pairwise Lennard-Jones forces between species that
// both enable LJ, using the mixing rule from the species table. The force
// magnitude is clamped to keep deep overlap from launching particles.
func (s *Simulation) applyLJ() {
	maxCutoff := species.MaxLJCutoff()
	if maxCutoff == 0 {
		return
	}
	maxForce := s.cfg.MaxLJForce

	// Pairwise symmetric accumulation writes both sides, so this phase
	// stays sequential; the j > i guard visits each pair once.
	buf := s.neighborBuf
	for i := range s.bodies {
		a := &s.bodies[i]
		pa := species.ByTag(a.Species)
		if !pa.LJEnabled {
			continue
		}
		buf = s.tree.NeighborsWithin(s.bodies, i, maxCutoff, buf)
		for _, j := range buf {
			if j <= i {
				continue
			}
			b := &s.bodies[j]
			if !species.ByTag(b.Species).LJEnabled {
				continue
			}
			epsilon, sigma := species.MixLJ(a.Species, b.Species)
			cutoff := pa.LJCutoff * sigma

			rVec := b.Pos.Sub(a.Pos)
			r := rVec.Mag()
			if r >= cutoff || r < 1e-6 {
				continue
			}
			sr6 := math.Pow(sigma/r, 6)
			mag := 24 * epsilon * (2*sr6*sr6 - sr6) / r
			mag = geom.Clamp(mag, -maxForce, maxForce)
			force := rVec.Normalized().Scale(mag)
			a.Acc = a.Acc.Sub(force.Scale(1 / a.Mass))
			b.Acc = b.Acc.Add(force.Scale(1 / b.Mass))
		}
	}
	s.neighborBuf = buf
}

// applyPolar accumulates the dipole reaction force on polar bodies: the
// difference between the field at the drifted electron position and at the
// molecular center, times the drift charge. This lets uncharged polar
// solvents orient around ions without any LJ attraction.
func (s *Simulation) applyPolar() {
	k := s.cfg.CoulombConstant
	bg := s.cfg.BackgroundField
	s.parallel(len(s.bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.bodies[i]
			if !b.PolarDipole() || b.Electrons.Len() == 0 {
				continue
			}
			p := species.ByTag(b.Species)
			for e := 0; e < b.Electrons.Len(); e++ {
				rel := b.Electrons.At(e).Rel
				if rel.IsZero() {
					continue
				}
				atElectron := s.tree.FieldAt(s.bodies, b.Pos.Add(rel), 0, k).Add(bg)
				atCenter := s.tree.FieldAt(s.bodies, b.Pos, 0, k).Add(bg)
				grad := atElectron.Sub(atCenter)
				b.Acc = b.Acc.Add(grad.Scale(-p.PolarCharge / b.Mass))
			}
		}
	})
}

// applyRepulsion accumulates the short-range osmotic repulsion between
// crowded solvent molecules.
func (s *Simulation) applyRepulsion() {
	maxCutoff := species.MaxRepulsionCutoff()
	if maxCutoff == 0 {
		return
	}
	buf := s.neighborBuf
	for i := range s.bodies {
		a := &s.bodies[i]
		pa := species.ByTag(a.Species)
		if !pa.RepulsionEnabled {
			continue
		}
		buf = s.tree.NeighborsWithin(s.bodies, i, pa.RepulsionCutoff, buf)
		for _, j := range buf {
			if j <= i {
				continue
			}
			b := &s.bodies[j]
			pb := species.ByTag(b.Species)
			if !pb.RepulsionEnabled {
				continue
			}
			rVec := b.Pos.Sub(a.Pos)
			r := rVec.Mag()
			if r < 1e-6 {
				continue
			}
			cutoff := math.Min(pa.RepulsionCutoff, pb.RepulsionCutoff)
			if r >= cutoff {
				continue
			}
			strength := math.Sqrt(pa.RepulsionStrength * pb.RepulsionStrength)
			mag := strength * (1 - r/cutoff)
			force := rVec.Normalized().Scale(mag)
			a.Acc = a.Acc.Sub(force.Scale(1 / a.Mass))
			b.Acc = b.Acc.Add(force.Scale(1 / b.Mass))
		}
	}
	s.neighborBuf = buf
}

// applyStackPressure pushes particles near the left and right walls inward,
// decaying linearly over the configured depth. It approximates mechanical
// cell confinement.
func (s *Simulation) applyStackPressure() {
	strength := s.cfg.StackPressureStrength
	depth := s.cfg.StackPressureDepth
	w := s.cfg.DomainWidth
	if depth <= 0 {
		return
	}
	s.parallel(len(s.bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.bodies[i]
			left := b.Pos.X + w   // distance from left wall
			right := w - b.Pos.X  // distance from right wall
			if left < depth {
				b.Acc.X += strength * (1 - left/depth) / b.Mass
			}
			if right < depth {
				b.Acc.X -= strength * (1 - right/depth) / b.Mass
			}
		}
	})
}
