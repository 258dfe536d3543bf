package sim

import (
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

// resolveCollisions removes hard-sphere interpenetration with a fixed number
// of correction passes. Pairs are corrected sequentially and in place, so
// later pairs in the same pass already see the updated positions; with the
// default over-relaxed pass scale this successive-over-relaxation sweep
// drives a densely packed cluster to near-zero overlap within the configured
// pass count, where a buffered half-step update would still be far from
// converged. Each body visits all of its neighbors, so a pair pushed back
// into contact earlier in the pass is resolved again when its second member
// comes up; each pass also rebuilds the tree. Elastic velocity exchange
// happens once per detected pair, on the first pass only, to avoid injecting
// energy.
func (s *Simulation) resolveCollisions() {
	n := len(s.bodies)
	if n < 2 {
		return
	}
	maxRadius := 0.0
	for i := range s.bodies {
		if s.bodies[i].Radius > maxRadius {
			maxRadius = s.bodies[i].Radius
		}
	}
	scale := s.cfg.CollisionPassScale

	buf := s.neighborBuf
	for pass := 0; pass < s.cfg.CollisionPasses; pass++ {
		s.tree.Build(s.bodies)
		if pass == 0 {
			s.exchangeVelocities(maxRadius)
		}

		for i := 0; i < n; i++ {
			a := &s.bodies[i]
			buf = s.tree.NeighborsWithin(s.bodies, i, a.Radius+maxRadius, buf)
			for _, j := range buf {
				b := &s.bodies[j]
				d := b.Pos.Sub(a.Pos)
				r := a.Radius + b.Radius
				if d.MagSq() >= r*r {
					continue
				}
				dist := d.Mag()
				dir := d.Normalized()
				if dir.IsZero() {
					// Coincident pair: push along a fixed axis.
					dir = geom.Vec{X: 1}
					dist = 0
				}
				soft := s.pairSoftness(a.Species, b.Species)
				push := (r - dist) * scale * (1 - soft)
				// Mass-weighted share: a near-infinite foil mass leaves
				// the wall in place.
				share := b.Mass / (a.Mass + b.Mass)
				a.Pos = a.Pos.Sub(dir.Scale(push * share))
				b.Pos = b.Pos.Add(dir.Scale(push * (1 - share)))
			}
		}
	}
	s.neighborBuf = buf
}

// pairSoftness combines the two species' softness factors: the softer
// species dominates, scaled by the global collision-softness knob.
func (s *Simulation) pairSoftness(a, b species.Species) float64 {
	sa := species.ByTag(a).Softness
	sb := species.ByTag(b).Softness
	soft := sa
	if sb > soft {
		soft = sb
	}
	return geom.Clamp(soft*s.cfg.CollisionSoftness, 0, 1)
}

// exchangeVelocities performs the elastic collision response for every
// overlapping, approaching pair: the normal components exchange per the 1D
// elastic formulas, conserving momentum and kinetic energy along the normal.
func (s *Simulation) exchangeVelocities(maxRadius float64) {
	buf := s.neighborBuf
	for i := range s.bodies {
		a := &s.bodies[i]
		buf = s.tree.NeighborsWithin(s.bodies, i, a.Radius+maxRadius, buf)
		for _, j := range buf {
			if j <= i {
				continue
			}
			b := &s.bodies[j]
			d := b.Pos.Sub(a.Pos)
			r := a.Radius + b.Radius
			if d.MagSq() >= r*r {
				continue
			}
			normal := d.Normalized()
			if normal.IsZero() {
				continue
			}
			rel := b.Vel.Sub(a.Vel)
			if rel.Dot(normal) >= 0 {
				// Already separating.
				continue
			}
			v1n := a.Vel.Dot(normal)
			v2n := b.Vel.Dot(normal)
			m1, m2 := a.Mass, b.Mass
			v1After := (v1n*(m1-m2) + 2*m2*v2n) / (m1 + m2)
			v2After := (v2n*(m2-m1) + 2*m1*v1n) / (m1 + m2)
			a.Vel = a.Vel.Add(normal.Scale(v1After - v1n))
			b.Vel = b.Vel.Add(normal.Scale(v2After - v2n))
		}
	}
	s.neighborBuf = buf
}
