package sim

import (
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

// Spatial frequency of the substrate relief noise, in inverse position
// units.
const reliefFrequency = 0.02

// applyOutOfPlane integrates the auxiliary out-of-plane coordinate. Crowded
// particles get pushed off the plane, a spring-damper pulls them back toward
// a Perlin relief height, and the excursion is hard-clamped. Z never feeds
// back into the planar forces; it only modulates rendering and gives dense
// clusters somewhere to go.
func (s *Simulation) applyOutOfPlane() {
	if !s.cfg.OutOfPlaneEnabled {
		return
	}
	dt := s.cfg.DT

	s.parallelNeighbors(len(s.bodies), func(lo, hi int, buf []int) {
		for i := lo; i < hi; i++ {
			b := &s.bodies[i]
			if b.Species == species.FoilMetal {
				b.Z, b.VZ, b.AZ = 0, 0, 0
				continue
			}

			crowd := 0.0
			buf = s.tree.NeighborsWithin(s.bodies, i, 2*b.Radius, buf[:0])
			for _, j := range buf {
				nb := &s.bodies[j]
				overlap := b.Radius + nb.Radius - geom.Dist(b.Pos, nb.Pos)
				if overlap > 0 {
					crowd += overlap / b.Radius
				}
			}

			rest := s.cfg.ZNoiseScale * s.noise.Noise2D(
				b.Pos.X*reliefFrequency, b.Pos.Y*reliefFrequency,
			)

			b.AZ = crowd - s.cfg.ZStiffness*(b.Z-rest) - s.cfg.ZDamping*b.VZ
			b.VZ += b.AZ * dt
			b.Z += b.VZ * dt

			if b.Z > s.cfg.MaxZ {
				b.Z, b.VZ = s.cfg.MaxZ, 0
			} else if b.Z < -s.cfg.MaxZ {
				b.Z, b.VZ = -s.cfg.MaxZ, 0
			}
		}
	})
}
