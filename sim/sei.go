package sim

import (
	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/species"
)

// Relative decomposition rates. Film-forming additives break down first,
// linear carbonates are the most reluctant.
var seiRateFactor = map[species.Species]float64{
	species.EC:  1.0,
	species.VC:  2.5,
	species.FEC: 2.0,
	species.DMC: 0.4,
	species.EMC: 0.4,
}

// Minimum electron surplus a reduced metal neighbor must carry before it can
// decompose the given solvent.
var seiSurplusNeeded = map[species.Species]int{
	species.EC:  1,
	species.VC:  1,
	species.FEC: 1,
	species.DMC: 2,
	species.EMC: 2,
}

// performSEI decomposes solvent molecules touching sufficiently reduced
// lithium metal. The consumed electrons leave the system through the solvent,
// which is the second explicit electron destruction boundary. The product
// particle is inert, swollen, and slow.
func (s *Simulation) performSEI() {
	if !s.cfg.SEIEnabled || s.cfg.SEIFormationRate <= 0 {
		return
	}

	for i := range s.bodies {
		b := &s.bodies[i]
		factor, ok := seiRateFactor[b.Species]
		if !ok {
			continue
		}
		needed := seiSurplusNeeded[b.Species]

		donor := -1
		radius := s.cfg.HopRadiusFactor * b.Radius
		s.neighborBuf = s.tree.NeighborsWithin(s.bodies, i, radius, s.neighborBuf[:0])
		for _, j := range s.neighborBuf {
			nb := &s.bodies[j]
			if nb.Species != species.LithiumMetal {
				continue
			}
			if nb.ElectronSurplus() < needed {
				continue
			}
			if nb.Electrons.Len() < s.cfg.SEIElectronsPerEvent {
				continue
			}
			donor = j
			break
		}
		if donor < 0 {
			continue
		}

		p := s.cfg.SEIFormationRate * factor * s.cfg.SEIFormationBias * s.cfg.DT
		if p > 1 {
			p = 1
		}
		if s.rng.Float64() >= p {
			continue
		}

		d := &s.bodies[donor]
		for k := 0; k < s.cfg.SEIElectronsPerEvent; k++ {
			d.Electrons.Pop()
		}
		d.UpdateCharge()
		s.seiElectronsConsumed += int64(s.cfg.SEIElectronsPerEvent)

		s.convertToSEI(b)
	}
}

// convertToSEI rewrites a solvent particle in place as film material. The
// particle keeps its position and identity but swells, neutralizes, and
// sheds almost all of its velocity.
func (s *Simulation) convertToSEI(b *body.Body) {
	oldRadius := b.Radius
	p := species.ByTag(species.SEI)
	b.Species = species.SEI
	b.Mass = p.Mass
	b.Radius = oldRadius * s.cfg.SEIRadiusScale
	b.Electrons.Clear()
	for k := 0; k < p.NeutralElectrons; k++ {
		b.Electrons.Push(body.Electron{})
	}
	b.UpdateCharge()
	b.Vel = b.Vel.Scale(0.1)

	s.log.WithField("id", b.ID).Debug("Solvent converted to SEI")
}

// SEIElectronsConsumed reports the cumulative electrons destroyed by film
// formation since the simulation was created.
func (s *Simulation) SEIElectronsConsumed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seiElectronsConsumed
}
