package sim

import (
	"math"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

// updateElectrons advances the drift-spring dynamics of every bound
// electron. The drift offset polarizes the parent particle; it never changes
// electron count or charge. Species with zero polar offset keep their
// electrons centered and skip the field walks.
func (s *Simulation) updateElectrons() {
	dt := s.cfg.DT
	k := s.cfg.ElectronSpringK
	kc := s.cfg.CoulombConstant
	bg := s.cfg.BackgroundField

	s.parallel(len(s.bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.bodies[i]
			p := species.ByTag(b.Species)
			if b.Electrons.Len() == 0 || p.PolarOffset == 0 {
				continue
			}
			maxDrift := s.cfg.ElectronDriftRadiusFactor * p.PolarOffset * b.Radius
			maxSpeed := s.cfg.ElectronMaxSpeedFactor * b.Radius / dt
			for e := 0; e < b.Electrons.Len(); e++ {
				el := b.Electrons.At(e)
				local := s.tree.FieldAt(s.bodies, b.Pos.Add(el.Rel), 0, kc).Add(bg)
				el.Vel = el.Vel.Add(local.Scale(-k * dt))
				if speed := el.Vel.Mag(); speed > maxSpeed {
					el.Vel = el.Vel.Scale(maxSpeed / speed)
				}
				el.Rel = el.Rel.Add(el.Vel.Scale(dt))
				if drift := el.Rel.Mag(); drift > maxDrift {
					el.Rel = el.Rel.Scale(maxDrift / drift)
				}
			}
		}
	})
}

// localPotential maps a body's net charge to its local electrochemical
// potential: more negative charge means a lower, more reducing potential.
// Foil members see the external bias from their foil's drive on top.
func (s *Simulation) localPotential(i int, bias []float64) float64 {
	phi := s.cfg.PhiPerCharge * s.bodies[i].Charge
	if bias != nil {
		phi += bias[i]
	}
	return phi
}

// butlerVolmer is the overpotential-to-rate expression with symmetry factor
// alpha: rate = i0 * (exp(alpha*eta/scale) - exp(-(1-alpha)*eta/scale)).
func (s *Simulation) butlerVolmer(eta float64) float64 {
	alpha := s.cfg.BVTransferCoeff
	scale := s.cfg.BVOverpotentialScale
	forward := math.Exp(alpha * eta / scale)
	backward := math.Exp(-(1 - alpha) * eta / scale)
	return s.cfg.BVExchangeCurrent * (forward - backward)
}

// performHopping runs the per-step electron transfer pass. Donors are
// visited in shuffled order; each donor hops at most one electron and each
// acceptor receives at most one, which keeps the pass order-independent
// enough for reproducibility while preventing charge pile-ups.
//
// excluded marks bodies that already received an electron from a foil drive
// this step and must not immediately donate it back.
func (s *Simulation) performHopping(excluded []bool) {
	n := len(s.bodies)
	if n == 0 {
		return
	}
	bias := s.foilBiasByIndex()

	maxRadius := 0.0
	for i := range s.bodies {
		if s.bodies[i].Radius > maxRadius {
			maxRadius = s.bodies[i].Radius
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	s.rng.Shuffle(order)

	received := make([]bool, n)
	donated := make([]bool, n)
	buf := s.neighborBuf

	for _, src := range order {
		if donated[src] || (excluded != nil && excluded[src]) {
			continue
		}
		srcBody := &s.bodies[src]
		if !species.IsConductor(srcBody.Species) || srcBody.Surrounded {
			continue
		}
		srcSurplus := srcBody.ElectronSurplus()
		if srcSurplus < 0 || srcBody.Electrons.Len() == 0 {
			continue
		}

		// Donation gate: a donor whose local potential sits above its
		// species' equilibrium potential plus the allowed margin never
		// donates. This keeps high-potential cathode material from
		// spontaneously reducing a passing cation.
		phiSrc := s.localPotential(src, bias)
		eq := species.ByTag(srcBody.Species).EqPotential
		if phiSrc >= eq+s.cfg.OverpotentialMargin {
			continue
		}

		searchRadius := s.cfg.HopRadiusFactor * maxRadius
		if r := s.cfg.HopRadiusFactor * srcBody.Radius; r > searchRadius {
			searchRadius = r
		}
		buf = s.tree.NeighborsWithin(s.bodies, src, searchRadius, buf)

		dst := -1
		for _, j := range buf {
			if received[j] || j == src {
				continue
			}
			dstBody := &s.bodies[j]
			hopRange := s.cfg.HopRadiusFactor * max2(srcBody.Radius, dstBody.Radius)
			if dstBody.Pos.Sub(srcBody.Pos).MagSq() > hopRange*hopRange {
				continue
			}
			if !canAccept(dstBody) || srcSurplus < dstBody.ElectronSurplus() {
				continue
			}

			eta := s.localPotential(j, bias) - phiSrc
			rate := s.butlerVolmer(eta)
			if rate <= 0 {
				continue
			}

			p := geom.Clamp(rate*s.cfg.DT, 0, 1)
			if f := s.hopAlignment(srcBody, dstBody); f < 1 {
				p *= f
			}
			if g := s.vacancyPolarization(srcBody, dstBody); g > 1 {
				p = geom.Clamp(p*g, 0, 1)
			}
			if s.rng.Float64() < p {
				dst = j
				break
			}
		}
		if dst < 0 {
			continue
		}

		// Move exactly one electron; charge follows deterministically from
		// species baseline plus the new counts. Nothing is created or
		// destroyed here.
		if el, ok := s.bodies[src].Electrons.Pop(); ok {
			if s.bodies[dst].Electrons.Push(el) {
				s.bodies[src].UpdateCharge()
				s.bodies[dst].UpdateCharge()
				donated[src] = true
				received[dst] = true
			} else {
				s.bodies[src].Electrons.Push(el)
			}
		}
	}
	s.neighborBuf = buf

	s.parallel(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.bodies[i].ApplyRedox()
		}
	})
}

// canAccept reports whether a body may receive a hopping electron.
func canAccept(b *body.Body) bool {
	switch b.Species {
	case species.LithiumIon, species.LithiumMetal, species.FoilMetal:
	default:
		if !species.IsIntercalation(b.Species) {
			return false
		}
	}
	return b.Electrons.Len() < body.MaxElectrons
}

// hopAlignment damps hops that move an electron against the local field
// direction. Conductive electrode pairs keep a floor of 0.5 - electrons move
// freely through connected electrode material.
func (s *Simulation) hopAlignment(src, dst *body.Body) float64 {
	hopDir := dst.Pos.Sub(src.Pos).Normalized()
	local := s.tree.FieldAt(s.bodies, src.Pos, 0, s.cfg.CoulombConstant).
		Add(s.cfg.BackgroundField)
	fieldDir := local.Normalized()
	if fieldDir.IsZero() || hopDir.IsZero() {
		return 1
	}
	alignment := -hopDir.Dot(fieldDir)
	if alignment < 0 {
		alignment = 0
	}
	alignment *= s.cfg.HopAlignmentBias

	if species.IsConductor(src.Species) && species.IsConductor(dst.Species) &&
		(species.IsIntercalation(src.Species) || species.IsIntercalation(dst.Species)) {
		if alignment < 0.5 {
			alignment = 0.5
		}
	}
	if alignment > 1 {
		alignment = 1
	}
	return alignment
}

// vacancyPolarization boosts hops aligned with the average electron drift
// direction of the pair, favoring vacancy motion along the polarization.
func (s *Simulation) vacancyPolarization(src, dst *body.Body) float64 {
	gain := s.cfg.VacancyPolarGain
	if gain <= 0 {
		return 1
	}
	pol := avgDrift(src).Add(avgDrift(dst)).Normalized()
	hopDir := dst.Pos.Sub(src.Pos).Normalized()
	if pol.IsZero() || hopDir.IsZero() {
		return 1
	}
	align := hopDir.Dot(pol)
	if align < 0 {
		align = 0
	}
	return 1 + gain*align
}

func avgDrift(b *body.Body) geom.Vec {
	if b.Electrons.Len() == 0 {
		return geom.Vec{}
	}
	var v geom.Vec
	for i := 0; i < b.Electrons.Len(); i++ {
		v = v.Add(b.Electrons.At(i).Rel)
	}
	return v.Scale(1 / float64(b.Electrons.Len()))
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
