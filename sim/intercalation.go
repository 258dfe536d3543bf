package sim

import (
	"math"

	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

// performIntercalation moves lithium between free ions and intercalation
// hosts, in both directions. Uptake removes an adjacent ion from the particle
// array and counts it on the host; an oxidized host releases a stored ion
// back into the electrolyte. Either way the lithium inventory is conserved,
// only the particle count changes.
func (s *Simulation) performIntercalation() {
	if !s.cfg.IntercalationEnabled || s.cfg.IntercalationRate <= 0 {
		return
	}

	maxRadius := 0.0
	for i := range s.bodies {
		if s.bodies[i].Radius > maxRadius {
			maxRadius = s.bodies[i].Radius
		}
	}

	// Decisions first, removals after: the tree maps positions to current
	// array indices, so the array cannot shrink mid-scan.
	var absorbed []int
	for i := range s.bodies {
		b := &s.bodies[i]
		if b.Species != species.LithiumIon {
			continue
		}

		// The uptake range is keyed to the host radius, not the ion's: a
		// small ion still intercalates when it touches a large host surface.
		radius := s.cfg.HopRadiusFactor * max2(b.Radius, maxRadius)
		s.neighborBuf = s.tree.NeighborsWithin(s.bodies, i, radius, s.neighborBuf[:0])
		host := -1
		for _, j := range s.neighborBuf {
			nb := &s.bodies[j]
			if !species.IsIntercalation(nb.Species) {
				continue
			}
			if nb.Lithium >= s.cfg.HostCapacity {
				continue
			}
			hopRange := s.cfg.HopRadiusFactor * max2(b.Radius, nb.Radius)
			if nb.Pos.Sub(b.Pos).MagSq() > hopRange*hopRange {
				continue
			}
			host = j
			break
		}
		if host < 0 {
			continue
		}

		h := &s.bodies[host]
		// Uptake slows as the host fills.
		fill := h.Lithium / s.cfg.HostCapacity
		p := s.cfg.IntercalationRate * (1 - fill) * s.cfg.DT
		if p <= 0 {
			continue
		}
		if p > 1 {
			p = 1
		}
		if s.rng.Float64() >= p {
			continue
		}

		h.Lithium++
		s.intercalatedIons++
		absorbed = append(absorbed, i)
		s.log.WithField("ion", b.ID).
			WithField("host", h.ID).
			Debug("Ion intercalated")
	}

	released := s.releaseIntercalated()

	if len(absorbed) == 0 && !released {
		return
	}
	for k := len(absorbed) - 1; k >= 0; k-- {
		i := absorbed[k]
		s.bodies[i] = s.bodies[len(s.bodies)-1]
		s.bodies = s.bodies[:len(s.bodies)-1]
	}
	s.tree.Build(s.bodies)
}

// releaseIntercalated is the reverse reaction: a host that has been oxidized
// (net positive charge after donating electrons) sheds stored lithium back
// into the electrolyte as a fresh ion at its surface. Appending never moves
// existing bodies, so the caller's collected indices stay valid. Reports
// whether anything was released.
func (s *Simulation) releaseIntercalated() bool {
	ionRadius := species.ByTag(species.LithiumIon).Radius
	released := false

	n := len(s.bodies)
	for i := 0; i < n; i++ {
		h := &s.bodies[i]
		if !species.IsIntercalation(h.Species) || h.Lithium < 1 {
			continue
		}
		if h.Charge <= 0 {
			continue
		}

		fill := h.Lithium / s.cfg.HostCapacity
		p := s.cfg.IntercalationRate * fill * s.cfg.DT
		if p > 1 {
			p = 1
		}
		if s.rng.Float64() >= p {
			continue
		}

		angle := s.rng.Uniform(0, 2*math.Pi)
		dir := geom.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
		pos := h.Pos.Add(dir.Scale(h.Radius + ionRadius))
		if _, err := s.spawn(species.LithiumIon, pos, geom.Vec{}); err != nil {
			continue
		}
		h = &s.bodies[i] // spawn may reallocate the slice
		h.Lithium--
		released = true
		s.log.WithField("host", h.ID).Debug("Ion released from host")
	}
	return released
}

// IntercalatedIons reports the cumulative ions absorbed by hosts since the
// simulation was created.
func (s *Simulation) IntercalatedIons() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intercalatedIons
}
