package sim

import (
	"fmt"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

// SpawnParticle adds one particle and returns its stable ID. The position is
// clamped into the domain.
func (s *Simulation) SpawnParticle(sp species.Species, pos, vel geom.Vec) (body.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawn(sp, pos, vel)
}

func (s *Simulation) spawn(sp species.Species, pos, vel geom.Vec) (body.ID, error) {
	if !sp.Valid() {
		return 0, fmt.Errorf("Cannot spawn invalid species %d.", int(sp))
	}
	pos.X = geom.Clamp(pos.X, -s.cfg.DomainWidth, s.cfg.DomainWidth)
	pos.Y = geom.Clamp(pos.Y, -s.cfg.DomainHeight, s.cfg.DomainHeight)
	b := body.New(sp, pos, vel)
	s.bodies = append(s.bodies, b)
	return b.ID, nil
}

// RemoveParticle deletes a particle by ID. Removing a foil member also drops
// it from the foil's roster.
func (s *Simulation) RemoveParticle(id body.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.bodies {
		if s.bodies[i].ID != id {
			continue
		}
		s.bodies[i] = s.bodies[len(s.bodies)-1]
		s.bodies = s.bodies[:len(s.bodies)-1]
		for fi := range s.foils {
			f := &s.foils[fi]
			for k := 0; k < len(f.BodyIDs); k++ {
				if f.BodyIDs[k] == id {
					f.BodyIDs = append(f.BodyIDs[:k], f.BodyIDs[k+1:]...)
					k--
				}
			}
		}
		return nil
	}
	return fmt.Errorf("Cannot remove unknown particle %d.", id)
}

// FillRect scatters count particles uniformly inside an axis-aligned
// rectangle, at rest.
func (s *Simulation) FillRect(sp species.Species, min, max geom.Vec, count int) ([]body.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if min.X >= max.X || min.Y >= max.Y {
		return nil, fmt.Errorf(
			"Degenerate fill rectangle (%g, %g) x (%g, %g).",
			min.X, min.Y, max.X, max.Y,
		)
	}
	ids := make([]body.ID, 0, count)
	for k := 0; k < count; k++ {
		pos := geom.Vec{
			X: s.rng.Uniform(min.X, max.X),
			Y: s.rng.Uniform(min.Y, max.Y),
		}
		id, err := s.spawn(sp, pos, geom.Vec{})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FillCircle scatters count particles uniformly inside a disc, at rest. The
// distribution is uniform by area, not by radius.
func (s *Simulation) FillCircle(sp species.Species, center geom.Vec, radius float64, count int) ([]body.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if radius <= 0 {
		return nil, fmt.Errorf("Fill radius must be positive, but is %g.", radius)
	}
	ids := make([]body.ID, 0, count)
	for k := 0; k < count; k++ {
		// Rejection sampling inside the bounding square.
		var pos geom.Vec
		for {
			pos = geom.Vec{
				X: s.rng.Uniform(-radius, radius),
				Y: s.rng.Uniform(-radius, radius),
			}
			if pos.MagSq() <= radius*radius {
				break
			}
		}
		id, err := s.spawn(sp, center.Add(pos), geom.Vec{})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RandomFill scatters count particles across the whole domain, at rest.
func (s *Simulation) RandomFill(sp species.Species, count int) ([]body.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]body.ID, 0, count)
	for k := 0; k < count; k++ {
		pos := geom.Vec{
			X: s.rng.Uniform(-s.cfg.DomainWidth, s.cfg.DomainWidth),
			Y: s.rng.Uniform(-s.cfg.DomainHeight, s.cfg.DomainHeight),
		}
		id, err := s.spawn(sp, pos, geom.Vec{})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SpawnFoilLattice builds a rows x cols grid of foil metal anchored at
// origin and registers it as one foil. Spacing is center-to-center; a
// non-positive value defaults to touching circles.
func (s *Simulation) SpawnFoilLattice(origin geom.Vec, rows, cols int, spacing float64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rows < 1 || cols < 1 {
		return 0, fmt.Errorf("Foil lattice needs positive dimensions, got %d x %d.", rows, cols)
	}
	if spacing <= 0 {
		spacing = 2 * species.ByTag(species.FoilMetal).Radius
	}

	ids := make([]body.ID, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pos := geom.Vec{
				X: origin.X + float64(c)*spacing,
				Y: origin.Y + float64(r)*spacing,
			}
			id, err := s.spawn(species.FoilMetal, pos, geom.Vec{})
			if err != nil {
				return 0, err
			}
			ids = append(ids, id)
		}
	}

	s.nextFoilID++
	f := body.Foil{ID: s.nextFoilID, BodyIDs: ids}
	f.Controller = body.PID{Kp: s.cfg.FoilKp, Ki: s.cfg.FoilKi, Kd: s.cfg.FoilKd}
	s.foils = append(s.foils, f)
	return f.ID, nil
}

// Bodies returns a copy of the particle array. Intended for rendering and
// inspection, not for mutation.
func (s *Simulation) Bodies() []body.Body {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]body.Body, len(s.bodies))
	copy(out, s.bodies)
	return out
}
