package sim

import (
	"fmt"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/species"
)

// CreateFoil groups existing foil-metal particles into a current collector.
// Membership is by stable particle ID. The foil starts idle (zero current).
func (s *Simulation) CreateFoil(ids []body.ID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return 0, fmt.Errorf("Foil needs at least one particle.")
	}
	index := s.indexByID()
	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			return 0, fmt.Errorf("Foil references unknown particle %d.", id)
		}
		if s.bodies[i].Species != species.FoilMetal {
			return 0, fmt.Errorf(
				"Foil particle %d has species %s, want %s.",
				id, s.bodies[i].Species, species.FoilMetal,
			)
		}
	}
	s.nextFoilID++
	f := body.Foil{
		ID:      s.nextFoilID,
		BodyIDs: append([]body.ID(nil), ids...),
	}
	f.Controller = body.PID{Kp: s.cfg.FoilKp, Ki: s.cfg.FoilKi, Kd: s.cfg.FoilKd}
	s.foils = append(s.foils, f)
	return f.ID, nil
}

// SetFoilSetpoint switches a foil's drive mode and target: electrons per
// second in CurrentMode, target overpotential in OverpotentialMode.
func (s *Simulation) SetFoilSetpoint(id uint64, mode body.SetpointMode, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.foilByID(id)
	if f == nil {
		return fmt.Errorf("Unknown foil %d.", id)
	}
	if f.Mode != mode {
		f.Controller.Reset()
	}
	f.Mode = mode
	f.Setpoint = value
	return nil
}

// SetFoilAC configures the square-wave AC component of a foil's drive.
func (s *Simulation) SetFoilAC(id uint64, amplitude, hz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.foilByID(id)
	if f == nil {
		return fmt.Errorf("Unknown foil %d.", id)
	}
	f.ACAmplitude, f.SwitchHz = amplitude, hz
	return nil
}

// LinkFoils couples two foils: parallel foils source and sink together,
// opposite foils mirror each other's drive.
func (s *Simulation) LinkFoils(a, b uint64, mode body.LinkMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fa, fb := s.foilByID(a), s.foilByID(b)
	if fa == nil || fb == nil {
		return fmt.Errorf("Cannot link foils %d and %d: unknown foil.", a, b)
	}
	fa.Link, fa.LinkMode = b, mode
	fb.Link, fb.LinkMode = a, mode
	return nil
}

func (s *Simulation) foilByID(id uint64) *body.Foil {
	for i := range s.foils {
		if s.foils[i].ID == id {
			return &s.foils[i]
		}
	}
	return nil
}

// Foils returns a copy of the foil records for inspection.
func (s *Simulation) Foils() []body.Foil {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]body.Foil, len(s.foils))
	copy(out, s.foils)
	return out
}

// driveFoils applies each foil's current source/sink: whole electrons are
// injected into or removed from randomly chosen member particles as the
// fractional accumulator crosses one. This is one of the two explicit
// electron creation/destruction boundaries in the system. Returns the
// recipient mask consumed by the hopping pass.
func (s *Simulation) driveFoils() []bool {
	if len(s.foils) == 0 {
		return nil
	}
	recipients := make([]bool, len(s.bodies))
	index := s.indexByID()

	visited := make([]bool, len(s.foils))
	for i := range s.foils {
		if visited[i] {
			continue
		}
		visited[i] = true
		f := &s.foils[i]
		base := s.foilDrive(f, index)

		if f.Link != 0 {
			if j := s.foilIndexByID(f.Link); j >= 0 && !visited[j] {
				visited[j] = true
				linked := &s.foils[j]
				linkedBase := s.foilDrive(linked, index)
				if f.LinkMode == body.LinkOpposite {
					linkedBase = -base
				} else if f.LinkMode == body.LinkParallel {
					linkedBase = base
				}
				s.pumpFoil(linked, linkedBase, index, recipients)
			}
		}
		s.pumpFoil(f, base, index, recipients)
	}
	return recipients
}

// foilDrive computes the base drive current for a foil this step: the raw
// setpoint in CurrentMode, or the PID output tracking the measured
// overpotential in OverpotentialMode.
func (s *Simulation) foilDrive(f *body.Foil, index map[body.ID]int) float64 {
	switch f.Mode {
	case body.OverpotentialMode:
		measured := s.measuredOverpotential(f, index)
		return f.Controller.Update(measured, f.Setpoint, s.cfg.DT)
	default:
		return f.Setpoint
	}
}

// measuredOverpotential averages the member particles' local potential
// relative to their species equilibrium.
func (s *Simulation) measuredOverpotential(f *body.Foil, index map[body.ID]int) float64 {
	sum, n := 0.0, 0
	for _, id := range f.BodyIDs {
		if i, ok := index[id]; ok {
			b := &s.bodies[i]
			sum += s.cfg.PhiPerCharge*b.Charge - species.ByTag(b.Species).EqPotential
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// pumpFoil accumulates current*dt and moves whole electrons in or out of
// member particles.
func (s *Simulation) pumpFoil(f *body.Foil, base float64, index map[body.ID]int, recipients []bool) {
	current := f.EffectiveCurrent(base, s.time)
	f.Accum += current * s.cfg.DT

	for f.Accum >= 1 {
		f.Accum--
		if i, ok := s.pickMember(f, index, func(b *body.Body) bool {
			return b.Electrons.Len() < body.MaxElectrons
		}); ok {
			s.bodies[i].Electrons.Push(body.Electron{})
			s.bodies[i].UpdateCharge()
			recipients[i] = true
			f.NetElectrons++
			s.foilElectronsInjected++
		}
	}
	for f.Accum <= -1 {
		f.Accum++
		if i, ok := s.pickMember(f, index, func(b *body.Body) bool {
			return b.Electrons.Len() > 0
		}); ok {
			s.bodies[i].Electrons.Pop()
			s.bodies[i].UpdateCharge()
			recipients[i] = true
			f.NetElectrons--
			s.foilElectronsRemoved++
		}
	}
}

// pickMember returns a randomly chosen member index passing the predicate.
func (s *Simulation) pickMember(f *body.Foil, index map[body.ID]int, ok func(*body.Body) bool) (int, bool) {
	if len(f.BodyIDs) == 0 {
		return 0, false
	}
	start := s.rng.UniformInt(0, len(f.BodyIDs))
	for k := 0; k < len(f.BodyIDs); k++ {
		id := f.BodyIDs[(start+k)%len(f.BodyIDs)]
		if i, found := index[id]; found && ok(&s.bodies[i]) {
			return i, true
		}
	}
	return 0, false
}

// foilBiasByIndex builds the per-body potential bias applied during hop
// gating: foil members see their foil's current bias, everything else zero.
func (s *Simulation) foilBiasByIndex() []float64 {
	if len(s.foils) == 0 {
		return nil
	}
	bias := make([]float64, len(s.bodies))
	index := s.indexByID()
	for fi := range s.foils {
		f := &s.foils[fi]
		for _, id := range f.BodyIDs {
			if i, ok := index[id]; ok {
				bias[i] = f.Bias
			}
		}
	}
	return bias
}

// updateFoilBias refreshes each foil's gating bias from its drive state at
// the end of the step: a sourcing foil lowers its members' effective
// potential (making them better donors), a sinking foil raises it.
func (s *Simulation) updateFoilBias() {
	for i := range s.foils {
		f := &s.foils[i]
		switch f.Mode {
		case body.OverpotentialMode:
			f.Bias = f.Setpoint
		default:
			f.Bias = -f.Setpoint * s.cfg.DT * s.cfg.PhiPerCharge
		}
	}
}

func (s *Simulation) foilIndexByID(id uint64) int {
	for i := range s.foils {
		if s.foils[i].ID == id {
			return i
		}
	}
	return -1
}

// indexByID maps stable particle IDs to current array indices. Indices are
// only valid within the current step phase.
func (s *Simulation) indexByID() map[body.ID]int {
	m := make(map[body.ID]int, len(s.bodies))
	for i := range s.bodies {
		m[s.bodies[i].ID] = i
	}
	return m
}
