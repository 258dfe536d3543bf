package sim

import (
	"github.com/electroworks/ionsim/body"
)

// Snapshot is a complete, self-consistent copy of simulation state. A
// restored snapshot reproduces the exact trajectory of the run it was taken
// from, including every stochastic draw; the config travels with the state
// so no scenario re-read is needed.
type Snapshot struct {
	Frame    int64
	Time     float64
	RNGState uint64

	Config Config

	Bodies []body.Body
	Foils  []body.Foil

	SEIElectronsConsumed  int64
	IntercalatedIons      int64
	FoilElectronsInjected int64
	FoilElectronsRemoved  int64
}

// Snapshot captures the current state between steps.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Frame:    s.frame,
		Time:     s.time,
		RNGState: s.rng.State(),

		Config: s.pending,

		Bodies: make([]body.Body, len(s.bodies)),
		Foils:  make([]body.Foil, len(s.foils)),

		SEIElectronsConsumed:  s.seiElectronsConsumed,
		IntercalatedIons:      s.intercalatedIons,
		FoilElectronsInjected: s.foilElectronsInjected,
		FoilElectronsRemoved:  s.foilElectronsRemoved,
	}
	copy(snap.Bodies, s.bodies)
	for i := range s.foils {
		f := s.foils[i]
		f.BodyIDs = append([]body.ID(nil), f.BodyIDs...)
		snap.Foils[i] = f
	}
	return snap
}

// Restore replaces the simulation state with a snapshot's, including the
// config the snapshot was taken under. A snapshot carrying an unusable
// config (all zeros, from a hand-built value) keeps the current one.
func (s *Simulation) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := snap.Config
	if err := cfg.CheckInit(); err == nil {
		s.pending = cfg
		s.cfg = cfg
	}

	s.frame = snap.Frame
	s.time = snap.Time
	s.rng.SetState(snap.RNGState)

	s.bodies = make([]body.Body, len(snap.Bodies))
	copy(s.bodies, snap.Bodies)
	s.foils = make([]body.Foil, len(snap.Foils))
	for i := range snap.Foils {
		f := snap.Foils[i]
		f.BodyIDs = append([]body.ID(nil), f.BodyIDs...)
		s.foils[i] = f
	}
	for i := range s.foils {
		if s.foils[i].ID > s.nextFoilID {
			s.nextFoilID = s.foils[i].ID
		}
	}
	for i := range s.bodies {
		body.ReserveIDs(s.bodies[i].ID)
	}

	s.seiElectronsConsumed = snap.SEIElectronsConsumed
	s.intercalatedIons = snap.IntercalatedIons
	s.foilElectronsInjected = snap.FoilElectronsInjected
	s.foilElectronsRemoved = snap.FoilElectronsRemoved
}
