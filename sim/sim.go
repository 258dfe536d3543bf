/*package sim owns the particle array and orchestrates the per-step physics
pipeline: quadtree rebuild, force accumulation, integration, collision
resolution, electron transfer, redox bookkeeping and the thermostat.

A Simulation is driven one atomic step at a time. External collaborators
(GUI, CLI, persistence) interact only between steps, through the spawn /
remove / foil / snapshot methods and the pending config.
*/
package sim

import (
	"math"
	"sync"

	"github.com/aquilax/go-perlin"
	"github.com/sirupsen/logrus"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/quadtree"
	"github.com/electroworks/ionsim/rand"
	"github.com/electroworks/ionsim/species"
)

// Simulation is the driver. It exclusively owns the body slice; every other
// component receives transient access scoped to one pipeline phase, and no
// component keeps references into the slice across steps.
type Simulation struct {
	mu      sync.Mutex
	pending Config

	cfg    Config // snapshot for the step in flight
	bodies []body.Body
	tree   *quadtree.Tree
	foils  []body.Foil

	frame int64
	time  float64

	rng        *rand.Generator
	noise      *perlin.Perlin
	nextFoilID uint64

	// Counters for electron creation/destruction at redox boundaries.
	seiElectronsConsumed  int64
	intercalatedIons      int64
	foilElectronsInjected int64
	foilElectronsRemoved  int64
	sanitizedValues       int64

	log *logrus.Entry

	// Scratch buffer reused across steps.
	neighborBuf []int
}

// New builds an empty simulation with the given config and RNG seed. A zero
// seed picks a time-based one.
func New(cfg Config, seed uint64) (*Simulation, error) {
	if err := cfg.CheckInit(); err != nil {
		return nil, err
	}
	var gen *rand.Generator
	if seed == 0 {
		gen = rand.NewTimeSeed()
	} else {
		gen = rand.New(seed)
	}
	return &Simulation{
		pending: cfg,
		cfg:     cfg,
		tree:    quadtree.New(cfg.Theta, cfg.Epsilon, cfg.LeafCap),
		rng:     gen,
		noise:   perlin.NewPerlin(2, 2, 3, int64(gen.State())),
		log:     logrus.WithField("pkg", "sim"),
	}, nil
}

// SetConfig replaces the pending config. It takes effect at the next Step.
func (s *Simulation) SetConfig(cfg Config) error {
	if err := cfg.CheckInit(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pending = cfg
	s.mu.Unlock()
	return nil
}

// Config returns the pending config.
func (s *Simulation) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Frame returns the number of completed steps.
func (s *Simulation) Frame() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Time returns the accumulated simulation time.
func (s *Simulation) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time
}

// NumBodies returns the current particle count.
func (s *Simulation) NumBodies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

// Step advances the simulation by one timestep. Phases run in a fixed order;
// a step is atomic from the caller's perspective, and numeric corruption in
// any phase is repaired in place rather than aborting the step. The lock is
// held for the whole step, so collaborator edits land between steps.
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = s.pending

	s.tree.Theta = s.cfg.Theta
	s.tree.Epsilon = s.cfg.Epsilon
	s.tree.LeafCap = s.cfg.LeafCap

	s.sanitize()
	s.tree.Build(s.bodies)

	s.accumForces()
	s.integrate()
	s.resolveCollisions()

	s.applyOutOfPlane()
	s.updateSurroundedFlags()

	// Foil drive may create or destroy electrons, so charges and the tree
	// must be refreshed before hopping reads local potentials.
	recipients := s.driveFoils()
	s.parallel(len(s.bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.bodies[i].UpdateCharge()
		}
	})
	s.tree.Build(s.bodies)

	s.updateElectrons()
	s.performHopping(recipients)
	s.performSEI()
	s.performIntercalation()

	if s.cfg.ThermostatInterval > 0 && s.frame%int64(s.cfg.ThermostatInterval) == 0 {
		s.applyThermostat()
	}

	s.updateFoilBias()

	s.frame++
	s.time += s.cfg.DT
}

// sanitize repairs non-finite positions and velocities before they can
// poison the tree aggregates. Halting an interactive run over one corrupted
// particle is worse than resetting it, so recovery is local and silent
// beyond a debug log line.
func (s *Simulation) sanitize() {
	w, h := s.cfg.DomainWidth, s.cfg.DomainHeight
	for i := range s.bodies {
		b := &s.bodies[i]
		if !b.Pos.IsFinite() {
			b.Pos = geom.Vec{}
			s.sanitizedValues++
			s.log.WithField("id", b.ID).Debug("reset non-finite position")
		}
		if !b.Vel.IsFinite() {
			b.Vel = geom.Vec{}
			s.sanitizedValues++
			s.log.WithField("id", b.ID).Debug("reset non-finite velocity")
		}
		if !geom.IsFinite(b.Z) || !geom.IsFinite(b.VZ) {
			b.Z, b.VZ = 0, 0
			s.sanitizedValues++
		}
		b.Pos.X = geom.Clamp(b.Pos.X, -w, w)
		b.Pos.Y = geom.Clamp(b.Pos.Y, -h, h)
	}
}

// integrate advances velocities and positions with semi-implicit Euler and
// reflects bodies off the domain walls.
func (s *Simulation) integrate() {
	dt := s.cfg.DT
	baseDamping := math.Pow(s.cfg.DampingBase, dt/0.01)
	w, h := s.cfg.DomainWidth, s.cfg.DomainHeight

	s.parallel(len(s.bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.bodies[i]
			b.Vel = b.Vel.Add(b.Acc.Scale(dt))
			damping := baseDamping * species.ByTag(b.Species).Damping
			b.Vel = b.Vel.Scale(damping)
			b.Pos = b.Pos.Add(b.Vel.Scale(dt))

			if b.Pos.X < -w {
				b.Pos.X, b.Vel.X = -w, -b.Vel.X
			} else if b.Pos.X > w {
				b.Pos.X, b.Vel.X = w, -b.Vel.X
			}
			if b.Pos.Y < -h {
				b.Pos.Y, b.Vel.Y = -h, -b.Vel.Y
			} else if b.Pos.Y > h {
				b.Pos.Y, b.Vel.Y = h, -b.Vel.Y
			}
		}
	})
}

// updateSurroundedFlags marks metal particles buried inside metal clusters.
// Such bodies never donate electrons: bulk metal resists oxidation away from
// the surface.
func (s *Simulation) updateSurroundedFlags() {
	s.parallelNeighbors(len(s.bodies), func(lo, hi int, buf []int) {
		for i := lo; i < hi; i++ {
			b := &s.bodies[i]
			if !species.IsMetal(b.Species) {
				b.Surrounded = false
				continue
			}
			radius := s.cfg.SurroundRadiusFactor * b.Radius
			buf = s.tree.NeighborsWithin(s.bodies, i, radius, buf[:0])
			metals := 0
			for _, j := range buf {
				if species.IsMetal(s.bodies[j].Species) {
					metals++
				}
			}
			b.Surrounded = metals >= s.cfg.SurroundThreshold
		}
	})
}

// parallel splits [0, n) across the worker pool and blocks until every chunk
// is done. The final chunk runs on the calling goroutine.
func (s *Simulation) parallel(n int, f func(lo, hi int)) {
	workers := s.cfg.Workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		f(0, n)
		return
	}

	out := make(chan int, workers)
	chunk := (n + workers - 1) / workers
	run := func(id int) {
		lo := id * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		f(lo, hi)
		out <- id
	}
	for id := 0; id < workers-1; id++ {
		go run(id)
	}
	run(workers - 1)
	for i := 0; i < workers; i++ {
		<-out
	}
}

// parallelNeighbors is parallel with a per-worker neighbor index buffer.
func (s *Simulation) parallelNeighbors(n int, f func(lo, hi int, buf []int)) {
	s.parallel(n, func(lo, hi int) {
		f(lo, hi, make([]int, 0, 64))
	})
}

