package config

import (
	"fmt"

	"github.com/phil-mansfield/table"

	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/sim"
	"github.com/electroworks/ionsim/species"
)

// LoadParticleFile spawns particles from a plain-text table. Columns are
// species index, x, y, vx, vy; '#' starts a comment.
func LoadParticleFile(s *sim.Simulation, fname string) (err error) {
	// The table library reports I/O and parse failures by panicking;
	// convert those back into this function's error return.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	cols := table.TextFile(fname).ReadFloat64s([]int{0, 1, 2, 3, 4})
	sps, xs, ys, vxs, vys := cols[0], cols[1], cols[2], cols[3], cols[4]

	for i := range sps {
		sp := species.Species(int(sps[i]))
		if !sp.Valid() {
			return fmt.Errorf(
				"Row %d of '%s' has invalid species index %g.", i, fname, sps[i],
			)
		}
		_, err := s.SpawnParticle(
			sp,
			geom.Vec{X: xs[i], Y: ys[i]},
			geom.Vec{X: vxs[i], Y: vys[i]},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteParticleFile is the inverse of LoadParticleFile: it renders the
// current particles as a table accepted by ParticleFile.
func WriteParticleFile(s *sim.Simulation) string {
	bodies := s.Bodies()
	out := "# species x y vx vy\n"
	for i := range bodies {
		b := &bodies[i]
		out += fmt.Sprintf(
			"%d %g %g %g %g\n",
			int(b.Species), b.Pos.X, b.Pos.Y, b.Vel.X, b.Vel.Y,
		)
	}
	return out
}
