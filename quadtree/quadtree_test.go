package quadtree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/rand"
	"github.com/electroworks/ionsim/species"
)

func randomCloud(n int, width float64, seed uint64) []body.Body {
	gen := rand.New(seed)
	bodies := make([]body.Body, n)
	for i := range bodies {
		sp := species.LithiumIon
		if i%2 == 1 {
			sp = species.ElectrolyteAnion
		}
		bodies[i] = body.New(sp, geom.Vec{
			X: gen.Uniform(-width, width),
			Y: gen.Uniform(-width, width),
		}, geom.Vec{})
	}
	return bodies
}

func bruteNeighbors(bodies []body.Body, i int, cutoff float64) []int {
	out := []int{}
	for j := range bodies {
		if j == i {
			continue
		}
		if geom.Dist(bodies[i].Pos, bodies[j].Pos) <= cutoff {
			out = append(out, j)
		}
	}
	return out
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	m := map[int]bool{}
	for _, x := range a {
		m[x] = true
	}
	for _, x := range b {
		if !m[x] {
			return false
		}
	}
	return true
}

func TestNeighborsWithinMatchesBruteForce(t *testing.T) {
	bodies := randomCloud(300, 50, 17)
	tree := New(1.0, 2.0, 1)
	tree.Build(bodies)

	var buf []int
	for _, cutoff := range []float64{0.5, 3, 10, 25} {
		for i := 0; i < len(bodies); i += 7 {
			buf = tree.NeighborsWithin(bodies, i, cutoff, buf)
			want := bruteNeighbors(bodies, i, cutoff)
			if !sameSet(buf, want) {
				t.Fatalf(
					"Neighbors of %d at cutoff %g: got %d, want %d",
					i, cutoff, len(buf), len(want),
				)
			}
		}
	}
}

func TestNeighborsWithinEdgeCases(t *testing.T) {
	bodies := randomCloud(100, 20, 3)
	tree := New(1.0, 2.0, 1)
	tree.Build(bodies)

	// Zero radius excludes everything but exact coincidences.
	got := tree.NeighborsWithin(bodies, 0, 0, nil)
	assert.Empty(t, got)

	// A cutoff larger than the domain returns every other body.
	got = tree.NeighborsWithin(bodies, 0, 1000, got)
	assert.Len(t, got, len(bodies)-1)

	// Never includes the query body itself.
	for _, j := range got {
		assert.NotEqual(t, 0, j)
	}
}

func TestCoincidentBodies(t *testing.T) {
	// Several bodies at the same point must terminate via the depth cap and
	// still be mutually visible.
	bodies := make([]body.Body, 6)
	for i := range bodies {
		bodies[i] = body.New(species.LithiumIon, geom.Vec{X: 1, Y: 1}, geom.Vec{})
	}
	tree := New(1.0, 2.0, 1)
	tree.Build(bodies)

	got := tree.NeighborsWithin(bodies, 0, 0.1, nil)
	assert.Len(t, got, 5)
}

func TestEmptyAndSingle(t *testing.T) {
	tree := New(1.0, 2.0, 1)

	tree.Build(nil)
	assert.Equal(t, geom.Vec{}, tree.FieldAt(nil, geom.Vec{X: 3}, 0, 1))
	assert.Empty(t, tree.NeighborsWithin(nil, 0, 10, nil))

	one := []body.Body{body.New(species.LithiumIon, geom.Vec{}, geom.Vec{})}
	tree.Build(one)
	assert.Empty(t, tree.NeighborsWithin(one, 0, 10, nil))

	// The single body's field at a distant point matches the direct kernel.
	pos := geom.Vec{X: 10}
	got := tree.FieldAt(one, pos, 0, 100)
	want := directField(one, pos, 100, 2.0)
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}

// directField is the brute-force reference sum with the same softened kernel.
func directField(bodies []body.Body, pos geom.Vec, k, epsilon float64) geom.Vec {
	eSq := epsilon * epsilon
	var field geom.Vec
	for i := range bodies {
		b := &bodies[i]
		d := pos.Sub(b.Pos)
		distSq := d.MagSq()
		if distSq < 1e-12 {
			continue
		}
		rEff := math.Sqrt(distSq)
		if rEff < b.Radius {
			rEff = b.Radius
		}
		denom := (rEff*rEff + eSq) * rEff
		field = field.Add(d.Scale(k * b.Charge / denom))
	}
	return field
}

func TestFieldThetaZeroIsExact(t *testing.T) {
	bodies := randomCloud(200, 40, 29)
	tree := New(0, 2.0, 1)
	tree.Build(bodies)

	probes := []geom.Vec{{X: 0, Y: 0}, {X: 13, Y: -7}, {X: -35, Y: 35}, {X: 60, Y: 0}}
	for i, pos := range probes {
		got := tree.FieldAt(bodies, pos, 0, 449.4)
		want := directField(bodies, pos, 449.4, 2.0)
		if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
			t.Errorf("%d) FieldAt = %+v, direct sum = %+v", i+1, got, want)
		}
	}
}

func TestFieldErrorShrinksWithTheta(t *testing.T) {
	bodies := randomCloud(400, 40, 51)
	probes := []geom.Vec{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: -20, Y: 5}, {X: 33, Y: -18}, {X: -8, Y: -31}}

	avgErr := func(theta float64) float64 {
		tree := New(theta, 2.0, 1)
		tree.Build(bodies)
		sum := 0.0
		for _, pos := range probes {
			got := tree.FieldAt(bodies, pos, 0, 449.4)
			want := directField(bodies, pos, 449.4, 2.0)
			sum += got.Sub(want).Mag()
		}
		return sum / float64(len(probes))
	}

	loose, tight := avgErr(1.2), avgErr(0.3)
	assert.LessOrEqual(t, tight, loose)
}

func TestAggregateChargeAndMass(t *testing.T) {
	bodies := randomCloud(64, 10, 9)
	tree := New(1.0, 2.0, 1)
	tree.Build(bodies)

	var mass, charge float64
	for i := range bodies {
		mass += bodies[i].Mass
		charge += bodies[i].Charge
	}
	root := &tree.nodes[0]
	assert.InDelta(t, mass, root.Mass, 1e-9)
	assert.InDelta(t, charge, root.Charge, 1e-9)
}

func TestBuildDoesNotReorderBodies(t *testing.T) {
	bodies := randomCloud(50, 10, 13)
	ids := make([]body.ID, len(bodies))
	for i := range bodies {
		ids[i] = bodies[i].ID
	}
	tree := New(1.0, 2.0, 1)
	tree.Build(bodies)
	for i := range bodies {
		assert.Equal(t, ids[i], bodies[i].ID)
	}
}
