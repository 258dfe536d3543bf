package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminism(t *testing.T) {
	a, b := New(7), New(7)
	for i := 0; i < 1000; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("%d) Generators with the same seed diverged", i+1)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	g := New(42)
	for i := 0; i < 100; i++ {
		g.Float64()
	}
	state := g.State()
	want := make([]float64, 50)
	for i := range want {
		want[i] = g.Float64()
	}

	g2 := New(1)
	g2.SetState(state)
	for i := range want {
		assert.Equal(t, want[i], g2.Float64(), "draw %d after restore", i)
	}
}

func TestZeroSeed(t *testing.T) {
	g := New(0)
	assert.NotEqual(t, uint64(0), g.State())
	g.SetState(0)
	assert.NotEqual(t, uint64(0), g.State())
}

func TestFloat64Range(t *testing.T) {
	g := New(3)
	for i := 0; i < 10000; i++ {
		x := g.Float64()
		if x < 0 || x >= 1 {
			t.Fatalf("%d) Float64 returned %g outside [0, 1)", i+1, x)
		}
	}
}

func TestUniformInt(t *testing.T) {
	g := New(11)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		x := g.UniformInt(2, 7)
		if x < 2 || x >= 7 {
			t.Fatalf("%d) UniformInt returned %d outside [2, 7)", i+1, x)
		}
		seen[x] = true
	}
	assert.Len(t, seen, 5)

	assert.Equal(t, 3, g.UniformInt(3, 3))
}

func TestGaussianMoments(t *testing.T) {
	g := New(19)
	n := 50000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		x := g.Gaussian(2, 3)
		sum += x
		sumSq += x * x
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	assert.InDelta(t, 2, mean, 0.05)
	assert.InDelta(t, 9, variance, 0.3)
}

func TestShuffle(t *testing.T) {
	g := New(5)
	idxs := make([]int, 100)
	for i := range idxs {
		idxs[i] = i
	}
	g.Shuffle(idxs)

	seen := make([]bool, 100)
	for _, x := range idxs {
		seen[x] = true
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("Shuffle lost index %d", i)
		}
	}
}
