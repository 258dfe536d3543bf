package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVecOps(t *testing.T) {
	v := Vec{3, 4}
	u := Vec{-1, 2}

	assert.Equal(t, Vec{2, 6}, v.Add(u))
	assert.Equal(t, Vec{4, 2}, v.Sub(u))
	assert.Equal(t, Vec{6, 8}, v.Scale(2))
	assert.Equal(t, 5.0, v.Dot(u))
	assert.Equal(t, 25.0, v.MagSq())
	assert.Equal(t, 5.0, v.Mag())
}

func TestNormalized(t *testing.T) {
	n := Vec{3, 4}.Normalized()
	assert.InDelta(t, 1, n.Mag(), 1e-12)
	assert.InDelta(t, 0.6, n.X, 1e-12)

	// Degenerate inputs must not produce NaN.
	assert.Equal(t, Vec{}, Vec{}.Normalized())
	assert.Equal(t, Vec{}, Vec{1e-13, 0}.Normalized())
}

func TestIsFinite(t *testing.T) {
	assert.True(t, Vec{1, 2}.IsFinite())
	assert.False(t, Vec{math.NaN(), 0}.IsFinite())
	assert.False(t, Vec{0, math.Inf(1)}.IsFinite())
	assert.False(t, IsFinite(math.Inf(-1)))
	assert.True(t, IsFinite(0))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}

func TestDist(t *testing.T) {
	assert.Equal(t, 5.0, Dist(Vec{0, 0}, Vec{3, 4}))
	assert.Equal(t, 0.0, Dist(Vec{1, 1}, Vec{1, 1}))
}
