/*package rand supplies the deterministic random number generator used by the
simulation core. A simulation owns exactly one Generator, and its state is
part of every snapshot so that a restored run reproduces the same trajectory
as an uninterrupted one.
*/
package rand

import (
	"math"
	"time"
)

// Generator is an xorshift64* generator. It is not safe for concurrent use;
// the simulation only draws from it in sequential pipeline phases.
type Generator struct {
	state uint64
}

func New(seed uint64) *Generator {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return &Generator{state: seed}
}

func NewTimeSeed() *Generator {
	return New(uint64(time.Now().UnixNano()))
}

// State exposes the internal state for snapshotting.
func (g *Generator) State() uint64 { return g.state }

// SetState restores a state captured by State.
func (g *Generator) SetState(s uint64) {
	if s == 0 {
		s = 0x9e3779b97f4a7c15
	}
	g.state = s
}

func (g *Generator) next() uint64 {
	x := g.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	g.state = x
	return x * 0x2545f4914f6cdd1d
}

// Float64 returns a uniform draw from [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.next()>>11) / (1 << 53)
}

// Uniform returns a uniform draw from [low, high).
func (g *Generator) Uniform(low, high float64) float64 {
	return low + (high-low)*g.Float64()
}

// UniformInt returns a uniform draw from [low, high).
func (g *Generator) UniformInt(low, high int) int {
	if high <= low {
		return low
	}
	return low + int(g.next()%uint64(high-low))
}

// Gaussian returns a normal draw with the given mean and standard deviation.
// The second Box-Muller variate is discarded so that Generator state stays a
// single word.
func (g *Generator) Gaussian(mean, sigma float64) float64 {
	u1 := g.Float64()
	for u1 == 0 {
		u1 = g.Float64()
	}
	u2 := g.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + sigma*z
}

// Shuffle permutes idxs in place.
func (g *Generator) Shuffle(idxs []int) {
	for i := len(idxs) - 1; i > 0; i-- {
		j := g.UniformInt(0, i+1)
		idxs[i], idxs[j] = idxs[j], idxs[i]
	}
}
