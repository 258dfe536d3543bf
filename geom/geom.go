/*package geom provides the 2D vector math used by every physics package in
ionsim.
*/
package geom

import (
	"math"
)

type Vec struct {
	X, Y float64
}

func (v Vec) Add(u Vec) Vec { return Vec{v.X + u.X, v.Y + u.Y} }
func (v Vec) Sub(u Vec) Vec { return Vec{v.X - u.X, v.Y - u.Y} }
func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s} }

func (v Vec) Dot(u Vec) float64 { return v.X*u.X + v.Y*u.Y }
func (v Vec) MagSq() float64 { return v.X*v.X + v.Y*v.Y }
func (v Vec) Mag() float64 { return math.Sqrt(v.MagSq()) }

// Normalized returns the unit vector along v, or the zero vector if v is
// shorter than eps.
func (v Vec) Normalized() Vec {
	m := v.Mag()
	if m < 1e-12 {
		return Vec{}
	}
	return v.Scale(1 / m)
}

func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }

func (v Vec) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func IsFinite(x float64) bool { return isFinite(x) }

func Clamp(x, low, high float64) float64 {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

// Dist returns the distance between two points.
func Dist(p1, p2 Vec) float64 { return p1.Sub(p2).Mag() }
