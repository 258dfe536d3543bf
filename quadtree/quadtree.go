/*package quadtree implements the Barnes-Hut spatial index used for Coulomb
field evaluation and exact radius-bounded neighbor queries.

The tree is arena-allocated: nodes live in one slice with index-based child
references and are cleared and rebuilt every step rather than incrementally
updated. Leaves store index ranges into a permutation of the body array, so
building never reorders the caller's bodies.
*/
package quadtree

import (
	"math"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
)

// Quad is an axis-aligned square region.
type Quad struct {
	Center geom.Vec
	Size   float64
}

// boundingQuad returns the smallest square covering every body.
func boundingQuad(bodies []body.Body) Quad {
	if len(bodies) == 0 {
		return Quad{Size: 1}
	}
	minX, minY := bodies[0].Pos.X, bodies[0].Pos.Y
	maxX, maxY := minX, minY
	for i := 1; i < len(bodies); i++ {
		p := bodies[i].Pos
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	size := maxX - minX
	if maxY-minY > size {
		size = maxY - minY
	}
	if size == 0 {
		size = 1
	}
	return Quad{
		Center: geom.Vec{X: (minX + maxX) / 2, Y: (minY + maxY) / 2},
		Size:   size,
	}
}

// quadrant returns the i-th subquadrant: bit 0 selects east, bit 1 north.
func (q Quad) quadrant(i int) Quad {
	half := q.Size * 0.5
	return Quad{
		Center: geom.Vec{
			X: q.Center.X + (float64(i&1)-0.5)*half,
			Y: q.Center.Y + (float64(i>>1)-0.5)*half,
		},
		Size: half,
	}
}

// Node is one tree cell. Children is the arena index of the first of four
// consecutive children, or 0 for a leaf. Next is the arena index of the node
// visited after skipping this subtree, enabling the stackless field walk.
type Node struct {
	Children int
	Next     int

	Quad Quad

	// Aggregates: total charge, total mass and the charge-weighted center
	// (falling back to mass- then geometry-weighted when charge cancels).
	Pos    geom.Vec
	Mass   float64
	Charge float64

	// Bodies covered by this node as a range into the index permutation.
	Lo, Hi int
}

func (n *Node) isLeaf() bool { return n.Children == 0 }

const root = 0

// maxDepth caps subdivision so that coincident particles share a leaf bucket
// instead of recursing forever.
const maxDepth = 48

// Tree is a Barnes-Hut quadtree over a snapshot of body positions. It is
// valid until the next Build call; queries are read-only and may run
// concurrently.
type Tree struct {
	Theta   float64 // multipole acceptance parameter
	Epsilon float64 // Coulomb softening length
	LeafCap int

	nodes []Node
	idx   []int // permutation of body indices backing leaf ranges
}

// New returns an empty tree with the given approximation parameters.
func New(theta, epsilon float64, leafCap int) *Tree {
	if leafCap < 1 {
		leafCap = 1
	}
	return &Tree{Theta: theta, Epsilon: epsilon, LeafCap: leafCap}
}

// Len returns the number of indexed bodies.
func (t *Tree) Len() int { return len(t.idx) }

// Build reconstructs the tree over the current body positions, reusing the
// node arena from the previous step.
func (t *Tree) Build(bodies []body.Body) {
	t.nodes = t.nodes[:0]
	if cap(t.idx) < len(bodies) {
		t.idx = make([]int, len(bodies))
	}
	t.idx = t.idx[:len(bodies)]
	for i := range t.idx {
		t.idx[i] = i
	}
	if len(bodies) == 0 {
		return
	}

	t.nodes = append(t.nodes, Node{
		Quad: boundingQuad(bodies),
		Lo:   0, Hi: len(bodies),
	})
	t.subdivide(bodies, root, 0)
	t.propagate(bodies)
}

// subdivide splits node ni recursively until each leaf holds at most LeafCap
// bodies or the depth limit is reached.
func (t *Tree) subdivide(bodies []body.Body, ni, depth int) {
	n := &t.nodes[ni]
	if n.Hi-n.Lo <= t.LeafCap || depth >= maxDepth || n.Quad.Size < 1e-9 {
		return
	}

	center := n.Quad.Center
	lo, hi := n.Lo, n.Hi

	// Partition the index range into the four quadrants: south/north split
	// first, then west/east within each half.
	mid := t.partition(bodies, lo, hi, func(p geom.Vec) bool { return p.Y < center.Y })
	q0 := t.partition(bodies, lo, mid, func(p geom.Vec) bool { return p.X < center.X })
	q2 := t.partition(bodies, mid, hi, func(p geom.Vec) bool { return p.X < center.X })
	split := [5]int{lo, q0, mid, q2, hi}

	children := len(t.nodes)
	t.nodes[ni].Children = children
	parentNext := t.nodes[ni].Next

	for i := 0; i < 4; i++ {
		next := children + i + 1
		if i == 3 {
			next = parentNext
		}
		t.nodes = append(t.nodes, Node{
			Next: next,
			Quad: t.nodes[ni].Quad.quadrant(i),
			Lo:   split[i], Hi: split[i+1],
		})
	}
	for i := 0; i < 4; i++ {
		if split[i+1] > split[i] {
			t.subdivide(bodies, children+i, depth+1)
		}
	}
}

// partition reorders idx[lo:hi] so that bodies satisfying pred come first,
// returning the boundary.
func (t *Tree) partition(bodies []body.Body, lo, hi int, pred func(geom.Vec) bool) int {
	i := lo
	for j := lo; j < hi; j++ {
		if pred(bodies[t.idx[j]].Pos) {
			t.idx[i], t.idx[j] = t.idx[j], t.idx[i]
			i++
		}
	}
	return i
}

// propagate fills node aggregates. Children always follow their parent in
// the arena, so a single reverse sweep sees every child before its parent.
func (t *Tree) propagate(bodies []body.Body) {
	for ni := len(t.nodes) - 1; ni >= 0; ni-- {
		n := &t.nodes[ni]
		if n.isLeaf() {
			var mass, charge, absCharge float64
			var chargePos, massPos, geomPos geom.Vec
			for _, bi := range t.idx[n.Lo:n.Hi] {
				b := &bodies[bi]
				mass += b.Mass
				charge += b.Charge
				a := b.Charge
				if a < 0 {
					a = -a
				}
				absCharge += a
				chargePos = chargePos.Add(b.Pos.Scale(a))
				massPos = massPos.Add(b.Pos.Scale(b.Mass))
				geomPos = geomPos.Add(b.Pos)
			}
			n.Mass, n.Charge = mass, charge
			n.Pos = aggregateCenter(chargePos, massPos, geomPos,
				absCharge, mass, n.Hi-n.Lo)
			continue
		}
		c := n.Children
		var mass, charge, absCharge float64
		var chargePos geom.Vec
		for i := 0; i < 4; i++ {
			child := &t.nodes[c+i]
			mass += child.Mass
			charge += child.Charge
			a := child.Charge
			if a < 0 {
				a = -a
			}
			absCharge += a
			chargePos = chargePos.Add(child.Pos.Scale(a))
		}
		n.Mass, n.Charge = mass, charge
		if absCharge > 1e-12 {
			n.Pos = chargePos.Scale(1 / absCharge)
		} else {
			// Net charge cancels; fall back to the direct span average.
			var geomPos geom.Vec
			for _, bi := range t.idx[n.Lo:n.Hi] {
				geomPos = geomPos.Add(bodies[bi].Pos)
			}
			n.Pos = geomPos.Scale(1 / float64(n.Hi-n.Lo))
		}
	}
}

func aggregateCenter(
	chargePos, massPos, geomPos geom.Vec,
	absCharge, mass float64, count int,
) geom.Vec {
	switch {
	case absCharge > 1e-12:
		return chargePos.Scale(1 / absCharge)
	case mass > 1e-12:
		return massPos.Scale(1 / mass)
	case count > 0:
		return geomPos.Scale(1 / float64(count))
	}
	return geom.Vec{}
}

// FieldAt evaluates the electrostatic field at a point using the multipole
// acceptance criterion: a node acts as a single aggregate source when
// size/distance < theta, otherwise the walk descends. The force on a charge
// q at pos is q times the returned vector scaled by kCoulomb upstream.
//
// radius widens the minimum separation for near-contact evaluation; pass 0
// for a pure point probe. Bodies closer than ~1e-6 to the probe point are
// skipped so a particle does not feel itself. An empty or single-body tree
// contributes the expected zero or direct term with no error.
func (t *Tree) FieldAt(bodies []body.Body, pos geom.Vec, radius, kCoulomb float64) geom.Vec {
	if len(t.nodes) == 0 {
		return geom.Vec{}
	}
	tSq := t.Theta * t.Theta
	eSq := t.Epsilon * t.Epsilon

	var field geom.Vec
	ni := root
	for {
		n := &t.nodes[ni]
		d := pos.Sub(n.Pos)
		distSq := d.MagSq()

		distAdj := d.Mag() - radius
		if distAdj < 0 {
			distAdj = 0
		}

		if n.Quad.Size*n.Quad.Size < distAdj*distAdj*tSq {
			field = field.Add(softened(d, distSq, n.Charge, kCoulomb, eSq, radius+n.Quad.Size*0.5))
			if n.Next == 0 {
				break
			}
			ni = n.Next
		} else if n.isLeaf() {
			for _, bi := range t.idx[n.Lo:n.Hi] {
				b := &bodies[bi]
				sep := pos.Sub(b.Pos)
				sepSq := sep.MagSq()
				if sepSq < 1e-12 {
					continue
				}
				field = field.Add(softened(sep, sepSq, b.Charge, kCoulomb, eSq, radius+b.Radius))
			}
			if n.Next == 0 {
				break
			}
			ni = n.Next
		} else {
			ni = n.Children
		}
	}
	return field
}

// softened is the softened Coulomb kernel: d * k*q / ((r_eff^2 + eps^2) *
// r_eff), with r_eff never below the contact separation.
func softened(d geom.Vec, distSq, q, k, eSq, minSep float64) geom.Vec {
	rEff := math.Sqrt(distSq)
	if rEff < minSep {
		rEff = minSep
	}
	denom := (rEff*rEff + eSq) * rEff
	if denom == 0 {
		return geom.Vec{}
	}
	return d.Scale(k * q / denom)
}

// NeighborsWithin appends to out the indices of all bodies within cutoff of
// body i, excluding i itself. The result is exact regardless of Theta:
// subtrees are pruned only by rigorous box-distance bounds. out is reused to
// avoid per-call allocation; pass nil for a fresh slice.
func (t *Tree) NeighborsWithin(bodies []body.Body, i int, cutoff float64, out []int) []int {
	out = out[:0]
	if len(t.nodes) == 0 || cutoff < 0 {
		return out
	}
	pos := bodies[i].Pos
	cutoffSq := cutoff * cutoff

	stack := [maxDepth * 4]int{}
	top := 0
	stack[top] = root
	top++

	for top > 0 {
		top--
		n := &t.nodes[stack[top]]

		// Minimum squared distance from pos to the node's square.
		half := n.Quad.Size * 0.5
		dx := diffOutside(pos.X, n.Quad.Center.X-half, n.Quad.Center.X+half)
		dy := diffOutside(pos.Y, n.Quad.Center.Y-half, n.Quad.Center.Y+half)
		if dx*dx+dy*dy > cutoffSq {
			continue
		}

		if n.isLeaf() {
			for _, bi := range t.idx[n.Lo:n.Hi] {
				if bi != i && bodies[bi].Pos.Sub(pos).MagSq() <= cutoffSq {
					out = append(out, bi)
				}
			}
			continue
		}
		for c := 0; c < 4; c++ {
			child := n.Children + c
			if t.nodes[child].Hi > t.nodes[child].Lo {
				stack[top] = child
				top++
			}
		}
	}
	return out
}

func diffOutside(p, min, max float64) float64 {
	if p < min {
		return min - p
	} else if p > max {
		return p - max
	}
	return 0
}
