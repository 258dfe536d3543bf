/*package body defines the particle representation shared by the simulation
core: the Body struct, its bound-electron list, and the charge/redox rules
that keep net charge consistent with electron count.
*/
package body

import (
	"sync/atomic"

	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

// ID is a stable particle identifier. Array indices reshuffle when particles
// are removed; IDs never do.
type ID uint64

var nextID uint64

func newID() ID { return ID(atomic.AddUint64(&nextID, 1)) }

// ReserveIDs raises the ID counter so that future particles never collide
// with restored ones.
func ReserveIDs(min ID) {
	for {
		cur := atomic.LoadUint64(&nextID)
		if cur >= uint64(min) {
			return
		}
		if atomic.CompareAndSwapUint64(&nextID, cur, uint64(min)) {
			return
		}
	}
}

// Electron is a delocalized charge carrier bound to one particle. Rel is its
// drift offset from the particle center; it has no spatial existence outside
// the parent's neighborhood.
type Electron struct {
	Rel geom.Vec
	Vel geom.Vec
}

// MaxElectrons bounds the per-particle electron list. Bodies typically carry
// 0-2 electrons; the inline array avoids heap churn in the step loop.
const MaxElectrons = 4

type ElectronList struct {
	n int
	e [MaxElectrons]Electron
}

func (l *ElectronList) Len() int { return l.n }

func (l *ElectronList) Push(e Electron) bool {
	if l.n == MaxElectrons {
		return false
	}
	l.e[l.n] = e
	l.n++
	return true
}

func (l *ElectronList) Pop() (Electron, bool) {
	if l.n == 0 {
		return Electron{}, false
	}
	l.n--
	return l.e[l.n], true
}

func (l *ElectronList) At(i int) *Electron { return &l.e[i] }

func (l *ElectronList) Clear() { l.n = 0 }

// Body is one simulated particle. The sim package exclusively owns the body
// array; everything else sees transient slices scoped to a pipeline phase.
type Body struct {
	ID      ID
	Pos     geom.Vec
	Vel     geom.Vec
	Acc     geom.Vec
	Mass    float64
	Radius  float64
	Charge  float64
	Species species.Species

	Electrons ElectronList

	// Out-of-plane relief state (quasi-2D approximation).
	Z, VZ, AZ float64

	// Lithium content of intercalation host materials, in absorbed ions.
	Lithium float64

	// Set when the particle sits deep inside a metal cluster; such bodies
	// never donate electrons (electron-sea protection).
	Surrounded bool
}

// New builds a body of the given species at rest charge: mass, radius,
// neutral electron count and baseline charge all come from the species table.
func New(s species.Species, pos, vel geom.Vec) Body {
	p := species.ByTag(s)
	b := Body{
		ID:      newID(),
		Pos:     pos,
		Vel:     vel,
		Mass:    p.Mass,
		Radius:  p.Radius,
		Species: s,
	}
	for i := 0; i < p.NeutralElectrons; i++ {
		b.Electrons.Push(Electron{})
	}
	b.UpdateCharge()
	return b
}

// UpdateCharge recomputes net charge from the species baseline and the
// electron count delta. This is the only way charge may change; it never
// drifts independently of the electron list.
func (b *Body) UpdateCharge() {
	p := species.ByTag(b.Species)
	b.Charge = p.BaselineCharge - float64(b.Electrons.Len()-p.NeutralElectrons)
}

// ElectronSurplus is the electron count relative to the species' neutral
// count. Positive means reduced, negative oxidized.
func (b *Body) ElectronSurplus() int {
	return b.Electrons.Len() - species.ByTag(b.Species).NeutralElectrons
}

// ApplyRedox reassigns the species tag when net charge crosses the redox
// thresholds: a cation holding an electron becomes neutral metal, and metal
// stripped of all electrons reverts to the cation. Foil metal and immobile
// products never auto-convert. Reports whether the tag changed.
func (b *Body) ApplyRedox() bool {
	switch b.Species {
	case species.LithiumIon:
		if b.Charge <= 0 {
			b.Species = species.LithiumMetal
			b.UpdateCharge()
			return true
		}
	case species.LithiumMetal:
		if b.Charge > species.IonThreshold {
			b.Species = species.LithiumIon
			b.UpdateCharge()
			return true
		}
	}
	return false
}

// PolarDipole reports whether the body's species carries a drifting electron
// dipole.
func (b *Body) PolarDipole() bool {
	p := species.ByTag(b.Species)
	return p.PolarOffset > 0 && p.PolarCharge > 0
}
