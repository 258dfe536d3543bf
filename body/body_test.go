package body

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/species"
)

func TestNewBody(t *testing.T) {
	b := New(species.LithiumIon, geom.Vec{X: 1, Y: 2}, geom.Vec{})
	assert.Equal(t, 6.94, b.Mass)
	assert.Equal(t, 0.76, b.Radius)
	assert.Equal(t, 1.0, b.Charge)
	assert.Equal(t, 0, b.Electrons.Len())

	m := New(species.LithiumMetal, geom.Vec{}, geom.Vec{})
	assert.Equal(t, 0.0, m.Charge)
	assert.Equal(t, 1, m.Electrons.Len())

	assert.NotEqual(t, b.ID, m.ID)
}

func TestUpdateCharge(t *testing.T) {
	b := New(species.LithiumMetal, geom.Vec{}, geom.Vec{})

	b.Electrons.Push(Electron{})
	b.UpdateCharge()
	assert.Equal(t, -1.0, b.Charge)
	assert.Equal(t, 1, b.ElectronSurplus())

	b.Electrons.Pop()
	b.Electrons.Pop()
	b.UpdateCharge()
	assert.Equal(t, 1.0, b.Charge)
	assert.Equal(t, -1, b.ElectronSurplus())
}

func TestElectronListBounds(t *testing.T) {
	l := ElectronList{}
	for i := 0; i < MaxElectrons; i++ {
		assert.True(t, l.Push(Electron{}))
	}
	assert.False(t, l.Push(Electron{}))
	assert.Equal(t, MaxElectrons, l.Len())

	for i := 0; i < MaxElectrons; i++ {
		_, ok := l.Pop()
		assert.True(t, ok)
	}
	_, ok := l.Pop()
	assert.False(t, ok)
}

func TestRedoxIonToMetal(t *testing.T) {
	b := New(species.LithiumIon, geom.Vec{}, geom.Vec{})
	b.Electrons.Push(Electron{})
	b.UpdateCharge()
	assert.Equal(t, 0.0, b.Charge)

	assert.True(t, b.ApplyRedox())
	assert.Equal(t, species.LithiumMetal, b.Species)
	// Metal with one electron is neutral: charge is recomputed for the new
	// species, not carried over.
	assert.Equal(t, 0.0, b.Charge)
}

func TestRedoxMetalToIon(t *testing.T) {
	b := New(species.LithiumMetal, geom.Vec{}, geom.Vec{})
	b.Electrons.Pop()
	b.UpdateCharge()
	assert.Equal(t, 1.0, b.Charge)

	assert.True(t, b.ApplyRedox())
	assert.Equal(t, species.LithiumIon, b.Species)
	assert.Equal(t, 1.0, b.Charge)
}

func TestRedoxStable(t *testing.T) {
	// Neutral metal and bare ion sit on the stable side of their thresholds.
	m := New(species.LithiumMetal, geom.Vec{}, geom.Vec{})
	assert.False(t, m.ApplyRedox())

	ion := New(species.LithiumIon, geom.Vec{}, geom.Vec{})
	assert.False(t, ion.ApplyRedox())

	// Foil metal never converts, no matter the charge.
	f := New(species.FoilMetal, geom.Vec{}, geom.Vec{})
	f.Electrons.Pop()
	f.UpdateCharge()
	assert.False(t, f.ApplyRedox())
}

func TestPIDUpdate(t *testing.T) {
	c := PID{Kp: 2}
	out := c.Update(0, 1, 0.1)
	assert.InDelta(t, 2.0, out, 1e-12)

	c = PID{Ki: 1}
	c.Update(0, 1, 0.5)
	out = c.Update(0, 1, 0.5)
	assert.InDelta(t, 1.0, out, 1e-12)

	// Derivative term needs a previous error before it contributes.
	c = PID{Kd: 1}
	out = c.Update(0, 1, 0.5)
	assert.InDelta(t, 0.0, out, 1e-12)
	out = c.Update(0.5, 1, 0.5)
	assert.InDelta(t, -1.0, out, 1e-12)

	c.Reset()
	assert.Equal(t, 0.0, c.Integral)
	assert.False(t, c.Primed())
}

func TestEffectiveCurrent(t *testing.T) {
	f := Foil{ACAmplitude: 2, SwitchHz: 1}
	assert.Equal(t, 12.0, f.EffectiveCurrent(10, 0.0))
	assert.Equal(t, 12.0, f.EffectiveCurrent(10, 0.25))
	assert.Equal(t, 8.0, f.EffectiveCurrent(10, 0.5))
	assert.Equal(t, 12.0, f.EffectiveCurrent(10, 1.0))

	dc := Foil{}
	assert.Equal(t, 10.0, dc.EffectiveCurrent(10, 0.3))
}

func TestReserveIDs(t *testing.T) {
	a := New(species.LithiumIon, geom.Vec{}, geom.Vec{})
	ReserveIDs(a.ID + 100)
	b := New(species.LithiumIon, geom.Vec{}, geom.Vec{})
	assert.Greater(t, uint64(b.ID), uint64(a.ID)+100)
}
