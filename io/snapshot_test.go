package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/sim"
	"github.com/electroworks/ionsim/species"
)

func testSnapshot() sim.Snapshot {
	b1 := body.New(species.LithiumMetal, geom.Vec{X: 1, Y: 2}, geom.Vec{X: -3, Y: 0.5})
	b1.Electrons.Push(body.Electron{
		Rel: geom.Vec{X: 0.1, Y: -0.2},
		Vel: geom.Vec{X: 5, Y: 6},
	})
	b1.UpdateCharge()
	b1.Z, b1.VZ = 0.3, -0.1
	b1.Surrounded = true

	b2 := body.New(species.Graphite, geom.Vec{X: -4, Y: 7}, geom.Vec{})
	b2.Lithium = 0.5

	foil := body.Foil{
		ID:      3,
		BodyIDs: []body.ID{b1.ID, b2.ID},

		Mode:     body.OverpotentialMode,
		Setpoint: 0.25,

		ACAmplitude: 2,
		SwitchHz:    0.5,

		Accum:        -0.75,
		NetElectrons: 11,
		Bias:         -0.1,
		Link:         4,
		LinkMode:     body.LinkOpposite,
	}
	foil.Controller = body.PID{Kp: 2, Ki: 0.5, Integral: 1.25, PrevErr: -0.5}
	foil.Controller.Prime()

	cfg := sim.DefaultConfig()
	cfg.DT = 0.004
	cfg.CollisionPasses = 5
	cfg.BackgroundField = geom.Vec{X: 0.2, Y: -0.1}
	cfg.SEIEnabled = true
	cfg.Workers = 3

	return sim.Snapshot{
		Frame:    1234,
		Time:     3.085,
		RNGState: 0xdeadbeefcafe,

		Config: cfg,

		Bodies: []body.Body{b1, b2},
		Foils:  []body.Foil{foil},

		SEIElectronsConsumed:  7,
		IntercalatedIons:      2,
		FoilElectronsInjected: 40,
		FoilElectronsRemoved:  13,
	}
}

func TestStateRoundTrip(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "state.isim")
	want := testSnapshot()

	require.NoError(t, WriteState(fname, want))
	got, err := ReadState(fname)
	require.NoError(t, err)

	assert.Equal(t, want.Frame, got.Frame)
	assert.Equal(t, want.Time, got.Time)
	assert.Equal(t, want.RNGState, got.RNGState)
	assert.Equal(t, want.SEIElectronsConsumed, got.SEIElectronsConsumed)
	assert.Equal(t, want.IntercalatedIons, got.IntercalatedIons)
	assert.Equal(t, want.FoilElectronsInjected, got.FoilElectronsInjected)
	assert.Equal(t, want.FoilElectronsRemoved, got.FoilElectronsRemoved)

	// The config travels with the state file, field for field.
	assert.Equal(t, want.Config, got.Config)

	require.Len(t, got.Bodies, 2)
	for i := range want.Bodies {
		wb, gb := &want.Bodies[i], &got.Bodies[i]
		assert.Equal(t, wb.ID, gb.ID, "body %d", i)
		assert.Equal(t, wb.Pos, gb.Pos, "body %d", i)
		assert.Equal(t, wb.Vel, gb.Vel, "body %d", i)
		assert.Equal(t, wb.Charge, gb.Charge, "body %d", i)
		assert.Equal(t, wb.Species, gb.Species, "body %d", i)
		assert.Equal(t, wb.Electrons.Len(), gb.Electrons.Len(), "body %d", i)
		assert.Equal(t, wb.Z, gb.Z, "body %d", i)
		assert.Equal(t, wb.Lithium, gb.Lithium, "body %d", i)
		assert.Equal(t, wb.Surrounded, gb.Surrounded, "body %d", i)
	}
	e := got.Bodies[0].Electrons.At(1)
	assert.Equal(t, geom.Vec{X: 0.1, Y: -0.2}, e.Rel)
	assert.Equal(t, geom.Vec{X: 5, Y: 6}, e.Vel)

	require.Len(t, got.Foils, 1)
	wf, gf := &want.Foils[0], &got.Foils[0]
	assert.Equal(t, wf.ID, gf.ID)
	assert.Equal(t, wf.BodyIDs, gf.BodyIDs)
	assert.Equal(t, wf.Mode, gf.Mode)
	assert.Equal(t, wf.Setpoint, gf.Setpoint)
	assert.Equal(t, wf.Accum, gf.Accum)
	assert.Equal(t, wf.NetElectrons, gf.NetElectrons)
	assert.Equal(t, wf.Link, gf.Link)
	assert.Equal(t, wf.LinkMode, gf.LinkMode)
	assert.Equal(t, wf.Controller.Integral, gf.Controller.Integral)
	assert.Equal(t, wf.Controller.PrevErr, gf.Controller.PrevErr)
	assert.True(t, gf.Controller.Primed())
}

func TestReadRejectsGarbage(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "bad.isim")
	require.NoError(t, os.WriteFile(fname, []byte{42, 0, 0, 0, 1, 2, 3}, 0666))

	_, err := ReadState(fname)
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadState(filepath.Join(t.TempDir(), "nope.isim"))
	assert.Error(t, err)
}
