/*package io reads and writes binary simulation state files. State files are
exact: a simulation restored from one replays the same trajectory as the run
it was captured from.
*/
package io

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/sim"
	"github.com/electroworks/ionsim/species"
)

const (
	// Endianness flag written at the head of every state file. Files of any
	// endianness can be read.
	DefaultEndiannessFlag int32 = -1
)

/*
The binary format used for state files is as follows:
    |-- 1 --||-- 2 --||-- ... 3 ... --||-- ... 4 ... --||-- ... 5 ... --|

    1 - (int32) Flag indicating the endianness of the file. 0 indicates a big
        endian byte ordering and -1 indicates a little endian byte order.
    2 - (int32) Size of a stateHeader struct. Should be checked for
        consistency.
    3 - (stateHeader) Frame counters, RNG state, record counts, and the full
        config the snapshot was taken under. Restoring a state file needs no
        scenario file.
    4 - ([]bodyRecord) One fixed-size record per particle.
    5 - (per foil: foilRecord, then []uint64 member IDs) Foil drive state.
*/
type stateHeader struct {
	Frame    int64
	Time     float64
	RNGState uint64

	BodyCount int64
	FoilCount int64

	SEIElectronsConsumed  int64
	IntercalatedIons      int64
	FoilElectronsInjected int64
	FoilElectronsRemoved  int64

	Config configRecord
}

// configRecord mirrors sim.Config with fixed-size fields. Nesting it in the
// header puts config layout changes under the same header-size check as the
// rest of the format.
type configRecord struct {
	DT      float64
	Theta   float64
	Epsilon float64
	LeafCap int64

	CoulombConstant float64

	DomainWidth  float64
	DomainHeight float64

	BackgroundFieldX float64
	BackgroundFieldY float64

	DampingBase float64

	CollisionPasses    int64
	CollisionPassScale float64
	CollisionSoftness  float64
	MaxLJForce         float64

	ElectronSpringK           float64
	ElectronMaxSpeedFactor    float64
	ElectronDriftRadiusFactor float64

	HopRadiusFactor      float64
	BVTransferCoeff      float64
	BVOverpotentialScale float64
	BVExchangeCurrent    float64
	PhiPerCharge         float64
	OverpotentialMargin  float64
	HopAlignmentBias     float64
	VacancyPolarGain     float64

	SurroundRadiusFactor float64
	SurroundThreshold    int64

	StackPressureStrength float64
	StackPressureDepth    float64

	ZStiffness  float64
	ZDamping    float64
	MaxZ        float64
	ZNoiseScale float64

	SEIFormationRate     float64
	SEIFormationBias     float64
	SEIElectronsPerEvent int64
	SEIRadiusScale       float64

	IntercalationRate float64
	HostCapacity      float64

	TargetTemperature  float64
	ThermostatInterval int64

	FoilKp, FoilKi, FoilKd float64

	Workers int64

	StackPressureEnabled bool
	OutOfPlaneEnabled    bool
	SEIEnabled           bool
	IntercalationEnabled bool
	Pad                  [4]byte
}

func packConfig(cfg sim.Config) configRecord {
	return configRecord{
		DT:      cfg.DT,
		Theta:   cfg.Theta,
		Epsilon: cfg.Epsilon,
		LeafCap: int64(cfg.LeafCap),

		CoulombConstant: cfg.CoulombConstant,

		DomainWidth:  cfg.DomainWidth,
		DomainHeight: cfg.DomainHeight,

		BackgroundFieldX: cfg.BackgroundField.X,
		BackgroundFieldY: cfg.BackgroundField.Y,

		DampingBase: cfg.DampingBase,

		CollisionPasses:    int64(cfg.CollisionPasses),
		CollisionPassScale: cfg.CollisionPassScale,
		CollisionSoftness:  cfg.CollisionSoftness,
		MaxLJForce:         cfg.MaxLJForce,

		ElectronSpringK:           cfg.ElectronSpringK,
		ElectronMaxSpeedFactor:    cfg.ElectronMaxSpeedFactor,
		ElectronDriftRadiusFactor: cfg.ElectronDriftRadiusFactor,

		HopRadiusFactor:      cfg.HopRadiusFactor,
		BVTransferCoeff:      cfg.BVTransferCoeff,
		BVOverpotentialScale: cfg.BVOverpotentialScale,
		BVExchangeCurrent:    cfg.BVExchangeCurrent,
		PhiPerCharge:         cfg.PhiPerCharge,
		OverpotentialMargin:  cfg.OverpotentialMargin,
		HopAlignmentBias:     cfg.HopAlignmentBias,
		VacancyPolarGain:     cfg.VacancyPolarGain,

		SurroundRadiusFactor: cfg.SurroundRadiusFactor,
		SurroundThreshold:    int64(cfg.SurroundThreshold),

		StackPressureStrength: cfg.StackPressureStrength,
		StackPressureDepth:    cfg.StackPressureDepth,

		ZStiffness:  cfg.ZStiffness,
		ZDamping:    cfg.ZDamping,
		MaxZ:        cfg.MaxZ,
		ZNoiseScale: cfg.ZNoiseScale,

		SEIFormationRate:     cfg.SEIFormationRate,
		SEIFormationBias:     cfg.SEIFormationBias,
		SEIElectronsPerEvent: int64(cfg.SEIElectronsPerEvent),
		SEIRadiusScale:       cfg.SEIRadiusScale,

		IntercalationRate: cfg.IntercalationRate,
		HostCapacity:      cfg.HostCapacity,

		TargetTemperature:  cfg.TargetTemperature,
		ThermostatInterval: int64(cfg.ThermostatInterval),

		FoilKp: cfg.FoilKp, FoilKi: cfg.FoilKi, FoilKd: cfg.FoilKd,

		Workers: int64(cfg.Workers),

		StackPressureEnabled: cfg.StackPressureEnabled,
		OutOfPlaneEnabled:    cfg.OutOfPlaneEnabled,
		SEIEnabled:           cfg.SEIEnabled,
		IntercalationEnabled: cfg.IntercalationEnabled,
	}
}

func unpackConfig(rec *configRecord) sim.Config {
	return sim.Config{
		DT:      rec.DT,
		Theta:   rec.Theta,
		Epsilon: rec.Epsilon,
		LeafCap: int(rec.LeafCap),

		CoulombConstant: rec.CoulombConstant,

		DomainWidth:  rec.DomainWidth,
		DomainHeight: rec.DomainHeight,

		BackgroundField: geom.Vec{X: rec.BackgroundFieldX, Y: rec.BackgroundFieldY},

		DampingBase: rec.DampingBase,

		CollisionPasses:    int(rec.CollisionPasses),
		CollisionPassScale: rec.CollisionPassScale,
		CollisionSoftness:  rec.CollisionSoftness,
		MaxLJForce:         rec.MaxLJForce,

		ElectronSpringK:           rec.ElectronSpringK,
		ElectronMaxSpeedFactor:    rec.ElectronMaxSpeedFactor,
		ElectronDriftRadiusFactor: rec.ElectronDriftRadiusFactor,

		HopRadiusFactor:      rec.HopRadiusFactor,
		BVTransferCoeff:      rec.BVTransferCoeff,
		BVOverpotentialScale: rec.BVOverpotentialScale,
		BVExchangeCurrent:    rec.BVExchangeCurrent,
		PhiPerCharge:         rec.PhiPerCharge,
		OverpotentialMargin:  rec.OverpotentialMargin,
		HopAlignmentBias:     rec.HopAlignmentBias,
		VacancyPolarGain:     rec.VacancyPolarGain,

		SurroundRadiusFactor: rec.SurroundRadiusFactor,
		SurroundThreshold:    int(rec.SurroundThreshold),

		StackPressureEnabled:  rec.StackPressureEnabled,
		StackPressureStrength: rec.StackPressureStrength,
		StackPressureDepth:    rec.StackPressureDepth,

		OutOfPlaneEnabled: rec.OutOfPlaneEnabled,
		ZStiffness:        rec.ZStiffness,
		ZDamping:          rec.ZDamping,
		MaxZ:              rec.MaxZ,
		ZNoiseScale:       rec.ZNoiseScale,

		SEIEnabled:           rec.SEIEnabled,
		SEIFormationRate:     rec.SEIFormationRate,
		SEIFormationBias:     rec.SEIFormationBias,
		SEIElectronsPerEvent: int(rec.SEIElectronsPerEvent),
		SEIRadiusScale:       rec.SEIRadiusScale,

		IntercalationEnabled: rec.IntercalationEnabled,
		IntercalationRate:    rec.IntercalationRate,
		HostCapacity:         rec.HostCapacity,

		TargetTemperature:  rec.TargetTemperature,
		ThermostatInterval: int(rec.ThermostatInterval),

		FoilKp: rec.FoilKp, FoilKi: rec.FoilKi, FoilKd: rec.FoilKd,

		Workers: int(rec.Workers),
	}
}

type electronRecord struct {
	RelX, RelY, VelX, VelY float64
}

type bodyRecord struct {
	ID                     uint64
	PosX, PosY, VelX, VelY float64
	Mass, Radius, Charge   float64

	Species       int32
	ElectronCount int32
	Electrons     [body.MaxElectrons]electronRecord

	Z, VZ, AZ float64

	Lithium    float64
	Surrounded bool
	Pad        [7]byte
}

type foilRecord struct {
	ID       uint64
	Mode     int32
	LinkMode int32
	Setpoint float64

	ACAmplitude float64
	SwitchHz    float64

	Accum        float64
	NetElectrons int64
	Bias         float64
	Link         uint64

	Kp, Ki, Kd        float64
	Integral, PrevErr float64
	ControllerPrimed  bool
	Pad               [7]byte
	MemberCount       int64
}

func packBody(b *body.Body) bodyRecord {
	rec := bodyRecord{
		ID:   uint64(b.ID),
		PosX: b.Pos.X, PosY: b.Pos.Y,
		VelX: b.Vel.X, VelY: b.Vel.Y,
		Mass: b.Mass, Radius: b.Radius, Charge: b.Charge,

		Species:       int32(b.Species),
		ElectronCount: int32(b.Electrons.Len()),

		Z: b.Z, VZ: b.VZ, AZ: b.AZ,

		Lithium:    b.Lithium,
		Surrounded: b.Surrounded,
	}
	for i := 0; i < b.Electrons.Len(); i++ {
		e := b.Electrons.At(i)
		rec.Electrons[i] = electronRecord{
			RelX: e.Rel.X, RelY: e.Rel.Y,
			VelX: e.Vel.X, VelY: e.Vel.Y,
		}
	}
	return rec
}

func unpackBody(rec *bodyRecord) (body.Body, error) {
	sp := species.Species(rec.Species)
	if !sp.Valid() {
		return body.Body{}, fmt.Errorf(
			"State file contains invalid species index %d.", rec.Species,
		)
	}
	if rec.ElectronCount < 0 || rec.ElectronCount > body.MaxElectrons {
		return body.Body{}, fmt.Errorf(
			"State file contains invalid electron count %d.", rec.ElectronCount,
		)
	}

	b := body.Body{
		ID:     body.ID(rec.ID),
		Pos:    geom.Vec{X: rec.PosX, Y: rec.PosY},
		Vel:    geom.Vec{X: rec.VelX, Y: rec.VelY},
		Mass:   rec.Mass,
		Radius: rec.Radius,
		Charge: rec.Charge,

		Species: sp,

		Z: rec.Z, VZ: rec.VZ, AZ: rec.AZ,

		Lithium:    rec.Lithium,
		Surrounded: rec.Surrounded,
	}
	for i := int32(0); i < rec.ElectronCount; i++ {
		e := rec.Electrons[i]
		b.Electrons.Push(body.Electron{
			Rel: geom.Vec{X: e.RelX, Y: e.RelY},
			Vel: geom.Vec{X: e.VelX, Y: e.VelY},
		})
	}
	return b, nil
}

// WriteState writes a snapshot to fname in the state file format.
func WriteState(fname string, snap sim.Snapshot) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeState(f, snap)
}

func writeState(w io.Writer, snap sim.Snapshot) error {
	order := binary.ByteOrder(binary.LittleEndian)

	hd := stateHeader{
		Frame:    snap.Frame,
		Time:     snap.Time,
		RNGState: snap.RNGState,

		BodyCount: int64(len(snap.Bodies)),
		FoilCount: int64(len(snap.Foils)),

		SEIElectronsConsumed:  snap.SEIElectronsConsumed,
		IntercalatedIons:      snap.IntercalatedIons,
		FoilElectronsInjected: snap.FoilElectronsInjected,
		FoilElectronsRemoved:  snap.FoilElectronsRemoved,

		Config: packConfig(snap.Config),
	}

	if err := binary.Write(w, order, DefaultEndiannessFlag); err != nil {
		return err
	}
	if err := binary.Write(w, order, int32(binary.Size(hd))); err != nil {
		return err
	}
	if err := binary.Write(w, order, hd); err != nil {
		return err
	}

	for i := range snap.Bodies {
		if err := binary.Write(w, order, packBody(&snap.Bodies[i])); err != nil {
			return err
		}
	}

	for i := range snap.Foils {
		fl := &snap.Foils[i]
		rec := foilRecord{
			ID:       fl.ID,
			Mode:     int32(fl.Mode),
			LinkMode: int32(fl.LinkMode),
			Setpoint: fl.Setpoint,

			ACAmplitude: fl.ACAmplitude,
			SwitchHz:    fl.SwitchHz,

			Accum:        fl.Accum,
			NetElectrons: fl.NetElectrons,
			Bias:         fl.Bias,
			Link:         fl.Link,

			Kp: fl.Controller.Kp, Ki: fl.Controller.Ki, Kd: fl.Controller.Kd,
			Integral: fl.Controller.Integral, PrevErr: fl.Controller.PrevErr,
			ControllerPrimed: fl.Controller.Primed(),

			MemberCount: int64(len(fl.BodyIDs)),
		}
		if err := binary.Write(w, order, rec); err != nil {
			return err
		}
		ids := make([]uint64, len(fl.BodyIDs))
		for k, id := range fl.BodyIDs {
			ids[k] = uint64(id)
		}
		if err := binary.Write(w, order, ids); err != nil {
			return err
		}
	}
	return nil
}

// ReadState reads a snapshot from a state file.
func ReadState(fname string) (sim.Snapshot, error) {
	f, err := os.Open(fname)
	if err != nil {
		return sim.Snapshot{}, err
	}
	defer f.Close()
	return readState(f, fname)
}

func readState(r io.Reader, fname string) (sim.Snapshot, error) {
	snap := sim.Snapshot{}

	var flag int32
	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return snap, err
	}
	var order binary.ByteOrder = binary.LittleEndian
	if flag == 0 {
		order = binary.BigEndian
	} else if flag != DefaultEndiannessFlag {
		return snap, fmt.Errorf(
			"'%s' has unrecognized endianness flag %d.", fname, flag,
		)
	}

	hd := stateHeader{}
	var hdSize int32
	if err := binary.Read(r, order, &hdSize); err != nil {
		return snap, err
	}
	if int(hdSize) != binary.Size(hd) {
		return snap, fmt.Errorf(
			"'%s' has header size %d, but %d is expected. The file was "+
				"probably written by an incompatible version.",
			fname, hdSize, binary.Size(hd),
		)
	}
	if err := binary.Read(r, order, &hd); err != nil {
		return snap, err
	}
	if hd.BodyCount < 0 || hd.FoilCount < 0 {
		return snap, fmt.Errorf("'%s' has negative record counts.", fname)
	}

	snap.Frame = hd.Frame
	snap.Time = hd.Time
	snap.RNGState = hd.RNGState
	snap.SEIElectronsConsumed = hd.SEIElectronsConsumed
	snap.IntercalatedIons = hd.IntercalatedIons
	snap.FoilElectronsInjected = hd.FoilElectronsInjected
	snap.FoilElectronsRemoved = hd.FoilElectronsRemoved
	snap.Config = unpackConfig(&hd.Config)

	snap.Bodies = make([]body.Body, hd.BodyCount)
	for i := range snap.Bodies {
		rec := bodyRecord{}
		if err := binary.Read(r, order, &rec); err != nil {
			return snap, err
		}
		b, err := unpackBody(&rec)
		if err != nil {
			return snap, err
		}
		snap.Bodies[i] = b
	}

	snap.Foils = make([]body.Foil, hd.FoilCount)
	for i := range snap.Foils {
		rec := foilRecord{}
		if err := binary.Read(r, order, &rec); err != nil {
			return snap, err
		}
		if rec.MemberCount < 0 {
			return snap, fmt.Errorf("'%s' has a negative foil roster.", fname)
		}
		fl := body.Foil{
			ID:       rec.ID,
			Mode:     body.SetpointMode(rec.Mode),
			LinkMode: body.LinkMode(rec.LinkMode),
			Setpoint: rec.Setpoint,

			ACAmplitude: rec.ACAmplitude,
			SwitchHz:    rec.SwitchHz,

			Accum:        rec.Accum,
			NetElectrons: rec.NetElectrons,
			Bias:         rec.Bias,
			Link:         rec.Link,
		}
		fl.Controller = body.PID{
			Kp: rec.Kp, Ki: rec.Ki, Kd: rec.Kd,
			Integral: rec.Integral, PrevErr: rec.PrevErr,
		}
		if rec.ControllerPrimed {
			fl.Controller.Prime()
		}

		ids := make([]uint64, rec.MemberCount)
		if err := binary.Read(r, order, ids); err != nil {
			return snap, err
		}
		fl.BodyIDs = make([]body.ID, len(ids))
		for k := range ids {
			fl.BodyIDs[k] = body.ID(ids[k])
		}
		snap.Foils[i] = fl
	}
	return snap, nil
}
