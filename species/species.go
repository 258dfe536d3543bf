/*package species defines the particle species tags and their static physical
properties. The property table is immutable after process start: physics code
reads it through Props and never mutates it. Anything tunable at run time
lives in the sim.Config snapshot instead.
*/
package species

import (
	"fmt"
	"math"
)

type Species int

const (
	// Mobile ions.
	LithiumIon Species = iota
	ElectrolyteAnion

	// Electrode metals.
	LithiumMetal
	FoilMetal

	// Polar solvents.
	EC
	DMC
	VC
	FEC
	EMC

	// Solid electrolytes.
	LLZO
	LLZT
	S40B

	// Intercalation electrode materials.
	Graphite
	HardCarbon
	SiliconOxide
	LTO
	LFP
	LMFP
	NMC
	NCA

	// Solid electrolyte interphase.
	SEI

	numSpecies
)

var names = [numSpecies]string{
	LithiumIon:       "LithiumIon",
	ElectrolyteAnion: "ElectrolyteAnion",
	LithiumMetal:     "LithiumMetal",
	FoilMetal:        "FoilMetal",
	EC:               "EC",
	DMC:              "DMC",
	VC:               "VC",
	FEC:              "FEC",
	EMC:              "EMC",
	LLZO:             "LLZO",
	LLZT:             "LLZT",
	S40B:             "S40B",
	Graphite:         "Graphite",
	HardCarbon:       "HardCarbon",
	SiliconOxide:     "SiliconOxide",
	LTO:              "LTO",
	LFP:              "LFP",
	LMFP:             "LMFP",
	NMC:              "NMC",
	NCA:              "NCA",
	SEI:              "SEI",
}

func (s Species) String() string {
	if s < 0 || s >= numSpecies {
		return fmt.Sprintf("Species(%d)", int(s))
	}
	return names[s]
}

func (s Species) Valid() bool { return s >= 0 && s < numSpecies }

// Count is the number of species tags.
const Count = int(numSpecies)

// Parse maps a species name from a scenario file to its tag.
func Parse(name string) (Species, error) {
	for s, n := range names {
		if n == name {
			return Species(s), nil
		}
	}
	return 0, fmt.Errorf("Unknown species '%s'.", name)
}

// Props holds the static physical constants of one species. Masses are in
// amu, lengths in angstroms.
type Props struct {
	Mass   float64
	Radius float64

	// Charge of the species with NeutralElectrons bound electrons.
	BaselineCharge   float64
	NeutralElectrons int

	// Per-species velocity damping multiplier applied during integration.
	Damping float64

	LJEnabled bool
	LJEpsilon float64
	LJSigma   float64
	LJCutoff  float64 // in multiples of LJSigma

	// Dipole model: maximum electron drift distance as a fraction of the
	// particle radius, and the effective charge carried by the drift.
	PolarOffset float64
	PolarCharge float64

	// Short-range osmotic repulsion between crowded solvents.
	RepulsionEnabled  bool
	RepulsionStrength float64
	RepulsionCutoff   float64

	// Equilibrium electrochemical potential used to gate electron donation.
	EqPotential float64

	// Collision correction damping in [0, 1]: 0 is a full hard-sphere
	// correction, 1 suppresses the correction entirely.
	Softness float64
}

const (
	defaultLJEpsilon = 500.0
	defaultLJSigma   = 0.8
	defaultLJCutoff  = 2.5

	polarChargeDefault = 0.3
)

var props = [numSpecies]Props{
	LithiumIon: {
		Mass: 6.94, Radius: 0.76,
		BaselineCharge: 1.0, NeutralElectrons: 0,
		Damping:  1.0,
		LJSigma:  defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 0.0,
		Softness:    0.3,
	},
	ElectrolyteAnion: {
		Mass: 145.0, Radius: 2.0,
		BaselineCharge: -1.0, NeutralElectrons: 1,
		Damping:  1.0,
		LJSigma:  defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.3, PolarCharge: polarChargeDefault,
		EqPotential: 4.5,
	},
	LithiumMetal: {
		Mass: 6.94, Radius: 1.52,
		BaselineCharge: 0.0, NeutralElectrons: 1,
		Damping:   0.01,
		LJEnabled: true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 1.2, PolarCharge: polarChargeDefault,
		EqPotential: 0.0,
	},
	FoilMetal: {
		Mass: 1e6, Radius: 1.52,
		BaselineCharge: 0.0, NeutralElectrons: 1,
		Damping:   0.1,
		LJEnabled: true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 1.2, PolarCharge: polarChargeDefault,
		EqPotential: 0.0,
	},
	EC: {
		Mass: 88.06, Radius: 2.5,
		NeutralElectrons: 1,
		Damping:          1.0,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.5, PolarCharge: 0.45,
		RepulsionEnabled: true, RepulsionStrength: 5.0, RepulsionCutoff: 5.0,
		EqPotential: 0.8,
	},
	DMC: {
		Mass: 90.08, Radius: 2.5,
		NeutralElectrons: 1,
		Damping:          1.0,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.35, PolarCharge: 0.25,
		RepulsionEnabled: true, RepulsionStrength: 5.0, RepulsionCutoff: 5.0,
		EqPotential: 1.0,
	},
	VC: {
		Mass: 86.0, Radius: 2.4,
		NeutralElectrons: 1,
		Damping:          1.0,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.5, PolarCharge: 0.5,
		RepulsionEnabled: true, RepulsionStrength: 5.0, RepulsionCutoff: 5.0,
		EqPotential: 1.3,
	},
	FEC: {
		Mass: 107.0, Radius: 2.5,
		NeutralElectrons: 1,
		Damping:          0.8,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.55, PolarCharge: 0.5,
		RepulsionEnabled: true, RepulsionStrength: 6.0, RepulsionCutoff: 5.0,
		EqPotential: 1.2,
	},
	EMC: {
		Mass: 104.0, Radius: 2.6,
		NeutralElectrons: 1,
		Damping:          1.0,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.35, PolarCharge: 0.25,
		RepulsionEnabled: true, RepulsionStrength: 4.5, RepulsionCutoff: 5.5,
		EqPotential: 1.0,
	},
	LLZO: {
		Mass: 840.0, Radius: 4.5,
		NeutralElectrons: 1,
		Damping:          0.2,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.15, PolarCharge: polarChargeDefault,
		EqPotential: 2.5,
	},
	LLZT: {
		Mass: 865.0, Radius: 4.7,
		NeutralElectrons: 1,
		Damping:          0.2,
		LJEnabled: true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.15, PolarCharge: polarChargeDefault,
		EqPotential: 2.5,
	},
	S40B: {
		Mass: 340.0, Radius: 4.2,
		NeutralElectrons: 1,
		Damping:          0.25,
		LJEnabled: true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		PolarOffset: 0.15, PolarCharge: polarChargeDefault,
		EqPotential: 2.2,
	},
	Graphite: {
		Mass: 72.0, Radius: 2.0,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 0.1,
	},
	HardCarbon: {
		Mass: 72.0, Radius: 2.1,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 0.2,
	},
	SiliconOxide: {
		Mass: 60.1, Radius: 2.2,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 0.4,
	},
	LTO: {
		Mass: 459.1, Radius: 3.2,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 1.55,
	},
	LFP: {
		Mass: 157.8, Radius: 2.8,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 3.4,
	},
	LMFP: {
		Mass: 155.0, Radius: 2.8,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 3.8,
	},
	NMC: {
		Mass: 96.8, Radius: 2.6,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 3.7,
	},
	NCA: {
		Mass: 96.1, Radius: 2.6,
		NeutralElectrons: 1,
		Damping:          0.05,
		LJEnabled:        true, LJEpsilon: defaultLJEpsilon,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 3.7,
	},
	SEI: {
		Mass: 120.0, Radius: 1.8,
		Damping: 0.01,
		LJSigma: defaultLJSigma, LJCutoff: defaultLJCutoff,
		EqPotential: 5.0,
		Softness:    0.0,
	},
}

// ByTag returns the property entry for a species tag. The returned pointer
// refers to the shared immutable table.
func ByTag(s Species) *Props {
	return &props[s]
}

// IonThreshold is the charge above which a neutralized cation reverts to the
// ion species.
const IonThreshold = 0.5

// IsLiquid reports whether a species belongs to the thermostatted "liquid"
// subset: mobile ions plus polar solvents, excluding all electrode metals.
func IsLiquid(s Species) bool {
	switch s {
	case LithiumIon, ElectrolyteAnion, EC, DMC, VC, FEC, EMC:
		return true
	}
	return false
}

// IsMetal reports whether a species is a metallic electrode particle.
func IsMetal(s Species) bool {
	return s == LithiumMetal || s == FoilMetal
}

// IsIntercalation reports whether a species is an intercalation electrode
// host material.
func IsIntercalation(s Species) bool {
	switch s {
	case Graphite, HardCarbon, SiliconOxide, LTO, LFP, LMFP, NMC, NCA:
		return true
	}
	return false
}

// IsSolvent reports whether a species is a polar solvent able to decompose
// into SEI.
func IsSolvent(s Species) bool {
	switch s {
	case EC, DMC, VC, FEC, EMC:
		return true
	}
	return false
}

// IsConductor reports whether a species may donate electrons: metals and
// intercalation hosts.
func IsConductor(s Species) bool {
	return IsMetal(s) || IsIntercalation(s)
}

// IsAnodeMaterial splits intercalation hosts by electrode role. Anything
// with an equilibrium potential below 2 V sits on the anode side.
func IsAnodeMaterial(s Species) bool {
	return IsIntercalation(s) && props[s].EqPotential < 2.0
}

// MixLJ applies the mixing rule for a species pair: geometric mean of the
// epsilons, arithmetic mean of the sigmas.
func MixLJ(a, b Species) (epsilon, sigma float64) {
	pa, pb := &props[a], &props[b]
	return math.Sqrt(pa.LJEpsilon * pb.LJEpsilon), (pa.LJSigma + pb.LJSigma) / 2
}

// MaxLJCutoff is the largest LJ interaction range over all species pairs,
// used to size neighbor queries.
func MaxLJCutoff() float64 {
	max := 0.0
	for s := Species(0); s < numSpecies; s++ {
		p := &props[s]
		if p.LJEnabled && p.LJCutoff*p.LJSigma > max {
			max = p.LJCutoff * p.LJSigma
		}
	}
	return max
}

// MaxRepulsionCutoff is the largest osmotic repulsion range over all species.
func MaxRepulsionCutoff() float64 {
	max := 0.0
	for s := Species(0); s < numSpecies; s++ {
		p := &props[s]
		if p.RepulsionEnabled && p.RepulsionCutoff > max {
			max = p.RepulsionCutoff
		}
	}
	return max
}
