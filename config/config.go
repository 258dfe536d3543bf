/*package config reads scenario files that describe a complete simulation
setup: the physics overrides, the initial particle fills, and the foil
lattices with their drive programs. Scenario files use gcfg/ini syntax.
*/
package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/electroworks/ionsim/body"
	"github.com/electroworks/ionsim/geom"
	"github.com/electroworks/ionsim/sim"
	"github.com/electroworks/ionsim/species"
)

const ExampleScenarioFile = `[Scenario]

#######################
# Required Parameters #
#######################

# Number of timesteps to run.
Steps = 10000

#######################
# Optional Parameters #
#######################

# RNG seed. Zero or unset picks a time-based seed, which makes the run
# non-reproducible.
# Seed = 42

# Plain-text particle table to load before the fills run. Columns are
# species index, x, y, vx, vy.
# ParticleFile = path/to/particles.txt

[Physics]
# Every field is optional; unset fields keep their defaults. Zero is treated
# as unset for numeric fields.

# Timestep = 0.0025
# Theta = 1.0
# TargetTemperature = 300

# Optional pipeline stages, all off unless enabled here.
# StackPressure = true
# OutOfPlane = true
# SEI = true
# Intercalation = true

[Fill "electrolyte"]
# Fills scatter resting particles into a region. Shape must be one of
# [ Rect | Circle | Domain ].
Species = EC
Shape = Rect
# Center of the region.
X = 0
Y = 0
# Rect needs Width and Height, Circle needs Radius, Domain needs neither.
Width = 200
Height = 200
Count = 500

[Foil "anode"]
# Foils are lattices of fixed collector metal driven as current sources or
# sinks.
X = -150
Y = -50
Rows = 20
Cols = 2
# Spacing = 4

# Mode must be [ Current | Overpotential ]. Current setpoints are electrons
# per time unit; positive injects, negative extracts.
Mode = Current
Setpoint = 40

# Square-wave AC on top of the DC setpoint.
# ACAmplitude = 10
# SwitchHz = 0.5

# Couple this foil to another one by section name.
# LinkWith = cathode
# LinkMode = Opposite`

type ScenarioConfig struct {
	// Required
	Steps int
	// Optional
	Seed         int64
	ParticleFile string
}

func (con *ScenarioConfig) CheckInit() error {
	if con.Steps <= 0 {
		return fmt.Errorf("Step count must be positive, but is %d.", con.Steps)
	}
	if con.Seed < 0 {
		return fmt.Errorf("Seed must be non-negative, but is %d.", con.Seed)
	}
	return nil
}

// PhysicsConfig holds the scenario's overrides of the physics defaults. Zero
// numeric fields are treated as unset.
type PhysicsConfig struct {
	Timestep        float64
	Theta           float64
	Epsilon         float64
	CoulombConstant float64

	DomainWidth  float64
	DomainHeight float64

	BackgroundFieldX float64
	BackgroundFieldY float64

	CollisionPasses    int
	CollisionPassScale float64
	TargetTemperature  float64
	ThermostatInterval int

	StackPressure bool
	OutOfPlane    bool
	SEI           bool
	Intercalation bool

	Workers int
}

// Apply merges the set fields onto cfg.
func (con *PhysicsConfig) Apply(cfg *sim.Config) {
	if con.Timestep > 0 {
		cfg.DT = con.Timestep
	}
	if con.Theta > 0 {
		cfg.Theta = con.Theta
	}
	if con.Epsilon > 0 {
		cfg.Epsilon = con.Epsilon
	}
	if con.CoulombConstant > 0 {
		cfg.CoulombConstant = con.CoulombConstant
	}
	if con.DomainWidth > 0 {
		cfg.DomainWidth = con.DomainWidth
	}
	if con.DomainHeight > 0 {
		cfg.DomainHeight = con.DomainHeight
	}
	cfg.BackgroundField = geom.Vec{X: con.BackgroundFieldX, Y: con.BackgroundFieldY}
	if con.CollisionPasses > 0 {
		cfg.CollisionPasses = con.CollisionPasses
	}
	if con.CollisionPassScale > 0 {
		cfg.CollisionPassScale = con.CollisionPassScale
	}
	if con.TargetTemperature > 0 {
		cfg.TargetTemperature = con.TargetTemperature
	}
	if con.ThermostatInterval > 0 {
		cfg.ThermostatInterval = con.ThermostatInterval
	}
	if con.Workers > 0 {
		cfg.Workers = con.Workers
	}
	cfg.StackPressureEnabled = con.StackPressure
	cfg.OutOfPlaneEnabled = con.OutOfPlane
	cfg.SEIEnabled = con.SEI
	cfg.IntercalationEnabled = con.Intercalation
}

type FillConfig struct {
	// Required
	Species string
	Shape   string
	Count   int

	// Shape-dependent
	X, Y          float64
	Width, Height float64
	Radius        float64

	Name string
}

func (con *FillConfig) CheckInit(name string) error {
	if _, err := species.Parse(con.Species); err != nil {
		return fmt.Errorf("Fill '%s': %s", name, err)
	}
	if con.Count <= 0 {
		return fmt.Errorf(
			"Fill '%s' needs a positive Count, but has %d.", name, con.Count,
		)
	}

	switch strings.ToLower(strings.TrimSpace(con.Shape)) {
	case "rect":
		if con.Width <= 0 || con.Height <= 0 {
			return fmt.Errorf(
				"Rect fill '%s' needs positive Width and Height, but has %g x %g.",
				name, con.Width, con.Height,
			)
		}
	case "circle":
		if con.Radius <= 0 {
			return fmt.Errorf(
				"Circle fill '%s' needs a positive Radius, but has %g.",
				name, con.Radius,
			)
		}
	case "domain":
	default:
		return fmt.Errorf(
			"Shape of Fill '%s' must be one of [Rect | Circle | Domain]. "+
				"'%s' is not recognized.", name, con.Shape,
		)
	}

	con.Name = name
	return nil
}

type FoilConfig struct {
	// Required
	X, Y       float64
	Rows, Cols int

	// Optional
	Spacing  float64
	Mode     string
	Setpoint float64

	ACAmplitude float64
	SwitchHz    float64

	LinkWith string
	LinkMode string

	Name string
}

func (con *FoilConfig) CheckInit(name string) error {
	if con.Rows <= 0 || con.Cols <= 0 {
		return fmt.Errorf(
			"Foil '%s' needs positive Rows and Cols, but has %d x %d.",
			name, con.Rows, con.Cols,
		)
	}

	mode := strings.ToLower(strings.TrimSpace(con.Mode))
	if mode != "" && mode != "current" && mode != "overpotential" {
		return fmt.Errorf(
			"Mode of Foil '%s' must be one of [Current | Overpotential]. "+
				"'%s' is not recognized.", name, con.Mode,
		)
	}

	link := strings.ToLower(strings.TrimSpace(con.LinkMode))
	if link != "" && link != "parallel" && link != "opposite" {
		return fmt.Errorf(
			"LinkMode of Foil '%s' must be one of [Parallel | Opposite]. "+
				"'%s' is not recognized.", name, con.LinkMode,
		)
	}
	if link != "" && con.LinkWith == "" {
		return fmt.Errorf(
			"Foil '%s' sets LinkMode without LinkWith.", name,
		)
	}

	con.Name = name
	return nil
}

func (con *FoilConfig) setpointMode() body.SetpointMode {
	if strings.ToLower(strings.TrimSpace(con.Mode)) == "overpotential" {
		return body.OverpotentialMode
	}
	return body.CurrentMode
}

func (con *FoilConfig) linkMode() body.LinkMode {
	if strings.ToLower(strings.TrimSpace(con.LinkMode)) == "parallel" {
		return body.LinkParallel
	}
	return body.LinkOpposite
}

type ScenarioWrapper struct {
	Scenario ScenarioConfig
	Physics  PhysicsConfig
	Fill     map[string]*FillConfig
	Foil     map[string]*FoilConfig
}

// ReadScenarioConfig parses and validates a scenario file.
func ReadScenarioConfig(fname string) (*ScenarioWrapper, error) {
	w := &ScenarioWrapper{}
	if err := gcfg.ReadFileInto(w, fname); err != nil {
		return nil, err
	}
	if err := w.Scenario.CheckInit(); err != nil {
		return nil, err
	}
	for name, fill := range w.Fill {
		if err := fill.CheckInit(name); err != nil {
			return nil, err
		}
	}
	for name, foil := range w.Foil {
		if err := foil.CheckInit(name); err != nil {
			return nil, err
		}
		if foil.LinkWith != "" {
			if _, ok := w.Foil[foil.LinkWith]; !ok {
				return nil, fmt.Errorf(
					"Foil '%s' links to unknown foil '%s'.", name, foil.LinkWith,
				)
			}
		}
	}
	return w, nil
}

// Build constructs a simulation from the scenario: physics overrides first,
// then the particle table, the fills, and finally the foils with their
// drives and links.
func (w *ScenarioWrapper) Build() (*sim.Simulation, error) {
	cfg := sim.DefaultConfig()
	w.Physics.Apply(&cfg)

	s, err := sim.New(cfg, uint64(w.Scenario.Seed))
	if err != nil {
		return nil, err
	}

	if w.Scenario.ParticleFile != "" {
		if err := LoadParticleFile(s, w.Scenario.ParticleFile); err != nil {
			return nil, err
		}
	}

	// Sections build in name order so a fixed seed reproduces the same
	// initial state regardless of map iteration.
	for _, name := range sortedKeys(w.Fill) {
		if err := applyFill(s, w.Fill[name]); err != nil {
			return nil, err
		}
	}

	foilIDs := map[string]uint64{}
	for _, name := range sortedKeys(w.Foil) {
		foil := w.Foil[name]
		id, err := s.SpawnFoilLattice(
			geom.Vec{X: foil.X, Y: foil.Y}, foil.Rows, foil.Cols, foil.Spacing,
		)
		if err != nil {
			return nil, err
		}
		foilIDs[name] = id

		if err := s.SetFoilSetpoint(id, foil.setpointMode(), foil.Setpoint); err != nil {
			return nil, err
		}
		if foil.ACAmplitude != 0 {
			if err := s.SetFoilAC(id, foil.ACAmplitude, foil.SwitchHz); err != nil {
				return nil, err
			}
		}
	}
	for name, foil := range w.Foil {
		if foil.LinkWith == "" {
			continue
		}
		if err := s.LinkFoils(foilIDs[name], foilIDs[foil.LinkWith], foil.linkMode()); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func sortedKeys[T any](m map[string]*T) []string {
	keys := make([]string, 0, len(m))
	for name := range m {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

func applyFill(s *sim.Simulation, fill *FillConfig) error {
	sp, err := species.Parse(fill.Species)
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(fill.Shape)) {
	case "rect":
		min := geom.Vec{X: fill.X - fill.Width/2, Y: fill.Y - fill.Height/2}
		max := geom.Vec{X: fill.X + fill.Width/2, Y: fill.Y + fill.Height/2}
		_, err = s.FillRect(sp, min, max, fill.Count)
	case "circle":
		_, err = s.FillCircle(sp, geom.Vec{X: fill.X, Y: fill.Y}, fill.Radius, fill.Count)
	default:
		_, err = s.RandomFill(sp, fill.Count)
	}
	return err
}
