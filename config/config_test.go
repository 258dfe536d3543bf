package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electroworks/ionsim/body"
)

func writeScenario(t *testing.T, text string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "scenario.ini")
	require.NoError(t, os.WriteFile(fname, []byte(text), 0666))
	return fname
}

func TestExampleScenarioParses(t *testing.T) {
	fname := writeScenario(t, ExampleScenarioFile)
	w, err := ReadScenarioConfig(fname)
	require.NoError(t, err)

	assert.Equal(t, 10000, w.Scenario.Steps)
	require.Contains(t, w.Fill, "electrolyte")
	assert.Equal(t, "EC", w.Fill["electrolyte"].Species)
	assert.Equal(t, 500, w.Fill["electrolyte"].Count)
	require.Contains(t, w.Foil, "anode")
	assert.Equal(t, 20, w.Foil["anode"].Rows)
}

func TestBuild(t *testing.T) {
	fname := writeScenario(t, `[Scenario]
Steps = 10
Seed = 99

[Physics]
Timestep = 0.005
TargetTemperature = 250

[Fill "solvent"]
Species = EC
Shape = Circle
X = 10
Y = -10
Radius = 30
Count = 40

[Foil "left"]
X = -100
Y = 0
Rows = 3
Cols = 2
Mode = Current
Setpoint = 5

[Foil "right"]
X = 100
Y = 0
Rows = 3
Cols = 2
LinkWith = left
LinkMode = Opposite
`)
	w, err := ReadScenarioConfig(fname)
	require.NoError(t, err)

	s, err := w.Build()
	require.NoError(t, err)

	assert.Equal(t, 40+6+6, s.NumBodies())
	assert.Equal(t, 0.005, s.Config().DT)
	assert.Equal(t, 250.0, s.Config().TargetTemperature)

	foils := s.Foils()
	require.Len(t, foils, 2)
	for _, f := range foils {
		assert.Len(t, f.BodyIDs, 6)
		assert.NotZero(t, f.Link)
		assert.Equal(t, body.LinkOpposite, f.LinkMode)
	}
}

func TestScenarioValidation(t *testing.T) {
	cases := []struct{ name, text string }{
		{"no steps", "[Scenario]\nSteps = 0\n"},
		{"bad species", "[Scenario]\nSteps = 1\n\n[Fill \"x\"]\nSpecies = Kryptonite\nShape = Domain\nCount = 1\n"},
		{"bad shape", "[Scenario]\nSteps = 1\n\n[Fill \"x\"]\nSpecies = EC\nShape = Blob\nCount = 1\n"},
		{"rect without size", "[Scenario]\nSteps = 1\n\n[Fill \"x\"]\nSpecies = EC\nShape = Rect\nCount = 1\n"},
		{"zero count", "[Scenario]\nSteps = 1\n\n[Fill \"x\"]\nSpecies = EC\nShape = Domain\nCount = 0\n"},
		{"empty foil", "[Scenario]\nSteps = 1\n\n[Foil \"f\"]\nRows = 0\nCols = 2\n"},
		{"bad foil mode", "[Scenario]\nSteps = 1\n\n[Foil \"f\"]\nX = 0\nY = 0\nRows = 1\nCols = 1\nMode = Magic\n"},
		{"dangling link", "[Scenario]\nSteps = 1\n\n[Foil \"f\"]\nX = 0\nY = 0\nRows = 1\nCols = 1\nLinkWith = ghost\nLinkMode = Parallel\n"},
	}
	for _, c := range cases {
		fname := writeScenario(t, c.text)
		_, err := ReadScenarioConfig(fname)
		if err == nil {
			t.Errorf("%s: scenario accepted", c.name)
		}
	}
}

func TestParticleFileRoundTrip(t *testing.T) {
	fname := writeScenario(t, `[Scenario]
Steps = 1

[Fill "ions"]
Species = LithiumIon
Shape = Domain
Count = 25
`)
	w, err := ReadScenarioConfig(fname)
	require.NoError(t, err)
	s, err := w.Build()
	require.NoError(t, err)

	pfile := filepath.Join(t.TempDir(), "particles.txt")
	require.NoError(t, os.WriteFile(pfile, []byte(WriteParticleFile(s)), 0666))

	s2, err := w.Build()
	require.NoError(t, err)
	before := s2.NumBodies()
	require.NoError(t, LoadParticleFile(s2, pfile))
	assert.Equal(t, before+25, s2.NumBodies())
}
