package body

// SetpointMode selects how a foil is driven.
type SetpointMode int

const (
	// CurrentMode drives a fixed current in electrons per second.
	CurrentMode SetpointMode = iota
	// OverpotentialMode holds a target overpotential via a PID loop whose
	// output is the injected current.
	OverpotentialMode
)

// LinkMode couples two foils into one circuit.
type LinkMode int

const (
	LinkNone LinkMode = iota
	// LinkParallel makes both foils source (or sink) together.
	LinkParallel
	// LinkOpposite makes one foil source while the other sinks.
	LinkOpposite
)

// PID is the controller state for overpotential-mode foils. Update is a pure
// function of (state, measured, setpoint) up to its own accumulators, which
// keeps it testable in isolation.
type PID struct {
	Kp, Ki, Kd float64

	Integral float64
	PrevErr  float64
	primed   bool
}

// Update advances the controller by dt and returns the drive output.
func (c *PID) Update(measured, target, dt float64) float64 {
	err := target - measured
	c.Integral += err * dt
	d := 0.0
	if c.primed && dt > 0 {
		d = (err - c.PrevErr) / dt
	}
	c.PrevErr = err
	c.primed = true
	return c.Kp*err + c.Ki*c.Integral + c.Kd*d
}

// Reset clears the accumulators, e.g. when the setpoint mode changes.
func (c *PID) Reset() {
	c.Integral = 0
	c.PrevErr = 0
	c.primed = false
}

// Primed reports whether the controller has seen at least one update, so
// that PrevErr is meaningful. Used when serializing controller state.
func (c *PID) Primed() bool { return c.primed }

// Prime marks the controller as having a valid PrevErr. The inverse of
// Primed, for deserialization.
func (c *PID) Prime() { c.primed = true }

// Foil is a named group of particles acting as a current collector. It is
// addressed by stable body IDs, not array indices.
type Foil struct {
	ID      uint64
	BodyIDs []ID

	Mode     SetpointMode
	Setpoint float64 // electrons/sec (CurrentMode) or target overpotential

	// Square-wave AC component layered on the DC setpoint.
	ACAmplitude float64
	SwitchHz    float64

	// Fractional-electron accumulator for the current drive.
	Accum float64

	// Running electron balance: electrons injected minus removed since the
	// foil was created.
	NetElectrons int64

	// Bias added to the local potential of member particles during hop
	// gating. Written by the drive phase each step.
	Bias float64

	Link     uint64 // ID of a linked foil, 0 if none
	LinkMode LinkMode

	Controller PID
}

// EffectiveCurrent is the drive current at simulation time t: the DC
// setpoint (or PID output, already stored in Setpoint-space by the caller)
// plus the square-wave AC component.
func (f *Foil) EffectiveCurrent(base, t float64) float64 {
	current := base
	if f.SwitchHz > 0 {
		phase := t * f.SwitchHz
		if phase-float64(int64(phase)) < 0.5 {
			current += f.ACAmplitude
		} else {
			current -= f.ACAmplitude
		}
	}
	return current
}
