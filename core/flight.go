package core

import (
	"context"
	"math"

	"github.com/signalsfoundry/launch-simulator/internal/logging"
	"github.com/signalsfoundry/launch-simulator/model"
)

const (
	// KarmanLineKm is the altitude above which a flight counts as having
	// reached space.
	KarmanLineKm = 100

	// LEOThresholdKm is the minimum altitude for the reach_orbit
	// challenge.
	LEOThresholdKm = 160

	// DefaultBurnDeltaVKmS is the fixed delta-v applied per discrete burn.
	DefaultBurnDeltaVKmS = 0.1

	// DefaultIspSec is the engine specific impulse used when none is
	// configured.
	DefaultIspSec = 300

	// subStepSeconds bounds the dt handed to the integrator. The
	// controller subdivides any elapsed simulated time into sub-steps of
	// this size, which is the core stability safeguard at high time
	// scales.
	subStepSeconds = 1.0

	// Tolerances for matching a change_orbit target.
	targetAxisTolerance = 0.05 // relative, on semi-major axis
	targetEccTolerance  = 0.05 // absolute, on eccentricity
)

// Phase is the discrete flight-controller state. Being in orbit is a
// continuously recomputed predicate, not a phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAscending
	PhaseCrashed
	PhaseEscaped
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAscending:
		return "ascending"
	case PhaseCrashed:
		return "crashed"
	case PhaseEscaped:
		return "escaped"
	}
	return "unknown"
}

// FlightStats accumulates display statistics across a flight.
// MaxAltitudeKm is monotonic; ReachedSpace is sticky.
type FlightStats struct {
	MaxAltitudeKm float64
	VelocityKmS   float64
	ApogeeKm      float64
	PerigeeKm     float64
	Eccentricity  float64
	PeriodMin     float64
	InOrbit       bool
	ReachedSpace  bool
}

// FlightMetricsRecorder receives telemetry updates from the controller.
// Implementations must tolerate being called every tick.
type FlightMetricsRecorder interface {
	AddSubSteps(n int)
	SetTelemetry(altitudeKm, velocityKmS, propellantKg float64)
	CountBurn(direction string)
	CountOutcome(outcome string)
}

// FlightController owns the spacecraft state and is the only component
// that mutates it. All methods run on the single simulation goroutine;
// burns and launches are serialized with tick execution by construction.
type FlightController struct {
	body    model.CentralBody
	rocket  model.RocketConfig
	engine  Engine
	burnDV  float64
	log     logging.Logger
	metrics FlightMetricsRecorder

	challenge *model.Challenge
	completed bool

	state    *SpacecraftState
	elements OrbitalElements
	stats    FlightStats
	phase    Phase
	paused   bool

	burnsUsed      int
	launchAttempts int
}

// FlightOption customises FlightController construction.
type FlightOption func(*FlightController)

// WithChallenge attaches a flight objective.
func WithChallenge(c model.Challenge) FlightOption {
	return func(fc *FlightController) {
		fc.challenge = &c
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) FlightOption {
	return func(fc *FlightController) {
		if log != nil {
			fc.log = log
		}
	}
}

// WithMetricsRecorder attaches a telemetry recorder.
func WithMetricsRecorder(m FlightMetricsRecorder) FlightOption {
	return func(fc *FlightController) {
		fc.metrics = m
	}
}

// WithBurnDeltaV overrides the fixed per-burn delta-v in km/s.
func WithBurnDeltaV(dv float64) FlightOption {
	return func(fc *FlightController) {
		if dv > 0 {
			fc.burnDV = dv
		}
	}
}

// WithEngineIsp overrides the engine specific impulse in seconds.
func WithEngineIsp(isp float64) FlightOption {
	return func(fc *FlightController) {
		if isp > 0 {
			fc.engine.IspSec = isp
		}
	}
}

// NewFlightController builds a controller for the given body and rocket.
func NewFlightController(body model.CentralBody, rocket model.RocketConfig, opts ...FlightOption) *FlightController {
	fc := &FlightController{
		body:   body,
		rocket: rocket,
		engine: Engine{
			ThrustKN:       rocket.ThrustKN,
			IspSec:         DefaultIspSec,
			TurnAltitudeKm: rocket.TurnAltitudeKm(),
		},
		burnDV: DefaultBurnDeltaVKmS,
		log:    logging.Noop(),
		phase:  PhaseIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(fc)
		}
	}
	return fc
}

// Launch initialises a new flight at the surface point with zero velocity
// and full propellant. It is rejected without error when a flight is
// already active or when the thrust-to-weight ratio cannot lift the
// vehicle; the caller is expected to check TWR up front, matching the
// disabled-control pattern of the UI. Returns whether the launch happened.
func (fc *FlightController) Launch() bool {
	if fc.phase != PhaseIdle {
		return false
	}
	twr := fc.rocket.TWR(fc.body)
	if twr <= 1 {
		fc.log.Warn(context.Background(), "launch rejected: thrust-to-weight ratio too low",
			logging.Any("twr", twr))
		return false
	}

	fc.state = &SpacecraftState{
		Position:     Vec2{X: 0, Y: fc.body.RadiusKm},
		Velocity:     Vec2{},
		AltitudeKm:   0,
		MassKg:       fc.rocket.MassKg,
		PropellantKg: fc.rocket.PropellantKg,
		DryMassKg:    fc.rocket.DryMassKg(),
		IsLaunching:  true,
	}
	fc.elements = OrbitalElements{}
	fc.stats = FlightStats{}
	fc.phase = PhaseAscending
	fc.launchAttempts++

	fc.log.Info(context.Background(), "launch",
		logging.String("body", fc.body.Name),
		logging.Any("twr", twr),
		logging.Int("attempt", fc.launchAttempts))
	return true
}

// Advance moves the simulation forward by simSeconds of simulated time.
// The elapsed time is subdivided into fixed one-second sub-steps (plus a
// fractional remainder) before the integrator runs, then derived stats and
// challenge completion are recomputed once. No-op while paused, idle, or
// after a terminal state.
func (fc *FlightController) Advance(simSeconds float64) {
	if fc.paused || fc.state == nil || simSeconds <= 0 {
		return
	}
	if fc.phase != PhaseAscending {
		return
	}

	state := *fc.state
	steps := 0
	remaining := simSeconds
	for remaining > 0 && !state.Terminal() {
		dt := math.Min(subStepSeconds, remaining)
		state = Step(fc.body, state, fc.engine, dt, state.IsLaunching)
		remaining -= dt
		steps++
	}
	fc.state = &state
	if fc.metrics != nil {
		fc.metrics.AddSubSteps(steps)
	}

	switch {
	case state.HasCrashed:
		fc.phase = PhaseCrashed
		fc.log.Info(context.Background(), "flight ended", logging.String("outcome", "crashed"))
		if fc.metrics != nil {
			fc.metrics.CountOutcome("crashed")
		}
	case state.HasEscaped:
		fc.phase = PhaseEscaped
		fc.log.Info(context.Background(), "flight ended", logging.String("outcome", "escaped"))
		if fc.metrics != nil {
			fc.metrics.CountOutcome("escaped")
		}
	}

	fc.elements = ComputeElements(fc.body, state.Position, state.Velocity)
	fc.updateStats()
	fc.evaluateChallenge()

	if fc.metrics != nil {
		fc.metrics.SetTelemetry(state.AltitudeKm, fc.stats.VelocityKmS, state.PropellantKg)
	}
}

// ApplyBurn applies a fixed delta-v in the chosen direction by vector
// addition to the current velocity. Burns are for the coasting phase only:
// the call is a silent no-op without an active craft, while paused, during
// powered ascent, with zero velocity (no direction defined), or once the
// challenge burn limit is exhausted. Returns whether the burn happened.
func (fc *FlightController) ApplyBurn(direction model.BurnDirection) bool {
	if fc.state == nil || fc.paused || fc.phase != PhaseAscending {
		return false
	}
	if fc.state.IsLaunching {
		return false
	}
	if fc.challenge != nil && fc.challenge.MaxBurns > 0 && fc.burnsUsed >= fc.challenge.MaxBurns {
		return false
	}

	prograde := fc.state.Velocity.Unit()
	if prograde == (Vec2{}) {
		return false
	}

	var unit Vec2
	switch direction {
	case model.BurnPrograde:
		unit = prograde
	case model.BurnRetrograde:
		unit = prograde.Scale(-1)
	case model.BurnNormal:
		unit = prograde.Perp()
	case model.BurnAntinormal:
		unit = prograde.Perp().Scale(-1)
	default:
		return false
	}

	state := *fc.state
	state.Velocity = state.Velocity.Add(unit.Scale(fc.burnDV))
	fc.state = &state
	fc.burnsUsed++
	fc.elements = ComputeElements(fc.body, state.Position, state.Velocity)
	fc.updateStats()

	fc.log.Info(context.Background(), "burn applied",
		logging.String("direction", direction.String()),
		logging.Int("burns_used", fc.burnsUsed))
	if fc.metrics != nil {
		fc.metrics.CountBurn(direction.String())
	}
	return true
}

// Pause stops tick processing; elapsed time while paused is excluded by
// the clock, so no catch-up integration happens on resume.
func (fc *FlightController) Pause() { fc.paused = true }

// Resume re-enables tick processing.
func (fc *FlightController) Resume() { fc.paused = false }

// Paused reports whether the controller is paused.
func (fc *FlightController) Paused() bool { return fc.paused }

// Reset atomically discards the spacecraft and all derived statistics,
// returning to Idle. The launch-attempt counter survives: it counts
// attempts across the whole session.
func (fc *FlightController) Reset() {
	fc.state = nil
	fc.elements = OrbitalElements{}
	fc.stats = FlightStats{}
	fc.phase = PhaseIdle
	fc.paused = false
	fc.completed = false
	fc.burnsUsed = 0
}

func (fc *FlightController) updateStats() {
	s := fc.state
	fc.stats.VelocityKmS = s.Velocity.Norm()
	if s.AltitudeKm > fc.stats.MaxAltitudeKm {
		fc.stats.MaxAltitudeKm = s.AltitudeKm
	}
	if s.AltitudeKm >= KarmanLineKm {
		fc.stats.ReachedSpace = true
	}
	fc.stats.ApogeeKm = fc.elements.ApogeeKm
	fc.stats.PerigeeKm = fc.elements.PerigeeKm
	fc.stats.Eccentricity = fc.elements.Eccentricity
	fc.stats.PeriodMin = fc.elements.PeriodMin
	fc.stats.InOrbit = fc.elements.InOrbit
}

// evaluateChallenge runs once per tick after elements are recomputed.
// Completion is monotonic.
func (fc *FlightController) evaluateChallenge() {
	if fc.challenge == nil || fc.completed {
		return
	}

	var done bool
	switch fc.challenge.Kind {
	case model.ChallengeReachAltitude:
		done = fc.state.AltitudeKm >= fc.challenge.TargetAltitudeKm
	case model.ChallengeReachOrbit:
		done = fc.elements.InOrbit && fc.state.AltitudeKm >= LEOThresholdKm
	case model.ChallengeCircularize:
		done = fc.elements.InOrbit && fc.elements.Eccentricity < 0.1
	case model.ChallengeChangeOrbit:
		done = fc.matchesTargetOrbit()
	}

	if done {
		fc.completed = true
		fc.log.Info(context.Background(), "challenge completed",
			logging.String("kind", string(fc.challenge.Kind)),
			logging.Int("burns_used", fc.burnsUsed))
		if fc.metrics != nil {
			fc.metrics.CountOutcome("completed")
		}
	}
}

// matchesTargetOrbit implements the change_orbit criteria: a bound orbit
// whose semi-major axis is within 5% of the target and whose eccentricity
// is within 0.05 absolute.
func (fc *FlightController) matchesTargetOrbit() bool {
	target := fc.challenge.TargetOrbit
	if target == nil || !fc.elements.InOrbit {
		return false
	}
	if math.IsInf(fc.elements.SemiMajorAxisKm, 1) {
		return false
	}
	axisErr := math.Abs(fc.elements.SemiMajorAxisKm-target.SemiMajorAxisKm) / target.SemiMajorAxisKm
	eccErr := math.Abs(fc.elements.Eccentricity - target.Eccentricity)
	return axisErr <= targetAxisTolerance && eccErr <= targetEccTolerance
}

// Score grades the flight: 100 without a challenge; with one, completion
// earns 80 plus 10 for each unused burn (capped at 100), reaching orbit
// without completing earns 60, reaching space 40, anything else 20.
func (fc *FlightController) Score() int {
	if fc.challenge == nil {
		return 100
	}
	switch {
	case fc.completed:
		if fc.challenge.MaxBurns > 0 {
			bonus := (fc.challenge.MaxBurns - fc.burnsUsed) * 10
			if bonus < 0 {
				bonus = 0
			}
			score := 80 + bonus
			if score > 100 {
				score = 100
			}
			return score
		}
		return 80
	case fc.stats.InOrbit:
		return 60
	case fc.stats.ReachedSpace:
		return 40
	default:
		return 20
	}
}

// Snapshot returns a copy of the current spacecraft state; ok is false
// when no flight is active.
func (fc *FlightController) Snapshot() (SpacecraftState, bool) {
	if fc.state == nil {
		return SpacecraftState{}, false
	}
	return *fc.state, true
}

// Elements returns the latest derived orbital elements.
func (fc *FlightController) Elements() OrbitalElements { return fc.elements }

// Stats returns the accumulated flight statistics.
func (fc *FlightController) Stats() FlightStats { return fc.stats }

// Phase returns the discrete controller phase.
func (fc *FlightController) Phase() Phase { return fc.phase }

// Completed reports whether the configured challenge has been completed.
func (fc *FlightController) Completed() bool { return fc.completed }

// Challenge returns the configured challenge, or nil.
func (fc *FlightController) Challenge() *model.Challenge { return fc.challenge }

// BurnsUsed returns the number of burns applied this flight.
func (fc *FlightController) BurnsUsed() int { return fc.burnsUsed }

// LaunchAttempts returns the number of launches across the session.
func (fc *FlightController) LaunchAttempts() int { return fc.launchAttempts }

// Body returns the central body the controller simulates around.
func (fc *FlightController) Body() model.CentralBody { return fc.body }

// Rocket returns the configured rocket.
func (fc *FlightController) Rocket() model.RocketConfig { return fc.rocket }
