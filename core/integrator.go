package core

import (
	"math"

	"github.com/signalsfoundry/launch-simulator/model"
)

const (
	// standardGravity converts thrust and specific impulse into
	// propellant mass flow, m/s².
	standardGravity = 9.80665

	// escapeAltitudeFactor: once altitude exceeds this many body radii the
	// flight is declared escaped and frozen.
	escapeAltitudeFactor = 10

	// trailSpacingFactor decimates trail samples by distance rather than
	// time so the trail stays visually meaningful at any time-scale.
	trailSpacingFactor = 0.02

	// trailCapacity bounds the trail; the oldest sample is dropped on
	// overflow.
	trailCapacity = 512

	// pitchAltitudeFloorKm is subtracted from altitude before dividing by
	// the turn altitude, so the pitch-over profile is numerically stable
	// right at launch.
	pitchAltitudeFloorKm = 1
)

// Engine describes the propulsion used during powered ascent.
type Engine struct {
	ThrustKN       float64
	IspSec         float64 // specific impulse; sets the propellant mass flow
	TurnAltitudeKm float64 // gravity-turn reference altitude
}

// MassFlowKgPerSec returns the propellant consumption rate while the
// engine runs at full thrust.
func (e Engine) MassFlowKgPerSec() float64 {
	if e.IspSec <= 0 {
		return 0
	}
	return e.ThrustKN * 1000 / (e.IspSec * standardGravity)
}

// SpacecraftState is the full kinematic state of the vehicle. It is a
// value type: Step returns a new state rather than mutating its input, so
// terminal states stay frozen and callers can snapshot freely.
type SpacecraftState struct {
	Position   Vec2 // km from body centre
	Velocity   Vec2 // km/s
	AltitudeKm float64

	MassKg       float64
	PropellantKg float64
	DryMassKg    float64

	// Trail holds distance-decimated path samples for display only.
	Trail []Vec2

	// IsLaunching is true only during powered ascent while propellant
	// remains; once cleared it never becomes true again within a flight.
	IsLaunching bool

	HasCrashed bool
	HasEscaped bool
}

// Terminal reports whether the flight has reached an absorbing state.
func (s SpacecraftState) Terminal() bool {
	return s.HasCrashed || s.HasEscaped
}

// Step advances the state by dt seconds using semi-implicit Euler
// integration, applying gravity and, when requested, gravity-turn thrust.
// Callers must keep dt bounded (the flight controller subdivides elapsed
// time into one-second sub-steps); dt must be positive.
func Step(body model.CentralBody, s SpacecraftState, engine Engine, dt float64, applyThrust bool) SpacecraftState {
	if s.Terminal() {
		return s
	}

	r := s.Position.Norm()
	altitude := r - body.RadiusKm
	if altitude < 0 {
		s.HasCrashed = true
		return s
	}
	if altitude > body.RadiusKm*escapeAltitudeFactor {
		s.HasEscaped = true
		return s
	}

	accel := Gravity(body, s.Position)

	if applyThrust && s.PropellantKg > 0 && s.IsLaunching {
		// km/s² from thrust in newtons.
		thrustAccel := (engine.ThrustKN * 1000 / s.MassKg) / 1000

		// Smooth pitch-over: thrust rotates from radial to tangential as
		// altitude approaches the turn altitude.
		pitchFactor := clamp((altitude-pitchAltitudeFloorKm)/engine.TurnAltitudeKm, 0, 1)
		tangentFrac := math.Sin(pitchFactor * math.Pi / 2)
		radialFrac := math.Cos(pitchFactor * math.Pi / 2)

		radial := s.Position.Scale(1 / r)
		tangent := radial.Perp()
		thrust := radial.Scale(radialFrac).Add(tangent.Scale(tangentFrac)).Scale(thrustAccel)
		accel = accel.Add(thrust)

		s.PropellantKg = math.Max(0, s.PropellantKg-engine.MassFlowKgPerSec()*dt)
		s.MassKg = s.DryMassKg + s.PropellantKg
		if s.PropellantKg == 0 {
			// Thrust is disabled for the remainder of the flight.
			s.IsLaunching = false
		}
	}

	s.Velocity = s.Velocity.Add(accel.Scale(dt))
	s.Position = s.Position.Add(s.Velocity.Scale(dt))

	if len(s.Trail) == 0 || s.Position.DistanceTo(s.Trail[len(s.Trail)-1]) >= trailSpacingFactor*body.RadiusKm {
		s.Trail = appendTrail(s.Trail, s.Position)
	}

	s.AltitudeKm = s.Position.Norm() - body.RadiusKm
	return s
}

// appendTrail adds a sample, copying into a fresh slice so successive
// states never alias each other's trail storage, and drops the oldest
// sample past capacity.
func appendTrail(trail []Vec2, p Vec2) []Vec2 {
	out := make([]Vec2, 0, len(trail)+1)
	out = append(out, trail...)
	out = append(out, p)
	if len(out) > trailCapacity {
		out = out[1:]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
