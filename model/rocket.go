package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRocket indicates a rocket configuration failed validation.
var ErrInvalidRocket = errors.New("invalid rocket configuration")

// ThrustRange bounds the thrust values a rocket may be configured with.
type ThrustRange struct {
	MinKN  float64
	MaxKN  float64
	StepKN float64
}

// DefaultThrustRange mirrors the thrust slider exposed to users.
var DefaultThrustRange = ThrustRange{MinKN: 50, MaxKN: 5000, StepKN: 50}

// Contains reports whether thrustKN lies within the range. Step alignment
// is not enforced here; the selection widget owns snapping.
func (r ThrustRange) Contains(thrustKN float64) bool {
	return thrustKN >= r.MinKN && thrustKN <= r.MaxKN
}

// RocketConfig describes the vehicle as configured before launch.
// MassKg is the total wet mass; PropellantKg is included in it.
type RocketConfig struct {
	MassKg         float64
	PropellantKg   float64
	ThrustKN       float64
	LaunchAngleDeg float64 // 90 = straight up; shallower angles pitch over sooner
}

// DryMassKg returns the mass floor the vehicle can never burn below.
func (rc RocketConfig) DryMassKg() float64 {
	return rc.MassKg - rc.PropellantKg
}

// TWR returns the thrust-to-weight ratio at the surface of body.
// Liftoff requires TWR > 1.
func (rc RocketConfig) TWR(body CentralBody) float64 {
	if rc.MassKg <= 0 || body.SurfaceGravity <= 0 {
		return 0
	}
	return (rc.ThrustKN * 1000) / (rc.MassKg * body.SurfaceGravity)
}

// TurnAltitudeKm derives the gravity-turn reference altitude from the
// configured launch angle: a fully vertical launch pitches over across
// 50 km, shallower launches proportionally sooner. Floored at 1 km so the
// pitch-over profile never divides by a vanishing altitude span.
func (rc RocketConfig) TurnAltitudeKm() float64 {
	return math.Max(1, rc.LaunchAngleDeg/90*50)
}

// Validate checks the configuration against DefaultThrustRange and basic
// mass/angle constraints. All violations wrap ErrInvalidRocket.
func (rc RocketConfig) Validate() error {
	switch {
	case rc.MassKg <= 0:
		return fmt.Errorf("%w: total mass must be positive, got %v", ErrInvalidRocket, rc.MassKg)
	case rc.PropellantKg < 0:
		return fmt.Errorf("%w: propellant mass must be non-negative, got %v", ErrInvalidRocket, rc.PropellantKg)
	case rc.PropellantKg >= rc.MassKg:
		return fmt.Errorf("%w: propellant mass %v must be below total mass %v", ErrInvalidRocket, rc.PropellantKg, rc.MassKg)
	case !DefaultThrustRange.Contains(rc.ThrustKN):
		return fmt.Errorf("%w: thrust %v kN outside [%v, %v]", ErrInvalidRocket, rc.ThrustKN, DefaultThrustRange.MinKN, DefaultThrustRange.MaxKN)
	case rc.LaunchAngleDeg <= 0 || rc.LaunchAngleDeg > 90:
		return fmt.Errorf("%w: launch angle %v° outside (0, 90]", ErrInvalidRocket, rc.LaunchAngleDeg)
	}
	return nil
}
