package core

import (
	"math"

	"github.com/signalsfoundry/launch-simulator/model"
)

// OrbitalElements is the classical-element view of a kinematic state.
// It is recomputed from position and velocity every tick and never stored
// as a source of truth. ApogeeKm, PerigeeKm and PeriodMin are only
// meaningful for bound orbits (Escaping == false).
type OrbitalElements struct {
	Energy          float64 // specific orbital energy, km²/s²
	SemiMajorAxisKm float64 // +Inf for unbound trajectories
	AngularMomentum float64 // magnitude, km²/s
	Eccentricity    float64
	ApogeeKm        float64 // altitude above the surface
	PerigeeKm       float64 // altitude above the surface
	PeriodMin       float64 // orbital period in minutes
	InOrbit         bool
	Escaping        bool
}

// ComputeElements derives the orbital elements of a spacecraft at the
// given position (km from body centre) and velocity (km/s). The
// computation order matters for numerical consistency; the eccentricity
// radicand is clamped at zero so floating-point round-off near circular
// orbits can never surface as NaN.
func ComputeElements(body model.CentralBody, position, velocity Vec2) OrbitalElements {
	r := position.Norm()
	v := velocity.Norm()
	mu := body.Mu()

	energy := v*v/2 - mu/r

	a := math.Inf(1)
	if energy < 0 {
		a = -mu / (2 * energy)
	}

	h := math.Abs(position.Cross(velocity))
	e := math.Sqrt(math.Max(0, 1+2*energy*h*h/(mu*mu)))

	el := OrbitalElements{
		Energy:          energy,
		SemiMajorAxisKm: a,
		AngularMomentum: h,
		Eccentricity:    e,
		Escaping:        energy >= 0,
	}

	if !math.IsInf(a, 1) {
		el.ApogeeKm = a*(1+e) - body.RadiusKm
		el.PerigeeKm = a*(1-e) - body.RadiusKm
		if a > 0 {
			el.PeriodMin = 2 * math.Pi * math.Sqrt(a*a*a/mu) / 60
		}
		// A perigee below the surface means eventual decay, not a
		// stable orbit, even with e < 1.
		el.InOrbit = e < 1 && el.PerigeeKm > 0
	}

	return el
}
