package core

import "github.com/signalsfoundry/launch-simulator/model"

// interiorRadiusFactor marks the radius fraction below which a position is
// treated as inside the body. Gravity is zeroed there to keep the
// inverse-square law from blowing up right at the surface boundary while
// a vehicle sits on the pad.
const interiorRadiusFactor = 0.9

// Gravity returns the gravitational acceleration in km/s² acting on a
// spacecraft at position (km from the body centre). The acceleration
// always points toward the centre; it is zero inside the body. Pure
// function, no side effects.
func Gravity(body model.CentralBody, position Vec2) Vec2 {
	r := position.Norm()
	if r < interiorRadiusFactor*body.RadiusKm {
		return Vec2{}
	}
	ratio := body.RadiusKm / r
	// Surface gravity is in m/s²; positions are km, so scale to km/s².
	g := body.SurfaceGravity * ratio * ratio / 1000
	return position.Scale(-g / r)
}
