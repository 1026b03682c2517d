package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrUnknownBody indicates a requested central body is not in the registry.
var ErrUnknownBody = errors.New("unknown central body")

// CentralBody holds the static properties of a body a spacecraft can be
// launched from. Instances are immutable; one is selected per simulation
// and never mutated.
type CentralBody struct {
	Name           string
	RadiusKm       float64
	MassKg         float64
	SurfaceGravity float64 // m/s² at the surface
}

// Mu returns the standard gravitational parameter in km³/s², derived from
// surface gravity and radius so that it stays consistent with the gravity
// model's units.
func (b CentralBody) Mu() float64 {
	return b.SurfaceGravity * b.RadiusKm * b.RadiusKm / 1000
}

// EscapeVelocityKmS returns the escape velocity at distance rKm from the
// body centre, in km/s.
func (b CentralBody) EscapeVelocityKmS(rKm float64) float64 {
	if rKm <= 0 {
		return 0
	}
	return math.Sqrt(2 * b.Mu() / rKm)
}

var bodies = map[string]CentralBody{
	"earth": {Name: "earth", RadiusKm: 6371, MassKg: 5.972e24, SurfaceGravity: 9.81},
	"moon":  {Name: "moon", RadiusKm: 1737.4, MassKg: 7.342e22, SurfaceGravity: 1.62},
	"mars":  {Name: "mars", RadiusKm: 3389.5, MassKg: 6.417e23, SurfaceGravity: 3.71},
	"sun":   {Name: "sun", RadiusKm: 695700, MassKg: 1.989e30, SurfaceGravity: 274.0},
}

// BodyByName looks up a central body by its lowercase name.
func BodyByName(name string) (CentralBody, error) {
	b, ok := bodies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return CentralBody{}, fmt.Errorf("%w: %q", ErrUnknownBody, name)
	}
	return b, nil
}

// BodyNames returns the registered body names in sorted order.
func BodyNames() []string {
	names := make([]string, 0, len(bodies))
	for name := range bodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
