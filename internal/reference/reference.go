// Package reference derives real-world reference orbits from TLE sets so
// challenges can target them ("reach ISS altitude"). Propagation is done
// with SGP4; the result is reduced to the scalar elements the simulation
// core understands.
package reference

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/launch-simulator/model"
)

// ErrInvalidTLE indicates a TLE file or line pair could not be used.
var ErrInvalidTLE = errors.New("invalid TLE")

// Orbit is a reference orbit reduced to the quantities a challenge can
// target.
type Orbit struct {
	Name            string
	AltitudeKm      float64
	SemiMajorAxisKm float64
	Eccentricity    float64
	PeriodMin       float64
}

// FromTLE propagates the TLE at the given sample time and derives the
// reference orbit around body from the resulting state vector.
func FromTLE(name, line1, line2 string, body model.CentralBody, at time.Time) (Orbit, error) {
	if len(strings.TrimSpace(line1)) == 0 || len(strings.TrimSpace(line2)) == 0 {
		return Orbit{}, fmt.Errorf("%w: empty TLE lines", ErrInvalidTLE)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)

	year, month, day := at.Date()
	hour, min, sec := at.Clock()
	pos, vel := satellite.Propagate(sat, year, int(month), day, hour, min, sec)

	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	v := math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z)
	if r == 0 || math.IsNaN(r) || math.IsNaN(v) {
		return Orbit{}, fmt.Errorf("%w: propagation produced no state for %q", ErrInvalidTLE, name)
	}

	mu := body.Mu()
	energy := v*v/2 - mu/r
	if energy >= 0 {
		return Orbit{}, fmt.Errorf("%w: %q is not a bound orbit", ErrInvalidTLE, name)
	}
	a := -mu / (2 * energy)

	// Angular momentum magnitude from the 3D cross product.
	hx := pos.Y*vel.Z - pos.Z*vel.Y
	hy := pos.Z*vel.X - pos.X*vel.Z
	hz := pos.X*vel.Y - pos.Y*vel.X
	h := math.Sqrt(hx*hx + hy*hy + hz*hz)

	e := math.Sqrt(math.Max(0, 1+2*energy*h*h/(mu*mu)))

	return Orbit{
		Name:            name,
		AltitudeKm:      r - body.RadiusKm,
		SemiMajorAxisKm: a,
		Eccentricity:    e,
		PeriodMin:       2 * math.Pi * math.Sqrt(a*a*a/mu) / 60,
	}, nil
}

// LoadTLEFile reads a 2- or 3-line TLE file and returns the satellite
// name (file basename when the TLE has no title line) and the two element
// lines.
func LoadTLEFile(path string) (name, line1, line2 string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", "", fmt.Errorf("read TLE file: %w", err)
	}

	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if trimmed := strings.TrimRight(l, "\r \t"); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	switch len(lines) {
	case 2:
		return tleNameFromPath(path), lines[0], lines[1], nil
	case 3:
		return strings.TrimSpace(lines[0]), lines[1], lines[2], nil
	default:
		return "", "", "", fmt.Errorf("%w: expected 2 or 3 lines in %s, got %d", ErrInvalidTLE, path, len(lines))
	}
}

func tleNameFromPath(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, ".tle")
}

// AltitudeChallenge builds a reach_altitude challenge targeting the
// reference orbit's altitude.
func AltitudeChallenge(o Orbit) model.Challenge {
	return model.Challenge{
		Kind:             model.ChallengeReachAltitude,
		TargetAltitudeKm: o.AltitudeKm,
	}
}

// MatchChallenge builds a change_orbit challenge targeting the reference
// orbit's semi-major axis and eccentricity.
func MatchChallenge(o Orbit, maxBurns int) model.Challenge {
	return model.Challenge{
		Kind: model.ChallengeChangeOrbit,
		TargetOrbit: &model.TargetOrbit{
			SemiMajorAxisKm: o.SemiMajorAxisKm,
			Eccentricity:    o.Eccentricity,
		},
		MaxBurns: maxBurns,
	}
}
