package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChallenge indicates a challenge configuration failed validation.
var ErrInvalidChallenge = errors.New("invalid challenge")

// ChallengeKind identifies what a flight must achieve.
type ChallengeKind string

const (
	ChallengeReachAltitude ChallengeKind = "reach_altitude"
	ChallengeReachOrbit    ChallengeKind = "reach_orbit"
	ChallengeCircularize   ChallengeKind = "circularize"
	ChallengeChangeOrbit   ChallengeKind = "change_orbit"
)

// ParseChallengeKind converts a string into a ChallengeKind.
func ParseChallengeKind(s string) (ChallengeKind, error) {
	kind := ChallengeKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case ChallengeReachAltitude, ChallengeReachOrbit, ChallengeCircularize, ChallengeChangeOrbit:
		return kind, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidChallenge, s)
}

// TargetOrbit is the orbit a change_orbit challenge is matched against.
type TargetOrbit struct {
	SemiMajorAxisKm float64
	Eccentricity    float64
}

// Challenge is an immutable flight objective. MaxBurns of zero means the
// burn count is unlimited.
type Challenge struct {
	Kind             ChallengeKind
	TargetAltitudeKm float64
	TargetOrbit      *TargetOrbit
	MaxBurns         int
}

// Validate checks that the challenge carries the parameters its kind needs.
func (c Challenge) Validate() error {
	if _, err := ParseChallengeKind(string(c.Kind)); err != nil {
		return err
	}
	if c.MaxBurns < 0 {
		return fmt.Errorf("%w: max burns must be non-negative, got %d", ErrInvalidChallenge, c.MaxBurns)
	}
	switch c.Kind {
	case ChallengeReachAltitude:
		if c.TargetAltitudeKm <= 0 {
			return fmt.Errorf("%w: reach_altitude requires a positive target altitude", ErrInvalidChallenge)
		}
	case ChallengeChangeOrbit:
		if c.TargetOrbit == nil {
			return fmt.Errorf("%w: change_orbit requires a target orbit", ErrInvalidChallenge)
		}
		if c.TargetOrbit.SemiMajorAxisKm <= 0 {
			return fmt.Errorf("%w: target semi-major axis must be positive", ErrInvalidChallenge)
		}
		if c.TargetOrbit.Eccentricity < 0 || c.TargetOrbit.Eccentricity >= 1 {
			return fmt.Errorf("%w: target eccentricity %v outside [0, 1)", ErrInvalidChallenge, c.TargetOrbit.Eccentricity)
		}
	}
	return nil
}

// BurnDirection selects the orientation of a discrete orbital burn
// relative to the current velocity vector.
type BurnDirection int

const (
	BurnPrograde BurnDirection = iota
	BurnRetrograde
	BurnNormal
	BurnAntinormal
)

// String returns the lowercase name used in logs and metrics labels.
func (d BurnDirection) String() string {
	switch d {
	case BurnPrograde:
		return "prograde"
	case BurnRetrograde:
		return "retrograde"
	case BurnNormal:
		return "normal"
	case BurnAntinormal:
		return "antinormal"
	}
	return "unknown"
}

// ParseBurnDirection converts a string into a BurnDirection.
func ParseBurnDirection(s string) (BurnDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prograde":
		return BurnPrograde, nil
	case "retrograde":
		return BurnRetrograde, nil
	case "normal":
		return BurnNormal, nil
	case "antinormal":
		return BurnAntinormal, nil
	}
	return 0, fmt.Errorf("unknown burn direction %q", s)
}
