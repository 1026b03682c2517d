package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/launch-simulator/model"
)

func testRocket() model.RocketConfig {
	return model.RocketConfig{MassKg: 21000, PropellantKg: 15000, ThrustKN: 400, LaunchAngleDeg: 90}
}

// coastingController returns a controller mid-flight in the given orbit
// with powered ascent already over, so burns are allowed.
func coastingController(t *testing.T, body model.CentralBody, pos, vel Vec2, opts ...FlightOption) *FlightController {
	t.Helper()
	fc := NewFlightController(body, testRocket(), opts...)
	if !fc.Launch() {
		t.Fatalf("Launch() rejected for rocket with TWR %v", testRocket().TWR(body))
	}
	fc.state = &SpacecraftState{
		Position:     pos,
		Velocity:     vel,
		AltitudeKm:   pos.Norm() - body.RadiusKm,
		MassKg:       testRocket().DryMassKg(),
		DryMassKg:    testRocket().DryMassKg(),
		PropellantKg: 0,
		IsLaunching:  false,
	}
	return fc
}

func TestLaunchRejectedOnLowTWR(t *testing.T) {
	body := earthBody(t)
	rocket := model.RocketConfig{MassKg: 21000, PropellantKg: 15000, ThrustKN: 100, LaunchAngleDeg: 90}
	if twr := rocket.TWR(body); twr > 1 {
		t.Fatalf("test rocket TWR = %v, want <= 1", twr)
	}

	fc := NewFlightController(body, rocket)
	if fc.Launch() {
		t.Fatalf("Launch() accepted with TWR <= 1")
	}
	if fc.Phase() != PhaseIdle {
		t.Fatalf("phase = %v after rejected launch, want idle", fc.Phase())
	}
	if _, ok := fc.Snapshot(); ok {
		t.Fatalf("spacecraft exists after rejected launch")
	}
	if fc.LaunchAttempts() != 0 {
		t.Fatalf("launch attempts = %d after rejected launch, want 0", fc.LaunchAttempts())
	}
}

func TestLaunchInitialisesStateAtSurface(t *testing.T) {
	body := earthBody(t)
	fc := NewFlightController(body, testRocket())

	if !fc.Launch() {
		t.Fatalf("Launch() rejected, TWR = %v", testRocket().TWR(body))
	}
	state, ok := fc.Snapshot()
	if !ok {
		t.Fatalf("no spacecraft after launch")
	}
	if state.AltitudeKm != 0 || state.Velocity != (Vec2{}) {
		t.Fatalf("launch state not at rest on the surface: %+v", state)
	}
	if state.PropellantKg != testRocket().PropellantKg {
		t.Fatalf("propellant = %v, want full load %v", state.PropellantKg, testRocket().PropellantKg)
	}
	if !state.IsLaunching {
		t.Fatalf("IsLaunching not set at launch")
	}
	if fc.Phase() != PhaseAscending {
		t.Fatalf("phase = %v, want ascending", fc.Phase())
	}

	// A second launch while a flight is active is rejected.
	if fc.Launch() {
		t.Fatalf("Launch() accepted while a flight is active")
	}
}

func TestAdvanceClimbsAndAccumulatesStats(t *testing.T) {
	body := earthBody(t)
	fc := NewFlightController(body, testRocket())
	if !fc.Launch() {
		t.Fatal("launch rejected")
	}

	prevMax := 0.0
	for i := 0; i < 10; i++ {
		fc.Advance(10)
		stats := fc.Stats()
		if stats.MaxAltitudeKm < prevMax {
			t.Fatalf("max altitude decreased: %v -> %v", prevMax, stats.MaxAltitudeKm)
		}
		prevMax = stats.MaxAltitudeKm
	}
	if prevMax <= 0 {
		t.Fatalf("vehicle never climbed: max altitude %v", prevMax)
	}
}

func TestAdvanceSkippedWhilePaused(t *testing.T) {
	body := earthBody(t)
	fc := NewFlightController(body, testRocket())
	if !fc.Launch() {
		t.Fatal("launch rejected")
	}
	fc.Advance(5)
	before, _ := fc.Snapshot()

	fc.Pause()
	fc.Advance(100)
	after, _ := fc.Snapshot()
	if before.Position != after.Position {
		t.Fatalf("state advanced while paused")
	}

	fc.Resume()
	fc.Advance(5)
	resumed, _ := fc.Snapshot()
	if resumed.Position == before.Position {
		t.Fatalf("state frozen after resume")
	}
}

func TestApplyBurnPreconditions(t *testing.T) {
	body := earthBody(t)
	rKm := body.RadiusKm + 400
	v := math.Sqrt(body.Mu() / rKm)

	t.Run("no active craft", func(t *testing.T) {
		fc := NewFlightController(body, testRocket())
		if fc.ApplyBurn(model.BurnPrograde) {
			t.Fatalf("burn accepted without a spacecraft")
		}
	})

	t.Run("during powered ascent", func(t *testing.T) {
		fc := NewFlightController(body, testRocket())
		fc.Launch()
		fc.Advance(5)
		if fc.ApplyBurn(model.BurnPrograde) {
			t.Fatalf("burn accepted during powered ascent")
		}
	})

	t.Run("paused", func(t *testing.T) {
		fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v})
		fc.Pause()
		if fc.ApplyBurn(model.BurnPrograde) {
			t.Fatalf("burn accepted while paused")
		}
	})

	t.Run("zero velocity", func(t *testing.T) {
		fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{})
		if fc.ApplyBurn(model.BurnPrograde) {
			t.Fatalf("burn accepted with zero velocity")
		}
		state, _ := fc.Snapshot()
		if state.Velocity != (Vec2{}) {
			t.Fatalf("velocity changed by rejected burn: %v", state.Velocity)
		}
	})

	t.Run("burn limit exhausted", func(t *testing.T) {
		fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v},
			WithChallenge(model.Challenge{Kind: model.ChallengeCircularize, MaxBurns: 2}))
		if !fc.ApplyBurn(model.BurnPrograde) || !fc.ApplyBurn(model.BurnRetrograde) {
			t.Fatalf("burns below the limit rejected")
		}
		if fc.ApplyBurn(model.BurnPrograde) {
			t.Fatalf("burn accepted past MaxBurns")
		}
		if fc.BurnsUsed() != 2 {
			t.Fatalf("burns used = %d, want 2", fc.BurnsUsed())
		}
	})
}

func TestApplyBurnDirections(t *testing.T) {
	body := earthBody(t)
	rKm := body.RadiusKm + 400
	v := math.Sqrt(body.Mu() / rKm)
	dv := 0.25

	for _, tc := range []struct {
		direction model.BurnDirection
		want      Vec2
	}{
		{model.BurnPrograde, Vec2{X: 0, Y: v + dv}},
		{model.BurnRetrograde, Vec2{X: 0, Y: v - dv}},
		{model.BurnNormal, Vec2{X: -dv, Y: v}},
		{model.BurnAntinormal, Vec2{X: dv, Y: v}},
	} {
		t.Run(tc.direction.String(), func(t *testing.T) {
			fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v}, WithBurnDeltaV(dv))
			if !fc.ApplyBurn(tc.direction) {
				t.Fatalf("burn rejected")
			}
			state, _ := fc.Snapshot()
			if math.Abs(state.Velocity.X-tc.want.X) > 1e-12 || math.Abs(state.Velocity.Y-tc.want.Y) > 1e-12 {
				t.Fatalf("velocity after %v burn = %v, want %v", tc.direction, state.Velocity, tc.want)
			}
		})
	}
}

func TestChallengeCompletionIsMonotonic(t *testing.T) {
	body := earthBody(t)
	fc := NewFlightController(body, testRocket(),
		WithChallenge(model.Challenge{Kind: model.ChallengeReachAltitude, TargetAltitudeKm: 2}))
	if !fc.Launch() {
		t.Fatal("launch rejected")
	}

	for i := 0; i < 30 && !fc.Completed(); i++ {
		fc.Advance(5)
	}
	if !fc.Completed() {
		t.Fatalf("reach_altitude(2 km) never completed; altitude %v", fc.Stats().MaxAltitudeKm)
	}

	// Completion survives the rest of the flight, whatever happens.
	for i := 0; i < 20; i++ {
		fc.Advance(10)
	}
	if !fc.Completed() {
		t.Fatalf("completion was un-set")
	}
}

func TestChallengeCircularize(t *testing.T) {
	body := earthBody(t)
	rKm := body.RadiusKm + 400
	v := math.Sqrt(body.Mu() / rKm)

	fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v},
		WithChallenge(model.Challenge{Kind: model.ChallengeCircularize}))
	fc.Advance(1)
	if !fc.Completed() {
		t.Fatalf("circularize incomplete on a circular orbit: e=%v inOrbit=%v",
			fc.Elements().Eccentricity, fc.Elements().InOrbit)
	}
}

func TestChangeOrbitMatchesWithinTolerance(t *testing.T) {
	body := earthBody(t)
	rKm := body.RadiusKm + 400
	v := math.Sqrt(body.Mu() / rKm)

	target := model.TargetOrbit{SemiMajorAxisKm: rKm, Eccentricity: 0}
	fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v},
		WithChallenge(model.Challenge{Kind: model.ChallengeChangeOrbit, TargetOrbit: &target}))
	fc.Advance(1)
	if !fc.Completed() {
		t.Fatalf("change_orbit incomplete on the target orbit itself: a=%v", fc.Elements().SemiMajorAxisKm)
	}

	far := model.TargetOrbit{SemiMajorAxisKm: rKm * 2, Eccentricity: 0}
	fc2 := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v},
		WithChallenge(model.Challenge{Kind: model.ChallengeChangeOrbit, TargetOrbit: &far}))
	fc2.Advance(1)
	if fc2.Completed() {
		t.Fatalf("change_orbit completed against a target 2x away")
	}
}

func TestScore(t *testing.T) {
	body := earthBody(t)
	rKm := body.RadiusKm + 400
	v := math.Sqrt(body.Mu() / rKm)

	t.Run("no challenge", func(t *testing.T) {
		fc := NewFlightController(body, testRocket())
		if got := fc.Score(); got != 100 {
			t.Fatalf("score = %d, want 100", got)
		}
	})

	t.Run("completed with unused burns", func(t *testing.T) {
		fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v},
			WithChallenge(model.Challenge{Kind: model.ChallengeCircularize, MaxBurns: 3}))
		fc.ApplyBurn(model.BurnPrograde)
		fc.Advance(1)
		if !fc.Completed() {
			t.Fatal("challenge incomplete")
		}
		// 80 + (3-1)*10 = 100.
		if got := fc.Score(); got != 100 {
			t.Fatalf("score = %d, want 100", got)
		}
	})

	t.Run("completed without burn limit", func(t *testing.T) {
		fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v},
			WithChallenge(model.Challenge{Kind: model.ChallengeCircularize}))
		fc.Advance(1)
		if got := fc.Score(); got != 80 {
			t.Fatalf("score = %d, want 80", got)
		}
	})

	t.Run("in orbit but incomplete", func(t *testing.T) {
		fc := coastingController(t, body, Vec2{X: rKm, Y: 0}, Vec2{X: 0, Y: v},
			WithChallenge(model.Challenge{Kind: model.ChallengeReachAltitude, TargetAltitudeKm: 100000}))
		fc.Advance(1)
		if got := fc.Score(); got != 60 {
			t.Fatalf("score = %d, want 60", got)
		}
	})

	t.Run("reached space only", func(t *testing.T) {
		fc := coastingController(t, body, Vec2{X: 0, Y: body.RadiusKm + 150}, Vec2{X: 0.5, Y: 0},
			WithChallenge(model.Challenge{Kind: model.ChallengeReachAltitude, TargetAltitudeKm: 100000}))
		fc.Advance(1)
		if !fc.Stats().ReachedSpace {
			t.Fatalf("flight at 150 km did not register as reaching space")
		}
		if got := fc.Score(); got != 40 {
			t.Fatalf("score = %d, want 40", got)
		}
	})

	t.Run("stayed low", func(t *testing.T) {
		fc := NewFlightController(body, testRocket(),
			WithChallenge(model.Challenge{Kind: model.ChallengeReachAltitude, TargetAltitudeKm: 100000}))
		fc.Launch()
		fc.Advance(1)
		if got := fc.Score(); got != 20 {
			t.Fatalf("score = %d, want 20", got)
		}
	})
}

func TestResetReturnsToIdle(t *testing.T) {
	body := earthBody(t)
	fc := NewFlightController(body, testRocket(),
		WithChallenge(model.Challenge{Kind: model.ChallengeReachAltitude, TargetAltitudeKm: 2}))
	fc.Launch()
	for i := 0; i < 30 && !fc.Completed(); i++ {
		fc.Advance(5)
	}
	attempts := fc.LaunchAttempts()

	fc.Reset()

	if fc.Phase() != PhaseIdle {
		t.Fatalf("phase = %v after reset, want idle", fc.Phase())
	}
	if _, ok := fc.Snapshot(); ok {
		t.Fatalf("spacecraft survived reset")
	}
	if fc.Completed() || fc.BurnsUsed() != 0 {
		t.Fatalf("challenge state survived reset")
	}
	if fc.Stats() != (FlightStats{}) {
		t.Fatalf("stats survived reset: %+v", fc.Stats())
	}
	if fc.LaunchAttempts() != attempts {
		t.Fatalf("launch attempts reset: %d -> %d", attempts, fc.LaunchAttempts())
	}

	if !fc.Launch() {
		t.Fatalf("relaunch after reset rejected")
	}
}
