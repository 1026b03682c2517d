package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/launch-simulator/model"
)

func testEngine(rocket model.RocketConfig) Engine {
	return Engine{
		ThrustKN:       rocket.ThrustKN,
		IspSec:         DefaultIspSec,
		TurnAltitudeKm: rocket.TurnAltitudeKm(),
	}
}

func TestStepTerminalStatesAreFrozen(t *testing.T) {
	body := earthBody(t)
	engine := testEngine(model.RocketConfig{ThrustKN: 400})

	for _, tc := range []struct {
		name  string
		state SpacecraftState
	}{
		{"crashed", SpacecraftState{Position: Vec2{X: 0, Y: body.RadiusKm + 100}, Velocity: Vec2{X: 1, Y: 2}, HasCrashed: true}},
		{"escaped", SpacecraftState{Position: Vec2{X: 0, Y: body.RadiusKm * 11}, Velocity: Vec2{X: 3, Y: 4}, HasEscaped: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, dt := range []float64{0.1, 1, 100} {
				got := Step(body, tc.state, engine, dt, true)
				if got.Position != tc.state.Position || got.Velocity != tc.state.Velocity {
					t.Fatalf("dt=%v: terminal state mutated: %+v -> %+v", dt, tc.state, got)
				}
			}
		})
	}
}

func TestStepFreeFallCrashes(t *testing.T) {
	body := earthBody(t)
	engine := testEngine(model.RocketConfig{ThrustKN: 400})

	state := SpacecraftState{
		Position:   Vec2{X: 0, Y: body.RadiusKm + 1},
		AltitudeKm: 1,
		MassKg:     1000,
		DryMassKg:  1000,
	}

	for i := 0; i < 60 && !state.HasCrashed; i++ {
		state = Step(body, state, engine, 1, false)
	}
	if !state.HasCrashed {
		t.Fatalf("free fall from 1 km never crashed: %+v", state)
	}
	if state.HasEscaped {
		t.Fatalf("crashed flight also flagged escaped")
	}

	frozen := Step(body, state, engine, 1, false)
	if frozen.Position != state.Position || frozen.Velocity != state.Velocity {
		t.Fatalf("state changed after crash: %+v -> %+v", state, frozen)
	}
}

func TestStepEscapeDetection(t *testing.T) {
	body := earthBody(t)
	engine := testEngine(model.RocketConfig{ThrustKN: 400})

	r0 := body.RadiusKm + 1000
	state := SpacecraftState{
		Position:   Vec2{X: 0, Y: r0},
		Velocity:   Vec2{X: 0, Y: 20}, // well above escape velocity
		AltitudeKm: 1000,
		MassKg:     1000,
		DryMassKg:  1000,
	}

	el := ComputeElements(body, state.Position, state.Velocity)
	if !el.Escaping {
		t.Fatalf("expected Escaping from the first computed elements, got %+v", el)
	}

	for i := 0; i < 10000 && !state.HasEscaped; i++ {
		state = Step(body, state, engine, 1, false)
	}
	if !state.HasEscaped {
		t.Fatalf("hyperbolic flight never flagged escaped: altitude %v", state.AltitudeKm)
	}
	if state.HasCrashed {
		t.Fatalf("escaped flight also flagged crashed")
	}
}

func TestStepPropellantMonotonicAndFloored(t *testing.T) {
	body := earthBody(t)
	rocket := model.RocketConfig{MassKg: 2000, PropellantKg: 50, ThrustKN: 400, LaunchAngleDeg: 90}
	engine := testEngine(rocket)

	state := SpacecraftState{
		Position:     Vec2{X: 0, Y: body.RadiusKm},
		MassKg:       rocket.MassKg,
		PropellantKg: rocket.PropellantKg,
		DryMassKg:    rocket.DryMassKg(),
		IsLaunching:  true,
	}

	prev := state.PropellantKg
	for i := 0; i < 20; i++ {
		state = Step(body, state, engine, 1, true)
		if state.Terminal() {
			break
		}
		if state.PropellantKg > prev {
			t.Fatalf("propellant increased: %v -> %v", prev, state.PropellantKg)
		}
		prev = state.PropellantKg
	}

	if state.PropellantKg != 0 {
		t.Fatalf("propellant = %v, want exhausted after 20 s at %v kg/s", state.PropellantKg, engine.MassFlowKgPerSec())
	}
	if state.IsLaunching {
		t.Fatalf("IsLaunching still set after propellant exhaustion")
	}
	if state.MassKg != state.DryMassKg {
		t.Fatalf("mass = %v, want dry mass %v", state.MassKg, state.DryMassKg)
	}

	// Thrust never resumes, even when requested again.
	after := Step(body, state, engine, 1, true)
	if after.IsLaunching {
		t.Fatalf("IsLaunching re-enabled after exhaustion")
	}
	if after.MassKg != state.DryMassKg {
		t.Fatalf("mass changed without propellant: %v", after.MassKg)
	}
}

func TestStepGravityTurnPitchesOver(t *testing.T) {
	body := earthBody(t)
	rocket := model.RocketConfig{MassKg: 21000, PropellantKg: 15000, ThrustKN: 400, LaunchAngleDeg: 90}
	engine := testEngine(rocket)

	state := SpacecraftState{
		Position:     Vec2{X: 0, Y: body.RadiusKm},
		MassKg:       rocket.MassKg,
		PropellantKg: rocket.PropellantKg,
		DryMassKg:    rocket.DryMassKg(),
		IsLaunching:  true,
	}

	// Below the 1 km pitch floor the thrust is purely radial: no
	// tangential velocity builds up.
	for state.AltitudeKm < 0.9 {
		state = Step(body, state, engine, 1, true)
	}
	if math.Abs(state.Velocity.X) > 1e-12 {
		t.Fatalf("tangential velocity %v before the pitch-over floor", state.Velocity.X)
	}

	// Well past the floor the turn must have begun.
	for state.AltitudeKm < 20 && !state.Terminal() {
		state = Step(body, state, engine, 1, true)
	}
	if math.Abs(state.Velocity.X) == 0 {
		t.Fatalf("no tangential velocity after pitch-over altitude")
	}
}

func TestStepTrailDecimationAndCapacity(t *testing.T) {
	body := earthBody(t)
	engine := testEngine(model.RocketConfig{ThrustKN: 400})

	// Slow vertical drift: far below the 0.02R spacing, so after the
	// first sample no more are added.
	state := SpacecraftState{
		Position:  Vec2{X: 0, Y: body.RadiusKm + 500},
		Velocity:  Vec2{X: 0, Y: 0.001},
		MassKg:    1000,
		DryMassKg: 1000,
	}
	state = Step(body, state, engine, 1, false)
	if len(state.Trail) != 1 {
		t.Fatalf("trail length = %d after first step, want 1", len(state.Trail))
	}
	state = Step(body, state, engine, 1, false)
	if len(state.Trail) != 1 {
		t.Fatalf("trail grew despite sub-threshold motion: %d samples", len(state.Trail))
	}

	// The trail is capacity-bounded with the oldest sample dropped.
	var trail []Vec2
	for i := 0; i < trailCapacity+50; i++ {
		trail = appendTrail(trail, Vec2{X: float64(i)})
	}
	if len(trail) != trailCapacity {
		t.Fatalf("trail length %d, want capacity %d", len(trail), trailCapacity)
	}
	if trail[0].X != 50 {
		t.Fatalf("oldest surviving sample = %v, want 50", trail[0].X)
	}
}
