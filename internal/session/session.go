// Package session assembles the final metrics record for a flight attempt
// and hands it to the external evaluation sink.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/signalsfoundry/launch-simulator/core"
	"github.com/signalsfoundry/launch-simulator/internal/logging"
)

// ErrAlreadySubmitted indicates Finalize was called twice for the same
// flight attempt.
var ErrAlreadySubmitted = errors.New("flight attempt already submitted")

// MetricsRecord is the aggregation handed to the evaluation sink at
// submission time. It is produced once per flight attempt and never
// mutated afterwards.
type MetricsRecord struct {
	AttemptID      string  `json:"attemptId"`
	Body           string  `json:"body"`
	ChallengeKind  string  `json:"challengeKind,omitempty"`
	Completed      bool    `json:"completed"`
	BurnsUsed      int     `json:"burnsUsed"`
	MaxBurns       int     `json:"maxBurns,omitempty"`
	LaunchAttempts int     `json:"launchAttempts"`
	FinalEcc       float64 `json:"finalEccentricity"`
	FinalApogeeKm  float64 `json:"finalApogeeKm"`
	FinalPerigeeKm float64 `json:"finalPerigeeKm"`
	ThrustToWeight float64 `json:"thrustToWeight"`
	PropellantUsed float64 `json:"propellantUsedKg"`
	TargetReached  bool    `json:"targetAltitudeReached"`
	MaxAltitudeKm  float64 `json:"maxAltitudeKm"`
	Score          int     `json:"score"`
	Success        bool    `json:"success"`
}

// EvaluationSink receives a finalized metrics record. Implementations are
// external to the simulation core.
type EvaluationSink interface {
	Submit(ctx context.Context, record MetricsRecord) error
}

// JSONSink writes each record as a single JSON line.
type JSONSink struct {
	W io.Writer
}

// Submit marshals the record and writes it followed by a newline.
func (s JSONSink) Submit(_ context.Context, record MetricsRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal metrics record: %w", err)
	}
	if _, err := s.W.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write metrics record: %w", err)
	}
	return nil
}

// Recorder finalizes one flight attempt. The submission latch makes
// Finalize idempotent-by-rejection: the second call fails with
// ErrAlreadySubmitted and nothing reaches the sink.
type Recorder struct {
	sink         EvaluationSink
	log          logging.Logger
	hasSubmitted bool
}

// NewRecorder builds a recorder targeting the given sink.
func NewRecorder(sink EvaluationSink, log logging.Logger) *Recorder {
	if log == nil {
		log = logging.Noop()
	}
	return &Recorder{sink: sink, log: log}
}

// Reset clears the submission latch for a new flight attempt.
func (r *Recorder) Reset() {
	r.hasSubmitted = false
}

// Finalize builds the metrics record from the controller's final state and
// submits it to the sink. The controller is only read, never mutated.
func (r *Recorder) Finalize(ctx context.Context, fc *core.FlightController) (MetricsRecord, error) {
	if r.hasSubmitted {
		return MetricsRecord{}, ErrAlreadySubmitted
	}

	record := buildRecord(fc)

	if r.sink != nil {
		if err := r.sink.Submit(ctx, record); err != nil {
			return MetricsRecord{}, fmt.Errorf("submit flight metrics: %w", err)
		}
	}
	r.hasSubmitted = true

	r.log.Info(ctx, "flight metrics submitted",
		logging.String("attempt_id", record.AttemptID),
		logging.Int("score", record.Score),
		logging.Any("success", record.Success))
	return record, nil
}

func buildRecord(fc *core.FlightController) MetricsRecord {
	stats := fc.Stats()
	rocket := fc.Rocket()

	record := MetricsRecord{
		AttemptID:      uuid.NewString(),
		Body:           fc.Body().Name,
		Completed:      fc.Completed(),
		BurnsUsed:      fc.BurnsUsed(),
		LaunchAttempts: fc.LaunchAttempts(),
		FinalEcc:       stats.Eccentricity,
		FinalApogeeKm:  stats.ApogeeKm,
		FinalPerigeeKm: stats.PerigeeKm,
		ThrustToWeight: rocket.TWR(fc.Body()),
		MaxAltitudeKm:  stats.MaxAltitudeKm,
		Score:          fc.Score(),
	}

	if state, ok := fc.Snapshot(); ok {
		record.PropellantUsed = rocket.PropellantKg - state.PropellantKg
	}

	if challenge := fc.Challenge(); challenge != nil {
		record.ChallengeKind = string(challenge.Kind)
		record.MaxBurns = challenge.MaxBurns
		if challenge.TargetAltitudeKm > 0 {
			record.TargetReached = stats.MaxAltitudeKm >= challenge.TargetAltitudeKm
		}
		record.Success = fc.Completed()
	} else {
		// Without a challenge a flight counts as successful once a
		// stable orbit is reached.
		record.Success = stats.InOrbit
	}

	return record
}
