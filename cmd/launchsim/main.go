// Command launchsim runs a headless launch-to-orbit flight: it launches a
// configured rocket, advances the simulation at a chosen time scale,
// applies scripted burns, and submits the final metrics record to the
// evaluation sink as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/launch-simulator/core"
	"github.com/signalsfoundry/launch-simulator/internal/config"
	"github.com/signalsfoundry/launch-simulator/internal/logging"
	"github.com/signalsfoundry/launch-simulator/internal/observability"
	"github.com/signalsfoundry/launch-simulator/internal/reference"
	"github.com/signalsfoundry/launch-simulator/internal/session"
	"github.com/signalsfoundry/launch-simulator/model"
	"github.com/signalsfoundry/launch-simulator/timectrl"
)

// burnSpec is one scripted burn: a simulated time and a direction.
type burnSpec struct {
	AtSimSeconds float64
	Direction    model.BurnDirection
}

// burnList implements flag.Value for repeated -burn flags of the form
// "120:prograde".
type burnList []burnSpec

func (b *burnList) String() string {
	parts := make([]string, 0, len(*b))
	for _, spec := range *b {
		parts = append(parts, fmt.Sprintf("%g:%s", spec.AtSimSeconds, spec.Direction))
	}
	return strings.Join(parts, ",")
}

func (b *burnList) Set(value string) error {
	at, dir, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("burn %q must be of the form <sim-seconds>:<direction>", value)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(at), 64)
	if err != nil || seconds < 0 {
		return fmt.Errorf("burn %q has an invalid time", value)
	}
	direction, err := model.ParseBurnDirection(dir)
	if err != nil {
		return err
	}
	*b = append(*b, burnSpec{AtSimSeconds: seconds, Direction: direction})
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to a yaml/json config file")
	duration := flag.Duration("duration", 2*time.Minute, "maximum wall-clock run time")
	timeScale := flag.Float64("time-scale", 0, "override the configured time-scale factor")
	targetTLE := flag.String("target-tle", "", "TLE file defining a reference orbit used as the challenge target")
	outPath := flag.String("out", "-", "where to write the metrics record (- for stdout)")
	var burns burnList
	flag.Var(&burns, "burn", "scripted burn <sim-seconds>:<direction>; repeatable")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *timeScale > 0 {
		cfg.TimeScale = *timeScale
	}
	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}

	body, err := model.BodyByName(cfg.Body)
	if err != nil {
		log.Error(ctx, "unknown body", logging.String("error", err.Error()))
		os.Exit(1)
	}

	challenge, err := cfg.ChallengeConfig()
	if err != nil {
		log.Error(ctx, "invalid challenge", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *targetTLE != "" {
		challenge, err = challengeFromTLE(*targetTLE, body, cfg.Challenge.MaxBurns)
		if err != nil {
			log.Error(ctx, "failed to build challenge from TLE", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "challenge derived from reference orbit",
			logging.String("kind", string(challenge.Kind)),
			logging.Any("target_altitude_km", challenge.TargetAltitudeKm))
	}

	collector, err := observability.NewFlightCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	opts := []core.FlightOption{
		core.WithLogger(log),
		core.WithMetricsRecorder(collector),
		core.WithBurnDeltaV(cfg.BurnDeltaVKmS),
		core.WithEngineIsp(cfg.EngineIspSec),
	}
	if challenge != nil {
		opts = append(opts, core.WithChallenge(*challenge))
	}
	fc := core.NewFlightController(body, cfg.RocketConfig(), opts...)

	ctx, flightLog := logging.WithFlightLogger(ctx, log)
	tracer := otel.Tracer("launchsim")
	ctx, flightSpan := tracer.Start(ctx, "flight")
	flightSpan.SetAttributes(
		attribute.String("body", body.Name),
		attribute.Float64("twr", cfg.RocketConfig().TWR(body)),
		attribute.Float64("time_scale", cfg.TimeScale),
	)

	if !fc.Launch() {
		flightLog.Error(ctx, "launch rejected; check thrust-to-weight ratio")
		flightSpan.End()
		os.Exit(1)
	}

	runFlight(ctx, flightLog, fc, cfg, burns, *duration)
	flightSpan.End()

	out := os.Stdout
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			flightLog.Error(ctx, "failed to open metrics output", logging.String("error", err.Error()))
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	ctx, finalizeSpan := tracer.Start(ctx, "finalize")
	recorder := session.NewRecorder(session.JSONSink{W: out}, flightLog)
	record, err := recorder.Finalize(ctx, fc)
	finalizeSpan.End()
	if err != nil {
		flightLog.Error(ctx, "failed to finalize flight", logging.String("error", err.Error()))
		os.Exit(1)
	}
	collector.ObserveScore(record.Score)

	flightLog.Info(ctx, "flight complete",
		logging.String("phase", fc.Phase().String()),
		logging.Int("score", record.Score),
		logging.Any("success", record.Success),
		logging.Any("max_altitude_km", record.MaxAltitudeKm))

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// runFlight drives the clock until the wall duration elapses, the flight
// reaches a terminal phase, or the process is interrupted.
func runFlight(ctx context.Context, log logging.Logger, fc *core.FlightController, cfg config.Config, burns burnList, duration time.Duration) {
	sort.Slice(burns, func(i, j int) bool { return burns[i].AtSimSeconds < burns[j].AtSimSeconds })

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()
	runCtx, stop := signal.NotifyContext(runCtx, os.Interrupt)
	defer stop()

	clock := timectrl.NewFlightClock(time.Duration(cfg.FrameMillis)*time.Millisecond, cfg.TimeScale)

	var simElapsed float64
	var nextBurn int
	var lastLogged float64
	clock.AddListener(func(simSeconds float64) {
		fc.Advance(simSeconds)
		simElapsed += simSeconds

		for nextBurn < len(burns) && burns[nextBurn].AtSimSeconds <= simElapsed {
			fc.ApplyBurn(burns[nextBurn].Direction)
			nextBurn++
		}

		if simElapsed-lastLogged >= 60 {
			lastLogged = simElapsed
			stats := fc.Stats()
			log.Info(runCtx, "flight status",
				logging.Any("sim_elapsed_s", simElapsed),
				logging.String("phase", fc.Phase().String()),
				logging.Any("altitude_km", snapshotAltitude(fc)),
				logging.Any("velocity_km_s", stats.VelocityKmS),
				logging.Any("apogee_km", stats.ApogeeKm),
				logging.Any("perigee_km", stats.PerigeeKm),
				logging.Any("in_orbit", stats.InOrbit))
		}

		if fc.Phase() == core.PhaseCrashed || fc.Phase() == core.PhaseEscaped {
			cancel()
		}
	})

	done := clock.Start(runCtx)
	<-done
}

func snapshotAltitude(fc *core.FlightController) float64 {
	if state, ok := fc.Snapshot(); ok {
		return state.AltitudeKm
	}
	return 0
}

func challengeFromTLE(path string, body model.CentralBody, maxBurns int) (*model.Challenge, error) {
	name, line1, line2, err := reference.LoadTLEFile(path)
	if err != nil {
		return nil, err
	}
	orbit, err := reference.FromTLE(name, line1, line2, body, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	challenge := reference.AltitudeChallenge(orbit)
	challenge.MaxBurns = maxBurns
	return &challenge, nil
}

func serveMetrics(addr string, collector *observability.FlightCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
