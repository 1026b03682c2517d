package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FlightCollector bundles Prometheus metrics for the simulation core and
// implements core.FlightMetricsRecorder so the flight controller can drive
// them directly.
type FlightCollector struct {
	gatherer prometheus.Gatherer

	SubSteps prometheus.Counter
	Burns    *prometheus.CounterVec
	Outcomes *prometheus.CounterVec

	Altitude   prometheus.Gauge
	Velocity   prometheus.Gauge
	Propellant prometheus.Gauge

	Scores prometheus.Histogram
}

// NewFlightCollector registers flight metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewFlightCollector(reg prometheus.Registerer) (*FlightCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	subSteps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flight_integrator_substeps_total",
		Help: "Total number of integrator sub-steps executed.",
	}), "flight_integrator_substeps_total")
	if err != nil {
		return nil, err
	}

	burns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_burns_total",
		Help: "Total number of orbital burns applied, labeled by direction.",
	}, []string{"direction"})
	burns, err = registerCounterVec(reg, burns, "flight_burns_total")
	if err != nil {
		return nil, err
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_outcomes_total",
		Help: "Flight outcome events: crashed, escaped, completed.",
	}, []string{"outcome"})
	outcomes, err = registerCounterVec(reg, outcomes, "flight_outcomes_total")
	if err != nil {
		return nil, err
	}

	altitude, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flight_altitude_km",
		Help: "Current spacecraft altitude above the surface in kilometres.",
	}), "flight_altitude_km")
	if err != nil {
		return nil, err
	}
	velocity, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flight_velocity_km_per_s",
		Help: "Current spacecraft speed in km/s.",
	}), "flight_velocity_km_per_s")
	if err != nil {
		return nil, err
	}
	propellant, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flight_propellant_kg",
		Help: "Remaining propellant mass in kilograms.",
	}), "flight_propellant_kg")
	if err != nil {
		return nil, err
	}

	scores, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flight_score",
		Help:    "Final flight scores at submission time.",
		Buckets: []float64{20, 40, 60, 80, 90, 100},
	}), "flight_score")
	if err != nil {
		return nil, err
	}

	return &FlightCollector{
		gatherer:   gatherer,
		SubSteps:   subSteps,
		Burns:      burns,
		Outcomes:   outcomes,
		Altitude:   altitude,
		Velocity:   velocity,
		Propellant: propellant,
		Scores:     scores,
	}, nil
}

// AddSubSteps records integrator sub-steps executed during a tick.
func (c *FlightCollector) AddSubSteps(n int) {
	if c == nil || c.SubSteps == nil || n <= 0 {
		return
	}
	c.SubSteps.Add(float64(n))
}

// SetTelemetry updates the per-tick telemetry gauges.
func (c *FlightCollector) SetTelemetry(altitudeKm, velocityKmS, propellantKg float64) {
	if c == nil {
		return
	}
	if c.Altitude != nil {
		c.Altitude.Set(altitudeKm)
	}
	if c.Velocity != nil {
		c.Velocity.Set(velocityKmS)
	}
	if c.Propellant != nil {
		c.Propellant.Set(propellantKg)
	}
}

// CountBurn records an applied burn by direction.
func (c *FlightCollector) CountBurn(direction string) {
	if c == nil || c.Burns == nil {
		return
	}
	c.Burns.WithLabelValues(direction).Inc()
}

// CountOutcome records a flight outcome event.
func (c *FlightCollector) CountOutcome(outcome string) {
	if c == nil || c.Outcomes == nil {
		return
	}
	c.Outcomes.WithLabelValues(outcome).Inc()
}

// ObserveScore records a final score at submission time.
func (c *FlightCollector) ObserveScore(score int) {
	if c == nil || c.Scores == nil {
		return
	}
	c.Scores.Observe(float64(score))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FlightCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
