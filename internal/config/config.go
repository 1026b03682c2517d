// Package config loads simulator configuration from an optional config
// file plus LAUNCHSIM_* environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/launch-simulator/model"
)

// RocketSection mirrors model.RocketConfig for config binding.
type RocketSection struct {
	MassKg         float64 `mapstructure:"mass_kg"`
	PropellantKg   float64 `mapstructure:"propellant_kg"`
	ThrustKN       float64 `mapstructure:"thrust_kn"`
	LaunchAngleDeg float64 `mapstructure:"launch_angle_deg"`
}

// ChallengeSection configures an optional flight objective. An empty Kind
// means no challenge.
type ChallengeSection struct {
	Kind               string  `mapstructure:"kind"`
	TargetAltitudeKm   float64 `mapstructure:"target_altitude_km"`
	TargetSemiMajorKm  float64 `mapstructure:"target_semi_major_axis_km"`
	TargetEccentricity float64 `mapstructure:"target_eccentricity"`
	MaxBurns           int     `mapstructure:"max_burns"`
}

// Config is the full simulator configuration.
type Config struct {
	Body          string           `mapstructure:"body"`
	Rocket        RocketSection    `mapstructure:"rocket"`
	Challenge     ChallengeSection `mapstructure:"challenge"`
	TimeScale     float64          `mapstructure:"time_scale"`
	FrameMillis   int              `mapstructure:"frame_millis"`
	BurnDeltaVKmS float64          `mapstructure:"burn_delta_v_km_s"`
	EngineIspSec  float64          `mapstructure:"engine_isp_sec"`
	MetricsAddr   string           `mapstructure:"metrics_addr"`
}

// Load reads configuration from the given file (optional; empty path
// skips it) and the environment, applying defaults for everything unset.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("body", "earth")
	v.SetDefault("rocket.mass_kg", 21000.0)
	v.SetDefault("rocket.propellant_kg", 15000.0)
	v.SetDefault("rocket.thrust_kn", 400.0)
	v.SetDefault("rocket.launch_angle_deg", 90.0)
	v.SetDefault("time_scale", 1.0)
	v.SetDefault("frame_millis", 50)
	v.SetDefault("burn_delta_v_km_s", 0.1)
	v.SetDefault("engine_isp_sec", 300.0)
	v.SetDefault("metrics_addr", ":9090")

	v.SetEnvPrefix("LAUNCHSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// RocketConfig converts the rocket section to the model type.
func (c Config) RocketConfig() model.RocketConfig {
	return model.RocketConfig{
		MassKg:         c.Rocket.MassKg,
		PropellantKg:   c.Rocket.PropellantKg,
		ThrustKN:       c.Rocket.ThrustKN,
		LaunchAngleDeg: c.Rocket.LaunchAngleDeg,
	}
}

// ChallengeConfig converts the challenge section to the model type.
// Returns nil when no challenge is configured.
func (c Config) ChallengeConfig() (*model.Challenge, error) {
	if strings.TrimSpace(c.Challenge.Kind) == "" {
		return nil, nil
	}
	kind, err := model.ParseChallengeKind(c.Challenge.Kind)
	if err != nil {
		return nil, err
	}

	challenge := model.Challenge{
		Kind:             kind,
		TargetAltitudeKm: c.Challenge.TargetAltitudeKm,
		MaxBurns:         c.Challenge.MaxBurns,
	}
	if kind == model.ChallengeChangeOrbit {
		challenge.TargetOrbit = &model.TargetOrbit{
			SemiMajorAxisKm: c.Challenge.TargetSemiMajorKm,
			Eccentricity:    c.Challenge.TargetEccentricity,
		}
	}
	if err := challenge.Validate(); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// Validate checks the whole configuration, including the rocket against
// the model's thrust range.
func (c Config) Validate() error {
	if _, err := model.BodyByName(c.Body); err != nil {
		return err
	}
	if err := c.RocketConfig().Validate(); err != nil {
		return err
	}
	if c.TimeScale <= 0 {
		return fmt.Errorf("time_scale must be positive, got %v", c.TimeScale)
	}
	if c.FrameMillis <= 0 {
		return fmt.Errorf("frame_millis must be positive, got %d", c.FrameMillis)
	}
	if _, err := c.ChallengeConfig(); err != nil {
		return err
	}
	return nil
}
