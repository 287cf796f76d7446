package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/racerstats/laptimer/pkg/catalog"
	"github.com/racerstats/laptimer/pkg/matcher"
	"github.com/racerstats/laptimer/pkg/timing"
	"github.com/racerstats/laptimer/pkg/util"
	"github.com/spf13/viper"
)

type Config struct {
	APIPort    int           `mapstructure:"API_PORT" validate:"min=1,max=65535"`
	APITimeout time.Duration `mapstructure:"API_TIMEOUT" validate:"gt=0"`
	DBPath     string        `mapstructure:"DB_PATH" validate:"required"`
	LogDev     bool          `mapstructure:"LOG_DEV"`

	MatchPreset       string  `mapstructure:"MATCH_PRESET" validate:"oneof=precision street road highway"`
	SimplifyEpsilonM  float64 `mapstructure:"SIMPLIFY_EPSILON_M" validate:"gte=0"`
	MinTrackLengthM   float64 `mapstructure:"MIN_TRACK_LENGTH_M" validate:"gte=0"`
	DefaultSimilarity float64 `mapstructure:"DEFAULT_SIMILARITY" validate:"gt=0,lte=1"`
	MatchWorkers      int     `mapstructure:"MATCH_WORKERS" validate:"min=1,max=64"`
	NearbyRadiusKm    float64 `mapstructure:"NEARBY_RADIUS_KM" validate:"gt=0"`

	MinLapMs       int64   `mapstructure:"MIN_LAP_MS" validate:"gt=0"`
	MaxLapMs       int64   `mapstructure:"MAX_LAP_MS" validate:"gtfield=MinLapMs"`
	SplitIntervalM float64 `mapstructure:"SPLIT_INTERVAL_M" validate:"gt=0"`
	CrossingFarM   float64 `mapstructure:"CROSSING_FAR_M" validate:"gt=0"`
	CrossingNearM  float64 `mapstructure:"CROSSING_NEAR_M" validate:"gt=0,ltfield=CrossingFarM"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_PORT", 6060)
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("DB_PATH", "./data/laptimer.db")
	v.SetDefault("LOG_DEV", false)

	v.SetDefault("MATCH_PRESET", "street")
	v.SetDefault("SIMPLIFY_EPSILON_M", 10.0)
	v.SetDefault("MIN_TRACK_LENGTH_M", 100.0)
	v.SetDefault("DEFAULT_SIMILARITY", 0.95)
	v.SetDefault("MATCH_WORKERS", 4)
	v.SetDefault("NEARBY_RADIUS_KM", 2.0)

	v.SetDefault("MIN_LAP_MS", 10_000)
	v.SetDefault("MAX_LAP_MS", 600_000)
	v.SetDefault("SPLIT_INTERVAL_M", 100.0)
	v.SetDefault("CROSSING_FAR_M", 20.0)
	v.SetDefault("CROSSING_NEAR_M", 10.0)

	v.SetDefault("RATE_LIMIT_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_BURST", 40)
}

/*
Load. defaults, then an optional config.yaml from dir, then environment variables. a missing config
file is not an error; a malformed one is.
*/
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return util.WrapErrorf(err, util.ErrBadParamInput, "invalid config")
	}
	return nil
}

// Default returns the built-in configuration without reading files or the environment.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal default config: %w", err)
	}
	return &cfg, nil
}

func (c Config) Catalog() (catalog.Config, error) {
	preset, err := matcher.ParsePreset(c.MatchPreset)
	if err != nil {
		return catalog.Config{}, err
	}
	return catalog.Config{
		Preset:            preset,
		EpsilonM:          c.SimplifyEpsilonM,
		MinTrackLengthM:   c.MinTrackLengthM,
		DefaultSimilarity: c.DefaultSimilarity,
		Workers:           c.MatchWorkers,
		NearbyRadiusKm:    c.NearbyRadiusKm,
		CrossingFarM:      c.CrossingFarM,
		CrossingNearM:     c.CrossingNearM,
	}, nil
}

func (c Config) Timing() timing.Config {
	return timing.Config{
		MinLapMs:       c.MinLapMs,
		MaxLapMs:       c.MaxLapMs,
		SplitIntervalM: c.SplitIntervalM,
	}
}
