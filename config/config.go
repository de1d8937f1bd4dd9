package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/epicast-dev/epicast/core/forecast"
	"github.com/epicast-dev/epicast/core/latency"
	"github.com/epicast-dev/epicast/core/model"
	"github.com/epicast-dev/epicast/core/shift"
	"github.com/epicast-dev/epicast/core/train"
	"github.com/epicast-dev/epicast/metrics"
)

// Config is the full pipeline configuration.
type Config struct {
	Forecast ForecastConfig `json:"forecast"`
	Latency  LatencyConfig  `json:"latency"`
	Metrics  metrics.Config `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
}

// ForecastConfig describes the feature layout and trainer of one pipeline.
type ForecastConfig struct {
	// StepHours is the calendar distance of one time unit.
	StepHours int `json:"step_hours"`
	// Levels are the quantile levels of emitted forecasts.
	Levels []float64 `json:"levels"`
	// Shifts declare lag features and the ahead target.
	Shifts []shift.Spec `json:"shifts"`
	// ExtraLookback widens the history window for derived features.
	ExtraLookback int `json:"extra_lookback"`
	// Trainer selects the regression backend: "lastvalue" or "linear".
	Trainer string `json:"trainer"`
}

// SetDefaults applies sane defaults.
func (c *ForecastConfig) SetDefaults() {
	if c.StepHours == 0 {
		c.StepHours = 24
	}
	if len(c.Levels) == 0 {
		c.Levels = append([]float64(nil), forecast.DefaultLevels...)
	}
	if c.Trainer == "" {
		c.Trainer = "lastvalue"
	}
}

// Validate checks mandatory fields.
func (c ForecastConfig) Validate() error {
	if c.StepHours < 0 {
		return fmt.Errorf("step_hours must be positive")
	}
	for _, l := range c.Levels {
		if l <= 0 || l >= 1 {
			return fmt.Errorf("level %g outside (0,1)", l)
		}
	}
	if len(c.Shifts) == 0 {
		return fmt.Errorf("at least one shift spec is required")
	}
	targets := 0
	for _, s := range c.Shifts {
		if s.Target {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("exactly one target spec is required, got %d", targets)
	}
	switch c.Trainer {
	case "lastvalue", "linear":
	default:
		return fmt.Errorf("unknown trainer %s", c.Trainer)
	}
	return nil
}

// Options maps the section onto forecaster options.
func (c ForecastConfig) Options() forecast.Options {
	return forecast.Options{
		Step:          time.Duration(c.StepHours) * time.Hour,
		Specs:         c.Shifts,
		Levels:        c.Levels,
		ExtraLookback: c.ExtraLookback,
	}
}

// NewTrainer builds the configured regression backend.
func (c ForecastConfig) NewTrainer() (train.Trainer, error) {
	switch c.Trainer {
	case "lastvalue":
		return train.LastValue{}, nil
	case "linear":
		return train.Linear{}, nil
	default:
		return nil, fmt.Errorf("unknown trainer %s", c.Trainer)
	}
}

// LatencyConfig describes how reporting latency is estimated for versioned
// sources.
type LatencyConfig struct {
	Enabled     bool       `json:"enabled"`
	Columns     []string   `json:"columns"`
	IgnoreKeys  [][]string `json:"ignore_keys"`
	CheckedKeys [][]string `json:"checked_keys"`
}

// Options maps the section onto latency options.
func (c LatencyConfig) Options() latency.Options {
	return latency.Options{
		Columns:     c.Columns,
		IgnoreKeys:  toKeys(c.IgnoreKeys),
		CheckedKeys: toKeys(c.CheckedKeys),
	}
}

func toKeys(tuples [][]string) []model.Key {
	out := make([]model.Key, len(tuples))
	for i, t := range tuples {
		out[i] = model.Key(t)
	}
	return out
}

// Load reads the configuration from a yaml or json file, applies EC_
// environment overrides, then defaults and validation per section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("EC_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ec_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Forecast.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Forecast.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
