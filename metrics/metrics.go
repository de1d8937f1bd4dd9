// Package metrics records forecast and scoring events for observability.
// Sinks are fire-and-forget collaborators of the forecasting pipeline;
// recording failures never abort a run.
package metrics

import (
	"fmt"
	"time"
)

// ForecastEvent is one emitted prediction.
type ForecastEvent struct {
	Key          string
	ForecastDate time.Time
	TargetDate   time.Time
	Median       float64
	Levels       int
	ModelID      string
}

// ScoreEvent is one evaluated prediction.
type ScoreEvent struct {
	Key        string
	TargetDate time.Time
	Actual     float64
	WIS        float64
	AbsError   float64
}

// ScoreSink records pipeline events for observability purposes.
type ScoreSink interface {
	RecordForecasts(events []ForecastEvent) error
	RecordScores(events []ScoreEvent) error
}

// NopSink implements ScoreSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordForecasts([]ForecastEvent) error { return nil }
func (NopSink) RecordScores([]ScoreEvent) error       { return nil }

// Config selects and parameterizes the metrics sink.
type Config struct {
	// Sink is one of "nop", "prometheus", "influx".
	Sink         string `json:"sink"`
	InfluxURL    string `json:"influx_url"`
	InfluxToken  string `json:"influx_token"`
	InfluxOrg    string `json:"influx_org"`
	InfluxBucket string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Sink == "" {
		c.Sink = "nop"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Sink {
	case "nop", "prometheus":
		return nil
	case "influx":
		if c.InfluxURL == "" {
			return fmt.Errorf("influx sink requires influx_url")
		}
		return nil
	default:
		return fmt.Errorf("unknown sink %s", c.Sink)
	}
}

// New builds the sink described by cfg.
func New(cfg Config) (ScoreSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Sink {
	case "prometheus":
		return NewPromSink(nil)
	case "influx":
		return NewInfluxSinkWithFallback(cfg), nil
	default:
		return NopSink{}, nil
	}
}
