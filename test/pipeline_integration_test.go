package test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/epicast-dev/epicast/config"
	"github.com/epicast-dev/epicast/core/archive"
	"github.com/epicast-dev/epicast/core/forecast"
	"github.com/epicast-dev/epicast/core/model"
	"github.com/epicast-dev/epicast/infra/logger"
	"github.com/epicast-dev/epicast/metrics"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

const pipelineConfig = `forecast:
  trainer: "linear"
  levels: [0.1, 0.25, 0.5, 0.75, 0.9]
  shifts:
    - column: "cases"
      offsets: [0, -7]
    - column: "cases"
      offsets: [7]
      target: true
latency:
  enabled: true
metrics:
  sink: "prometheus"
logging:
  level: "error"
`

// TestConfiguredPipelineEndToEnd drives the full path: config load, archive
// snapshot with latency estimation, shift generation, training, prediction
// and scoring, with forecast counters landing in Prometheus.
func TestConfiguredPipelineEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(pipelineConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSink(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	trainer, err := cfg.Forecast.NewTrainer()
	if err != nil {
		t.Fatalf("trainer: %v", err)
	}
	log := logger.NewZerologLoggerWithLevel("pipeline-test", cfg.Logging.Level)
	f, err := forecast.New(cfg.Forecast.Options(), trainer, log, sink)
	if err != nil {
		t.Fatalf("forecast.New: %v", err)
	}

	// Two locations growing linearly at different rates, all values first
	// reported two days late.
	var ups []archive.Update
	for n := 1; n <= 30; n++ {
		ups = append(ups,
			archive.Update{Key: model.Key{"ca"}, Time: day(n), Version: day(n + 2),
				Values: map[string]float64{"cases": float64(100 + 2*n)}},
			archive.Update{Key: model.Key{"ny"}, Time: day(n), Version: day(n + 2),
				Values: map[string]float64{"cases": float64(50 + n)}},
		)
	}
	a, err := archive.New(ups)
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}

	forecastDate := day(32)
	preds, err := f.RunVersioned(a, forecastDate, cfg.Latency.Options())
	if err != nil {
		t.Fatalf("RunVersioned: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("got %d predictions, want one per location", len(preds))
	}

	byKey := make(map[string]forecast.Prediction)
	for _, p := range preds {
		if !p.TargetDate.Equal(day(39)) {
			t.Fatalf("target date = %s, want forecast date + 7", p.TargetDate)
		}
		byKey[p.Key.String()] = p
	}
	// The linear trainer should track each location's trend: ca grows at
	// 2/day, so the day-39 median should land near 100+2*39.
	caMed := byKey["ca"].Distribution.Median()
	if math.Abs(caMed-178) > 1.0 {
		t.Fatalf("ca median = %g, want about 178", caMed)
	}
	nyMed := byKey["ny"].Distribution.Median()
	if math.Abs(nyMed-89) > 1.0 {
		t.Fatalf("ny median = %g, want about 89", nyMed)
	}

	// Score against the true continuation of both series.
	var ks []model.Key
	var times []time.Time
	var cases []float64
	for n := 35; n <= 45; n++ {
		ks = append(ks, model.Key{"ca"}, model.Key{"ny"})
		times = append(times, day(n), day(n))
		cases = append(cases, float64(100+2*n), float64(50+n))
	}
	truth, err := model.NewTable(ks, times)
	if err != nil {
		t.Fatalf("truth table: %v", err)
	}
	if err := truth.AddFloat("cases", cases); err != nil {
		t.Fatalf("truth column: %v", err)
	}
	events, err := f.Score(preds, truth, "cases")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d score events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.WIS < 0 {
			t.Fatalf("WIS = %g, must be non-negative", ev.WIS)
		}
		if ev.WIS > 5 {
			t.Fatalf("WIS = %g, linear fit of a linear series should score near zero", ev.WIS)
		}
	}

	got, err := testutil.GatherAndCount(reg, "forecasts_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 2 {
		t.Fatalf("forecasts_total series = %d, want 2", got)
	}
	got, err = testutil.GatherAndCount(reg, "forecast_wis")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 2 {
		t.Fatalf("forecast_wis series = %d, want 2", got)
	}
}
