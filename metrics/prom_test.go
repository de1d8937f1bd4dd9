package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromSink_RecordForecasts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	now := time.Now()
	ev := ForecastEvent{
		Key:          "ca",
		ForecastDate: now,
		TargetDate:   now.AddDate(0, 0, 14),
		Median:       42,
		Levels:       7,
		ModelID:      "m1",
	}
	if err := sink.RecordForecasts([]ForecastEvent{ev, ev}); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP forecasts_total Total number of forecasts emitted
# TYPE forecasts_total counter
forecasts_total{key="ca"} 2
`
	if err := testutil.CollectAndCompare(sink.forecasts, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSink_RecordScores(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordScores([]ScoreEvent{{Key: "ca", WIS: 1.5, AbsError: 2}}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if got := testutil.CollectAndCount(sink.wis); got != 1 {
		t.Fatalf("wis series = %d, want 1", got)
	}
}

func TestPromSink_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("second registration must reuse collectors: %v", err)
	}
}
