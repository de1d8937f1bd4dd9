package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/epicast-dev/epicast/core/archive"
	"github.com/epicast-dev/epicast/core/latency"
	"github.com/epicast-dev/epicast/core/model"
	"github.com/epicast-dev/epicast/core/shift"
	"github.com/epicast-dev/epicast/core/train"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

func flatPanel(t *testing.T, keys []string, days int, value float64) *model.Table {
	t.Helper()
	var ks []model.Key
	var times []time.Time
	var cases []float64
	for _, k := range keys {
		for n := 1; n <= days; n++ {
			ks = append(ks, model.Key{k})
			times = append(times, day(n))
			cases = append(cases, value)
		}
	}
	tab, err := model.NewTable(ks, times)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if err := tab.AddFloat("cases", cases); err != nil {
		t.Fatalf("AddFloat: %v", err)
	}
	return tab
}

func defaultSpecs() []shift.Spec {
	return []shift.Spec{
		{Column: "cases", Offsets: []int{0, -7}},
		{Column: "cases", Offsets: []int{7}, Target: true},
	}
}

func newForecaster(t *testing.T, specs []shift.Spec) *Forecaster {
	t.Helper()
	f, err := New(Options{Specs: specs, Levels: []float64{0.25, 0.5, 0.75}},
		train.LastValue{FeatureIndex: 0}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestNewValidatesTarget(t *testing.T) {
	if _, err := New(Options{Specs: []shift.Spec{{Column: "cases", Offsets: []int{-1}}}},
		train.LastValue{}, nil, nil); err == nil {
		t.Fatal("a pipeline without a target must fail")
	}
	if _, err := New(Options{Specs: defaultSpecs()}, nil, nil, nil); err == nil {
		t.Fatal("a pipeline without a trainer must fail")
	}
}

func TestRunCarryForward(t *testing.T) {
	tab := flatPanel(t, []string{"ca", "ny"}, 20, 10)
	f := newForecaster(t, defaultSpecs())
	preds, err := f.Run(tab, day(20))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("got %d predictions, want one per key", len(preds))
	}
	for _, p := range preds {
		if !p.TargetDate.Equal(day(27)) {
			t.Fatalf("target date = %s, want day 27", p.TargetDate)
		}
		// Constant series: zero residuals, every quantile carries forward.
		for _, l := range []float64{0.25, 0.5, 0.75} {
			v, err := p.Distribution.QuantileAt(l)
			if err != nil {
				t.Fatalf("QuantileAt: %v", err)
			}
			if math.Abs(v-10) > 1e-9 {
				t.Fatalf("key %s level %g = %g, want 10", p.Key, l, v)
			}
		}
		if p.ModelID == "" {
			t.Fatal("predictions must carry the model id")
		}
	}
}

func TestRunFailsOnShortSeries(t *testing.T) {
	// ny only has 3 days of history against a 7-step window.
	tab := flatPanel(t, []string{"ca"}, 20, 10)
	var ks []model.Key
	var times []time.Time
	for n := 18; n <= 20; n++ {
		ks = append(ks, model.Key{"ny"})
		times = append(times, day(n))
	}
	short, _ := model.NewTable(ks, times)
	merged, err := mergeTables(tab, short)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	f := newForecaster(t, defaultSpecs())
	if _, err := f.Run(merged, day(20)); !errors.Is(err, shift.ErrInsufficientHistory) {
		t.Fatalf("want ErrInsufficientHistory, got %v", err)
	}
}

// mergeTables concatenates the rows and the cases column of two panels.
func mergeTables(a, b *model.Table) (*model.Table, error) {
	var ks []model.Key
	var times []time.Time
	var cases []float64
	for _, src := range []*model.Table{a, b} {
		col, _ := src.Float("cases")
		for i := 0; i < src.Len(); i++ {
			ks = append(ks, src.Key(i))
			times = append(times, src.Time(i))
			if col != nil {
				cases = append(cases, col[i])
			} else {
				cases = append(cases, model.NA)
			}
		}
	}
	out, err := model.NewTable(ks, times)
	if err != nil {
		return nil, err
	}
	if err := out.AddFloat("cases", cases); err != nil {
		return nil, err
	}
	return out, nil
}

func TestScoreAgainstTruth(t *testing.T) {
	tab := flatPanel(t, []string{"ca"}, 20, 10)
	f := newForecaster(t, defaultSpecs())
	preds, err := f.Run(tab, day(20))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	truth := flatPanel(t, []string{"ca"}, 30, 10)
	events, err := f.Score(preds, truth, "cases")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d score events, want 1", len(events))
	}
	if events[0].WIS != 0 {
		t.Fatalf("WIS against exact truth = %g, want 0", events[0].WIS)
	}
	if events[0].AbsError != 0 {
		t.Fatalf("abs error = %g, want 0", events[0].AbsError)
	}
}

func TestScoreSkipsMissingTruth(t *testing.T) {
	tab := flatPanel(t, []string{"ca"}, 20, 10)
	f := newForecaster(t, defaultSpecs())
	preds, err := f.Run(tab, day(20))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Truth ends before the target date.
	truth := flatPanel(t, []string{"ca"}, 20, 10)
	events, err := f.Score(preds, truth, "cases")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events for absent truth, want 0", len(events))
	}
}

func TestRunVersionedRespectsLatency(t *testing.T) {
	// Data for day n becomes visible at version n+2.
	var ups []archive.Update
	for n := 1; n <= 20; n++ {
		ups = append(ups, archive.Update{
			Key:     model.Key{"ca"},
			Time:    day(n),
			Version: day(n + 2),
			Values:  map[string]float64{"cases": 10},
		})
	}
	a, err := archive.New(ups)
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}

	f := newForecaster(t, defaultSpecs())
	forecastDate := day(22)
	preds, err := f.RunVersioned(a, forecastDate, latency.Options{})
	if err != nil {
		t.Fatalf("RunVersioned: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("got %d predictions", len(preds))
	}
	p := preds[0]
	if !p.ForecastDate.Equal(forecastDate) {
		t.Fatalf("forecast date = %s", p.ForecastDate)
	}
	// The target stays anchored to the forecast date even though the
	// reference moved back by the reporting latency.
	if !p.TargetDate.Equal(day(29)) {
		t.Fatalf("target date = %s, want day 29", p.TargetDate)
	}
	if m := p.Distribution.Median(); math.Abs(m-10) > 1e-9 {
		t.Fatalf("median = %g, want 10", m)
	}
}

func TestRunVersionedNeedsHistory(t *testing.T) {
	f := newForecaster(t, defaultSpecs())
	if _, err := f.RunVersioned(nil, day(10), latency.Options{}); !errors.Is(err, archive.ErrNoVersionHistory) {
		t.Fatalf("want ErrNoVersionHistory, got %v", err)
	}
}
