package train

import (
	"errors"
	"math"
	"testing"

	"github.com/epicast-dev/epicast/core/model"
)

func TestLastValuePredictsFeature(t *testing.T) {
	features := [][]float64{{10, 1}, {20, 2}}
	m, err := LastValue{FeatureIndex: 0}.Fit(features, []float64{11, 21})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.ID() == "" {
		t.Fatal("fitted model must carry an id")
	}
	got, err := m.Predict([]float64{33, 3})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 33 {
		t.Fatalf("Predict = %g, want carried-forward 33", got)
	}
	if _, err := m.Predict([]float64{1}); err == nil {
		t.Fatal("wrong-width row must fail")
	}
}

func TestLastValueValidation(t *testing.T) {
	if _, err := (LastValue{}).Fit(nil, nil); !errors.Is(err, ErrNoTrainingRows) {
		t.Fatalf("empty fit: want ErrNoTrainingRows, got %v", err)
	}
	if _, err := (LastValue{FeatureIndex: 5}).Fit([][]float64{{1}}, []float64{1}); err == nil {
		t.Fatal("out-of-range feature index must fail")
	}
}

func TestLinearRecoversCoefficients(t *testing.T) {
	// y = 2 + 3*x, exactly.
	var features [][]float64
	var target []float64
	for x := 0.0; x < 6; x++ {
		features = append(features, []float64{x})
		target = append(target, 2+3*x)
	}
	m, err := Linear{}.Fit(features, target)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := m.Predict([]float64{10})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(got-32) > 1e-9 {
		t.Fatalf("Predict(10) = %g, want 32", got)
	}
}

func TestLinearSkipsIncompleteRows(t *testing.T) {
	features := [][]float64{{0}, {model.NA}, {1}, {2}, {3}}
	target := []float64{2, 99, 5, 8, model.NA}
	m, err := Linear{}.Fit(features, target)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := m.Predict([]float64{4})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// Complete rows follow y = 2 + 3x; the NA rows must not disturb it.
	if math.Abs(got-14) > 1e-9 {
		t.Fatalf("Predict(4) = %g, want 14", got)
	}
}

func TestLinearNeedsEnoughRows(t *testing.T) {
	if _, err := (Linear{}).Fit([][]float64{{1}}, []float64{1}); !errors.Is(err, ErrNoTrainingRows) {
		t.Fatalf("want ErrNoTrainingRows, got %v", err)
	}
}

func TestQuantileWrapDistribution(t *testing.T) {
	// A perfect base model yields zero residuals; predictions collapse to
	// the point estimate at every level.
	var features [][]float64
	var target []float64
	for x := 0.0; x < 8; x++ {
		features = append(features, []float64{x})
		target = append(target, 2*x)
	}
	levels := []float64{0.1, 0.5, 0.9}
	qm, err := QuantileWrap{Base: Linear{}, Levels: levels}.Fit(features, target)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	dm, ok := qm.(DistributionModel)
	if !ok {
		t.Fatal("wrapped model must implement DistributionModel")
	}
	d, err := dm.PredictDistribution([]float64{5})
	if err != nil {
		t.Fatalf("PredictDistribution: %v", err)
	}
	for _, l := range levels {
		v, err := d.QuantileAt(l)
		if err != nil {
			t.Fatalf("QuantileAt: %v", err)
		}
		if math.Abs(v-10) > 1e-9 {
			t.Fatalf("level %g = %g, want 10 for zero residuals", l, v)
		}
	}
}

func TestQuantileWrapSpreadsResiduals(t *testing.T) {
	// Carry-forward with alternating errors: residuals are symmetric, so
	// the outer levels must straddle the point estimate.
	features := [][]float64{{10}, {10}, {10}, {10}}
	target := []float64{8, 12, 8, 12}
	qm, err := QuantileWrap{Base: LastValue{}, Levels: []float64{0.25, 0.5, 0.75}}.Fit(features, target)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	d, err := qm.(DistributionModel).PredictDistribution([]float64{20})
	if err != nil {
		t.Fatalf("PredictDistribution: %v", err)
	}
	lo, _ := d.QuantileAt(0.25)
	hi, _ := d.QuantileAt(0.75)
	if !(lo < 20 && hi > 20) {
		t.Fatalf("interval [%g,%g] must straddle the point estimate 20", lo, hi)
	}
}

func TestQuantileWrapValidation(t *testing.T) {
	if _, err := (QuantileWrap{Levels: []float64{0.5}}).Fit(nil, nil); err == nil {
		t.Fatal("missing base trainer must fail")
	}
	if _, err := (QuantileWrap{Base: Linear{}}).Fit(nil, nil); err == nil {
		t.Fatal("missing levels must fail")
	}
}
