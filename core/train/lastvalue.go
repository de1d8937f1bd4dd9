package train

import (
	"fmt"

	"github.com/google/uuid"
)

// LastValue is the carry-forward baseline: the prediction is the feature at
// FeatureIndex, typically the identity lag of the target column. Fitting
// only records the feature dimension; the model has no parameters.
type LastValue struct {
	FeatureIndex int
}

type lastValueModel struct {
	id    string
	index int
	width int
}

// Fit implements Trainer.
func (lv LastValue) Fit(features [][]float64, target []float64) (Model, error) {
	if len(features) == 0 || len(features) != len(target) {
		return nil, fmt.Errorf("%d feature rows for %d targets: %w", len(features), len(target), ErrNoTrainingRows)
	}
	width := len(features[0])
	if lv.FeatureIndex < 0 || lv.FeatureIndex >= width {
		return nil, fmt.Errorf("feature index %d outside %d-wide design matrix", lv.FeatureIndex, width)
	}
	return &lastValueModel{id: uuid.NewString(), index: lv.FeatureIndex, width: width}, nil
}

func (m *lastValueModel) ID() string { return m.id }

func (m *lastValueModel) Predict(row []float64) (float64, error) {
	if len(row) != m.width {
		return 0, fmt.Errorf("feature row has %d values, model fitted on %d", len(row), m.width)
	}
	return row[m.index], nil
}
