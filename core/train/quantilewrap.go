package train

import (
	"fmt"

	"github.com/epicast-dev/epicast/core/quantile"
)

// QuantileWrap turns any point Trainer into a DistributionModel producer:
// after fitting the base model it collects in-sample residuals, and each
// prediction becomes the point estimate offset by the empirical residual
// quantiles at the requested levels.
type QuantileWrap struct {
	Base   Trainer
	Levels []float64
}

type quantileModel struct {
	Model
	resid  []float64
	levels []float64
}

// Fit implements Trainer; the returned Model also satisfies
// DistributionModel.
func (qw QuantileWrap) Fit(features [][]float64, target []float64) (Model, error) {
	if qw.Base == nil {
		return nil, fmt.Errorf("quantile wrap without a base trainer")
	}
	if len(qw.Levels) == 0 {
		return nil, fmt.Errorf("quantile wrap without levels")
	}
	base, err := qw.Base.Fit(features, target)
	if err != nil {
		return nil, err
	}
	var resid []float64
	for i, row := range features {
		if !rowComplete(row, target[i]) {
			continue
		}
		point, err := base.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("residual pass row %d: %w", i, err)
		}
		resid = append(resid, target[i]-point)
	}
	if len(resid) == 0 {
		return nil, ErrNoTrainingRows
	}
	return &quantileModel{Model: base, resid: resid, levels: qw.Levels}, nil
}

// PredictDistribution implements DistributionModel.
func (m *quantileModel) PredictDistribution(row []float64) (*quantile.Distribution, error) {
	point, err := m.Predict(row)
	if err != nil {
		return nil, err
	}
	rd, err := quantile.FromSamples(m.resid, m.levels)
	if err != nil {
		return nil, err
	}
	levels := rd.Levels()
	values := rd.Values()
	for i := range values {
		values[i] += point
	}
	return quantile.New(levels, values)
}
