// Package train defines the boundary to pluggable regression engines. A
// Trainer consumes a design matrix and target vector and returns an opaque
// fitted model; a model consumes one feature row and emits a point
// estimate, or a full quantile distribution when it implements
// DistributionModel. New backends are added by implementing Trainer, not by
// extending the core.
package train

import (
	"errors"

	"github.com/epicast-dev/epicast/core/quantile"
)

// ErrNoTrainingRows reports a design matrix with no complete rows to fit
// on.
var ErrNoTrainingRows = errors.New("no complete training rows")

// Model is an opaque fitted-model handle.
type Model interface {
	// ID identifies this fit for logging and bookkeeping.
	ID() string
	// Predict returns the point estimate for one feature row.
	Predict(row []float64) (float64, error)
}

// Trainer fits a model to a design matrix and target vector. Rows with
// missing features or target are the trainer's to skip.
type Trainer interface {
	Fit(features [][]float64, target []float64) (Model, error)
}

// DistributionModel is a Model that can emit probabilistic forecasts as
// quantile distributions.
type DistributionModel interface {
	Model
	PredictDistribution(row []float64) (*quantile.Distribution, error)
}

func rowComplete(row []float64, target float64) bool {
	for _, v := range row {
		if v != v { // NaN
			return false
		}
	}
	return target == target
}
