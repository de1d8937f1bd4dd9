package train

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Linear fits ordinary least squares with an intercept over the complete
// rows of the design matrix. It is the stand-in regression backend; heavier
// engines plug in behind the same Trainer interface.
type Linear struct{}

type linearModel struct {
	id    string
	beta  []float64 // intercept first
	width int
}

// Fit implements Trainer. Rows containing a missing feature or target are
// skipped; fitting fails with ErrNoTrainingRows when fewer complete rows
// remain than coefficients to estimate.
func (Linear) Fit(features [][]float64, target []float64) (Model, error) {
	if len(features) == 0 || len(features) != len(target) {
		return nil, fmt.Errorf("%d feature rows for %d targets: %w", len(features), len(target), ErrNoTrainingRows)
	}
	width := len(features[0])
	var rows [][]float64
	var y []float64
	for i, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, row 0 has %d", i, len(row), width)
		}
		if rowComplete(row, target[i]) {
			rows = append(rows, row)
			y = append(y, target[i])
		}
	}
	if len(rows) < width+1 {
		return nil, fmt.Errorf("%d complete rows to estimate %d coefficients: %w", len(rows), width+1, ErrNoTrainingRows)
	}

	x := mat.NewDense(len(rows), width+1, nil)
	for i, row := range rows {
		x.Set(i, 0, 1)
		for j, v := range row {
			x.Set(i, j+1, v)
		}
	}
	var qr mat.QR
	qr.Factorize(x)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, mat.NewVecDense(len(y), y)); err != nil {
		return nil, fmt.Errorf("least squares solve: %w", err)
	}
	beta := make([]float64, width+1)
	for j := range beta {
		beta[j] = sol.At(j, 0)
	}
	return &linearModel{id: uuid.NewString(), beta: beta, width: width}, nil
}

func (m *linearModel) ID() string { return m.id }

func (m *linearModel) Predict(row []float64) (float64, error) {
	if len(row) != m.width {
		return 0, fmt.Errorf("feature row has %d values, model fitted on %d", len(row), m.width)
	}
	out := m.beta[0]
	for j, v := range row {
		out += m.beta[j+1] * v
	}
	return out, nil
}
