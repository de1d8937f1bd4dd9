// Package reshape converts quantile-distribution columns between their
// nested form and wide (one column per level) or long (one row per level)
// tabular forms. Pivots never mutate their input table.
package reshape

import (
	"fmt"
	"strconv"

	"github.com/epicast-dev/epicast/core/logger"
	"github.com/epicast-dev/epicast/core/model"
)

// Reshaper pivots distribution columns. The zero value is not usable; build
// one with New.
type Reshaper struct {
	log logger.Logger
}

// New returns a Reshaper logging through log (nil for silent operation).
func New(log logger.Logger) *Reshaper {
	return &Reshaper{log: logger.OrNop(log)}
}

// formatLevel renders a probability level as a column name fragment.
func formatLevel(l float64) string {
	return strconv.FormatFloat(l, 'g', -1, 64)
}

// selectColumns resolves the requested distribution columns, defaulting to
// every distribution column of the table when none are named.
func selectColumns(t *model.Table, cols []string) ([]string, error) {
	if len(cols) == 0 {
		for _, name := range t.Columns() {
			if t.IsDist(name) {
				cols = append(cols, name)
			}
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("table has no distribution columns")
		}
		return cols, nil
	}
	for _, name := range cols {
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		if !t.IsDist(name) {
			return nil, fmt.Errorf("column %q: %w", name, ErrNotDistribution)
		}
	}
	return cols, nil
}
