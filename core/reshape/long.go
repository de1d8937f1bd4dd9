package reshape

import (
	"fmt"
	"time"

	"github.com/epicast-dev/epicast/core/model"
	"github.com/epicast-dev/epicast/core/quantile"
)

// Frame is a derived presentation table: ordered rows with entity keys,
// times and float columns. Unlike model.Table it permits repeated
// (key, time) pairs, which a long pivot produces by construction.
type Frame struct {
	keys  []model.Key
	times []time.Time
	order []string
	cols  map[string][]float64
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.keys) }

// Key returns the entity key of row i.
func (f *Frame) Key(i int) model.Key { return f.keys[i] }

// Time returns the time value of row i.
func (f *Frame) Time(i int) time.Time { return f.times[i] }

// Columns returns column names in attachment order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Float returns a column; the slice is live and read-only by contract.
func (f *Frame) Float(name string) ([]float64, bool) {
	col, ok := f.cols[name]
	return col, ok
}

func (f *Frame) addColumn(name string, vals []float64) {
	f.order = append(f.order, name)
	f.cols[name] = vals
}

// LongOptions adjusts long-pivot behaviour.
type LongOptions struct {
	// Positional relaxes the equal-cardinality check: the i-th stored pair
	// of every selected column is taken together regardless of whether the
	// level values agree, and shorter columns pad with missing markers out
	// to the longest cardinality in that row. This is an escape hatch for
	// quantile grids known by the caller to align by position.
	Positional bool
}

// Long pivots the selected distribution columns (all of them when none are
// named) into one output row per (input row, level). For a single source
// column the output carries "level" and "value" columns; for several, the
// column names are suffixed per source ("level_cases", "value_cases").
//
// By default every selected column must store the same number of levels in
// each row; a disagreement fails with ErrLengthMismatch. Setting
// LongOptions.Positional pairs by position instead, never by level
// equality. Non-selected float columns replicate across the emitted rows;
// non-selected distribution columns are dropped.
func (r *Reshaper) Long(t *model.Table, opts LongOptions, cols ...string) (*Frame, error) {
	selected, err := selectColumns(t, cols)
	if err != nil {
		return nil, err
	}

	cells := make([][]*quantile.Distribution, len(selected))
	for ci, name := range selected {
		cells[ci], _ = t.Dist(name)
	}

	// Per input row, the number of output rows it expands to.
	expand := make([]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		n := cellLen(cells[0][i])
		maxN := n
		for ci := 1; ci < len(selected); ci++ {
			m := cellLen(cells[ci][i])
			if m != n && !opts.Positional {
				return nil, fmt.Errorf("row %d: %d levels in %q but %d in %q: %w",
					i, n, selected[0], m, selected[ci], ErrLengthMismatch)
			}
			if m > maxN {
				maxN = m
			}
		}
		expand[i] = maxN
	}

	total := 0
	for _, n := range expand {
		total += n
	}
	out := &Frame{
		keys:  make([]model.Key, 0, total),
		times: make([]time.Time, 0, total),
		cols:  make(map[string][]float64),
	}
	for i := 0; i < t.Len(); i++ {
		for j := 0; j < expand[i]; j++ {
			out.keys = append(out.keys, t.Key(i))
			out.times = append(out.times, t.Time(i))
		}
	}

	for ci, name := range selected {
		levelCol := make([]float64, 0, total)
		valueCol := make([]float64, 0, total)
		for i := 0; i < t.Len(); i++ {
			var ls, vs []float64
			if cells[ci][i] != nil {
				ls = cells[ci][i].Levels()
				vs = cells[ci][i].Values()
			}
			for j := 0; j < expand[i]; j++ {
				if j < len(ls) {
					levelCol = append(levelCol, ls[j])
					valueCol = append(valueCol, vs[j])
				} else {
					levelCol = append(levelCol, model.NA)
					valueCol = append(valueCol, model.NA)
				}
			}
		}
		levelName, valueName := "level", "value"
		if len(selected) > 1 {
			levelName += "_" + name
			valueName += "_" + name
		}
		out.addColumn(levelName, levelCol)
		out.addColumn(valueName, valueCol)
	}

	for _, name := range t.Columns() {
		col, ok := t.Float(name)
		if !ok {
			continue
		}
		rep := make([]float64, 0, total)
		for i := 0; i < t.Len(); i++ {
			for j := 0; j < expand[i]; j++ {
				rep = append(rep, col[i])
			}
		}
		out.addColumn(name, rep)
	}
	return out, nil
}

func cellLen(d *quantile.Distribution) int {
	if d == nil {
		return 0
	}
	return d.Len()
}
