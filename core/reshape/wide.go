package reshape

import (
	"sort"
	"time"

	"github.com/epicast-dev/epicast/core/model"
	"github.com/epicast-dev/epicast/core/quantile"
)

// Wide pivots the selected distribution columns (all of them when none are
// named) into one float column per distinct level found across rows. Cell
// values are exact lookups: a level absent from a row's distribution fills
// as the missing marker, never an interpolated value. Level sets that only
// partially agree across rows are tolerated with a warning; that leniency is
// a known limitation carried over deliberately.
//
// Output columns are named by the level ("0.25") for a single source column
// and prefixed with the source name ("cases_0.25") when more than one
// column is pivoted. Source columns are dropped from the result; all other
// columns carry over unchanged.
func (r *Reshaper) Wide(t *model.Table, cols ...string) (*model.Table, error) {
	selected, err := selectColumns(t, cols)
	if err != nil {
		return nil, err
	}
	inSelection := make(map[string]bool, len(selected))
	for _, name := range selected {
		inSelection[name] = true
	}

	out, err := newSkeleton(t)
	if err != nil {
		return nil, err
	}
	for _, name := range t.Columns() {
		if inSelection[name] {
			continue
		}
		if err := copyColumn(out, t, name); err != nil {
			return nil, err
		}
	}

	for _, name := range selected {
		cells, _ := t.Dist(name)
		union := levelUnion(cells)
		if ragged(cells, len(union)) {
			r.log.Warnf("wide pivot: column %q has differing level sets across rows; absent levels fill as missing", name)
		}
		for _, level := range union {
			vals := make([]float64, t.Len())
			for i, cell := range cells {
				vals[i] = model.NA
				if cell == nil || !cell.HasLevel(level) {
					continue
				}
				v, err := cell.QuantileAt(level)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			colName := formatLevel(level)
			if len(selected) > 1 {
				colName = name + "_" + colName
			}
			if err := out.AddFloat(colName, vals); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func newSkeleton(t *model.Table) (*model.Table, error) {
	keys := make([]model.Key, t.Len())
	times := make([]time.Time, t.Len())
	for i := 0; i < t.Len(); i++ {
		keys[i] = t.Key(i)
		times[i] = t.Time(i)
	}
	return model.NewTable(keys, times)
}

func copyColumn(dst, src *model.Table, name string) error {
	if col, ok := src.Float(name); ok {
		return dst.AddFloat(name, col)
	}
	col, _ := src.Dist(name)
	return dst.AddDist(name, col)
}

// levelUnion returns the sorted union of levels across all cells.
func levelUnion(cells []*quantile.Distribution) []float64 {
	seen := make(map[float64]bool)
	var union []float64
	for _, cell := range cells {
		if cell == nil {
			continue
		}
		for _, l := range cell.Levels() {
			if !seen[l] {
				seen[l] = true
				union = append(union, l)
			}
		}
	}
	sort.Float64s(union)
	return union
}

// ragged reports whether any non-missing cell stores fewer levels than the
// union, i.e. the rows disagree on their quantile grids.
func ragged(cells []*quantile.Distribution, unionLen int) bool {
	for _, cell := range cells {
		if cell != nil && cell.Len() != unionLen {
			return true
		}
	}
	return false
}
