package model

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/epicast-dev/epicast/core/quantile"
)

// NA is the missing marker for float columns.
var NA = math.NaN()

// IsNA reports whether v is the missing marker.
func IsNA(v float64) bool { return math.IsNaN(v) }

type rowRef struct {
	key string
	at  int64
}

// Table is one snapshot of panel data: rows keyed by (entity key, time),
// plus float columns (NA for missing) and quantile-distribution columns
// (nil for missing). Distribution cells are independent variable-length
// values, never a rectangular matrix, so rows in one column may carry
// different level sets.
//
// Components treat tables as immutable: transformations clone and return a
// new table, and callers must not mutate a table while a component reads it.
type Table struct {
	keys  []Key
	times []time.Time
	index map[rowRef]int

	order  []string
	floats map[string][]float64
	dists  map[string][]*quantile.Distribution
}

// NewTable builds a table skeleton from parallel key and time slices.
// (key, time) pairs must be unique within one snapshot.
func NewTable(keys []Key, times []time.Time) (*Table, error) {
	if len(keys) != len(times) {
		return nil, fmt.Errorf("%d keys but %d times", len(keys), len(times))
	}
	t := &Table{
		keys:   make([]Key, len(keys)),
		times:  make([]time.Time, len(times)),
		index:  make(map[rowRef]int, len(keys)),
		floats: make(map[string][]float64),
		dists:  make(map[string][]*quantile.Distribution),
	}
	for i := range keys {
		t.keys[i] = keys[i].Clone()
		t.times[i] = times[i]
		ref := rowRef{key: keys[i].String(), at: times[i].UnixNano()}
		if _, dup := t.index[ref]; dup {
			return nil, fmt.Errorf("duplicate row for key %s at %s", keys[i], times[i].Format(time.RFC3339))
		}
		t.index[ref] = i
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.keys) }

// Key returns the entity key of row i.
func (t *Table) Key(i int) Key { return t.keys[i] }

// Time returns the time value of row i.
func (t *Table) Time(i int) time.Time { return t.times[i] }

// Index returns the row holding (key, at), if any.
func (t *Table) Index(key Key, at time.Time) (int, bool) {
	i, ok := t.index[rowRef{key: key.String(), at: at.UnixNano()}]
	return i, ok
}

// AddFloat attaches a float column. The slice is copied.
func (t *Table) AddFloat(name string, vals []float64) error {
	if err := t.checkColumn(name, len(vals)); err != nil {
		return err
	}
	col := make([]float64, len(vals))
	copy(col, vals)
	t.floats[name] = col
	t.order = append(t.order, name)
	return nil
}

// AddDist attaches a quantile-distribution column. Cells may be nil
// (missing) and may differ in level sets; the slice is copied, cells are
// shared since distributions are immutable.
func (t *Table) AddDist(name string, cells []*quantile.Distribution) error {
	if err := t.checkColumn(name, len(cells)); err != nil {
		return err
	}
	col := make([]*quantile.Distribution, len(cells))
	copy(col, cells)
	t.dists[name] = col
	t.order = append(t.order, name)
	return nil
}

func (t *Table) checkColumn(name string, n int) error {
	if name == "" {
		return fmt.Errorf("empty column name")
	}
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	if n != t.Len() {
		return fmt.Errorf("column %q has %d cells for %d rows", name, n, t.Len())
	}
	return nil
}

// Float returns a float column. The returned slice is the live backing
// store; callers must treat it as read-only.
func (t *Table) Float(name string) ([]float64, bool) {
	col, ok := t.floats[name]
	return col, ok
}

// Dist returns a distribution column; same read-only contract as Float.
func (t *Table) Dist(name string) ([]*quantile.Distribution, bool) {
	col, ok := t.dists[name]
	return col, ok
}

// HasColumn reports whether a column of either kind exists.
func (t *Table) HasColumn(name string) bool {
	_, f := t.floats[name]
	_, d := t.dists[name]
	return f || d
}

// IsDist reports whether name is a distribution column.
func (t *Table) IsDist(name string) bool {
	_, ok := t.dists[name]
	return ok
}

// Columns returns column names in attachment order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Clone returns a deep copy sharing only immutable distribution cells.
func (t *Table) Clone() *Table {
	out, err := NewTable(t.keys, t.times)
	if err != nil {
		// Rows were validated at construction.
		panic(err)
	}
	for _, name := range t.order {
		if col, ok := t.floats[name]; ok {
			if err := out.AddFloat(name, col); err != nil {
				panic(err)
			}
			continue
		}
		if err := out.AddDist(name, t.dists[name]); err != nil {
			panic(err)
		}
	}
	return out
}

// Group is the ordered row set of one entity key.
type Group struct {
	Key Key
	// Rows are indices into the table, sorted by non-decreasing time.
	Rows []int
}

// Groups partitions rows by entity key, in first-appearance order, each
// group sorted by time. Derived features that depend on earlier rows of the
// same series rely on this ordering.
func (t *Table) Groups() []Group {
	byKey := make(map[string]int)
	var groups []Group
	for i, k := range t.keys {
		ks := k.String()
		gi, ok := byKey[ks]
		if !ok {
			gi = len(groups)
			byKey[ks] = gi
			groups = append(groups, Group{Key: k})
		}
		groups[gi].Rows = append(groups[gi].Rows, i)
	}
	for gi := range groups {
		rows := groups[gi].Rows
		sort.Slice(rows, func(a, b int) bool { return t.times[rows[a]].Before(t.times[rows[b]]) })
	}
	return groups
}
