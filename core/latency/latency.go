// Package latency estimates how stale each column of a versioned panel
// source typically is: the number of time-units between a value's nominal
// time and the version at which it first appears. The resulting table
// shifts per-column reference dates so feature generation for a forecast
// date never reaches for data that would not yet have existed.
package latency

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/epicast-dev/epicast/core/archive"
	"github.com/epicast-dev/epicast/core/logger"
	"github.com/epicast-dev/epicast/core/model"
)

// Table maps a column name to its estimated reporting latency in time
// units.
type Table map[string]int

// Options selects which columns and entity keys feed the estimate.
type Options struct {
	// Columns to estimate; empty means every column of the source.
	Columns []string
	// IgnoreKeys excludes entity keys known to report on a different
	// schedule, such as aggregate rollup rows.
	IgnoreKeys []model.Key
	// CheckedKeys restricts the estimate to specific entity keys; empty
	// checks every key, giving a global estimate.
	CheckedKeys []model.Key
	// Step is the calendar distance of one time unit; zero defaults to
	// 24h.
	Step time.Duration
}

// Compute estimates per-column latency as the median, across checked rows,
// of the delta between each value's time and the version it first appeared
// at. A nil archive fails with archive.ErrNoVersionHistory. Columns with no
// observed first appearance among the checked keys are left out of the
// result.
func Compute(a *archive.Archive, opts Options, log logger.Logger) (Table, error) {
	if a == nil {
		return nil, archive.ErrNoVersionHistory
	}
	lg := logger.OrNop(log)
	step := opts.Step
	if step == 0 {
		step = 24 * time.Hour
	}
	cols := opts.Columns
	if len(cols) == 0 {
		cols = a.Columns()
	}
	wanted := make(map[string]bool, len(cols))
	for _, c := range cols {
		if !wanted[c] {
			wanted[c] = true
		}
	}
	ignored := keySet(opts.IgnoreKeys)
	checked := keySet(opts.CheckedKeys)

	type cellID struct {
		key string
		at  int64
		col string
	}
	firstSeen := make(map[cellID]time.Time)
	for _, u := range a.Updates() {
		ks := u.Key.String()
		if ignored[ks] {
			continue
		}
		if len(checked) > 0 && !checked[ks] {
			continue
		}
		for col, v := range u.Values {
			if !wanted[col] || model.IsNA(v) {
				continue
			}
			id := cellID{key: ks, at: u.Time.UnixNano(), col: col}
			if prev, ok := firstSeen[id]; !ok || u.Version.Before(prev) {
				firstSeen[id] = u.Version
			}
		}
	}

	deltas := make(map[string][]float64)
	for id, version := range firstSeen {
		at := time.Unix(0, id.at)
		deltas[id.col] = append(deltas[id.col], float64(version.Sub(at))/float64(step))
	}

	out := make(Table, len(cols))
	for _, col := range cols {
		ds := deltas[col]
		if len(ds) == 0 {
			lg.Warnf("latency: column %q has no first appearances among checked keys", col)
			continue
		}
		sort.Float64s(ds)
		med := stat.Quantile(0.5, stat.LinInterp, ds, nil)
		out[col] = int(math.Round(med))
		lg.Debugw("latency estimated", map[string]any{
			"column":       col,
			"latency":      out[col],
			"observations": len(ds),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no latency observations for columns %v", cols)
	}
	return out, nil
}

// AdjustedReferences returns, per column, the reference date to use in
// place of forecastDate when generating shifted features. signShift is the
// direction multiplier: +1 moves the reference back by the latency (lag
// features), -1 moves it forward (ahead targets).
func (t Table) AdjustedReferences(forecastDate time.Time, signShift int, step time.Duration) map[string]time.Time {
	if step == 0 {
		step = 24 * time.Hour
	}
	out := make(map[string]time.Time, len(t))
	for col, lat := range t {
		out[col] = forecastDate.Add(-time.Duration(signShift*lat) * step)
	}
	return out
}

// Max returns the largest latency among the named columns; columns absent
// from the table count as zero.
func (t Table) Max(cols []string) int {
	out := 0
	for _, col := range cols {
		if lat, ok := t[col]; ok && lat > out {
			out = lat
		}
	}
	return out
}

func keySet(keys []model.Key) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k.String()] = true
	}
	return out
}
