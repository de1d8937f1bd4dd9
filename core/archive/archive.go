// Package archive models versioned panel data: a sequence of revisions from
// which historically faithful snapshots can be reconstructed. A snapshot
// "as of" a version contains, per (key, time) row and column, the latest
// revision not exceeding that version. Snapshots are pure derivations; the
// archive itself never changes under a reader.
package archive

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/epicast-dev/epicast/core/model"
)

// ErrNoVersionHistory reports an operation that needs a version dimension,
// such as latency estimation, applied to input that has none.
var ErrNoVersionHistory = errors.New("input has no version history")

// Update is one revision: the values reported for a (key, time) row at a
// given version. Later updates override the columns they carry.
type Update struct {
	Key     model.Key
	Time    time.Time
	Version time.Time
	Values  map[string]float64
}

// Archive is an immutable sequence of updates.
type Archive struct {
	updates []Update
	columns []string
	end     time.Time
}

// Source is the version-source boundary consumed by latency estimation and
// version-aware feature generation. Archive implements it; external
// archival stores plug in behind the same two calls.
type Source interface {
	AsOf(version time.Time) (*model.Table, error)
	VersionsEnd() time.Time
}

// New builds an Archive. An empty update set fails with
// ErrNoVersionHistory.
func New(updates []Update) (*Archive, error) {
	if len(updates) == 0 {
		return nil, ErrNoVersionHistory
	}
	a := &Archive{updates: make([]Update, len(updates))}
	seen := make(map[string]bool)
	for i, u := range updates {
		if u.Version.IsZero() {
			return nil, fmt.Errorf("update %d for key %s has no version: %w", i, u.Key, ErrNoVersionHistory)
		}
		if u.Version.Before(u.Time) {
			return nil, fmt.Errorf("update %d for key %s versioned %s before its time value %s",
				i, u.Key, u.Version.Format(time.RFC3339), u.Time.Format(time.RFC3339))
		}
		a.updates[i] = Update{
			Key:     u.Key.Clone(),
			Time:    u.Time,
			Version: u.Version,
			Values:  cloneValues(u.Values),
		}
		for col := range u.Values {
			if !seen[col] {
				seen[col] = true
				a.columns = append(a.columns, col)
			}
		}
		if u.Version.After(a.end) {
			a.end = u.Version
		}
	}
	sort.Strings(a.columns)
	return a, nil
}

// VersionsEnd returns the latest version present in the archive.
func (a *Archive) VersionsEnd() time.Time { return a.end }

// Columns returns the union of column names across all updates, sorted.
func (a *Archive) Columns() []string {
	out := make([]string, len(a.columns))
	copy(out, a.columns)
	return out
}

// Updates returns a copy of the revision sequence, for callers that scan
// first appearances rather than snapshots.
func (a *Archive) Updates() []Update {
	out := make([]Update, len(a.updates))
	for i, u := range a.updates {
		out[i] = Update{Key: u.Key.Clone(), Time: u.Time, Version: u.Version, Values: cloneValues(u.Values)}
	}
	return out
}

// AsOf reconstructs the snapshot visible at the given version: the latest
// value per (key, time, column) with version not exceeding it. Rows with no
// visible update are absent; every snapshot carries the full archive column
// schema with missing markers where a column had no visible value.
func (a *Archive) AsOf(version time.Time) (*model.Table, error) {
	type rowID struct {
		key string
		at  int64
	}
	type cellRev struct {
		value   float64
		version time.Time
	}
	rows := make(map[rowID]int)
	var keys []model.Key
	var times []time.Time
	cells := make(map[rowID]map[string]cellRev)

	for _, u := range a.updates {
		if u.Version.After(version) {
			continue
		}
		id := rowID{key: u.Key.String(), at: u.Time.UnixNano()}
		if _, ok := rows[id]; !ok {
			rows[id] = len(keys)
			keys = append(keys, u.Key)
			times = append(times, u.Time)
			cells[id] = make(map[string]cellRev)
		}
		for col, v := range u.Values {
			prev, ok := cells[id][col]
			if !ok || !u.Version.Before(prev.version) {
				cells[id][col] = cellRev{value: v, version: u.Version}
			}
		}
	}

	snap, err := model.NewTable(keys, times)
	if err != nil {
		return nil, err
	}
	for _, col := range a.columns {
		vals := make([]float64, len(keys))
		for id, ri := range rows {
			if rev, ok := cells[id][col]; ok {
				vals[ri] = rev.value
			} else {
				vals[ri] = model.NA
			}
		}
		if err := snap.AddFloat(col, vals); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func cloneValues(vals map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(vals))
	for k, v := range vals {
		out[k] = v
	}
	return out
}
