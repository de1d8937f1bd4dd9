// Package shift materializes lag and ahead feature columns over panel data.
// Offsets are applied by calendar arithmetic on each row's own time value,
// looked up through the table's (key, time) index. A positional shift would
// silently pull the wrong calendar offset across gaps; the keyed lookup
// yields a missing marker instead whenever no row exists at exactly the
// shifted time.
package shift

import (
	"fmt"
	"time"

	"github.com/epicast-dev/epicast/core/logger"
	"github.com/epicast-dev/epicast/core/model"
)

// Spec requests shifted copies of one source column. Offsets are signed
// step counts: negative reaches into the past (lag), positive into the
// future (ahead), zero is the identity lag exposing the current value as a
// feature.
type Spec struct {
	Column  string `json:"column"`
	Offsets []int  `json:"offsets"`
	// Target marks the ahead columns of this spec as the forecasting
	// target. It only affects downstream masking of trailing rows without
	// a valid future observation, never the shift computation itself.
	Target bool `json:"target"`
}

// ColumnName derives the deterministic output column for (column, offset):
// lag_7_cases, lag_0_cases, ahead_14_cases.
func ColumnName(column string, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("ahead_%d_%s", offset, column)
	}
	return fmt.Sprintf("lag_%d_%s", -offset, column)
}

// Generator applies a fixed set of shift specs to panel tables.
type Generator struct {
	step  time.Duration
	specs []Spec
	log   logger.Logger
}

// NewGenerator validates the specs and returns a Generator. step is the
// calendar distance of one offset unit; zero defaults to 24h.
func NewGenerator(step time.Duration, specs []Spec, log logger.Logger) (*Generator, error) {
	if step == 0 {
		step = 24 * time.Hour
	}
	if step < 0 {
		return nil, fmt.Errorf("negative step %s", step)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no shift specs")
	}
	for _, s := range specs {
		if s.Column == "" {
			return nil, fmt.Errorf("shift spec without a column")
		}
		if len(s.Offsets) == 0 {
			return nil, fmt.Errorf("shift spec for %q without offsets", s.Column)
		}
		seen := make(map[int]bool, len(s.Offsets))
		hasAhead := false
		for _, off := range s.Offsets {
			if seen[off] {
				return nil, fmt.Errorf("duplicate offset %d for %q", off, s.Column)
			}
			seen[off] = true
			if off > 0 {
				hasAhead = true
			}
		}
		if s.Target && !hasAhead {
			return nil, fmt.Errorf("target spec for %q has no ahead offset", s.Column)
		}
	}
	return &Generator{step: step, specs: specs, log: logger.OrNop(log)}, nil
}

// Step returns the calendar distance of one offset unit.
func (g *Generator) Step() time.Duration { return g.step }

// Specs returns a copy of the configured shift specs.
func (g *Generator) Specs() []Spec {
	out := make([]Spec, len(g.specs))
	copy(out, g.specs)
	return out
}

// TargetColumns returns the output names of all ahead columns flagged as
// the forecasting target.
func (g *Generator) TargetColumns() []string {
	var out []string
	for _, s := range g.specs {
		if !s.Target {
			continue
		}
		for _, off := range s.Offsets {
			if off > 0 {
				out = append(out, ColumnName(s.Column, off))
			}
		}
	}
	return out
}

// Apply returns a new table augmented with one column per (column, offset)
// pair. The value at row (key, t) is the source value observed at
// (key, t + offset*step), or the missing marker when that row does not
// exist. The input table is not modified.
func (g *Generator) Apply(t *model.Table) (*model.Table, error) {
	out := t.Clone()
	for _, s := range g.specs {
		src, ok := t.Float(s.Column)
		if !ok {
			if t.HasColumn(s.Column) {
				return nil, fmt.Errorf("column %q holds distributions, cannot shift", s.Column)
			}
			return nil, fmt.Errorf("unknown column %q", s.Column)
		}
		for _, off := range s.Offsets {
			vals := make([]float64, t.Len())
			missing := 0
			for i := 0; i < t.Len(); i++ {
				want := t.Time(i).Add(time.Duration(off) * g.step)
				j, ok := t.Index(t.Key(i), want)
				if !ok {
					vals[i] = model.NA
					missing++
					continue
				}
				vals[i] = src[j]
			}
			name := ColumnName(s.Column, off)
			if err := out.AddFloat(name, vals); err != nil {
				return nil, err
			}
			g.log.Debugw("shift column generated", map[string]any{
				"column":  name,
				"offset":  off,
				"missing": missing,
			})
		}
	}
	return out, nil
}
