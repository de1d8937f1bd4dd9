package quantile

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Distribution is a probability-indexed set of predicted values for one
// observation. Levels are strictly increasing in (0,1) and values are
// non-decreasing: a higher quantile level never predicts a lower value.
type Distribution struct {
	levels []float64
	values []float64
}

// New builds a Distribution and rejects malformed input with
// ErrInvalidDistribution. It never reorders or dedupes: a violation is a
// correctness error to surface, not silently fix.
func New(levels, values []float64) (*Distribution, error) {
	if len(levels) != len(values) {
		return nil, fmt.Errorf("%w: %d levels but %d values", ErrInvalidDistribution, len(levels), len(values))
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDistribution)
	}
	for i, l := range levels {
		if l <= 0 || l >= 1 {
			return nil, fmt.Errorf("%w: level %g outside (0,1)", ErrInvalidDistribution, l)
		}
		if i > 0 && l <= levels[i-1] {
			return nil, fmt.Errorf("%w: levels not strictly increasing at %g", ErrInvalidDistribution, l)
		}
		if i > 0 && values[i] < values[i-1] {
			return nil, fmt.Errorf("%w: value %g at level %g below value %g at level %g",
				ErrInvalidDistribution, values[i], l, values[i-1], levels[i-1])
		}
	}
	d := &Distribution{levels: make([]float64, len(levels)), values: make([]float64, len(values))}
	copy(d.levels, levels)
	copy(d.values, values)
	return d, nil
}

// FromSorted builds a Distribution from possibly unsorted pairs, sorting by
// level and dropping duplicate levels (first occurrence wins). It is the
// convenience constructor used when assembling distributions from residual
// quantiles; monotonicity violations after sorting are still rejected.
func FromSorted(levels, values []float64) (*Distribution, error) {
	if len(levels) != len(values) {
		return nil, fmt.Errorf("%w: %d levels but %d values", ErrInvalidDistribution, len(levels), len(values))
	}
	idx := make([]int, len(levels))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return levels[idx[a]] < levels[idx[b]] })
	ls := make([]float64, 0, len(levels))
	vs := make([]float64, 0, len(values))
	for _, i := range idx {
		if n := len(ls); n > 0 && levels[i] == ls[n-1] {
			continue
		}
		ls = append(ls, levels[i])
		vs = append(vs, values[i])
	}
	return New(ls, vs)
}

// FromSamples builds a Distribution whose value at each requested level is
// the empirical quantile of samples, linearly interpolating the empirical
// distribution function. Levels need not be sorted.
func FromSamples(samples, levels []float64) (*Distribution, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidDistribution)
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	vs := make([]float64, len(levels))
	for i, l := range levels {
		if l <= 0 || l >= 1 {
			return nil, fmt.Errorf("%w: level %g outside (0,1)", ErrInvalidDistribution, l)
		}
		vs[i] = stat.Quantile(l, stat.LinInterp, sorted, nil)
	}
	return FromSorted(levels, vs)
}

// Len returns the number of stored (level, value) pairs.
func (d *Distribution) Len() int { return len(d.levels) }

// Levels returns a copy of the stored probability levels, ascending.
func (d *Distribution) Levels() []float64 {
	out := make([]float64, len(d.levels))
	copy(out, d.levels)
	return out
}

// Values returns a copy of the stored predicted values, ordered by level.
func (d *Distribution) Values() []float64 {
	out := make([]float64, len(d.values))
	copy(out, d.values)
	return out
}

// HasLevel reports whether p is one of the stored levels.
func (d *Distribution) HasLevel(p float64) bool {
	i := sort.SearchFloat64s(d.levels, p)
	return i < len(d.levels) && d.levels[i] == p
}

// QuantileAt returns the predicted value at probability p in [0,1]. A stored
// level returns its stored value exactly. Between two stored levels the
// value is linearly interpolated. Outside the stored support, including at 0
// and 1, the nearest stored value is held constant: tails are flat, never
// extrapolated linearly.
func (d *Distribution) QuantileAt(p float64) (float64, error) {
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("probability %g outside [0,1]", p)
	}
	i := sort.SearchFloat64s(d.levels, p)
	if i < len(d.levels) && d.levels[i] == p {
		return d.values[i], nil
	}
	if i == 0 {
		return d.values[0], nil
	}
	if i == len(d.levels) {
		return d.values[len(d.values)-1], nil
	}
	lo, hi := d.levels[i-1], d.levels[i]
	frac := (p - lo) / (hi - lo)
	return d.values[i-1] + frac*(d.values[i]-d.values[i-1]), nil
}

// Median returns the value at level 0.5, interpolating when 0.5 is not
// stored.
func (d *Distribution) Median() float64 {
	v, _ := d.QuantileAt(0.5)
	return v
}

// Equal reports whether both distributions hold the same (level, value)
// pairs. Stored order is canonical, so elementwise comparison suffices.
func (d *Distribution) Equal(o *Distribution) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.levels) != len(o.levels) {
		return false
	}
	for i := range d.levels {
		if d.levels[i] != o.levels[i] || d.values[i] != o.values[i] {
			return false
		}
	}
	return true
}
