package quantile

// WIS returns the weighted interval score of a distribution against the
// observed value: the mean over stored levels of twice the pinball loss at
// that level. For symmetric level sets this equals the usual decomposition
// into central-interval penalties plus an absolute-error term at the median;
// the level-0.5 contribution is exactly |actual - median|. A single-level
// distribution degenerates to a scaled absolute error and a zero-width
// distribution scores the plain distance to its value.
//
// WIS is pure and safe for concurrent use.
func WIS(d *Distribution, actual float64) float64 {
	var total float64
	for i, level := range d.levels {
		q := d.values[i]
		if actual >= q {
			total += 2 * level * (actual - q)
		} else {
			total += 2 * (1 - level) * (q - actual)
		}
	}
	return total / float64(len(d.levels))
}
