package reshape

import "errors"

var (
	// ErrNotDistribution reports a selected column whose cells are not
	// quantile distributions.
	ErrNotDistribution = errors.New("not a distribution column")
	// ErrLengthMismatch reports selected columns whose per-row level counts
	// disagree in a long pivot without the positional override.
	ErrLengthMismatch = errors.New("level counts differ across columns")
)
