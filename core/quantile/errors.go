package quantile

import "errors"

// ErrInvalidDistribution reports malformed (level, value) pairs: mismatched
// lengths, levels outside (0,1), duplicate or unsorted levels, or values
// that decrease as the level increases.
var ErrInvalidDistribution = errors.New("invalid quantile distribution")
