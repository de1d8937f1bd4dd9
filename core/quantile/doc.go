// Package quantile implements the probabilistic forecast value type: a
// finite set of (probability level, predicted value) pairs per observation.
// Distributions are immutable once built; every transformation returns a new
// value. Cells in the same column may carry different level sets.
package quantile
