package shift

import (
	"errors"
	"fmt"
	"time"

	"github.com/epicast-dev/epicast/core/model"
)

// ErrInsufficientHistory reports that an entity key lacks the trailing rows
// a prediction needs. It is surfaced, never silently padded.
var ErrInsufficientHistory = errors.New("insufficient trailing history")

// Window is the history requirement derived from a set of shift specs.
type Window struct {
	// Lookback is the largest lag magnitude, plus any extra lookback
	// declared by derived-feature windows such as a trailing mean.
	Lookback int
	// Lookahead is the largest ahead offset.
	Lookahead int
}

// ResolveWindow inspects the specs and returns the window requirement.
// extraLookback accounts for derived-feature windows beyond the raw lags.
func ResolveWindow(specs []Spec, extraLookback int) Window {
	var w Window
	for _, s := range specs {
		for _, off := range s.Offsets {
			if off < 0 && -off > w.Lookback {
				w.Lookback = -off
			}
			if off > 0 && off > w.Lookahead {
				w.Lookahead = off
			}
		}
	}
	w.Lookback += extraLookback
	return w
}

// MinimumRequiredHistory returns the trailing time-unit count, ending at a
// reference time, sufficient to compute every requested feature and target
// for that time without truncation: the larger of the lag and ahead
// magnitudes.
func (w Window) MinimumRequiredHistory() int {
	if w.Lookahead > w.Lookback {
		return w.Lookahead
	}
	return w.Lookback
}

// RequireHistory verifies that key has a row at ref and at each of the
// MinimumRequiredHistory trailing steps before ref. A gap or a short series
// fails with ErrInsufficientHistory.
func (g *Generator) RequireHistory(t *model.Table, key model.Key, ref time.Time, extraLookback int) error {
	if _, ok := t.Index(key, ref); !ok {
		return fmt.Errorf("key %s has no row at reference time %s: %w",
			key, ref.Format(time.RFC3339), ErrInsufficientHistory)
	}
	required := ResolveWindow(g.specs, extraLookback).MinimumRequiredHistory()
	for s := 1; s <= required; s++ {
		at := ref.Add(-time.Duration(s) * g.step)
		if _, ok := t.Index(key, at); !ok {
			return fmt.Errorf("key %s has no row at %s, %d of %d trailing steps: %w",
				key, at.Format(time.RFC3339), s, required, ErrInsufficientHistory)
		}
	}
	return nil
}
