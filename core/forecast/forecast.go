// Package forecast wires the panel pipeline together: shift generation
// produces the design matrix, a trainer fits on it, and the fitted model
// emits one quantile distribution per entity key. The package holds no
// state between runs; every call is a pure function of its inputs plus the
// configured collaborators.
package forecast

import (
	"fmt"
	"time"

	"github.com/epicast-dev/epicast/core/archive"
	"github.com/epicast-dev/epicast/core/latency"
	"github.com/epicast-dev/epicast/core/logger"
	"github.com/epicast-dev/epicast/core/model"
	"github.com/epicast-dev/epicast/core/quantile"
	"github.com/epicast-dev/epicast/core/shift"
	"github.com/epicast-dev/epicast/core/train"
	"github.com/epicast-dev/epicast/metrics"
)

// DefaultLevels are the quantile levels forecasts carry when none are
// configured.
var DefaultLevels = []float64{0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95}

// Options configures a Forecaster.
type Options struct {
	// Step is the calendar distance of one time unit; zero defaults to
	// 24h.
	Step time.Duration
	// Specs declare the lag features and the ahead target. Exactly one
	// spec must carry the Target flag with a single ahead offset.
	Specs []shift.Spec
	// Levels are the quantile levels of emitted distributions.
	Levels []float64
	// ExtraLookback widens the history requirement for derived-feature
	// windows beyond the raw lags.
	ExtraLookback int
}

// Prediction is one probabilistic forecast for one entity key.
type Prediction struct {
	Key          model.Key
	ForecastDate time.Time
	TargetDate   time.Time
	Distribution *quantile.Distribution
	ModelID      string
}

// Forecaster runs the shift-train-predict pipeline.
type Forecaster struct {
	opts    Options
	trainer train.Trainer
	log     logger.Logger
	sink    metrics.ScoreSink

	targetAhead int
}

// New validates the options and returns a Forecaster. The trainer is
// wrapped with residual-quantile postprocessing unless it already emits
// distributions.
func New(opts Options, trainer train.Trainer, log logger.Logger, sink metrics.ScoreSink) (*Forecaster, error) {
	if trainer == nil {
		return nil, fmt.Errorf("forecaster requires a trainer")
	}
	if opts.Step == 0 {
		opts.Step = 24 * time.Hour
	}
	if len(opts.Levels) == 0 {
		opts.Levels = DefaultLevels
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	// Validate specs once through the generator.
	gen, err := shift.NewGenerator(opts.Step, opts.Specs, nil)
	if err != nil {
		return nil, err
	}
	if targets := gen.TargetColumns(); len(targets) != 1 {
		return nil, fmt.Errorf("pipeline needs exactly one target ahead column, got %d", len(targets))
	}
	f := &Forecaster{
		opts:    opts,
		trainer: train.QuantileWrap{Base: trainer, Levels: opts.Levels},
		log:     logger.OrNop(log),
		sink:    sink,
	}
	for _, s := range opts.Specs {
		if !s.Target {
			continue
		}
		for _, off := range s.Offsets {
			if off > 0 {
				f.targetAhead = off
			}
		}
	}
	return f, nil
}

// Run fits on the table and forecasts every entity key at the reference
// time. Every key must satisfy the window requirement; a short or gapped
// series fails the whole run with shift.ErrInsufficientHistory, since
// partial results are not returned on failure.
func (f *Forecaster) Run(t *model.Table, ref time.Time) ([]Prediction, error) {
	return f.run(t, f.opts.Specs, ref, ref)
}

// RunVersioned forecasts from a versioned archive as of forecastDate. The
// per-column reporting latency is estimated first; the reference date then
// moves back by the largest predictor latency so features only consume data
// that existed at forecastDate, and the target ahead stretches by the same
// amount so the target date stays anchored to the requested forecast date.
func (f *Forecaster) RunVersioned(a *archive.Archive, forecastDate time.Time, latOpts latency.Options) ([]Prediction, error) {
	latOpts.Step = f.opts.Step
	lat, err := latency.Compute(a, latOpts, f.log)
	if err != nil {
		return nil, err
	}
	snap, err := a.AsOf(forecastDate)
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, s := range f.opts.Specs {
		sources = append(sources, s.Column)
	}
	maxLat := lat.Max(sources)
	ref := forecastDate.Add(-time.Duration(maxLat) * f.opts.Step)
	specs := make([]shift.Spec, len(f.opts.Specs))
	for i, s := range f.opts.Specs {
		specs[i] = shift.Spec{Column: s.Column, Target: s.Target, Offsets: make([]int, len(s.Offsets))}
		for j, off := range s.Offsets {
			if off > 0 {
				off += maxLat
			}
			specs[i].Offsets[j] = off
		}
	}
	f.log.Infof("versioned run: latency %v, reference moved back %d steps", lat, maxLat)
	return f.run(snap, specs, ref, forecastDate)
}

func (f *Forecaster) run(t *model.Table, specs []shift.Spec, ref, forecastDate time.Time) ([]Prediction, error) {
	gen, err := shift.NewGenerator(f.opts.Step, specs, f.log)
	if err != nil {
		return nil, err
	}
	shifted, err := gen.Apply(t)
	if err != nil {
		return nil, err
	}

	featureCols := featureColumns(specs)
	targets := gen.TargetColumns()
	targetCol, _ := shifted.Float(targets[0])
	features := make([][]float64, shifted.Len())
	for i := range features {
		features[i] = featureRow(shifted, featureCols, i)
	}
	fitted, err := f.trainer.Fit(features, targetCol)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	dm, ok := fitted.(train.DistributionModel)
	if !ok {
		return nil, fmt.Errorf("trainer %T does not emit distributions", f.trainer)
	}

	targetDate := forecastDate.Add(time.Duration(f.targetAhead) * f.opts.Step)
	var preds []Prediction
	for _, g := range t.Groups() {
		if err := gen.RequireHistory(t, g.Key, ref, f.opts.ExtraLookback); err != nil {
			return nil, err
		}
		i, _ := shifted.Index(g.Key, ref)
		dist, err := dm.PredictDistribution(featureRow(shifted, featureCols, i))
		if err != nil {
			return nil, fmt.Errorf("predict key %s: %w", g.Key, err)
		}
		preds = append(preds, Prediction{
			Key:          g.Key,
			ForecastDate: forecastDate,
			TargetDate:   targetDate,
			Distribution: dist,
			ModelID:      fitted.ID(),
		})
	}

	events := make([]metrics.ForecastEvent, len(preds))
	for i, p := range preds {
		events[i] = metrics.ForecastEvent{
			Key:          p.Key.String(),
			ForecastDate: p.ForecastDate,
			TargetDate:   p.TargetDate,
			Median:       p.Distribution.Median(),
			Levels:       p.Distribution.Len(),
			ModelID:      p.ModelID,
		}
	}
	if err := f.sink.RecordForecasts(events); err != nil {
		f.log.Warnf("forecast sink: %v", err)
	}
	f.log.Infof("forecast run produced %d predictions for %s", len(preds), targetDate.Format("2006-01-02"))
	return preds, nil
}

// Score evaluates predictions against a truth table and records the
// results. Predictions whose target row is absent from the truth table are
// skipped with a warning.
func (f *Forecaster) Score(preds []Prediction, truth *model.Table, column string) ([]metrics.ScoreEvent, error) {
	actuals, ok := truth.Float(column)
	if !ok {
		return nil, fmt.Errorf("truth table has no column %q", column)
	}
	var events []metrics.ScoreEvent
	for _, p := range preds {
		i, ok := truth.Index(p.Key, p.TargetDate)
		if !ok || model.IsNA(actuals[i]) {
			f.log.Warnf("no ground truth for key %s at %s", p.Key, p.TargetDate.Format("2006-01-02"))
			continue
		}
		actual := actuals[i]
		med := p.Distribution.Median()
		events = append(events, metrics.ScoreEvent{
			Key:        p.Key.String(),
			TargetDate: p.TargetDate,
			Actual:     actual,
			WIS:        quantile.WIS(p.Distribution, actual),
			AbsError:   abs(actual - med),
		})
	}
	if err := f.sink.RecordScores(events); err != nil {
		f.log.Warnf("score sink: %v", err)
	}
	return events, nil
}

// featureColumns lists the lag feature columns in spec order. Offset order
// within a spec is preserved, so trainers relying on a fixed feature index
// (the carry-forward baseline) see a stable layout.
func featureColumns(specs []shift.Spec) []string {
	var out []string
	for _, s := range specs {
		for _, off := range s.Offsets {
			if off <= 0 {
				out = append(out, shift.ColumnName(s.Column, off))
			}
		}
	}
	return out
}

func featureRow(t *model.Table, cols []string, i int) []float64 {
	row := make([]float64, len(cols))
	for j, name := range cols {
		col, _ := t.Float(name)
		row[j] = col[i]
	}
	return row
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
