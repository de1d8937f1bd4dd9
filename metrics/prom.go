package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records forecast events in Prometheus metrics.
type PromSink struct {
	forecasts *prometheus.CounterVec
	wis       *prometheus.HistogramVec
	absErr    *prometheus.HistogramVec
}

// NewPromSink registers forecast metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the
// collectors are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	forecasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecasts_total",
		Help: "Total number of forecasts emitted",
	}, []string{"key"})
	wis := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_wis",
		Help:    "Weighted interval score of evaluated forecasts",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"key"})
	absErr := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_abs_error",
		Help:    "Absolute error of the forecast median",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"key"})

	if err := reg.Register(forecasts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			forecasts = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(wis); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			wis = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(absErr); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			absErr = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{forecasts: forecasts, wis: wis, absErr: absErr}, nil
}

// RecordForecasts increments the forecast counter per event.
func (s *PromSink) RecordForecasts(events []ForecastEvent) error {
	for _, ev := range events {
		s.forecasts.WithLabelValues(ev.Key).Inc()
	}
	return nil
}

// RecordScores observes the score histograms per event.
func (s *PromSink) RecordScores(events []ScoreEvent) error {
	for _, ev := range events {
		s.wis.WithLabelValues(ev.Key).Observe(ev.WIS)
		s.absErr.WithLabelValues(ev.Key).Observe(ev.AbsError)
	}
	return nil
}
