package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []ScoreSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...ScoreSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordForecasts forwards the events to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordForecasts(events []ForecastEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordForecasts(events); err != nil {
			return err
		}
	}
	return nil
}

// RecordScores forwards the events to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordScores(events []ScoreEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordScores(events); err != nil {
			return err
		}
	}
	return nil
}
