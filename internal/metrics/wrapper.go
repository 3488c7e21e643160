package metrics

// Recorder adapts Metrics to the recorder interface consumed by the
// seasonal service, avoiding a dependency from seasonal on prometheus.
type Recorder struct {
	m *Metrics
}

// NewRecorder wraps m for use as a seasonal.Recorder.
func NewRecorder(m *Metrics) *Recorder {
	return &Recorder{m: m}
}

func (r *Recorder) PredictionInc() {
	r.m.PredictionsTotal.Inc()
}

func (r *Recorder) FallbackInc() {
	r.m.FallbacksTotal.Inc()
}

func (r *Recorder) DegradedInc() {
	r.m.DegradedTotal.Inc()
}

func (r *Recorder) LatencyObserve(seconds float64) {
	r.m.Latency.Observe(seconds)
}

func (r *Recorder) ConfidenceObserve(confidence float64) {
	r.m.PredictionScores.Observe(confidence)
}
