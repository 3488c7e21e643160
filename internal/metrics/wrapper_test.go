package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	r := NewRecorder(m)

	r.PredictionInc()
	r.PredictionInc()
	r.FallbackInc()
	r.DegradedInc()
	r.LatencyObserve(0.002)
	r.ConfidenceObserve(0.85)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PredictionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegradedTotal))
}

func TestIsolatedRegistries(t *testing.T) {
	// Two instances with separate registries must not collide.
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	a.PredictionsTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PredictionsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PredictionsTotal))
}
