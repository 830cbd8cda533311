package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveProvider("flood", "primary", time.Second)
	m.IncFallback("flood", "timeout")
	m.IncCacheLookup("flood", "hit")
	m.IncAssessment("home", "low")
	m.IncBatchItem("ok")
	m.ObserveScore(time.Second)
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncFallback("flood", "timeout")
	m.IncFallback("flood", "timeout")
	m.IncAssessment("home", "high")
	m.IncBatchItem("error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderFallbacks.WithLabelValues("flood", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assessments.WithLabelValues("home", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchItems.WithLabelValues("error")))
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
