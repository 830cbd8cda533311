package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Provider call latency by factor and source (primary, fallback)
	ProviderLatency *prometheus.HistogramVec

	// Fallbacks by factor and failure category
	ProviderFallbacks *prometheus.CounterVec

	// Observation cache lookups by factor and result (hit, miss, error)
	CacheLookups *prometheus.CounterVec

	// Completed assessments by analysis type and tier
	Assessments *prometheus.CounterVec

	// Batch items by outcome (ok, error)
	BatchItems *prometheus.CounterVec

	ScoreLatency prometheus.Histogram
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "georisk_provider_duration_seconds",
			Help:    "Duration of factor provider calls by factor and source",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"factor", "source"}),

		ProviderFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "georisk_provider_fallbacks_total",
			Help: "Provider fallbacks by factor and failure category",
		}, []string{"factor", "category"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "georisk_observation_cache_lookups_total",
			Help: "Observation cache lookups by factor and result",
		}, []string{"factor", "result"}),

		Assessments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "georisk_assessments_total",
			Help: "Completed assessments by analysis type and tier",
		}, []string{"analysis_type", "tier"}),

		BatchItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "georisk_batch_items_total",
			Help: "Batch items by outcome",
		}, []string{"outcome"}),

		ScoreLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "georisk_score_duration_seconds",
			Help:    "Duration of a full assessment including provider fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}

func (m *Metrics) ObserveProvider(factor, source string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(factor, source).Observe(d.Seconds())
	}
}

func (m *Metrics) IncFallback(factor, category string) {
	if m != nil {
		m.ProviderFallbacks.WithLabelValues(factor, category).Inc()
	}
}

func (m *Metrics) IncCacheLookup(factor, result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(factor, result).Inc()
	}
}

func (m *Metrics) IncAssessment(analysisType, tier string) {
	if m != nil {
		m.Assessments.WithLabelValues(analysisType, tier).Inc()
	}
}

func (m *Metrics) IncBatchItem(outcome string) {
	if m != nil {
		m.BatchItems.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveScore(d time.Duration) {
	if m != nil {
		m.ScoreLatency.Observe(d.Seconds())
	}
}
