package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes recorded by SubmissionsTotal.
const (
	OutcomeAccepted     = "accepted"
	OutcomeDuplicate    = "duplicate"
	OutcomeNotOpen      = "not_open"
	OutcomeNotAvailable = "not_available"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

// Cache results recorded by AnalyticsComputations.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheDisabled = "disabled"
)

var (
	// SubmissionsTotal counts survey submissions by outcome.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_submissions_total",
			Help: "Survey response submissions by outcome.",
		},
		[]string{"outcome"},
	)

	// AnalyticsComputations counts analytics requests by cache result.
	AnalyticsComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_analytics_requests_total",
			Help: "Survey analytics requests by cache result.",
		},
		[]string{"cache"},
	)

	// AnalyticsDuration records how long a full recomputation takes.
	AnalyticsDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "survey_analytics_compute_seconds",
			Help:    "Time spent computing a survey analytics report.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

func init() {
	prometheus.MustRegister(SubmissionsTotal, AnalyticsComputations, AnalyticsDuration)
}

// ObserveSubmission increments the submission counter for outcome.
func ObserveSubmission(outcome string) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnalytics records one analytics request. took is only observed on
// a recomputation (anything but a cache hit).
func ObserveAnalytics(cache string, took time.Duration) {
	AnalyticsComputations.WithLabelValues(cache).Inc()
	if cache != CacheHit {
		AnalyticsDuration.Observe(took.Seconds())
	}
}
