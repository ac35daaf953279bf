package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dementia_assessments_total",
			Help: "Total number of completed assessments by verdict",
		},
		[]string{"verdict"},
	)

	AssessmentErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dementia_assessment_errors_total",
			Help: "Total number of assessments that ended with an error message",
		},
		[]string{"kind"},
	)

	ClassifierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dementia_classifier_duration_seconds",
			Help:    "Duration of classifier calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"backend"},
	)

	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dementia_side_effect_failures_total",
			Help: "Failed best-effort writes after an assessment (audit, cache, event)",
		},
		[]string{"sink"},
	)
)

// Recorder is the slice of metrics the assessment service writes to.
type Recorder struct{}

func (Recorder) Verdict(verdict string) {
	AssessmentsTotal.WithLabelValues(verdict).Inc()
}

func (Recorder) Error(kind string) {
	AssessmentErrors.WithLabelValues(kind).Inc()
}

func (Recorder) ClassifierLatency(backend string, d time.Duration) {
	ClassifierDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (Recorder) SideEffectFailed(sink string) {
	SideEffectFailures.WithLabelValues(sink).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
