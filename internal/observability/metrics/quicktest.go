// Package metrics provides feedback and dashboard metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QuickTestMetrics contains Prometheus metrics for feedback writes, status
// recomputation, dashboard builds and client submissions.
type QuickTestMetrics struct {
	registry *prometheus.Registry

	feedbackWritesTotal     *prometheus.CounterVec
	statusRecomputesTotal   *prometheus.CounterVec
	dashboardBuildsTotal    *prometheus.CounterVec
	dashboardBuildDuration  prometheus.Histogram
	submissionsTotal        *prometheus.CounterVec
	submissionDuration      prometheus.Histogram
	pendingSubmissionsGauge prometheus.Gauge

	collectors []prometheus.Collector
}

// NewQuickTestMetrics creates and registers new quicktest metrics
func NewQuickTestMetrics(registry *prometheus.Registry) (*QuickTestMetrics, error) {
	m := &QuickTestMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *QuickTestMetrics) initMetrics() {
	m.feedbackWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quicktest_feedback_writes_total",
			Help: "Total number of feedback writes",
		},
		[]string{"operation", "status"}, // operation: create, update, delete
	)

	m.statusRecomputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quicktest_status_recomputes_total",
			Help: "Case status recomputations by resulting status",
		},
		[]string{"status"}, // untested, pass, fail
	)

	m.dashboardBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quicktest_dashboard_builds_total",
			Help: "Total number of dashboard view model builds",
		},
		[]string{"status"},
	)

	m.dashboardBuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quicktest_dashboard_build_duration_seconds",
		Help:    "Time taken to build a dashboard view model",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10), // 1ms to ~0.5s
	})

	m.submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quicktest_client_submissions_total",
			Help: "Optimistic feedback submissions by outcome",
		},
		[]string{"outcome"}, // reconciled, reverted, rejected
	)

	m.submissionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quicktest_client_submission_duration_seconds",
		Help:    "Time from optimistic patch to reconciled or reverted state",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})

	m.pendingSubmissionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quicktest_client_pending_submissions",
		Help: "Submissions currently in flight",
	})

	m.collectors = []prometheus.Collector{
		m.feedbackWritesTotal,
		m.statusRecomputesTotal,
		m.dashboardBuildsTotal,
		m.dashboardBuildDuration,
		m.submissionsTotal,
		m.submissionDuration,
		m.pendingSubmissionsGauge,
	}
}

// Describe implements the Collector interface
func (m *QuickTestMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *QuickTestMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordFeedbackWrite records a feedback create, update or delete
func (m *QuickTestMetrics) RecordFeedbackWrite(operation, status string) {
	m.feedbackWritesTotal.WithLabelValues(operation, status).Inc()
}

// RecordStatusRecompute records the status a case settled on after a write
func (m *QuickTestMetrics) RecordStatusRecompute(caseStatus string) {
	m.statusRecomputesTotal.WithLabelValues(caseStatus).Inc()
}

// RecordDashboardBuild records one dashboard build
func (m *QuickTestMetrics) RecordDashboardBuild(status string, duration time.Duration) {
	m.dashboardBuildsTotal.WithLabelValues(status).Inc()
	m.dashboardBuildDuration.Observe(duration.Seconds())
}

// SubmissionStarted marks a submission in flight
func (m *QuickTestMetrics) SubmissionStarted() {
	m.pendingSubmissionsGauge.Inc()
}

// SubmissionFinished records the outcome of a submission that was in flight
func (m *QuickTestMetrics) SubmissionFinished(outcome string, duration time.Duration) {
	m.pendingSubmissionsGauge.Dec()
	m.submissionsTotal.WithLabelValues(outcome).Inc()
	m.submissionDuration.Observe(duration.Seconds())
}

// SubmissionRejected records a submission refused before any network call
func (m *QuickTestMetrics) SubmissionRejected() {
	m.submissionsTotal.WithLabelValues(OutcomeRejected).Inc()
}
