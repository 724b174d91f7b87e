// Package metrics holds Prometheus metrics for the registration workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all registration workflow Prometheus metrics.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	Approvals        *prometheus.CounterVec
	Rejections       prometheus.Counter
	Verifications    prometheus.Counter
	DuplicateChecks  *prometheus.CounterVec
	SubmitDuration   prometheus.Histogram
	FlaggedForReview prometheus.Counter
}

// New creates and registers all registration metrics.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alumreg_registration_submissions_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		Approvals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alumreg_registration_approvals_total",
			Help: "Approvals by kind (manual or automatic)",
		}, []string{"kind"}),
		Rejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alumreg_registration_rejections_total",
			Help: "Rejected registrations",
		}),
		Verifications: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alumreg_registration_email_verifications_total",
			Help: "Successful email verifications",
		}),
		DuplicateChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alumreg_registration_duplicate_checks_total",
			Help: "Duplicate pre-checks by result",
		}, []string{"result"}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "alumreg_registration_submit_duration_seconds",
			Help:    "Latency of registration submission handling",
			Buckets: prometheus.DefBuckets,
		}),
		FlaggedForReview: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alumreg_registration_flagged_for_review_total",
			Help: "Registrations flagged for manual review",
		}),
	}
}
