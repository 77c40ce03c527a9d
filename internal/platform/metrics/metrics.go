package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ApplicationsCreated prometheus.Counter
	Transitions         *prometheus.CounterVec
	TransitionFailures  *prometheus.CounterVec
	SaveConflicts       prometheus.Counter
	OtpIssued           *prometheus.CounterVec
	OtpVerifications    *prometheus.CounterVec
	UseCaseDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ApplicationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "konto_applications_created_total",
			Help: "Total number of onboarding applications created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "konto_lifecycle_transitions_total",
			Help: "Successful lifecycle transitions by operation",
		}, []string{"operation"}),
		TransitionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "konto_lifecycle_transition_failures_total",
			Help: "Rejected lifecycle transitions by operation and error code",
		}, []string{"operation", "code"}),
		SaveConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "konto_save_conflicts_total",
			Help: "Optimistic concurrency conflicts on aggregate save",
		}),
		OtpIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "konto_otp_issued_total",
			Help: "One-time codes issued by channel",
		}, []string{"channel"}),
		OtpVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "konto_otp_verifications_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}),
		UseCaseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "konto_usecase_duration_seconds",
			Help:    "Orchestrator use-case duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementApplicationsCreated() {
	m.ApplicationsCreated.Inc()
}

func (m *Metrics) IncrementTransition(operation string) {
	m.Transitions.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementTransitionFailure(operation, code string) {
	m.TransitionFailures.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncrementSaveConflicts() {
	m.SaveConflicts.Inc()
}

func (m *Metrics) IncrementOtpIssued(channel string) {
	m.OtpIssued.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncrementOtpVerification(outcome string) {
	m.OtpVerifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUseCaseDuration(operation string, seconds float64) {
	m.UseCaseDuration.WithLabelValues(operation).Observe(seconds)
}
