package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment module.
// Tracks transitions by action and outcome, save conflicts and
// notification delivery failures.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	Mutations          *prometheus.CounterVec
	ConflictRetries    prometheus.Counter
	Evaluations        *prometheus.CounterVec
	DispatchFailures   prometheus.Counter
}

// New creates a new Metrics instance with all assessment metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sglgb_assessment_transitions_total",
			Help: "Lifecycle transitions by action and result (applied, noop, rejected, error)",
		}, []string{"action", "result"}),
		TransitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sglgb_assessment_transition_duration_seconds",
			Help:    "Duration of lock, load, apply and save for one transition",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"action"}),
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sglgb_assessment_mutations_total",
			Help: "Evidence, verdict and flag writes by operation and result",
		}, []string{"operation", "result"}),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sglgb_assessment_conflict_retries_total",
			Help: "Optimistic version conflicts that forced a reload and re-apply",
		}),
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sglgb_assessment_evaluations_total",
			Help: "Compliance evaluations by unit-level outcome",
		}, []string{"passed"}),
		DispatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sglgb_assessment_dispatch_failures_total",
			Help: "Lifecycle events the notification dispatcher failed to accept",
		}),
	}
}

// ObserveTransition records the outcome and latency of one transition.
func (m *Metrics) ObserveTransition(action, result string, start time.Time) {
	m.Transitions.WithLabelValues(action, result).Inc()
	m.TransitionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// IncrementMutation records one evidence, verdict or flag write.
func (m *Metrics) IncrementMutation(operation, result string) {
	m.Mutations.WithLabelValues(operation, result).Inc()
}

// IncrementConflictRetry records a version conflict on save.
func (m *Metrics) IncrementConflictRetry() {
	m.ConflictRetries.Inc()
}

// IncrementEvaluation records an evaluation result.
func (m *Metrics) IncrementEvaluation(passed bool) {
	label := "false"
	if passed {
		label = "true"
	}
	m.Evaluations.WithLabelValues(label).Inc()
}

// IncrementDispatchFailure records an undelivered batch of events.
func (m *Metrics) IncrementDispatchFailure() {
	m.DispatchFailures.Inc()
}
