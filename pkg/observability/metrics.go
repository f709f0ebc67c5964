package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Direction labels for step transitions.
const (
	DirectionNext     = "next"
	DirectionPrevious = "previous"
	DirectionJump     = "jump"
)

// Outcome labels for submissions.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeBackendFail = "backend_error"
)

// Metrics groups the engine's collectors.
type Metrics struct {
	Loads              *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	StoreErrors        *prometheus.CounterVec
	Uploads            *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_sessions_loaded_total",
			Help: "Wizard sessions loaded, by whether saved progress was resumed.",
		}, []string{"guide_id", "resumed"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_step_transitions_total",
			Help: "Step changes, by direction.",
		}, []string{"guide_id", "direction"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_validation_failures_total",
			Help: "Step validations that blocked navigation or submission.",
		}, []string{"guide_id"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_submissions_total",
			Help: "Submission attempts, by outcome.",
		}, []string{"guide_id", "outcome"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_store_errors_total",
			Help: "Session store failures, by operation.",
		}, []string{"op"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_uploads_total",
			Help: "File uploads, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Loads, m.Transitions, m.ValidationFailures, m.Submissions, m.StoreErrors, m.Uploads)
	}
	return m
}

func (m *Metrics) Load(guideID string, resumed bool) {
	if m == nil {
		return
	}
	label := "false"
	if resumed {
		label = "true"
	}
	m.Loads.WithLabelValues(guideID, label).Inc()
}

func (m *Metrics) Transition(guideID, direction string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(guideID, direction).Inc()
}

func (m *Metrics) ValidationFailed(guideID string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(guideID).Inc()
}

func (m *Metrics) Submission(guideID, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(guideID, outcome).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Upload(result string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(result).Inc()
}
