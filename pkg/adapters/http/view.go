package http

import (
	"github.com/aretw0/wizard"
	"github.com/aretw0/wizard/pkg/domain"
)

// sessionView is what clients render: the current step, its answers and
// errors, and the progress indicator.
type sessionView struct {
	GuideID     string                  `json:"guide_id"`
	Title       string                  `json:"title"`
	Phase       domain.Phase            `json:"phase"`
	CurrentStep int                     `json:"current_step"`
	StepCount   int                     `json:"step_count"`
	HighestStep int                     `json:"highest_step"`
	Progress    float64                 `json:"progress"`
	Step        domain.Step             `json:"step"`
	Completed   []bool                  `json:"completed"`
	Answers     domain.Answers          `json:"answers"`
	Errors      domain.ValidationErrors `json:"errors,omitempty"`
	TrackingID  string                  `json:"tracking_id,omitempty"`
	Degraded    bool                    `json:"degraded,omitempty"`
	LastError   string                  `json:"last_error,omitempty"`
}

func newSessionView(w *wizard.Wizard) sessionView {
	g := w.Guide()
	snap := w.Snapshot()

	v := sessionView{
		GuideID:     g.ID,
		Title:       g.Title,
		Phase:       w.Phase(),
		CurrentStep: snap.CurrentStep,
		StepCount:   len(g.Steps),
		HighestStep: snap.HighestStep,
		Progress:    w.Progress(),
		Step:        g.Steps[snap.CurrentStep],
		Completed:   make([]bool, len(g.Steps)),
		Answers:     snap.Answers,
		Errors:      w.Errors(),
		TrackingID:  w.TrackingID(),
		Degraded:    w.Degraded(),
	}
	for i := range g.Steps {
		v.Completed[i] = w.StepComplete(i)
	}
	if err := w.LastError(); err != nil {
		v.LastError = err.Error()
	}
	return v
}
