package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/observability"
	"github.com/aretw0/wizard/pkg/ports"
	"github.com/aretw0/wizard/pkg/session"
	"golang.org/x/sync/singleflight"
)

// Wizard is one user's pass through a guide.
// Methods are safe for concurrent use.
type Wizard struct {
	mu sync.Mutex

	guide      *domain.Guide
	session    *domain.Session
	errors     domain.ValidationErrors
	phase      domain.Phase
	lastErr    error
	trackingID string
	closed     bool

	writer    *session.Writer
	submitter ports.ApplicationSubmitter
	submits   singleflight.Group
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Guide returns the guide definition. It must not be modified.
func (w *Wizard) Guide() *domain.Guide {
	return w.guide
}

// Snapshot returns a copy of the current session.
func (w *Wizard) Snapshot() *domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Clone()
}

// CurrentStep returns the index of the step being shown.
func (w *Wizard) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.CurrentStep
}

// Answer returns the stored value for a field.
func (w *Wizard) Answer(name string) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.session.Answers[name]
	return v, ok
}

// Errors returns the validation errors currently displayed.
func (w *Wizard) Errors() domain.ValidationErrors {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errors.Clone()
}

// Phase returns the lifecycle phase.
func (w *Wizard) Phase() domain.Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Progress returns the completion percentage shown to the user.
func (w *Wizard) Progress() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return float64(w.session.CurrentStep+1) / float64(len(w.guide.Steps)) * 100
}

// StepComplete reports whether step i currently passes validation.
func (w *Wizard) StepComplete(i int) bool {
	if i < 0 || i >= len(w.guide.Steps) {
		return false
	}
	return len(w.ValidateStep(i)) == 0
}

// HighestStep returns the furthest step reached through validation.
func (w *Wizard) HighestStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.HighestStep
}

// TrackingID returns the id assigned on successful submission.
func (w *Wizard) TrackingID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.trackingID
}

// LastError returns the last submission failure, cleared on success.
func (w *Wizard) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Degraded reports whether progress is no longer being persisted.
func (w *Wizard) Degraded() bool {
	return w.writer.Degraded()
}

// Flush waits for pending persistence writes.
func (w *Wizard) Flush(ctx context.Context) error {
	return w.writer.Flush(ctx)
}

// Close waits for pending writes and detaches the wizard from the store.
// Any later change is refused with domain.ErrSessionClosed.
func (w *Wizard) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.writer.Close(ctx)
}

// mutable reports why the session cannot be changed, if it cannot. Caller holds mu.
func (w *Wizard) mutable() error {
	if w.closed {
		return domain.ErrSessionClosed
	}
	switch w.phase {
	case domain.PhaseSubmitted:
		return domain.ErrSessionSubmitted
	case domain.PhaseSubmitting:
		return domain.ErrSubmissionInProgress
	}
	return nil
}

// persist schedules a write of the current session. Caller holds mu, which
// keeps scheduled snapshots in mutation order.
func (w *Wizard) persist() {
	w.writer.Schedule(w.session.Clone())
}

// SetAnswer stores value for the named field. A nil value removes the answer.
// Values are coerced to the field kind; setting an identical value does nothing.
func (w *Wizard) SetAnswer(name string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(); err != nil {
		return err
	}
	f, ok := w.guide.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownField, name)
	}

	v, err := domain.Coerce(f, value)
	if err != nil {
		return err
	}

	current, exists := w.session.Answers[name]
	if v == nil {
		if !exists {
			return nil
		}
		delete(w.session.Answers, name)
	} else {
		if exists && domain.SameValue(current, v) {
			return nil
		}
		w.session.Answers[name] = v
	}

	delete(w.errors, name)
	w.persist()
	return nil
}

// ValidateStep validates step i against the current answers.
// An out-of-range index yields an empty set.
func (w *Wizard) ValidateStep(i int) domain.ValidationErrors {
	if i < 0 || i >= len(w.guide.Steps) {
		return domain.ValidationErrors{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.ValidateStep(w.guide.Steps[i], w.session.Answers)
}

// Next validates the current step and advances when it is valid.
// It returns whether the current step changed: false on the last step, or
// when validation fails, in which case the errors are exposed.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.mutable() != nil {
		return false
	}

	cur := w.session.CurrentStep
	errs := domain.ValidateStep(w.guide.Steps[cur], w.session.Answers)
	if len(errs) > 0 {
		w.errors = errs
		w.metrics.ValidationFailed(w.guide.ID)
		w.logger.Debug("Step validation failed", "step", cur, "errors", len(errs))
		return false
	}
	w.errors = domain.ValidationErrors{}

	next := min(cur+1, w.guide.LastStep())
	if next == cur {
		return false
	}
	w.session.CurrentStep = next
	w.session.HighestStep = max(w.session.HighestStep, next)
	w.metrics.Transition(w.guide.ID, observability.DirectionNext)
	w.persist()
	return true
}

// Previous moves back one step without validating. It returns false at the first step.
func (w *Wizard) Previous() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.mutable() != nil || w.session.CurrentStep == 0 {
		return false
	}
	w.session.CurrentStep--
	w.metrics.Transition(w.guide.ID, observability.DirectionPrevious)
	w.persist()
	return true
}

// JumpTo moves to a step already reached through validation.
// Steps beyond the highest reached one are refused.
func (w *Wizard) JumpTo(i int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.mutable() != nil || i < 0 || i > w.session.HighestStep {
		return false
	}
	if i == w.session.CurrentStep {
		return true
	}
	w.session.CurrentStep = i
	w.metrics.Transition(w.guide.ID, observability.DirectionJump)
	w.persist()
	return true
}
