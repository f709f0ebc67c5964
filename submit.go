package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/observability"
)

// SubmitResult describes a submission attempt that reached a verdict.
type SubmitResult struct {
	// TrackingID is set when the application service accepted the submission.
	TrackingID string

	// FailedStep is the first step that failed validation, or -1.
	FailedStep int

	// Errors are the validation errors of FailedStep.
	Errors domain.ValidationErrors
}

// Submitted reports whether the application was accepted.
func (r SubmitResult) Submitted() bool {
	return r.TrackingID != ""
}

var errNoSubmitter = errors.New("no submission service configured")

// Submit validates every step and sends the answers to the application service.
//
// Validation failures are returned as data: the result names the first failing
// step and its errors, and no service call is made. A service failure returns
// an error wrapping domain.ErrSubmissionFailed; the session is kept so Submit
// can be retried. On success the saved progress is cleared.
//
// Concurrent calls share a single attempt.
func (w *Wizard) Submit(ctx context.Context) (SubmitResult, error) {
	v, err, _ := w.submits.Do("submit", func() (any, error) {
		return w.submit(ctx)
	})
	res, _ := v.(SubmitResult)
	return res, err
}

func (w *Wizard) submit(ctx context.Context) (SubmitResult, error) {
	w.mu.Lock()
	if w.phase == domain.PhaseSubmitted {
		id := w.trackingID
		w.mu.Unlock()
		return SubmitResult{TrackingID: id, FailedStep: -1}, nil
	}
	if w.closed {
		w.mu.Unlock()
		return SubmitResult{FailedStep: -1}, domain.ErrSessionClosed
	}
	if w.session.CurrentStep != w.guide.LastStep() {
		w.mu.Unlock()
		return SubmitResult{FailedStep: -1}, domain.ErrNotOnLastStep
	}

	if idx, errs := domain.FirstInvalidStep(w.guide, w.session.Answers); idx >= 0 {
		w.errors = errs
		w.mu.Unlock()
		w.metrics.ValidationFailed(w.guide.ID)
		w.metrics.Submission(w.guide.ID, observability.OutcomeInvalid)
		w.logger.Debug("Submission blocked by validation", "failed_step", idx)
		return SubmitResult{FailedStep: idx, Errors: errs.Clone()}, nil
	}

	w.phase = domain.PhaseSubmitting
	sub := domain.NewSubmission(w.guide, w.session.Answers)
	w.mu.Unlock()

	trackingID, err := w.send(ctx, sub)

	w.mu.Lock()
	if err != nil {
		w.phase = domain.PhaseActive
		w.lastErr = err
		w.mu.Unlock()
		w.metrics.Submission(w.guide.ID, observability.OutcomeBackendFail)
		w.logger.Warn("Submission failed", "err", err)
		return SubmitResult{FailedStep: -1}, err
	}
	w.phase = domain.PhaseSubmitted
	w.trackingID = trackingID
	w.lastErr = nil
	w.errors = domain.ValidationErrors{}
	w.mu.Unlock()

	w.metrics.Submission(w.guide.ID, observability.OutcomeSuccess)
	w.logger.Info("Application submitted", "tracking_id", trackingID)

	// The application is accepted; a failed cleanup only leaves stale progress behind.
	if err := w.writer.Clear(context.WithoutCancel(ctx)); err != nil {
		w.logger.Warn("Failed to clear saved progress", "err", err)
	}
	return SubmitResult{TrackingID: trackingID, FailedStep: -1}, nil
}

func (w *Wizard) send(ctx context.Context, sub domain.Submission) (string, error) {
	if w.submitter == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, errNoSubmitter)
	}
	id, err := w.submitter.Submit(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrSubmissionFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty tracking id", domain.ErrSubmissionFailed)
	}
	return id, nil
}
