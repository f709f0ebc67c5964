package domain

import "time"

// Phase is the lifecycle position of a wizard session.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseActive     Phase = "active"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
	PhaseLoadFailed Phase = "load_failed"
)

// SessionKeyPrefix namespaces persisted progress per guide.
const SessionKeyPrefix = "guide_progress_"

// SessionKey returns the store key for a guide, optionally scoped to a profile.
func SessionKey(profile, guideID string) string {
	if profile == "" {
		return SessionKeyPrefix + guideID
	}
	return profile + ":" + SessionKeyPrefix + guideID
}

// Session is the resumable snapshot of a wizard.
type Session struct {
	GuideID     string `json:"guide_id"`
	CurrentStep int    `json:"current_step"`

	// HighestStep is the furthest step reached through successful validation.
	HighestStep int `json:"highest_step"`

	Answers     Answers   `json:"answers"`
	LastSavedAt time.Time `json:"last_saved_at"`
}

// NewSession creates a fresh session at step 0.
func NewSession(guideID string) *Session {
	return &Session{
		GuideID: guideID,
		Answers: make(Answers),
	}
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Answers = s.Answers.Clone()
	return &cp
}

// Normalize adapts a persisted session to a freshly loaded guide.
// It returns false when the session cannot be resumed (step index out of bounds).
// Otherwise unknown answers are dropped and values are coerced to their kind;
// values that cannot be coerced are dropped as well.
func (s *Session) Normalize(g *Guide) bool {
	if s == nil || s.CurrentStep < 0 || s.CurrentStep >= len(g.Steps) {
		return false
	}

	clean := make(Answers, len(s.Answers))
	for name, raw := range s.Answers {
		f, ok := g.Field(name)
		if !ok {
			continue
		}
		v, err := Coerce(f, raw)
		if err != nil || v == nil {
			continue
		}
		clean[name] = v
	}
	s.Answers = clean

	if s.HighestStep < s.CurrentStep {
		s.HighestStep = s.CurrentStep
	}
	if s.HighestStep > g.LastStep() {
		s.HighestStep = g.LastStep()
	}
	return true
}
