package ports

import (
	"context"

	"github.com/aretw0/wizard/pkg/domain"
)

// SessionStore persists in-progress wizard sessions.
// This is what makes "close the tab and come back later" work.
type SessionStore interface {
	// Save persists the session under key.
	Save(ctx context.Context, key string, session *domain.Session) error

	// Load retrieves the session stored under key.
	// Returns domain.ErrSessionNotFound if nothing is stored.
	Load(ctx context.Context, key string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the stored keys.
	List(ctx context.Context) ([]string, error)
}
