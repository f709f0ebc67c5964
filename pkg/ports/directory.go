package ports

import (
	"context"

	"github.com/aretw0/wizard/pkg/domain"
)

// GuideDirectory retrieves guide definitions.
type GuideDirectory interface {
	// Fetch returns the guide with the given ID.
	// Returns domain.ErrGuideNotFound if no such guide exists.
	Fetch(ctx context.Context, guideID string) (*domain.Guide, error)
}

// GuideLister is implemented by directories that can enumerate their guides.
type GuideLister interface {
	List(ctx context.Context) ([]string, error)
}
