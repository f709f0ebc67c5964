package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/wizard/pkg/domain"
)

// Directory implements ports.GuideDirectory over an in-memory set of guides.
type Directory struct {
	mu     sync.RWMutex
	guides map[string]*domain.Guide
}

// NewDirectory creates a directory seeded with the given guides.
func NewDirectory(guides ...*domain.Guide) (*Directory, error) {
	d := &Directory{guides: make(map[string]*domain.Guide)}
	for _, g := range guides {
		if err := d.Put(g); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Put adds or replaces a guide after checking its structure.
func (d *Directory) Put(g *domain.Guide) error {
	if err := g.Check(); err != nil {
		return fmt.Errorf("memory directory: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.guides[g.ID] = g
	return nil
}

// Fetch returns the guide with the given ID.
func (d *Directory) Fetch(ctx context.Context, guideID string) (*domain.Guide, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	g, ok := d.guides[guideID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGuideNotFound, guideID)
	}
	cp := *g
	return &cp, nil
}

// List returns all guide IDs in deterministic order.
func (d *Directory) List(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.guides))
	for id := range d.guides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
