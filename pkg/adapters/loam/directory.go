// Package loam serves guides from a directory of Markdown/YAML documents
// managed by a Loam repository.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/schema"
)

// Directory adapts a Loam repository to ports.GuideDirectory.
type Directory struct {
	Repo *loam.TypedRepository[GuideMetadata]
}

// New creates a directory over an existing typed repository.
func New(repo *loam.TypedRepository[GuideMetadata]) *Directory {
	return &Directory{Repo: repo}
}

// Open initializes a read-only Loam repository rooted at path.
func Open(path string) (*Directory, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric types consistent across formats.
	// Read-only because guides are never written by the engine.
	repo, err := loam.Init(absPath,
		loam.WithVersioning(false),
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[GuideMetadata](repo)), nil
}

// Fetch resolves a guide by its document ID or by the id declared in frontmatter.
func (d *Directory) Fetch(ctx context.Context, guideID string) (*domain.Guide, error) {
	if guideID == "" {
		return nil, fmt.Errorf("%w: empty id", domain.ErrGuideNotFound)
	}

	if doc, err := d.Repo.Get(ctx, guideID); err == nil {
		return build(doc.ID, doc.Data, doc.Content)
	}

	// The file name may differ from the declared id.
	docs, err := d.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}
	for _, doc := range docs {
		if guideIDOf(doc.ID, doc.Data) == guideID {
			return build(doc.ID, doc.Data, doc.Content)
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrGuideNotFound, guideID)
}

// List returns the ids of all guides, failing on collisions.
func (d *Directory) List(ctx context.Context) ([]string, error) {
	docs, err := d.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := guideIDOf(doc.ID, doc.Data)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: guide %q is defined in both %q and %q", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func build(docID string, meta GuideMetadata, content string) (*domain.Guide, error) {
	meta.ID = guideIDOf(docID, meta)
	if meta.Description == "" {
		meta.Description = strings.TrimSpace(content)
	}
	g, err := schema.FromDocument(meta)
	if err != nil {
		return nil, fmt.Errorf("guide %s: %w", meta.ID, err)
	}
	return g, nil
}

func guideIDOf(docID string, meta GuideMetadata) string {
	if meta.ID != "" {
		return meta.ID
	}
	return trimExtension(filepath.Base(docID))
}

func trimExtension(id string) string {
	return strings.TrimSuffix(id, filepath.Ext(id))
}
