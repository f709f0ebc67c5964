package loam

import "github.com/aretw0/wizard/pkg/schema"

// GuideMetadata is the frontmatter of a guide document.
// The markdown body, when present, becomes the guide description.
type GuideMetadata = schema.GuideDocument
