package domain

import (
	"fmt"
	"strings"
)

// FieldKind enumerates the supported input types.
type FieldKind string

const (
	KindText          FieldKind = "text"
	KindEmail         FieldKind = "email"
	KindPhone         FieldKind = "phone"
	KindNumber        FieldKind = "number"
	KindDate          FieldKind = "date"
	KindMultilineText FieldKind = "multiline-text"
	KindSingleSelect  FieldKind = "single-select"
	KindBoolean       FieldKind = "boolean"
	KindFile          FieldKind = "file"
)

// kindAliases maps the names used by the web backend onto field kinds.
var kindAliases = map[string]FieldKind{
	"tel":      KindPhone,
	"textarea": KindMultilineText,
	"select":   KindSingleSelect,
	"checkbox": KindBoolean,
}

// ParseFieldKind resolves a kind name, accepting the backend aliases (tel, textarea, select, checkbox).
func ParseFieldKind(name string) (FieldKind, bool) {
	clean := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := kindAliases[clean]; ok {
		return alias, true
	}
	k := FieldKind(clean)
	return k, k.Valid()
}

// Valid reports whether k is one of the known kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindEmail, KindPhone, KindNumber, KindDate,
		KindMultilineText, KindSingleSelect, KindBoolean, KindFile:
		return true
	}
	return false
}

// IsText reports whether values of this kind are strings.
func (k FieldKind) IsText() bool {
	return k.Valid() && k != KindBoolean && k != KindFile
}

// Field is one input of a step.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Kind        FieldKind `json:"kind" yaml:"kind"`
	Label       string    `json:"label" yaml:"label"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	// Options lists the choices of a single-select field.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// Accept lists the allowed file extensions (without dot) of a file field.
	// Empty means DefaultAccept.
	Accept []string `json:"accept,omitempty" yaml:"accept,omitempty"`
}

// Step is one page of the wizard. A step without fields is purely informational.
type Step struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Guide is a server-defined application process.
// The order of Steps defines the wizard sequence and never changes once loaded.
type Guide struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ServiceType string `json:"service_type" yaml:"service_type"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// LastStep returns the index of the final step.
func (g *Guide) LastStep() int {
	return len(g.Steps) - 1
}

// Field looks up a field declaration by name across all steps.
func (g *Guide) Field(name string) (Field, bool) {
	for _, s := range g.Steps {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return Field{}, false
}

// FileFields returns the file fields in declaration order.
func (g *Guide) FileFields() []Field {
	var out []Field
	for _, s := range g.Steps {
		for _, f := range s.Fields {
			if f.Kind == KindFile {
				out = append(out, f)
			}
		}
	}
	return out
}

// Check verifies the minimal structure needed to drive a wizard.
func (g *Guide) Check() error {
	if g == nil {
		return fmt.Errorf("%w: nil guide", ErrInvalidGuide)
	}
	if g.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidGuide)
	}
	if len(g.Steps) == 0 {
		return fmt.Errorf("%w: guide %s has no steps", ErrInvalidGuide, g.ID)
	}

	seen := make(map[string]bool)
	for i, s := range g.Steps {
		for _, f := range s.Fields {
			if f.Name == "" {
				return fmt.Errorf("%w: step %d has a field without name", ErrInvalidGuide, i)
			}
			if seen[f.Name] {
				return fmt.Errorf("%w: duplicate field %q", ErrInvalidGuide, f.Name)
			}
			if !f.Kind.Valid() {
				return fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidGuide, f.Name, f.Kind)
			}
			seen[f.Name] = true
		}
	}
	return nil
}
