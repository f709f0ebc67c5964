package schema

import (
	"fmt"
	"strings"

	"github.com/aretw0/wizard/pkg/domain"
)

// GuideDocument is the authored form of a guide, before kinds and accept lists are
// normalized. Tags cover YAML, JSON and frontmatter decoding.
type GuideDocument struct {
	ID          string         `json:"id" yaml:"id" mapstructure:"id"`
	Title       string         `json:"title" yaml:"title" mapstructure:"title"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	ServiceType string         `json:"service_type" yaml:"service_type" mapstructure:"service_type"`
	Steps       []StepDocument `json:"steps" yaml:"steps" mapstructure:"steps"`
}

type StepDocument struct {
	Title       string          `json:"title" yaml:"title" mapstructure:"title"`
	Description string          `json:"description" yaml:"description" mapstructure:"description"`
	Fields      []FieldDocument `json:"fields" yaml:"fields" mapstructure:"fields"`
}

type FieldDocument struct {
	Name        string   `json:"name" yaml:"name" mapstructure:"name"`
	Type        string   `json:"type" yaml:"type" mapstructure:"type"`
	Label       string   `json:"label" yaml:"label" mapstructure:"label"`
	Required    bool     `json:"required" yaml:"required" mapstructure:"required"`
	Placeholder string   `json:"placeholder" yaml:"placeholder" mapstructure:"placeholder"`
	Options     []string `json:"options" yaml:"options" mapstructure:"options"`

	// Accept is either a comma separated string (".pdf,.jpg") or a list.
	Accept any `json:"accept,omitempty" yaml:"accept" mapstructure:"accept"`
}

// Build converts the document into a domain guide. Unknown field types are
// reported; structural checks are left to ValidateGuide.
func (d GuideDocument) Build() (*domain.Guide, error) {
	var errs []error
	g := &domain.Guide{
		ID:          strings.TrimSpace(d.ID),
		Title:       d.Title,
		Description: d.Description,
		ServiceType: d.ServiceType,
		Steps:       make([]domain.Step, 0, len(d.Steps)),
	}

	for i, sd := range d.Steps {
		step := domain.Step{
			Title:       sd.Title,
			Description: sd.Description,
			Fields:      make([]domain.Field, 0, len(sd.Fields)),
		}
		for j, fd := range sd.Fields {
			path := fmt.Sprintf("steps[%d].fields[%d]", i, j)
			kind, ok := domain.ParseFieldKind(fd.Type)
			if !ok {
				errs = append(errs, &ValidationError{Key: path + ".type", Reason: "unknown field type", Value: fd.Type})
			}
			accept, err := acceptList(fd.Accept)
			if err != nil {
				errs = append(errs, &ValidationError{Key: path + ".accept", Reason: err.Error(), Value: fd.Accept})
			}
			step.Fields = append(step.Fields, domain.Field{
				Name:        strings.TrimSpace(fd.Name),
				Kind:        kind,
				Label:       fd.Label,
				Required:    fd.Required,
				Placeholder: fd.Placeholder,
				Options:     fd.Options,
				Accept:      accept,
			})
		}
		g.Steps = append(g.Steps, step)
	}

	if err := aggregate(errs); err != nil {
		return nil, err
	}
	return g, nil
}

func acceptList(v any) ([]string, error) {
	switch a := v.(type) {
	case nil:
		return nil, nil
	case string:
		return domain.NormalizeExtensions([]string{a}), nil
	case []string:
		return domain.NormalizeExtensions(a), nil
	case []any:
		parts := make([]string, 0, len(a))
		for _, item := range a {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("accept entries must be strings")
			}
			parts = append(parts, s)
		}
		return domain.NormalizeExtensions(parts), nil
	default:
		return nil, fmt.Errorf("accept must be a string or a list of strings")
	}
}
