package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed guide.schema.json
var guideSchemaJSON []byte

const guideSchemaURL = "https://wizard.schemas.local/guide.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(guideSchemaURL, bytes.NewReader(guideSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load guide schema: %w", err)
	}
	return c.Compile(guideSchemaURL)
})

// ParseGuide decodes a YAML or JSON guide document and validates it.
func ParseGuide(data []byte) (*domain.Guide, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGuide, err)
	}
	if err := ValidateDocument(raw); err != nil {
		return nil, err
	}

	var doc GuideDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGuide, err)
	}
	return FromDocument(doc)
}

// FromDocument builds a guide from an already decoded document and validates it.
func FromDocument(doc GuideDocument) (*domain.Guide, error) {
	g, err := doc.Build()
	if err != nil {
		return nil, err
	}
	if err := ValidateGuide(g); err != nil {
		return nil, err
	}
	return g, nil
}

// ValidateDocument checks a generic decoded document against the guide JSON Schema.
func ValidateDocument(raw any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(raw); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return aggregate(flatten(verr, nil))
		}
		return &AggregateError{Errors: []error{&ValidationError{Key: "$", Reason: err.Error()}}}
	}
	return nil
}

// flatten keeps only the leaf causes, which carry the useful messages.
func flatten(verr *jsonschema.ValidationError, acc []error) []error {
	if len(verr.Causes) == 0 {
		return append(acc, &ValidationError{Key: pointerToPath(verr.InstanceLocation), Reason: verr.Message})
	}
	for _, c := range verr.Causes {
		acc = flatten(c, acc)
	}
	return acc
}

// pointerToPath turns "/steps/0/fields/1" into "steps[0].fields[1]".
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return "$"
	}
	var b strings.Builder
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if tok != "" && strings.Trim(tok, "0123456789") == "" {
			b.WriteString("[" + tok + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// ValidateGuide runs the semantic checks a guide must pass before a wizard can run it.
// All problems are reported, not just the first.
func ValidateGuide(g *domain.Guide) error {
	if g == nil {
		return &AggregateError{Errors: []error{&ValidationError{Key: "$", Reason: "guide is nil"}}}
	}

	var errs []error
	if strings.TrimSpace(g.ID) == "" {
		errs = append(errs, &ValidationError{Key: "id", Reason: "must not be empty"})
	}
	if len(g.Steps) == 0 {
		errs = append(errs, &ValidationError{Key: "steps", Reason: "guide needs at least one step"})
	}

	seen := make(map[string]string)
	for i, step := range g.Steps {
		for j, f := range step.Fields {
			path := fmt.Sprintf("steps[%d].fields[%d]", i, j)
			if f.Name == "" {
				errs = append(errs, &ValidationError{Key: path + ".name", Reason: "must not be empty"})
			} else if prev, dup := seen[f.Name]; dup {
				errs = append(errs, &ValidationError{Key: path + ".name", Reason: "duplicate of " + prev, Value: f.Name})
			} else {
				seen[f.Name] = path
			}
			if !f.Kind.Valid() {
				errs = append(errs, &ValidationError{Key: path + ".type", Reason: "unknown field type", Value: string(f.Kind)})
			}
			if f.Kind == domain.KindSingleSelect && len(f.Options) == 0 {
				errs = append(errs, &ValidationError{Key: path + ".options", Reason: "single-select needs options"})
			}
		}
	}
	return aggregate(errs)
}
