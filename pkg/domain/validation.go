package domain

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Validation error codes.
const (
	CodeRequired      = "required"
	CodeInvalidEmail  = "invalid_email"
	CodeInvalidPhone  = "invalid_phone"
	CodeInvalidOption = "invalid_option"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Tunisian numbers: optional +216 prefix, 8 digits, first digit 2-9.
	phonePattern = regexp.MustCompile(`^(\+216)?[2-9]\d{7}$`)
)

// ValidationErrors maps field names to error codes.
type ValidationErrors map[string]string

// Clone returns a copy of e.
func (e ValidationErrors) Clone() ValidationErrors {
	out := make(ValidationErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ValidateField returns the error code for a single value, or "" when valid.
// Format rules apply only to present values.
func ValidateField(f Field, v any) string {
	if IsEmpty(v) {
		if f.Required {
			return CodeRequired
		}
		return ""
	}

	s, isString := v.(string)
	if !isString {
		return ""
	}

	switch f.Kind {
	case KindEmail:
		if !emailPattern.MatchString(s) {
			return CodeInvalidEmail
		}
	case KindPhone:
		if !phonePattern.MatchString(stripSpace(s)) {
			return CodeInvalidPhone
		}
	case KindSingleSelect:
		if len(f.Options) > 0 && !slices.Contains(f.Options, s) {
			return CodeInvalidOption
		}
	}
	return ""
}

// ValidateStep checks exactly the fields of step against answers.
// It is pure: the same inputs always produce the same result.
func ValidateStep(step Step, answers Answers) ValidationErrors {
	errs := make(ValidationErrors)
	for _, f := range step.Fields {
		if code := ValidateField(f, answers[f.Name]); code != "" {
			errs[f.Name] = code
		}
	}
	return errs
}

// FirstInvalidStep validates every step in order and returns the first failing
// index with its errors, or -1 when the whole guide is complete.
func FirstInvalidStep(g *Guide, answers Answers) (int, ValidationErrors) {
	for i, step := range g.Steps {
		if errs := ValidateStep(step, answers); len(errs) > 0 {
			return i, errs
		}
	}
	return -1, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
