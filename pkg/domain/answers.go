package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// FileReference is the handle of a stored upload. It never carries file content.
type FileReference struct {
	StorageHandle string `json:"storage_handle" mapstructure:"storage_handle"`
	OriginalName  string `json:"original_name" mapstructure:"original_name"`
	SizeBytes     int64  `json:"size_bytes" mapstructure:"size_bytes"`
}

// Answers maps field names to values. The value shape depends on the field kind:
// string for text-like kinds, bool for boolean and *FileReference for file.
type Answers map[string]any

// Clone returns a copy that shares no mutable values with a.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		if ref, ok := v.(*FileReference); ok && ref != nil {
			cp := *ref
			out[k] = &cp
			continue
		}
		out[k] = v
	}
	return out
}

// IsEmpty reports whether v counts as "no answer" for the required rule.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case *FileReference:
		return x == nil
	}
	return false
}

// SameValue compares two answer values by content.
func SameValue(a, b any) bool {
	ra, aIsRef := a.(*FileReference)
	rb, bIsRef := b.(*FileReference)
	if aIsRef || bIsRef {
		if !aIsRef || !bIsRef {
			return false
		}
		if ra == nil || rb == nil {
			return ra == rb
		}
		return *ra == *rb
	}
	return a == b
}

// Coerce converts v into the canonical shape for the field kind.
// JSON-shaped input (float64, json.Number, map[string]any) is accepted so that
// values coming from a request body or a persisted snapshot round-trip cleanly.
// A nil result means "no answer".
func Coerce(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch {
	case f.Kind == KindBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q expects a boolean", ErrInvalidValue, f.Name)
			}
			return b, nil
		}
		return nil, fmt.Errorf("%w: field %q expects a boolean, got %T", ErrInvalidValue, f.Name, v)

	case f.Kind == KindFile:
		return coerceFileReference(f, v)

	case f.Kind.IsText():
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		case float64:
			if f.Kind == KindNumber {
				return strconv.FormatFloat(x, 'f', -1, 64), nil
			}
		case int:
			if f.Kind == KindNumber {
				return strconv.Itoa(x), nil
			}
		}
		return nil, fmt.Errorf("%w: field %q expects a string, got %T", ErrInvalidValue, f.Name, v)
	}

	return nil, fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidValue, f.Name, f.Kind)
}

func coerceFileReference(f Field, v any) (any, error) {
	var ref FileReference
	switch x := v.(type) {
	case *FileReference:
		if x == nil {
			return nil, nil
		}
		ref = *x
	case FileReference:
		ref = x
	case map[string]any:
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &ref,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(x); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidValue, f.Name, err)
		}
	default:
		return nil, fmt.Errorf("%w: field %q expects a file reference, got %T", ErrInvalidValue, f.Name, v)
	}

	if ref.StorageHandle == "" {
		return nil, fmt.Errorf("%w: field %q: file reference without storage handle", ErrInvalidValue, f.Name)
	}
	return &ref, nil
}
