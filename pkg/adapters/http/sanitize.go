package http

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/wizard/pkg/domain"
)

// maxAnswerBytes bounds a single text answer received over HTTP.
const maxAnswerBytes = 16 << 10

// sanitizeAnswer cleans text received from clients before it reaches the
// wizard. Oversized or invalid UTF-8 strings are rejected rather than
// truncated. Control characters other than \n, \t and \r are stripped.
func sanitizeAnswer(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return sanitizeText(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			clean, err := sanitizeAnswer(item)
			if err != nil {
				return nil, err
			}
			out[i] = clean
		}
		return out, nil
	}
	return v, nil
}

func sanitizeText(s string) (string, error) {
	if len(s) > maxAnswerBytes {
		return "", fmt.Errorf("%w: text of %d bytes exceeds %d", domain.ErrInvalidValue, len(s), maxAnswerBytes)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", domain.ErrInvalidValue)
	}

	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
