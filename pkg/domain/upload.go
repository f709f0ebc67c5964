package domain

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
)

// MaxUploadBytes is the largest accepted file (5 MiB).
const MaxUploadBytes int64 = 5 * 1024 * 1024

// DefaultAccept applies to file fields that do not declare an accept set.
var DefaultAccept = []string{"pdf", "jpg", "jpeg", "png"}

// Upload is a file handed to the upload service on behalf of a field.
type Upload struct {
	FieldName   string
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadReason classifies upload failures.
type UploadReason string

const (
	UploadTooLarge       UploadReason = "too_large"
	UploadTypeNotAllowed UploadReason = "type_not_allowed"
	UploadFailed         UploadReason = "failed"
)

// UploadError reports why a file could not be stored. The field stays unset.
type UploadError struct {
	Field  string
	Reason UploadReason
	Err    error
}

func (e *UploadError) Error() string {
	switch e.Reason {
	case UploadTooLarge:
		return fmt.Sprintf("upload for %q: file exceeds %d bytes", e.Field, MaxUploadBytes)
	case UploadTypeNotAllowed:
		return fmt.Sprintf("upload for %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("upload for %q failed: %v", e.Field, e.Err)
}

func (e *UploadError) Unwrap() error {
	switch e.Reason {
	case UploadTooLarge:
		return ErrUploadTooLarge
	case UploadTypeNotAllowed:
		return ErrUploadTypeNotAllowed
	}
	return e.Err
}

// AcceptedExtensions returns the lower-cased extensions (no dot) allowed for f.
func (f Field) AcceptedExtensions() []string {
	if len(f.Accept) == 0 {
		return DefaultAccept
	}
	return NormalizeExtensions(f.Accept)
}

// NormalizeExtensions trims, lower-cases and strips leading dots.
// Comma-separated entries (".pdf,.png") are split.
func NormalizeExtensions(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
			if ext != "" && !slices.Contains(out, ext) {
				out = append(out, ext)
			}
		}
	}
	return out
}

// CheckUpload applies the size and type limits before a file is sent to the upload service.
func CheckUpload(f Field, filename string, size int64) error {
	if f.Kind != KindFile {
		return &UploadError{Field: f.Name, Reason: UploadFailed, Err: fmt.Errorf("%w: %q is not a file field", ErrInvalidValue, f.Name)}
	}
	if size > MaxUploadBytes {
		return &UploadError{Field: f.Name, Reason: UploadTooLarge}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	allowed := f.AcceptedExtensions()
	if !slices.Contains(allowed, ext) {
		return &UploadError{
			Field:  f.Name,
			Reason: UploadTypeNotAllowed,
			Err:    fmt.Errorf("extension %q not in %v", ext, allowed),
		}
	}
	return nil
}
