package ports

import (
	"context"

	"github.com/aretw0/wizard/pkg/domain"
)

// FileUploader stores files on behalf of file fields.
// Failures are reported as *domain.UploadError.
type FileUploader interface {
	Upload(ctx context.Context, upload domain.Upload) (*domain.FileReference, error)
}

// ApplicationSubmitter hands a completed application to the backend.
type ApplicationSubmitter interface {
	// Submit returns the tracking identifier assigned by the backend.
	Submit(ctx context.Context, submission domain.Submission) (string, error)
}
