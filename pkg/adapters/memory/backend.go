package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/google/uuid"
)

// Uploader implements ports.FileUploader by keeping file contents in memory.
// It applies the same limits as the real upload service.
type Uploader struct {
	mu     sync.Mutex
	guides *Directory
	files  map[string][]byte
}

// NewUploader creates an uploader. When guides is non-nil, the accept set of the
// target field is looked up there; otherwise DefaultAccept applies.
func NewUploader(guides *Directory) *Uploader {
	return &Uploader{
		guides: guides,
		files:  make(map[string][]byte),
	}
}

// Upload stores the content and returns a reference with a fresh handle.
func (u *Uploader) Upload(ctx context.Context, up domain.Upload) (*domain.FileReference, error) {
	field := u.lookupField(up.FieldName)
	if err := domain.CheckUpload(field, up.Filename, up.Size); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(up.Content, domain.MaxUploadBytes+1))
	if err != nil {
		return nil, &domain.UploadError{Field: up.FieldName, Reason: domain.UploadFailed, Err: err}
	}
	if n > domain.MaxUploadBytes {
		return nil, &domain.UploadError{Field: up.FieldName, Reason: domain.UploadTooLarge}
	}

	handle := uuid.NewString()
	u.mu.Lock()
	u.files[handle] = buf.Bytes()
	u.mu.Unlock()

	return &domain.FileReference{
		StorageHandle: handle,
		OriginalName:  up.Filename,
		SizeBytes:     n,
	}, nil
}

// Content returns the stored bytes for a handle.
func (u *Uploader) Content(handle string) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	b, ok := u.files[handle]
	return b, ok
}

func (u *Uploader) lookupField(name string) domain.Field {
	if u.guides != nil {
		u.guides.mu.RLock()
		defer u.guides.mu.RUnlock()
		for _, g := range u.guides.guides {
			if f, ok := g.Field(name); ok && f.Kind == domain.KindFile {
				return f
			}
		}
	}
	return domain.Field{Name: name, Kind: domain.KindFile}
}

// Submitter implements ports.ApplicationSubmitter by recording submissions.
// Tracking IDs are sequential: T-001, T-002, ...
type Submitter struct {
	mu          sync.Mutex
	submissions []domain.Submission
}

// NewSubmitter creates an empty submitter.
func NewSubmitter() *Submitter {
	return &Submitter{}
}

// Submit records the submission and returns its tracking ID.
func (s *Submitter) Submit(ctx context.Context, sub domain.Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return fmt.Sprintf("T-%03d", len(s.submissions)), nil
}

// Submissions returns a copy of everything submitted so far.
func (s *Submitter) Submissions() []domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}
