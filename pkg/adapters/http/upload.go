package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead leaves room for boundaries and the other form parts.
const multipartOverhead = 64 << 10

const uploadAccepted = "accepted"

// uploadFile checks the file against the field's limits, hands it to the
// uploader and stores the returned reference as the field's answer. A failed
// upload leaves the field unset.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		s.writeError(w, r, http.StatusNotImplemented, errors.New("uploads are not configured"))
		return
	}
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	name := chi.URLParam(r, "field")
	field, ok := wiz.Guide().Field(name)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", domain.ErrUnknownField, name))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(domain.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.uploadFailed(w, r, &domain.UploadError{Field: name, Reason: domain.UploadTooLarge})
			return
		}
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New(`multipart body has no "file" part`))
		return
	}
	defer file.Close()

	if err := domain.CheckUpload(field, header.Filename, header.Size); err != nil {
		s.uploadFailed(w, r, err)
		return
	}

	ref, err := s.uploader.Upload(r.Context(), domain.Upload{
		FieldName:   name,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}
	s.metrics.Upload(uploadAccepted)

	if err := wiz.SetAnswer(name, ref); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, wiz)
}

func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	reason := domain.UploadFailed
	var uerr *domain.UploadError
	if errors.As(err, &uerr) {
		reason = uerr.Reason
	}
	s.metrics.Upload(string(reason))
	s.fail(w, r, err)
}
