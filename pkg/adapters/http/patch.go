package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"

	"github.com/aretw0/wizard/pkg/domain"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

const (
	contentTypeJSONPatch  = "application/json-patch+json"
	contentTypeMergePatch = "application/merge-patch+json"

	maxPatchBytes = 1 << 20
)

// patchAnswers applies an RFC 6902 JSON Patch (or an RFC 7386 merge patch when
// sent as application/merge-patch+json) to the answer set. The patch is
// checked against the guide before any answer changes, so it applies whole or
// not at all.
func (s *Server) patchAnswers(w http.ResponseWriter, r *http.Request) {
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	patchJSON, err := io.ReadAll(io.LimitReader(r.Body, maxPatchBytes))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	current := wiz.Snapshot().Answers
	currentJSON, err := json.Marshal(current)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	modified, err := applyPatch(r.Header.Get("Content-Type"), currentJSON, patchJSON)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, jsonpatch.ErrTestFailed) {
			status = http.StatusConflict
		}
		s.writeError(w, r, status, err)
		return
	}

	var next map[string]any
	dec := json.NewDecoder(bytes.NewReader(modified))
	dec.UseNumber()
	if err := dec.Decode(&next); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("patch must leave an object of answers: %w", err))
		return
	}

	updates, err := answerUpdates(wiz.Guide(), current, next)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for _, u := range updates {
		if err := wiz.SetAnswer(u.name, u.value); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.respond(w, r, wiz)
}

func applyPatch(contentType string, doc, patchJSON []byte) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == contentTypeMergePatch {
		out, err := jsonpatch.MergePatch(doc, patchJSON)
		if err != nil {
			return nil, fmt.Errorf("merge patch: %w", err)
		}
		return out, nil
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	out, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	return out, nil
}

type answerUpdate struct {
	name  string
	value any
}

// answerUpdates diffs the patched answer set against the current one. Every
// new value is coerced up front; removed names become nil updates.
func answerUpdates(g *domain.Guide, current domain.Answers, next map[string]any) ([]answerUpdate, error) {
	var updates []answerUpdate
	for name, raw := range next {
		f, ok := g.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
		}
		clean, err := sanitizeAnswer(raw)
		if err != nil {
			return nil, err
		}
		v, err := domain.Coerce(f, clean)
		if err != nil {
			return nil, err
		}
		if domain.SameValue(current[name], v) {
			continue
		}
		updates = append(updates, answerUpdate{name: name, value: v})
	}
	for name := range current {
		if _, ok := next[name]; !ok {
			updates = append(updates, answerUpdate{name: name})
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].name < updates[j].name })
	return updates, nil
}
