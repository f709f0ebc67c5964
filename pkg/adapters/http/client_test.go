package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backendGuide = `{
	"id": 12,
	"title": "Micro-crédit BTS",
	"description": "Financement de petits projets",
	"service_type": "microfinance",
	"created_at": "2024-03-01T10:00:00Z",
	"steps": [
		{"title": "Identité", "fields": [
			{"name": "full_name", "type": "text", "label": "Nom complet", "required": true},
			{"name": "phone", "type": "tel", "label": "Téléphone"},
			{"name": "sector", "type": "select", "label": "Secteur", "options": ["agriculture", "commerce"]}
		]},
		{"title": "Pièces", "fields": [
			{"name": "cin_scan", "type": "file", "label": "CIN", "required": true, "accept": ".pdf,.jpg"},
			{"name": "consent", "type": "checkbox", "label": "J'accepte"}
		]}
	]
}`

type fakeBackend struct {
	guideHits   atomic.Int32
	failGuide   atomic.Int32
	submitHits  atomic.Int32
	lastSubmit  atomic.Value
	lastDocType atomic.Value
}

func (b *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/api/guides/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.guideHits.Add(1)
		if b.failGuide.Load() > 0 {
			b.failGuide.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch chi.URLParam(r, "id") {
		case "12":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, backendGuide)
		case "broken":
			_, _ = io.WriteString(w, `{"id":"broken","steps":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Guide not found"}`)
		}
	})

	r.Post("/api/upload/document", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"no file"}`)
			return
		}
		defer file.Close()
		b.lastDocType.Store(r.FormValue("document_type"))

		if strings.HasSuffix(header.Filename, ".exe") {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = io.WriteString(w, `{"error":"File type not allowed"}`)
			return
		}
		if strings.HasSuffix(header.Filename, ".crash") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"disk full"}`)
			return
		}
		data, _ := io.ReadAll(file)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "File uploaded successfully",
			"file": map[string]any{
				"file_url":          "/uploads/" + header.Filename,
				"original_filename": header.Filename,
				"file_size":         len(data),
			},
		})
	})

	r.Post("/api/applications/submit", func(w http.ResponseWriter, r *http.Request) {
		b.submitHits.Add(1)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.lastSubmit.Store(body)
		if body["service_type"] == "closed" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Service closed"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"application": map[string]any{"tracking_id": "APP-2024-0001", "status": "pending"},
		})
	})
	return r
}

func newBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	b := &fakeBackend{}
	srv := httptest.NewServer(b.router())
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/api", WithToken("secret"), WithRetry(2, time.Millisecond, 5*time.Millisecond))
	return b, c
}

func TestClient_Fetch(t *testing.T) {
	_, c := newBackend(t)

	g, err := c.Fetch(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, "12", g.ID)
	assert.Equal(t, "microfinance", g.ServiceType)
	require.Len(t, g.Steps, 2)

	phone, ok := g.Field("phone")
	require.True(t, ok)
	assert.Equal(t, domain.KindPhone, phone.Kind)

	sector, _ := g.Field("sector")
	assert.Equal(t, domain.KindSingleSelect, sector.Kind)
	assert.Equal(t, []string{"agriculture", "commerce"}, sector.Options)

	scan, _ := g.Field("cin_scan")
	assert.Equal(t, domain.KindFile, scan.Kind)
	assert.Equal(t, []string{"pdf", "jpg"}, scan.AcceptedExtensions())

	consent, _ := g.Field("consent")
	assert.Equal(t, domain.KindBoolean, consent.Kind)
}

func TestClient_FetchErrors(t *testing.T) {
	b, c := newBackend(t)
	ctx := context.Background()

	_, err := c.Fetch(ctx, "99")
	assert.ErrorIs(t, err, domain.ErrGuideNotFound)

	_, err = c.Fetch(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrInvalidGuide)

	unauthorized := NewClient(c.baseURL)
	_, err = unauthorized.Fetch(ctx, "12")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusUnauthorized, remote.Status)
	assert.Equal(t, "unauthorized", remote.Message)

	b.guideHits.Store(0)
	b.failGuide.Store(1)
	_, err = c.Fetch(ctx, "12")
	require.NoError(t, err, "a transient failure is retried")
	assert.Equal(t, int32(2), b.guideHits.Load())
}

func TestClient_Upload(t *testing.T) {
	b, c := newBackend(t)
	ctx := context.Background()

	ref, err := c.Upload(ctx, domain.Upload{
		FieldName: "cin_scan",
		Filename:  "cin.pdf",
		Size:      4,
		Content:   strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, &domain.FileReference{StorageHandle: "/uploads/cin.pdf", OriginalName: "cin.pdf", SizeBytes: 4}, ref)
	assert.Equal(t, "cin_scan", b.lastDocType.Load())

	_, err = c.Upload(ctx, domain.Upload{FieldName: "cin_scan", Filename: "cin.exe", Content: strings.NewReader("MZ")})
	assert.ErrorIs(t, err, domain.ErrUploadTypeNotAllowed)

	_, err = c.Upload(ctx, domain.Upload{FieldName: "cin_scan", Filename: "cin.crash", Content: strings.NewReader("x")})
	var uerr *domain.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, domain.UploadFailed, uerr.Reason)
	assert.Contains(t, err.Error(), "disk full")

	big := strings.NewReader(strings.Repeat("x", int(domain.MaxUploadBytes)+1))
	_, err = c.Upload(ctx, domain.Upload{FieldName: "cin_scan", Filename: "big.pdf", Content: big})
	assert.ErrorIs(t, err, domain.ErrUploadTooLarge)
}

func TestClient_Submit(t *testing.T) {
	b, c := newBackend(t)
	ctx := context.Background()

	sub := domain.Submission{
		GuideID:     "12",
		ServiceType: "microfinance",
		Answers: domain.Answers{
			"full_name": "Ali",
			"consent":   true,
			"cin_scan":  &domain.FileReference{StorageHandle: "/uploads/cin.pdf", OriginalName: "cin.pdf", SizeBytes: 4},
		},
		FileReferences: []domain.FileReference{{StorageHandle: "/uploads/cin.pdf", OriginalName: "cin.pdf", SizeBytes: 4}},
	}

	id, err := c.Submit(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, "APP-2024-0001", id)

	body, ok := b.lastSubmit.Load().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12", body["guide_id"])
	assert.Equal(t, "microfinance", body["service_type"])
	form := body["form_data"].(map[string]any)
	assert.Equal(t, "Ali", form["full_name"])
	assert.Equal(t, true, form["consent"])
	assert.Equal(t, "/uploads/cin.pdf", form["cin_scan"].(map[string]any)["file_url"])
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "cin.pdf", docs[0].(map[string]any)["original_filename"])

	sub.ServiceType = "closed"
	_, err = c.Submit(ctx, sub)
	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "Service closed")
	assert.Equal(t, int32(2), b.submitHits.Load(), "submissions are never retried automatically")
}
