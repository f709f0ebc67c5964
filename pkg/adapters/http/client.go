package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/wizard/internal/logging"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/ports"
	"github.com/aretw0/wizard/pkg/schema"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/mitchellh/mapstructure"
)

const maxGuideBytes = 1 << 20

var (
	_ ports.GuideDirectory       = (*Client)(nil)
	_ ports.FileUploader         = (*Client)(nil)
	_ ports.ApplicationSubmitter = (*Client)(nil)
)

// Client talks to the guide backend: guide definitions, document uploads and
// application submission. GETs are retried; POSTs are sent once and left to
// the user to retry.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithClientLogger sets the logger used for request and retry logs.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetry configures how many times a GET is retried and the backoff bounds.
func WithRetry(max int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *Client) {
		c.http.RetryMax = max
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

// NewClient creates a backend client. baseURL is the API root, e.g.
// "https://example.org/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	rc.Logger = c.logger
	return c
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	h.Set("Accept", "application/json")
}

// Fetch retrieves a guide definition. The backend field type names
// (tel, textarea, select, checkbox) are accepted.
func (c *Client) Fetch(ctx context.Context, guideID string) (*domain.Guide, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("guides", guideID), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch guide %q: %w", guideID, err)
	}
	c.authorize(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch guide %q: %w", guideID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrGuideNotFound, guideID)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch guide %q: %w", guideID, remoteError(resp))
	}

	var raw map[string]any
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxGuideBytes))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("fetch guide %q: decode: %w", guideID, err)
	}
	if inner, ok := raw["guide"].(map[string]any); ok {
		raw = inner
	}

	var doc schema.GuideDocument
	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := md.Decode(raw); err != nil {
		return nil, fmt.Errorf("fetch guide %q: %w: %v", guideID, domain.ErrInvalidGuide, err)
	}
	if doc.ID == "" {
		doc.ID = guideID
	}
	return schema.FromDocument(doc)
}

type uploadResponse struct {
	File struct {
		FileURL          string `json:"file_url"`
		OriginalFilename string `json:"original_filename"`
		FileSize         int64  `json:"file_size"`
	} `json:"file"`
}

// Upload sends a document as multipart form data with the field name as
// document_type.
func (c *Client) Upload(ctx context.Context, up domain.Upload) (*domain.FileReference, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("document_type", up.FieldName); err != nil {
		return nil, uploadFailed(up.FieldName, err)
	}
	part, err := mw.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, uploadFailed(up.FieldName, err)
	}
	n, err := io.Copy(part, io.LimitReader(up.Content, domain.MaxUploadBytes+1))
	if err != nil {
		return nil, uploadFailed(up.FieldName, err)
	}
	if n > domain.MaxUploadBytes {
		return nil, &domain.UploadError{Field: up.FieldName, Reason: domain.UploadTooLarge}
	}
	if err := mw.Close(); err != nil {
		return nil, uploadFailed(up.FieldName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload", "document"), &body)
	if err != nil {
		return nil, uploadFailed(up.FieldName, err)
	}
	c.authorize(req.Header)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		return nil, uploadFailed(up.FieldName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, &domain.UploadError{Field: up.FieldName, Reason: domain.UploadTooLarge}
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return nil, &domain.UploadError{Field: up.FieldName, Reason: domain.UploadTypeNotAllowed, Err: remoteError(resp)}
	case resp.StatusCode/100 != 2:
		return nil, uploadFailed(up.FieldName, remoteError(resp))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, uploadFailed(up.FieldName, fmt.Errorf("decode: %w", err))
	}
	if out.File.FileURL == "" {
		return nil, uploadFailed(up.FieldName, errors.New("response carries no file_url"))
	}

	c.logger.Debug("Document uploaded", "field", up.FieldName, "size", out.File.FileSize)
	name := out.File.OriginalFilename
	if name == "" {
		name = up.Filename
	}
	size := out.File.FileSize
	if size == 0 {
		size = n
	}
	return &domain.FileReference{
		StorageHandle: out.File.FileURL,
		OriginalName:  name,
		SizeBytes:     size,
	}, nil
}

func uploadFailed(field string, err error) error {
	return &domain.UploadError{Field: field, Reason: domain.UploadFailed, Err: err}
}

type backendFile struct {
	FileURL          string `json:"file_url"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
}

type applicationRequest struct {
	GuideID     string         `json:"guide_id"`
	ServiceType string         `json:"service_type"`
	FormData    map[string]any `json:"form_data"`
	Documents   []backendFile  `json:"documents"`
}

type applicationResponse struct {
	Application struct {
		TrackingID string `json:"tracking_id"`
	} `json:"application"`
}

func toBackendFile(ref domain.FileReference) backendFile {
	return backendFile{
		FileURL:          ref.StorageHandle,
		OriginalFilename: ref.OriginalName,
		FileSize:         ref.SizeBytes,
	}
}

// Submit posts a completed application and returns its tracking id.
func (c *Client) Submit(ctx context.Context, sub domain.Submission) (string, error) {
	payload := applicationRequest{
		GuideID:     sub.GuideID,
		ServiceType: sub.ServiceType,
		FormData:    make(map[string]any, len(sub.Answers)),
		Documents:   make([]backendFile, 0, len(sub.FileReferences)),
	}
	for name, v := range sub.Answers {
		if ref, ok := v.(*domain.FileReference); ok && ref != nil {
			payload.FormData[name] = toBackendFile(*ref)
			continue
		}
		payload.FormData[name] = v
	}
	for _, ref := range sub.FileReferences {
		payload.Documents = append(payload.Documents, toBackendFile(ref))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode: %v", domain.ErrSubmissionFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("applications", "submit"), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	c.authorize(req.Header)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, remoteError(resp))
	}

	var out applicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrSubmissionFailed, err)
	}
	if out.Application.TrackingID == "" {
		return "", fmt.Errorf("%w: response carries no tracking id", domain.ErrSubmissionFailed)
	}
	return out.Application.TrackingID, nil
}

// RemoteError is a non-2xx answer from the backend.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.Status)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// remoteError reads the {"error": "..."} body the backend sends on failure.
func remoteError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil {
		switch {
		case body.Error != "":
			msg = body.Error
		case body.Message != "":
			msg = body.Message
		}
	}
	return &RemoteError{Status: resp.StatusCode, Message: msg}
}
