package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/wizard"
	"github.com/aretw0/wizard/internal/logging"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/observability"
	"github.com/aretw0/wizard/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// ProfileHeader selects the profile a request acts for.
	ProfileHeader = "X-Profile-ID"
	// ProfileCookie carries the profile when the header is absent.
	ProfileCookie = "wizard_profile"

	// DefaultMaxSessions bounds the number of wizards kept in memory.
	DefaultMaxSessions = 1024

	flushTimeout = 5 * time.Second
)

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type profileKey struct{}

func profileFrom(ctx context.Context) string {
	p, _ := ctx.Value(profileKey{}).(string)
	return p
}

// Server exposes wizards over HTTP. One wizard is kept per (profile, guide).
type Server struct {
	engine      *wizard.Engine
	uploader    ports.FileUploader
	logger      *slog.Logger
	metrics     *observability.Metrics
	gatherer    prometheus.Gatherer
	streams     *StreamManager
	maxSessions int
	now         func() time.Time

	mu      sync.Mutex
	wizards map[string]*cachedWizard
}

type cachedWizard struct {
	wiz  *wizard.Wizard
	used time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithUploader sets the service that stores uploaded documents.
func WithUploader(u ports.FileUploader) ServerOption {
	return func(s *Server) {
		s.uploader = u
	}
}

// WithServerLogger sets the request logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServerMetrics records upload outcomes.
func WithServerMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithGatherer exposes the registry on GET /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxSessions bounds the in-memory wizard cache. The least recently used
// wizard is flushed and dropped when the bound is exceeded.
func WithMaxSessions(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// NewServer creates the wizard API over engine.
func NewServer(engine *wizard.Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:      engine,
		logger:      logging.NewNop(),
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		wizards:     make(map[string]*cachedWizard),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if router, err := specRouter(); err != nil {
		s.logger.Error("OpenAPI document unavailable, requests are not validated", "err", err)
	} else {
		r.Use(s.validateRequests(router))
	}

	r.Get("/openapi.yaml", getOpenAPI)
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/guides", func(r chi.Router) {
		r.Get("/", s.listGuides)
		r.Route("/{guideID}", func(r chi.Router) {
			r.Get("/", s.getGuide)

			r.Group(func(r chi.Router) {
				r.Use(s.withProfile)
				r.Get("/session", s.getSession)
				r.Delete("/session", s.resetSession)
				r.Get("/events", s.subscribeEvents)
				r.Patch("/answers", s.patchAnswers)
				r.Put("/answers/{field}", s.putAnswer)
				r.Delete("/answers/{field}", s.deleteAnswer)
				r.Post("/upload/{field}", s.uploadFile)
				r.Post("/next", s.next)
				r.Post("/previous", s.previous)
				r.Post("/jump/{index}", s.jump)
				r.Get("/steps/{index}/validation", s.validateStep)
				r.Post("/submit", s.submit)
			})
		})
	})

	return enableCORS(r)
}

// Close flushes and closes every cached wizard.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	cached := make([]*wizard.Wizard, 0, len(s.wizards))
	for _, e := range s.wizards {
		cached = append(cached, e.wiz)
	}
	clear(s.wizards)
	s.mu.Unlock()

	var errs []error
	for _, w := range cached {
		if err := w.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+ProfileHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withProfile resolves the profile from the header or the cookie, issuing a
// new cookie when neither is present.
func (s *Server) withProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile := strings.TrimSpace(r.Header.Get(ProfileHeader))
		if profile == "" {
			if c, err := r.Cookie(ProfileCookie); err == nil {
				profile = c.Value
			}
		}
		if profile == "" {
			profile = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ProfileCookie,
				Value:    profile,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		if !profilePattern.MatchString(profile) {
			s.writeError(w, r, http.StatusBadRequest, errors.New("invalid profile id"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, profile)))
	})
}

func (s *Server) sessionKey(r *http.Request) string {
	return domain.SessionKey(profileFrom(r.Context()), chi.URLParam(r, "guideID"))
}

// wizardFor returns the cached wizard for the request, loading it on first use.
func (s *Server) wizardFor(r *http.Request) (*wizard.Wizard, error) {
	key := s.sessionKey(r)

	s.mu.Lock()
	if e, ok := s.wizards[key]; ok {
		e.used = s.now()
		s.mu.Unlock()
		return e.wiz, nil
	}
	s.mu.Unlock()

	w, err := s.engine.Load(r.Context(), chi.URLParam(r, "guideID"), wizard.WithProfile(profileFrom(r.Context())))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if e, ok := s.wizards[key]; ok {
		e.used = s.now()
		s.mu.Unlock()
		return e.wiz, nil
	}
	s.wizards[key] = &cachedWizard{wiz: w, used: s.now()}
	victims := s.evictLocked(key)
	s.mu.Unlock()

	for k, v := range victims {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := v.Close(ctx); err != nil {
			s.logger.Warn("Evicted wizard did not flush", "session_key", k, "err", err)
		}
		cancel()
	}
	return w, nil
}

// evictLocked drops least recently used wizards above the bound and returns
// them so the caller can close them once s.mu is released.
func (s *Server) evictLocked(keep string) map[string]*wizard.Wizard {
	var victims map[string]*wizard.Wizard
	for len(s.wizards) > s.maxSessions {
		var oldest string
		var at time.Time
		for k, e := range s.wizards {
			if k == keep {
				continue
			}
			if oldest == "" || e.used.Before(at) {
				oldest, at = k, e.used
			}
		}
		if victims == nil {
			victims = make(map[string]*wizard.Wizard)
		}
		victims[oldest] = s.wizards[oldest].wiz
		delete(s.wizards, oldest)
	}
	return victims
}

// forget drops the cached wizard for key if it is still wiz.
func (s *Server) forget(key string, wiz *wizard.Wizard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.wizards[key]; ok && e.wiz == wiz {
		delete(s.wizards, key)
	}
}

func (s *Server) cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wizards)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "wizard-http",
		"version": strings.TrimSpace(wizard.Version),
	})
}

func (s *Server) listGuides(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.engine.Directory().(ports.GuideLister)
	if !ok {
		s.writeError(w, r, http.StatusNotImplemented, errors.New("guide directory cannot list guides"))
		return
	}
	ids, err := lister.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, map[string][]string{"guides": ids})
}

func (s *Server) getGuide(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Directory().Fetch(r.Context(), chi.URLParam(r, "guideID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(wiz))
}

// resetSession drops the wizard and its saved progress.
func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	key := s.sessionKey(r)

	s.mu.Lock()
	e, ok := s.wizards[key]
	delete(s.wizards, key)
	s.mu.Unlock()

	if ok {
		if err := e.wiz.Close(r.Context()); err != nil {
			s.logger.Warn("Flush before reset failed", "session_key", key, "err", err)
		}
	}
	if err := s.engine.Sessions().Delete(r.Context(), key); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("Session reset", "session_key", key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	initial, _ := json.Marshal(newSessionView(wiz))
	s.streams.serve(w, r, s.sessionKey(r), string(initial))
}

type answerRequest struct {
	Value any `json:"value"`
}

func (s *Server) putAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	s.setAnswer(w, r, chi.URLParam(r, "field"), body.Value)
}

func (s *Server) deleteAnswer(w http.ResponseWriter, r *http.Request) {
	s.setAnswer(w, r, chi.URLParam(r, "field"), nil)
}

func (s *Server) setAnswer(w http.ResponseWriter, r *http.Request, field string, value any) {
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	value, err = sanitizeAnswer(value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := wiz.SetAnswer(field, value); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, wiz)
}

type navigationResponse struct {
	Moved   bool        `json:"moved"`
	Session sessionView `json:"session"`
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*wizard.Wizard).Next)
}

func (s *Server) previous(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*wizard.Wizard).Previous)
}

func (s *Server) jump(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("step index must be an integer"))
		return
	}
	s.navigate(w, r, func(wiz *wizard.Wizard) bool { return wiz.JumpTo(index) })
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, move func(*wizard.Wizard) bool) {
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	moved := move(wiz)
	view := newSessionView(wiz)
	s.broadcast(r, view)
	writeJSON(w, http.StatusOK, navigationResponse{Moved: moved, Session: view})
}

type validationResponse struct {
	Step   int                     `json:"step"`
	Valid  bool                    `json:"valid"`
	Errors domain.ValidationErrors `json:"errors"`
}

func (s *Server) validateStep(w http.ResponseWriter, r *http.Request) {
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(wiz.Guide().Steps) {
		s.writeError(w, r, http.StatusNotFound, errors.New("no such step"))
		return
	}
	errs := wiz.ValidateStep(index)
	writeJSON(w, http.StatusOK, validationResponse{Step: index, Valid: len(errs) == 0, Errors: errs})
}

type submitResponse struct {
	TrackingID string                  `json:"tracking_id,omitempty"`
	FailedStep *int                    `json:"failed_step,omitempty"`
	Errors     domain.ValidationErrors `json:"errors,omitempty"`
	Session    sessionView             `json:"session"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	wiz, err := s.wizardFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := wiz.Submit(r.Context())
	if err != nil {
		s.broadcast(r, newSessionView(wiz))
		s.fail(w, r, err)
		return
	}

	view := newSessionView(wiz)
	s.broadcast(r, view)
	if !res.Submitted() {
		step := res.FailedStep
		writeJSON(w, http.StatusUnprocessableEntity, submitResponse{FailedStep: &step, Errors: res.Errors, Session: view})
		return
	}
	// The next request for this profile and guide starts a fresh session.
	s.forget(s.sessionKey(r), wiz)
	s.logger.Info("Application submitted", "session_key", s.sessionKey(r), "tracking_id", res.TrackingID)
	writeJSON(w, http.StatusOK, submitResponse{TrackingID: res.TrackingID, Session: view})
}

// respond writes the session view and pushes it to SSE subscribers.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) {
	view := newSessionView(wiz)
	s.broadcast(r, view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) broadcast(r *http.Request, view sessionView) {
	key := s.sessionKey(r)
	if s.streams.Subscribers(key) == 0 {
		return
	}
	if data, err := json.Marshal(view); err == nil {
		s.streams.Broadcast(key, string(data))
	}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var uerr *domain.UploadError
	switch {
	case errors.Is(err, domain.ErrGuideNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUploadTypeNotAllowed):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrUnknownField), errors.Is(err, domain.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotOnLastStep),
		errors.Is(err, domain.ErrSessionSubmitted),
		errors.Is(err, domain.ErrSubmissionInProgress),
		errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway
	case errors.As(err, &uerr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, statusFor(err), err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	attrs := []any{"method", r.Method, "path", r.URL.Path, "status", status, "err", err}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", attrs...)
	} else {
		s.logger.Debug("Request rejected", attrs...)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
