package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/wizard/internal/logging"
	"github.com/aretw0/wizard/pkg/adapters/memory"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/observability"
	"github.com/aretw0/wizard/pkg/ports"
	"github.com/aretw0/wizard/pkg/session"
)

// Engine loads guides and hands out wizards over them.
// It is safe for concurrent use; each Wizard it returns owns one session.
type Engine struct {
	directory     ports.GuideDirectory
	store         ports.SessionStore
	submitter     ports.ApplicationSubmitter
	locker        ports.DistributedLocker
	logger        *slog.Logger
	metrics       *observability.Metrics
	writeInterval time.Duration

	sessions *session.Manager
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where progress is persisted (default: in memory).
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithSubmitter sets the application submission service.
func WithSubmitter(s ports.ApplicationSubmitter) Option {
	return func(e *Engine) {
		e.submitter = s
	}
}

// WithLocker serializes session writes across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithWriteInterval throttles persistence writes per session.
func WithWriteInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.writeInterval = d
	}
}

// New creates an engine reading guides from directory.
func New(directory ports.GuideDirectory, opts ...Option) *Engine {
	e := &Engine{directory: directory}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	mgrOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, mgrOpts...)
	return e
}

// Sessions exposes the session manager, for listing and administration.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Directory returns the guide directory the engine reads from.
func (e *Engine) Directory() ports.GuideDirectory {
	return e.directory
}

// LoadOption configures a single Load call.
type LoadOption func(*loadConfig)

type loadConfig struct {
	profile string
}

// WithProfile scopes the persisted session to a user profile.
func WithProfile(profile string) LoadOption {
	return func(c *loadConfig) {
		c.profile = profile
	}
}

// Load fetches the guide and resumes saved progress when it is still compatible.
// A failure to read saved progress is not fatal: the wizard starts fresh and
// runs without persistence.
func (e *Engine) Load(ctx context.Context, guideID string, opts ...LoadOption) (*Wizard, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	guide, err := e.directory.Fetch(ctx, guideID)
	if err != nil {
		if errors.Is(err, domain.ErrGuideNotFound) || errors.Is(err, domain.ErrInvalidGuide) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch guide %s: %w", guideID, err)
	}
	if err := guide.Check(); err != nil {
		return nil, err
	}

	key := domain.SessionKey(cfg.profile, guide.ID)
	logger := e.logger.With("guide_id", guide.ID, "session_key", key)
	writer := session.NewWriter(e.sessions, key,
		session.WithInterval(e.writeInterval),
		session.WithWriterLogger(logger),
		session.WithWriterMetrics(e.metrics),
	)

	sess, resumed := e.restore(ctx, guide, key, writer, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.metrics.Load(guide.ID, resumed)
	logger.Info("Wizard loaded", "resumed", resumed, "step", sess.CurrentStep)

	return &Wizard{
		guide:     guide,
		session:   sess,
		errors:    domain.ValidationErrors{},
		phase:     domain.PhaseActive,
		writer:    writer,
		submitter: e.submitter,
		logger:    logger,
		metrics:   e.metrics,
	}, nil
}

func (e *Engine) restore(ctx context.Context, guide *domain.Guide, key string, writer *session.Writer, logger *slog.Logger) (*domain.Session, bool) {
	saved, err := e.sessions.Load(ctx, key)
	switch {
	case err == nil:
		if saved.Normalize(guide) {
			saved.GuideID = guide.ID
			return saved, true
		}
		logger.Debug("Discarding incompatible saved progress", "step", saved.CurrentStep)
	case errors.Is(err, domain.ErrSessionNotFound):
	default:
		writer.MarkDegraded(err)
	}
	return domain.NewSession(guide.ID), false
}
