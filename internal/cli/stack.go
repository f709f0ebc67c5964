// Package cli wires configuration into the adapters and the engine used by the
// wizard commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/wizard"
	"github.com/aretw0/wizard/internal/config"
	"github.com/aretw0/wizard/pkg/adapters/file"
	httpadapter "github.com/aretw0/wizard/pkg/adapters/http"
	loamadapter "github.com/aretw0/wizard/pkg/adapters/loam"
	"github.com/aretw0/wizard/pkg/adapters/memory"
	redisadapter "github.com/aretw0/wizard/pkg/adapters/redis"
	"github.com/aretw0/wizard/pkg/adapters/sqlite"
	"github.com/aretw0/wizard/pkg/observability"
	"github.com/aretw0/wizard/pkg/persistence/middleware"
	"github.com/aretw0/wizard/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stack is the assembled set of adapters behind one engine.
type Stack struct {
	Config    config.Config
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Metrics   *observability.Metrics
	Store     ports.SessionStore
	Locker    ports.DistributedLocker
	Directory ports.GuideDirectory
	Uploader  ports.FileUploader
	Submitter ports.ApplicationSubmitter
	Engine    *wizard.Engine

	closers []func() error
}

// Build opens the store and the guide source described by cfg and creates the engine.
// With a backend URL, guides, uploads and submissions go to the backend. Otherwise
// guides are read from GuidesDir and uploads and submissions stay in memory.
func Build(cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.Metrics = observability.NewMetrics(s.Registry)

	if err := s.openStore(); err != nil {
		return nil, err
	}

	if cfg.BackendURL != "" {
		client := httpadapter.NewClient(cfg.BackendURL,
			httpadapter.WithToken(cfg.Token),
			httpadapter.WithClientLogger(logger.With("component", "backend")),
		)
		s.Directory, s.Uploader, s.Submitter = client, client, client
		logger.Info("Using guide backend", "url", cfg.BackendURL)
	} else {
		if info, err := os.Stat(cfg.GuidesDir); err != nil || !info.IsDir() {
			_ = s.Close()
			return nil, fmt.Errorf("guides directory %q is not readable", cfg.GuidesDir)
		}
		dir, err := loamadapter.Open(cfg.GuidesDir)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open guides %q: %w", cfg.GuidesDir, err)
		}
		s.Directory = dir
		s.Uploader = memory.NewUploader(nil)
		s.Submitter = memory.NewSubmitter()
		logger.Warn("No backend configured; uploads and submissions are kept in memory", "guides_dir", cfg.GuidesDir)
	}

	opts := []wizard.Option{
		wizard.WithStore(s.Store),
		wizard.WithSubmitter(s.Submitter),
		wizard.WithLogger(logger),
		wizard.WithMetrics(s.Metrics),
		wizard.WithWriteInterval(cfg.WriteInterval),
	}
	if s.Locker != nil {
		opts = append(opts, wizard.WithLocker(s.Locker))
	}
	s.Engine = wizard.New(s.Directory, opts...)
	return s, nil
}

// OpenStore opens only the session store, for commands that do not run wizards.
func OpenStore(cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: logger}
	if err := s.openStore(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stack) openStore() error {
	cfg := s.Config
	var store ports.SessionStore

	switch cfg.Store.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverFile:
		store = file.New(cfg.Store.Path)
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		store = db
	case config.DriverRedis:
		rs := redisadapter.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			redisadapter.WithTTL(cfg.Store.TTL))
		s.closers = append(s.closers, rs.Close)
		s.Locker = redisadapter.NewLocker(rs.Client(), redisadapter.DefaultPrefix)
		store = rs
	default:
		return fmt.Errorf("%w: unknown store driver %q", config.ErrInvalid, cfg.Store.Driver)
	}

	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		_ = s.Close()
		return err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = s.Close()
			return err
		}
		store = middleware.Chain(store, enc)
	}

	s.Store = store
	s.Logger.Debug("Session store ready", "driver", cfg.Store.Driver, "encrypted", key != nil)
	return nil
}

// Close releases the store connections.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
