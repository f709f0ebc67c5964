package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/wizard/internal/logging"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/observability"
	"golang.org/x/time/rate"
)

// Writer persists snapshots of one session in the background.
//
// Only the latest scheduled snapshot is written; intermediate ones are
// dropped. A single worker performs writes, so an older snapshot never lands
// after a newer one. After the first failed write the writer is degraded and
// skips further writes; the wizard keeps working in memory.
type Writer struct {
	mgr     *Manager
	key     string
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.Mutex
	pending  *domain.Session
	running  bool
	done     chan struct{} // closed when the current worker exits
	kick     chan struct{} // skips the throttle delay
	degraded bool
	closed   bool
	lastErr  error
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithInterval throttles writes to at most one per interval.
// Zero disables throttling.
func WithInterval(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithWriterLogger sets the logger used to report degraded persistence.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWriterMetrics records store failures.
func WithWriterMetrics(m *observability.Metrics) WriterOption {
	return func(w *Writer) {
		w.metrics = m
	}
}

// NewWriter creates a writer for the session stored under key.
func NewWriter(mgr *Manager, key string, opts ...WriterOption) *Writer {
	w := &Writer{
		mgr:     mgr,
		key:     key,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Key returns the store key this writer persists to.
func (w *Writer) Key() string {
	return w.key
}

// Schedule queues snapshot for writing and returns immediately.
// The writer takes ownership of snapshot.
func (w *Writer) Schedule(snapshot *domain.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.degraded || w.closed {
		return
	}
	w.pending = snapshot
	if !w.running {
		w.running = true
		w.done = make(chan struct{})
		w.kick = make(chan struct{}, 1)
		go w.run(w.done, w.kick)
	}
}

func (w *Writer) run(done chan struct{}, kick chan struct{}) {
	defer close(done)

	for {
		w.mu.Lock()
		if w.pending == nil {
			w.running = false
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		r := w.limiter.Reserve()
		if delay := r.Delay(); delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-kick:
				t.Stop()
			}
		}

		w.mu.Lock()
		snap := w.pending
		w.pending = nil
		if snap == nil {
			w.running = false
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		snap.LastSavedAt = w.now().UTC()
		err := w.mgr.Save(context.Background(), w.key, snap)
		if err != nil {
			w.fail("save", err)
		}
	}
}

func (w *Writer) fail(op string, err error) {
	w.metrics.StoreError(op)

	w.mu.Lock()
	first := !w.degraded
	w.degraded = true
	w.lastErr = err
	w.pending = nil
	w.mu.Unlock()

	if first {
		w.logger.Warn("Session persistence unavailable, continuing in memory",
			"session_key", w.key,
			"op", op,
			"err", err,
		)
	}
}

// MarkDegraded switches the writer to in-memory mode without attempting a write.
// Used when the initial load already failed.
func (w *Writer) MarkDegraded(err error) {
	w.fail("load", err)
}

// wait blocks until the current worker, if any, exits.
func (w *Writer) wait(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	done, kick := w.done, w.kick
	w.mu.Unlock()

	select {
	case kick <- struct{}{}:
	default:
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits until every scheduled snapshot has been written or dropped.
// It returns the persistence error if the writer is degraded.
func (w *Writer) Flush(ctx context.Context) error {
	if err := w.wait(ctx); err != nil {
		return err
	}
	return w.Err()
}

// Close stops accepting snapshots and waits for those already scheduled.
// Once it returns the writer no longer touches the store.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.wait(ctx)
}

// Clear drops pending writes, waits for the in-flight one and deletes the stored session.
func (w *Writer) Clear(ctx context.Context) error {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()

	if err := w.wait(ctx); err != nil {
		return err
	}
	if err := w.mgr.Delete(ctx, w.key); err != nil {
		w.metrics.StoreError("delete")
		return err
	}
	return nil
}

// Degraded reports whether persistence has been given up.
func (w *Writer) Degraded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.degraded
}

// Err returns the failure that degraded the writer, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
