package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/inboxpilot/folderengine/internal/services"
	"github.com/inboxpilot/folderengine/pkg/logger"
)

const (
	defaultSchedule   = "@every 30m"
	defaultRunTimeout = 10 * time.Minute
)

// Reconciler periodically refreshes every tenant's local folder record from
// observed provider state so stale entries are marked without waiting for a
// provisioning run.
type Reconciler struct {
	svc      *services.ReconcileService
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	log      *zap.Logger
	enabled  bool
}

// Option customises the Reconciler.
type Option func(*Reconciler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithSchedule overrides the cron expression for reconciliation passes.
func WithSchedule(spec string) Option {
	return func(r *Reconciler) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// WithRunTimeout bounds how long a single full pass may take.
func WithRunTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewReconciler constructs a Reconciler with sensible defaults. A nil service
// disables the job entirely.
func NewReconciler(svc *services.ReconcileService, opts ...Option) *Reconciler {
	r := &Reconciler{
		svc:      svc,
		schedule: defaultSchedule,
		timeout:  defaultRunTimeout,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.cron == nil {
		r.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	r.enabled = r.svc != nil

	return r
}

// Start registers the reconciliation job with the cron scheduler and launches it.
func (r *Reconciler) Start() error {
	if !r.enabled {
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.svc.ReconcileAll(ctx); err != nil {
			r.log.Warn("scheduled reconciliation reported failures", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running pass to complete.
func (r *Reconciler) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes a single full pass. Primarily used in tests and on demand.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return r.svc.ReconcileAll(ctx)
}
