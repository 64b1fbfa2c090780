package rooming

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"umrah-backoffice/internal/logging"
)

// every is a fixed-interval schedule. cron.Every rounds to whole seconds.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Reconciler runs Manager.Reconcile on a schedule. A run still in
// progress when the next one is due makes the next one skip.
type Reconciler struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
	cancel   context.CancelFunc
}

func NewReconciler(m *Manager, interval time.Duration, logger *zap.Logger) *Reconciler {
	logger = logging.OrNop(logger)
	cl := cronLogger{l: logger.Sugar()}
	return &Reconciler{
		manager:  m,
		interval: interval,
		logger:   logger,
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Start schedules reconciliation until Stop is called or ctx ends.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", r.interval)
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.cron.Schedule(every(r.interval), cron.FuncJob(func() {
		runCtx, cancel := context.WithTimeout(ctx, r.interval+r.manager.timeout)
		defer cancel()
		if _, err := r.manager.Reconcile(runCtx); err != nil && ctx.Err() == nil {
			r.logger.Warn("rooming: reconcile failed", zap.Error(err))
		}
	}))
	r.cron.Start()
	r.logger.Info("rooming: reconciler started", zap.Duration("interval", r.interval))
	return nil
}

// Stop halts the schedule and waits for a running reconciliation to return.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.cron.Stop().Done()
	r.logger.Info("rooming: reconciler stopped")
}
