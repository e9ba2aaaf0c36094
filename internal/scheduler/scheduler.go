// Package scheduler runs periodic backend maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wraps cron-based jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger: logger,
	}
}

// Every registers job to run at a fixed interval, rounded down to whole seconds.
func (s *Scheduler) Every(interval time.Duration, name string, job func(context.Context) error) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.Cron(fmt.Sprintf("@every %ds", seconds), name, job)
}

// Cron registers job under a six-field cron spec or a descriptor such as @hourly.
func (s *Scheduler) Cron(spec, name string, job func(context.Context) error) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(context.Background()); err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	return id, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Recounter recomputes derived counters on the backend.
type Recounter interface {
	RecountCategories(ctx context.Context) (int64, error)
}

// RecountJob returns a job that refreshes category task counts.
func RecountJob(r Recounter, logger *zap.Logger) func(context.Context) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) error {
		n, err := r.RecountCategories(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("category counts refreshed", zap.Int64("updated", n))
		}
		return nil
	}
}

type cronLogger struct{ z *zap.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.z.Sugar().Debugw(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.z.Sugar().Errorw(msg, append(kv, "error", err)...)
}
