// Package scheduler runs the periodic task digest.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	job     func(ctx context.Context) error
	logger  *slog.Logger
	entryID cron.EntryID
}

// New creates a scheduler whose cron specs are evaluated in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// SetJob sets the function run on every tick.
func (s *Scheduler) SetJob(f func(ctx context.Context) error) {
	s.job = f
}

// Start registers the job under the standard five-field cron spec and starts
// the scheduler.
func (s *Scheduler) Start(spec string) error {
	if s.job == nil {
		s.logger.Warn("digest job not set, scheduler not started")
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.entryID = id

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", spec, "next", s.cron.Entry(id).Next)
	return nil
}

func (s *Scheduler) run() {
	start := time.Now()
	s.logger.Info("digest triggered")
	if err := s.job(s.ctx); err != nil {
		s.logger.Error("digest failed", "error", err)
		return
	}
	s.logger.Info("digest finished", "duration", time.Since(start))
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.cron.Remove(s.entryID)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether a job is registered and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
