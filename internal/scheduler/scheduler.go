package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/marketbay/audit-api/internal/service"
)

// Task cadences. The daily sweeps run in the quiet early-morning window with
// the purge trailing the archive pass.
const (
	archiveSchedule  = "30 1 * * *"
	purgeSchedule    = "0 2 * * *"
	otpSweepSchedule = "@every 6h"
)

// Scheduler hosts the retention tasks on their cron triggers. Each task runs
// in isolation: one failing never aborts the others, and an overlapping
// trigger is skipped rather than stacked.
type Scheduler struct {
	cron      *cron.Cron
	retention service.RetentionService
	logger    zerolog.Logger
	entries   map[string]cron.EntryID
}

// New constructs the retention scheduler.
func New(retention service.RetentionService, logger zerolog.Logger) *Scheduler {
	componentLogger := logger.With().Str("component", "scheduler").Logger()
	cronLogger := cron.PrintfLogger(&componentLogger)

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		retention: retention,
		logger:    componentLogger,
		entries:   make(map[string]cron.EntryID),
	}
}

// Start registers the retention tasks and starts the cron loop.
func (s *Scheduler) Start() error {
	if err := s.register("audit_auto_archive", archiveSchedule, s.retention.ArchiveExpired); err != nil {
		return err
	}
	if err := s.register("audit_auto_purge", purgeSchedule, s.retention.PurgeArchived); err != nil {
		return err
	}
	if err := s.register("otp_cleanup", otpSweepSchedule, s.retention.SweepOTPs); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Msg("retention scheduler started")
	return nil
}

// Stop stops the cron loop and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("retention scheduler stopped")
}

// register adds a task under a stable identifier, replacing any existing
// entry so re-registration never double-schedules a job.
func (s *Scheduler) register(name, spec string, task func(context.Context) (int64, error)) error {
	if entryID, ok := s.entries[name]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, name)
	}

	entryID, err := s.cron.AddFunc(spec, s.wrap(name, task))
	if err != nil {
		return err
	}

	s.entries[name] = entryID
	s.logger.Info().Str("task", name).Str("schedule", spec).Msg("scheduled retention task")
	return nil
}

// wrap isolates a task run: failures are logged for the operator and the
// next scheduled tick is the retry.
func (s *Scheduler) wrap(name string, task func(context.Context) (int64, error)) func() {
	return func() {
		affected, err := task(context.Background())
		if err != nil {
			s.logger.Error().Err(err).Str("task", name).Msg("retention task failed")
			return
		}
		s.logger.Info().Str("task", name).Int64("affected", affected).Msg("retention task completed")
	}
}
