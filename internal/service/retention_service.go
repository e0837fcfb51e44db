package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketbay/audit-api/internal/models"
	"github.com/marketbay/audit-api/internal/observability"
	"github.com/marketbay/audit-api/internal/repository"
)

// RetentionConfig carries the lifecycle thresholds for the retention tasks.
type RetentionConfig struct {
	RetentionDays int           // age at which active records are archived
	PurgeDays     int           // age at which archived records are removed
	OTPUsedBuffer time.Duration // idle time before a consumed passcode may be swept
}

// RetentionService owns the ledger lifecycle sweeps. Each task is idempotent
// and all-or-nothing: a failed run changes nothing and the next scheduled
// tick is the retry.
type RetentionService interface {
	ArchiveExpired(ctx context.Context) (int64, error)
	PurgeArchived(ctx context.Context) (int64, error)
	SweepOTPs(ctx context.Context) (int64, error)
}

type retentionService struct {
	ledger   repository.LedgerRepository
	otps     repository.OTPRepository
	recorder SystemRecorder
	cfg      RetentionConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRetentionService constructs the retention service.
func NewRetentionService(ledger repository.LedgerRepository, otps repository.OTPRepository, recorder SystemRecorder, cfg RetentionConfig, logger zerolog.Logger) RetentionService {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.PurgeDays <= 0 {
		cfg.PurgeDays = 180
	}
	if cfg.OTPUsedBuffer <= 0 {
		cfg.OTPUsedBuffer = 10 * time.Minute
	}

	return &retentionService{
		ledger:   ledger,
		otps:     otps,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.With().Str("component", "retention_service").Logger(),
		now:      time.Now,
	}
}

// ArchiveExpired flips records past the retention threshold to archived and
// writes one system summary entry. A run that matches nothing writes nothing.
func (s *retentionService) ArchiveExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)

	archived, err := s.ledger.ArchiveExpired(ctx, cutoff)
	if err != nil {
		observability.RetentionRuns().WithLabelValues("auto_archive", "error").Inc()
		return 0, fmt.Errorf("auto archive: %w", err)
	}
	if archived == 0 {
		observability.RetentionRuns().WithLabelValues("auto_archive", "noop").Inc()
		return 0, nil
	}

	if err := s.recorder.RecordSystem(ctx,
		"Auto archived audit records (retention policy)",
		models.SeverityLow,
		fmt.Sprintf("Archived %d records older than %d days", archived, s.cfg.RetentionDays),
		true,
	); err != nil {
		s.logger.Error().Err(err).Msg("failed to record auto archive summary")
	}

	observability.RetentionRuns().WithLabelValues("auto_archive", "ok").Inc()
	s.logger.Info().Int64("archived", archived).Msg("auto archive sweep completed")
	return archived, nil
}

// PurgeArchived permanently removes archived records older than the purge
// threshold and writes one system summary entry.
func (s *retentionService) PurgeArchived(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.cfg.PurgeDays)

	purged, err := s.ledger.PurgeArchived(ctx, cutoff)
	if err != nil {
		observability.RetentionRuns().WithLabelValues("auto_purge", "error").Inc()
		return 0, fmt.Errorf("auto purge: %w", err)
	}
	if purged == 0 {
		observability.RetentionRuns().WithLabelValues("auto_purge", "noop").Inc()
		return 0, nil
	}

	if err := s.recorder.RecordSystem(ctx,
		"Auto cleanup archived audit records",
		models.SeverityLow,
		fmt.Sprintf("Deleted %d archived records older than %d days", purged, s.cfg.PurgeDays),
		true,
	); err != nil {
		s.logger.Error().Err(err).Msg("failed to record auto purge summary")
	}

	observability.RetentionRuns().WithLabelValues("auto_purge", "ok").Inc()
	s.logger.Info().Int64("purged", purged).Msg("auto purge sweep completed")
	return purged, nil
}

// SweepOTPs removes expired passcodes plus consumed ones past the idle
// buffer, and writes one system summary entry.
func (s *retentionService) SweepOTPs(ctx context.Context) (int64, error) {
	removed, err := s.otps.DeleteExpired(ctx, s.now().UTC(), s.cfg.OTPUsedBuffer)
	if err != nil {
		observability.RetentionRuns().WithLabelValues("otp_sweep", "error").Inc()
		return 0, fmt.Errorf("otp sweep: %w", err)
	}
	if removed == 0 {
		observability.RetentionRuns().WithLabelValues("otp_sweep", "noop").Inc()
		return 0, nil
	}

	if err := s.recorder.RecordSystem(ctx,
		"System cleanup: expired OTPs",
		models.SeverityLow,
		fmt.Sprintf("Removed %d expired/used OTP records", removed),
		true,
	); err != nil {
		s.logger.Error().Err(err).Msg("failed to record otp sweep summary")
	}

	observability.RetentionRuns().WithLabelValues("otp_sweep", "ok").Inc()
	s.logger.Info().Int64("removed", removed).Msg("otp sweep completed")
	return removed, nil
}
