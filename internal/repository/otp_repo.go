package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/marketbay/audit-api/internal/models"
)

// OTPRepository exposes the slice of the passcode table this service owns:
// the scheduled sweep of expired and consumed codes.
type OTPRepository interface {
	DeleteExpired(ctx context.Context, now time.Time, usedBuffer time.Duration) (int64, error)
}

type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository constructs the OTP repository.
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

// DeleteExpired removes passcodes that have expired, plus consumed ones that
// have sat idle past the buffer. The buffer keeps the sweep from racing a
// verification that completed moments ago.
func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time, usedBuffer time.Duration) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Or("is_used = ? AND created_at < ?", true, now.Add(-usedBuffer)).
		Delete(&models.OTP{})
	return result.RowsAffected, result.Error
}
