package models

import "time"

// OTP is a one-time passcode issued during password recovery. Issuance and
// verification live in the auth service; this service only sweeps expired
// and consumed rows on a schedule.
type OTP struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Code        string    `gorm:"size:6;not null" json:"-"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	IsUsed      bool      `gorm:"not null;default:false" json:"is_used"`
	ResendCount int       `gorm:"not null;default:0" json:"resend_count"`
	CreatedAt   time.Time `json:"created_at"`
}
