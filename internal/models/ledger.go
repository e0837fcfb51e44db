package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Severity levels carried by ledger entries.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Actor kinds that can originate a ledger entry.
const (
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

// ErrRecordImmutable is returned when a write touches any ledger field other
// than the archived flag.
var ErrRecordImmutable = errors.New("activity record is immutable: only the archived flag may change")

// ErrRecordProtected is returned when a delete targets a record that has not
// been archived first.
var ErrRecordProtected = errors.New("active activity records cannot be deleted")

// ActivityRecord is a single append-only entry in the audit ledger. Every
// field except IsArchived is frozen once the record is created; the GORM
// hooks below back the repository-level guards so the invariant holds even
// for writes that bypass the guarded repository paths.
type ActivityRecord struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	RecordRef    string `gorm:"size:50;uniqueIndex;not null" json:"record_ref"`
	AdminID      *uint  `gorm:"index" json:"admin_id"`
	TargetUserID *uint  `gorm:"index" json:"target_user_id"`

	Action   string `gorm:"size:255;not null" json:"action"`
	Severity string `gorm:"size:20;not null;default:LOW" json:"severity"`
	Reason   string `gorm:"type:text" json:"reason,omitempty"`

	ActorType  string `gorm:"size:20;not null;default:admin;index" json:"actor_type"`
	IsBulk     bool   `gorm:"not null;default:false" json:"is_bulk"`
	IsArchived bool   `gorm:"not null;default:false;index" json:"is_archived"`

	// Origin context, populated only for admin-originated actions.
	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string `gorm:"type:text" json:"user_agent,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Admin *Admin `gorm:"foreignKey:AdminID" json:"-"`
	User  *User  `gorm:"foreignKey:TargetUserID" json:"-"`
}

// NewRecordRef generates the human-readable reference code assigned to a
// ledger entry on creation.
func NewRecordRef() string {
	return "AL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// BeforeCreate assigns the reference code when the caller did not provide one.
func (r *ActivityRecord) BeforeCreate(tx *gorm.DB) error {
	if r.RecordRef == "" {
		r.RecordRef = NewRecordRef()
	}
	return nil
}

// immutableFields lists every column frozen after creation.
var immutableFields = []string{
	"RecordRef", "AdminID", "TargetUserID", "Action", "Severity", "Reason",
	"ActorType", "IsBulk", "IPAddress", "UserAgent", "Metadata", "CreatedAt",
}

// BeforeUpdate rejects any update that changes a frozen field.
func (r *ActivityRecord) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed(immutableFields...) {
		return ErrRecordImmutable
	}
	return nil
}

// BeforeDelete rejects deletion of records that were never archived. Only the
// purge sweep deletes ledger rows, and only archived ones.
func (r *ActivityRecord) BeforeDelete(tx *gorm.DB) error {
	if !r.IsArchived {
		return ErrRecordProtected
	}
	return nil
}
