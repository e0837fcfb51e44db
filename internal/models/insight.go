package models

import (
	"time"

	"gorm.io/gorm"
)

// Insight categories.
const (
	InsightOperational = "OPERATIONAL"
	InsightSecurity    = "SECURITY"
	InsightAutomation  = "AUTOMATION"
	InsightImprovement = "IMPROVEMENT"
)

// Insight severities. These are coarser than ledger severities on purpose:
// insights advise an operator, they do not classify the underlying events.
const (
	InsightSeverityHigh   = "HIGH"
	InsightSeverityMedium = "MEDIUM"
	InsightSeverityInfo   = "INFO"
)

// RiskInsight is a derived, deduplicated observation produced by the
// analytics pass. The message text doubles as the deduplication key: a new
// row is persisted only when no live row carries the identical message.
type RiskInsight struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	InsightType    string         `gorm:"size:50;not null" json:"insight_type"`
	Severity       string         `gorm:"size:20;not null" json:"severity"`
	Message        string         `gorm:"type:text;not null" json:"message"`
	Recommendation string         `gorm:"type:text" json:"recommendation,omitempty"`
	Confidence     float64        `gorm:"default:0" json:"confidence"`
	IsSeen         bool           `gorm:"not null;default:false" json:"is_seen"`
	IsArchived     bool           `gorm:"not null;default:false;index" json:"is_archived"`
	GeneratedAt    time.Time      `gorm:"not null;index" json:"generated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
