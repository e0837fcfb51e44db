package dto

import (
	"time"

	"github.com/marketbay/audit-api/internal/models"
)

// InsightListRequest defines filters for listing stored insights.
type InsightListRequest struct {
	Page     int
	PageSize int
	Severity string `validate:"omitempty,oneof=HIGH MEDIUM INFO"`
	Type     string `validate:"omitempty,oneof=OPERATIONAL SECURITY AUTOMATION IMPROVEMENT"`
	Seen     *bool
	Archived *bool
}

// InsightResponse serializes a stored risk insight.
type InsightResponse struct {
	ID             uint      `json:"id"`
	InsightType    string    `json:"insight_type"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
	Confidence     float64   `json:"confidence"`
	IsSeen         bool      `json:"is_seen"`
	IsArchived     bool      `json:"is_archived"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// InsightListResponse wraps a paginated insight view.
type InsightListResponse struct {
	Items      []InsightResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewInsightResponse converts an insight model into a DTO.
func NewInsightResponse(insight models.RiskInsight) InsightResponse {
	return InsightResponse{
		ID:             insight.ID,
		InsightType:    insight.InsightType,
		Severity:       insight.Severity,
		Message:        insight.Message,
		Recommendation: insight.Recommendation,
		Confidence:     insight.Confidence,
		IsSeen:         insight.IsSeen,
		IsArchived:     insight.IsArchived,
		GeneratedAt:    insight.GeneratedAt,
	}
}
