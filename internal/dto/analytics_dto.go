package dto

import (
	"time"

	"github.com/marketbay/audit-api/internal/repository"
)

// CategoryHealth carries the trend, confidence and governance verdict for one
// tracked activity category.
type CategoryHealth struct {
	Count      int64  `json:"count"`
	Status     string `json:"status"`
	Confidence int    `json:"confidence"`
	Governance string `json:"governance"`
}

// ReportEntry is one governance-evaluated section of the compliance report.
type ReportEntry struct {
	Section    string `json:"section"`
	Status     string `json:"status"`
	Confidence int    `json:"confidence"`
	Governance string `json:"governance"`
}

// ReportSummary aggregates the report headline numbers.
type ReportSummary struct {
	OverallHealth string `json:"overall_health"`
	ActiveIssues  int    `json:"active_issues"`
	ArchivedItems int    `json:"archived_items"`
}

// ComplianceReport is the export-ready governance report. It is a view,
// regenerated on every request, never persisted.
type ComplianceReport struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	Summary          ReportSummary `json:"summary"`
	ActiveInsights   []ReportEntry `json:"active_insights"`
	ArchivedInsights []ReportEntry `json:"archived_insights"`
}

// AnalyticsResponse is the full dashboard payload produced by an analytics
// pass over the ledger.
type AnalyticsResponse struct {
	Metrics          repository.LedgerMetrics `json:"metrics"`
	AdminActivity    CategoryHealth           `json:"admin_activity"`
	BulkActivity     CategoryHealth           `json:"bulk_activity"`
	Automation       CategoryHealth           `json:"automation"`
	OverallHealth    string                   `json:"overall_health"`
	Insights         []InsightResponse        `json:"insights"`
	ComplianceReport ComplianceReport         `json:"compliance_report"`
	CacheHit         bool                     `json:"cache_hit,omitempty"`
}

// ActorTrendResponse is the per-day admin-versus-system activity series.
type ActorTrendResponse struct {
	Labels []string `json:"labels"`
	Admin  []int64  `json:"admin"`
	System []int64  `json:"system"`
}
