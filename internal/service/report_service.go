package service

import (
	"time"

	"github.com/marketbay/audit-api/internal/dto"
)

// Report section names for the tracked categories.
const (
	sectionAdminActivity = "Admin Activity"
	sectionBulkOps       = "Bulk Operations"
	sectionAutomation    = "Automation"
)

// BuildComplianceReport assembles the export-ready governance report from the
// three evaluated categories. Sections whose governance tier demands operator
// attention land in the active list; everything on MONITOR is archived.
func BuildComplianceReport(generatedAt time.Time, overallHealth string, admin, bulk, automation dto.CategoryHealth) dto.ComplianceReport {
	active := make([]dto.ReportEntry, 0, 3)
	archived := make([]dto.ReportEntry, 0, 3)

	process := func(section string, health dto.CategoryHealth) {
		entry := dto.ReportEntry{
			Section:    section,
			Status:     health.Status,
			Confidence: health.Confidence,
			Governance: health.Governance,
		}

		if entry.Governance == GovernanceReview || entry.Governance == GovernanceActionRequired {
			active = append(active, entry)
		} else {
			archived = append(archived, entry)
		}
	}

	process(sectionAdminActivity, admin)
	process(sectionBulkOps, bulk)
	process(sectionAutomation, automation)

	return dto.ComplianceReport{
		GeneratedAt: generatedAt,
		Summary: dto.ReportSummary{
			OverallHealth: overallHealth,
			ActiveIssues:  len(active),
			ArchivedItems: len(archived),
		},
		ActiveInsights:   active,
		ArchivedInsights: archived,
	}
}
