package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marketbay/audit-api/internal/dto"
)

func TestBuildComplianceReportPartitionsByGovernance(t *testing.T) {
	generatedAt := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	admin := dto.CategoryHealth{Count: 200, Status: TrendTrending, Confidence: 95, Governance: GovernanceActionRequired}
	bulk := dto.CategoryHealth{Count: 12, Status: TrendRepeated, Confidence: 85, Governance: GovernanceReview}
	automation := dto.CategoryHealth{Count: 3, Status: TrendStable, Confidence: 60, Governance: GovernanceMonitor}

	report := BuildComplianceReport(generatedAt, HealthYellow, admin, bulk, automation)

	require.Equal(t, generatedAt, report.GeneratedAt)
	require.Equal(t, HealthYellow, report.Summary.OverallHealth)
	require.Equal(t, 2, report.Summary.ActiveIssues)
	require.Equal(t, 1, report.Summary.ArchivedItems)

	require.Len(t, report.ActiveInsights, 2)
	require.Equal(t, "Admin Activity", report.ActiveInsights[0].Section)
	require.Equal(t, "Bulk Operations", report.ActiveInsights[1].Section)

	require.Len(t, report.ArchivedInsights, 1)
	require.Equal(t, "Automation", report.ArchivedInsights[0].Section)
	require.Equal(t, 60, report.ArchivedInsights[0].Confidence)
}

func TestBuildComplianceReportAllQuiet(t *testing.T) {
	quiet := dto.CategoryHealth{Status: TrendStable, Confidence: 60, Governance: GovernanceMonitor}

	report := BuildComplianceReport(time.Now().UTC(), HealthGreen, quiet, quiet, quiet)

	require.Zero(t, report.Summary.ActiveIssues)
	require.Equal(t, 3, report.Summary.ArchivedItems)
	require.Empty(t, report.ActiveInsights)
}
