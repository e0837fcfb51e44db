package service

// Governance tiers advised to the operator.
const (
	GovernanceMonitor        = "MONITOR"
	GovernanceReview         = "REVIEW"
	GovernanceActionRequired = "ACTION_REQUIRED"
)

// EvaluateGovernance maps a trend label and confidence score to an advisory
// tier. The function is total: every input pair lands on exactly one tier.
func EvaluateGovernance(trend string, confidence int) string {
	if trend == TrendTrending && confidence >= 90 {
		return GovernanceActionRequired
	}

	if (trend == TrendRepeated || trend == TrendIncreased) && confidence >= 70 {
		return GovernanceReview
	}

	return GovernanceMonitor
}
