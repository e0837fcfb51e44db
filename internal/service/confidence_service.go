package service

// trendConfidence maps each trend label to its fixed confidence score.
// Confidence is a governance signal, not a statistical estimate, so this is
// intentionally a plain lookup table.
var trendConfidence = map[string]int{
	TrendStable:    60,
	TrendIncreased: 70,
	TrendRepeated:  85,
	TrendTrending:  95,
}

// Confidence returns the confidence score (0-100) for a trend label.
// Unknown labels fall back to 50.
func Confidence(trend string) int {
	if score, ok := trendConfidence[trend]; ok {
		return score
	}
	return 50
}
