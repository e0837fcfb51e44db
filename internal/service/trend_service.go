package service

// Trend labels describing period-over-period count change.
const (
	TrendStable    = "STABLE"
	TrendIncreased = "INCREASED"
	TrendRepeated  = "REPEATED"
	TrendTrending  = "TRENDING"
)

// Growth returns the period-over-period growth percentage, clamped to
// [0, 100]. Negative growth and spikes beyond 100% collapse to their nearest
// bound so low-baseline counts cannot produce runaway percentages, and a
// non-positive baseline always yields 0.
func Growth(previous, current int64) int {
	if previous <= 0 {
		return 0
	}

	raw := (float64(current-previous) / float64(previous)) * 100

	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}

	return int(raw)
}

// ClassifyTrend converts a raw count pair into a trend label. Decreases are
// never alarmed: any drop classifies as STABLE.
func ClassifyTrend(previous, current int64) string {
	if previous == current {
		return TrendStable
	}

	if current > previous {
		growth := Growth(previous, current)

		switch {
		case growth <= 30:
			return TrendIncreased
		case growth <= 70:
			return TrendRepeated
		default:
			return TrendTrending
		}
	}

	return TrendStable
}
