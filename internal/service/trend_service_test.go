package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrowthClampsToBounds(t *testing.T) {
	cases := []struct {
		name     string
		previous int64
		current  int64
		want     int
	}{
		{"zero baseline", 0, 50, 0},
		{"negative baseline", -3, 50, 0},
		{"no change", 100, 100, 0},
		{"decrease clamps to zero", 100, 40, 0},
		{"quarter increase", 100, 125, 25},
		{"half increase", 100, 150, 50},
		{"doubling clamps to hundred", 100, 200, 100},
		{"spike beyond doubling clamps", 3, 300, 100},
		{"fraction truncates", 3, 4, 33},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Growth(tc.previous, tc.current))
		})
	}
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name     string
		previous int64
		current  int64
		want     string
	}{
		{"equal counts", 100, 100, TrendStable},
		{"zero against zero", 0, 0, TrendStable},
		{"decrease stays stable", 100, 20, TrendStable},
		{"new activity from zero baseline", 0, 40, TrendIncreased},
		{"mild growth", 100, 125, TrendIncreased},
		{"boundary thirty percent", 100, 130, TrendIncreased},
		{"half growth", 100, 150, TrendRepeated},
		{"boundary seventy percent", 100, 170, TrendRepeated},
		{"doubling", 100, 200, TrendTrending},
		{"runaway growth", 1, 500, TrendTrending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyTrend(tc.previous, tc.current))
		})
	}
}
