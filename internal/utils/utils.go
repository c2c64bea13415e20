// Package utils provides number helpers for rendering vote tallies:
// compact counts, vote shares and rounding.
package utils

import (
	"math"
	"strconv"
)

var units = []struct {
	size   float64
	suffix string
}{
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// CompactCount renders a vote count with at most one decimal and a K/M/B
// suffix, e.g. 2500 -> "2.5K", 1000000 -> "1M". Counts below 1000 are
// rendered as is.
func CompactCount(n int) string {
	v := float64(n)
	for _, u := range units {
		if math.Abs(v) >= u.size {
			return strconv.FormatFloat(Round(v/u.size, 1), 'f', -1, 64) + u.suffix
		}
	}
	return strconv.Itoa(n)
}

// VoteShare returns votes as a percentage of total, rounded to two decimals.
// Returns 0 if total is not positive.
func VoteShare(votes, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round(float64(votes)/float64(total)*100, 2)
}

// Round rounds f to the given number of decimal places.
func Round(f float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(f*pow) / pow
}
