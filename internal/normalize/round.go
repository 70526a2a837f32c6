package normalize

import (
	"math"
	"strconv"
)

// Round rounds v half away from zero to the given number of decimal places.
// NaN and infinities pass through unchanged.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// FormatFixed renders v with exactly places decimals, or "n/a" for NaN.
func FormatFixed(v float64, places int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(Round(v, places), 'f', places, 64)
}
