package report

import (
	"errors"
	"math"
)

const bytesPerMB = 1024 * 1024

// ErrZeroBaseline is returned by PercentDelta when the baseline is zero and
// the variant is not.
var ErrZeroBaseline = errors.New("baseline is zero")

// TheoreticalMax returns the bandwidth ceiling in MB/s for sending
// packetsPerSecond packets of maxSize bytes.
func TheoreticalMax(maxSize, packetsPerSecond float64) float64 {
	return maxSize * packetsPerSecond / bytesPerMB
}

// Utilization returns observed as a percentage of theoretical. A zero
// ceiling yields NaN.
func Utilization(observed, theoretical float64) float64 {
	if theoretical == 0 {
		return math.NaN()
	}
	return observed / theoretical * 100
}

// PercentDelta returns (b-a)/a*100, the change from baseline a to variant b
// as a percentage of a. The result is zero only when a == b. Every compared
// metric is non-negative, so it is positive when b > a. Callers format it at
// two decimals.
func PercentDelta(a, b float64) (float64, error) {
	if a == b {
		return 0, nil
	}
	if a == 0 {
		return math.NaN(), ErrZeroBaseline
	}
	return (b - a) / a * 100, nil
}
