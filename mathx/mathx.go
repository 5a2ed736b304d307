package mathx

import (
	"math"
)

func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// IsUnit reports whether x lies in the closed interval [0, 1].
// NaN is never in the interval.
func IsUnit(x float64) bool {
	return x >= 0.0 && x <= 1.0
}
