package utils

import "math"

// Round3 rounds an OMR amount to its 3 decimal places (baisa precision),
// half away from zero.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
