package utils

import "math"

// MinFloat64 returns the smaller of two float64 values.
func MinFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// IsFinite reports whether v is a usable number (not NaN, not infinite).
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
