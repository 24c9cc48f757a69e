// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/portfolio-pilot/pkg/constants"
)

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// CalculatePercentage calculates what percentage value is of total.
// A zero total yields zero rather than a division by zero.
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// PercentToDegrees converts a share of a full circle expressed in percent to degrees.
func PercentToDegrees(percent float64) float64 {
	return percent / constants.PercentageMultiplier * constants.FullCircleDegrees
}

// PolarToCartesian returns the point at angleDegrees on the circle of the given
// radius centred at (cx, cy). Zero degrees points along the positive x axis.
func PolarToCartesian(cx, cy, radius, angleDegrees float64) (float64, float64) {
	rad := math.Pi * angleDegrees / 180
	return cx + radius*math.Cos(rad), cy + radius*math.Sin(rad)
}
