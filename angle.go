package particlefilter

import "math"

const twoPi = 2 * math.Pi

// WrapTwoPi reduces a to [0, 2*pi). Negative inputs wrap upward, the way a
// floored modulo does.
func WrapTwoPi(a float64) float64 {
	r := math.Mod(a, twoPi)
	if r < 0 {
		r += twoPi
	}
	// r+2pi can round up to exactly 2pi for tiny negative r
	if r >= twoPi {
		r = 0
	}
	return r
}

// NormalizeAngle reduces a to [-pi, pi). Bearing residuals, orientation
// errors and the circular mean all go through here so wraparound ties break
// the same way everywhere.
func NormalizeAngle(a float64) float64 {
	return WrapTwoPi(a+math.Pi) - math.Pi
}

// alignAngle returns a shifted by a multiple of 2*pi so it lies within pi of
// ref.
func alignAngle(a, ref float64) float64 {
	return NormalizeAngle(a-ref) + ref
}
