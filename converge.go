package particlefilter

import "math"

// IsConverged reports whether estimate lies strictly within xyTol of truth
// on both axes and strictly within orientationTol of its heading, with the
// heading error measured on the circle.
func IsConverged(truth, estimate Pose, xyTol, orientationTol float64) bool {
	errX := math.Abs(truth.X - estimate.X)
	errY := math.Abs(truth.Y - estimate.Y)
	errOrientation := math.Abs(NormalizeAngle(truth.Orientation - estimate.Orientation))
	return errX < xyTol && errY < xyTol && errOrientation < orientationTol
}
