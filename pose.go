package particlefilter

import (
	"errors"
	"math/rand/v2"
)

var (
	ErrNoParticles     = errors.New("particle set is empty")
	ErrLengthMismatch  = errors.New("motions and measurements differ in length")
	ErrWeightCount     = errors.New("weight count does not match particle count")
	ErrInvalidWeight   = errors.New("weight is negative, infinite or NaN")
	ErrMeasurementSize = errors.New("measurement size does not match landmark count")
)

// Pose is a hypothesis of where the robot is. X and Y are unbounded; the
// world does not wrap. Orientation is in radians and is only meaningful
// modulo 2*pi.
type Pose struct {
	X           float64
	Y           float64
	Orientation float64
}

// Noise holds the standard deviations of the zero mean gaussian noise applied
// to bearings, steering angles and forward distances.
type Noise struct {
	Bearing  float64
	Steering float64
	Distance float64
}

// Landmark is a fixed point in (row, col) form. Row lines up with a pose's Y
// and Col with its X.
type Landmark struct {
	Row float64
	Col float64
}

// Motion is one turn-then-drive command.
type Motion struct {
	Turn     float64
	Distance float64
}

// Measurement holds one bearing per landmark, in landmark order.
type Measurement []float64

// Particle is a single pose hypothesis carried by the filter.
type Particle struct {
	Pose
	Noise Noise
}

// PoseProvider supplies the motion and sensing model for a single pose.
// Implementations must be safe for concurrent use when the filter runs
// with more than one worker; all randomness comes from the rng argument.
type PoseProvider interface {
	Initialize(rng *rand.Rand) Pose
	Propagate(p Pose, noise Noise, m Motion, rng *rand.Rand) (Pose, error)
	MeasurementLikelihood(p Pose, noise Noise, z Measurement, landmarks []Landmark) float64
	Sense(p Pose, noise Noise, landmarks []Landmark, rng *rand.Rand) Measurement
}
