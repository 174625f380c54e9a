// Package robot provides a bicycle-model pose provider: noisy turn-and-drive
// kinematics and noisy bearing sensing against a fixed landmark list.
package robot

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	pf "github.com/jhoydich/bearing-pf"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrSteeringLimit    = errors.New("steering angle exceeds limit")
	ErrNegativeDistance = errors.New("moving backwards is not allowed")
)

const (
	DefaultLength           = 20.0
	DefaultMaxSteeringAngle = math.Pi / 4
	DefaultWorldSize        = 100.0
	// DefaultTolerance is the turn below which motion is treated as a
	// straight line.
	DefaultTolerance = 0.001
)

// Bicycle is a car-like robot with wheelbase Length. It holds no per-pose
// state and is safe for concurrent use.
type Bicycle struct {
	Length           float64
	MaxSteeringAngle float64
	// WorldSize bounds the initial pose draw only; poses may leave it.
	WorldSize float64
	Tolerance float64
}

func New() Bicycle {
	return Bicycle{
		Length:           DefaultLength,
		MaxSteeringAngle: DefaultMaxSteeringAngle,
		WorldSize:        DefaultWorldSize,
		Tolerance:        DefaultTolerance,
	}
}

// Initialize draws a pose uniformly over the world square with a uniform
// heading.
func (b Bicycle) Initialize(rng *rand.Rand) pf.Pose {
	pos := distuv.Uniform{Min: 0, Max: b.WorldSize, Src: rng}
	heading := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rng}
	return pf.Pose{
		X:           pos.Rand(),
		Y:           pos.Rand(),
		Orientation: heading.Rand(),
	}
}

// Propagate applies a noisy steering angle and distance to p. The returned
// orientation is in [0, 2*pi).
func (b Bicycle) Propagate(p pf.Pose, noise pf.Noise, m pf.Motion, rng *rand.Rand) (pf.Pose, error) {
	if math.Abs(m.Turn) > b.MaxSteeringAngle {
		return pf.Pose{}, fmt.Errorf("%w: |%v| > %v", ErrSteeringLimit, m.Turn, b.MaxSteeringAngle)
	}
	if m.Distance < 0 {
		return pf.Pose{}, fmt.Errorf("%w: distance %v", ErrNegativeDistance, m.Distance)
	}

	steering := gauss(m.Turn, noise.Steering, rng)
	distance := gauss(m.Distance, noise.Distance, rng)
	return b.move(p, steering, distance), nil
}

func (b Bicycle) move(p pf.Pose, steering, distance float64) pf.Pose {
	turn := math.Tan(steering) * distance / b.Length

	if math.Abs(turn) < b.Tolerance {
		return pf.Pose{
			X:           p.X + distance*math.Cos(p.Orientation),
			Y:           p.Y + distance*math.Sin(p.Orientation),
			Orientation: pf.WrapTwoPi(p.Orientation + turn),
		}
	}

	// rotate about the instantaneous centre of curvature
	radius := distance / turn
	cx := p.X - math.Sin(p.Orientation)*radius
	cy := p.Y + math.Cos(p.Orientation)*radius
	heading := pf.WrapTwoPi(p.Orientation + turn)
	return pf.Pose{
		X:           cx + math.Sin(heading)*radius,
		Y:           cy - math.Cos(heading)*radius,
		Orientation: heading,
	}
}

// Bearings returns the noise-free bearing from p to every landmark, in
// [0, 2*pi).
func Bearings(p pf.Pose, landmarks []pf.Landmark) pf.Measurement {
	z := make(pf.Measurement, len(landmarks))
	for i, lm := range landmarks {
		z[i] = pf.WrapTwoPi(math.Atan2(lm.Row-p.Y, lm.Col-p.X) - p.Orientation)
	}
	return z
}

// Sense returns the bearings to every landmark with gaussian bearing noise.
func (b Bicycle) Sense(p pf.Pose, noise pf.Noise, landmarks []pf.Landmark, rng *rand.Rand) pf.Measurement {
	z := Bearings(p, landmarks)
	for i := range z {
		z[i] = pf.WrapTwoPi(gauss(z[i], noise.Bearing, rng))
	}
	return z
}

// MeasurementLikelihood is the product over landmarks of the gaussian
// density of each circular bearing residual. A measurement that does not
// have one bearing per landmark is impossible and scores 0.
func (b Bicycle) MeasurementLikelihood(p pf.Pose, noise pf.Noise, z pf.Measurement, landmarks []pf.Landmark) float64 {
	if len(z) != len(landmarks) {
		return 0
	}
	predicted := Bearings(p, landmarks)
	prob := 1.0
	for i := range predicted {
		residual := pf.NormalizeAngle(z[i] - predicted[i])
		prob *= pf.CalculateNormDist(residual, 0, noise.Bearing)
	}
	return prob
}

func gauss(mu, sigma float64, rng *rand.Rand) float64 {
	if sigma == 0 {
		return mu
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}.Rand()
}
