package particlefilter

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/jhoydich/bearing-pf/internal/monitoring"
	"gonum.org/v1/gonum/floats"
)

// Resample draws len(particles) elements with replacement, each with
// probability proportional to its weight, using a resampling wheel. The
// weights are only scaled by their maximum, never normalized by their sum,
// so large sets of tiny weights do not underflow. Output order carries no meaning.
//
// When every weight is zero no particle explains the measurement; the wheel
// cannot turn, so Resample falls back to drawing uniformly with replacement.
func Resample[T any](particles []T, weights []float64, rng *rand.Rand) ([]T, error) {
	n := len(particles)
	if n == 0 {
		return nil, ErrNoParticles
	}
	if len(weights) != n {
		return nil, fmt.Errorf("%w: %d weights for %d particles", ErrWeightCount, len(weights), n)
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 1) {
			return nil, fmt.Errorf("%w: weights[%d] = %v", ErrInvalidWeight, i, w)
		}
	}

	out := make([]T, n)
	mw := floats.Max(weights)
	if mw == 0 {
		monitoring.Logf("resample: all %d weights are zero, drawing uniformly", n)
		for i := range out {
			out[i] = particles[rng.IntN(n)]
		}
		return out, nil
	}

	// Resample wheel originally developed by Sebastian Thrun. beta is kept in
	// units of mw so it stays finite for weights near MaxFloat64.
	index := rng.IntN(n)
	beta := 0.0
	for i := range out {
		beta += rng.Float64() * 2
		for beta > weights[index]/mw {
			beta -= weights[index] / mw
			index = (index + 1) % n
		}
		out[i] = particles[index]
	}

	return out, nil
}
