package particlefilter

import "gonum.org/v1/gonum/stat"

// MeanPose reduces a particle set to a single pose. X and Y are plain
// averages. Orientations are first unwrapped to lie within pi of the first
// particle so a cloud straddling 0/2pi averages to ~0 rather than ~pi.
func MeanPose(particles []Particle) (Pose, error) {
	if len(particles) == 0 {
		return Pose{}, ErrNoParticles
	}

	xs := make([]float64, len(particles))
	ys := make([]float64, len(particles))
	headings := make([]float64, len(particles))
	ref := particles[0].Orientation
	for i, p := range particles {
		xs[i] = p.X
		ys[i] = p.Y
		headings[i] = alignAngle(p.Orientation, ref)
	}

	return Pose{
		X:           stat.Mean(xs, nil),
		Y:           stat.Mean(ys, nil),
		Orientation: stat.Mean(headings, nil),
	}, nil
}
