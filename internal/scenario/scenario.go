// Package scenario holds motion/measurement sequences for exercising the
// filter: the literal reference run and ground truth generated by driving a
// pose provider.
package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	pf "github.com/jhoydich/bearing-pf"
)

type Scenario struct {
	Name         string
	Motions      []pf.Motion
	Measurements []pf.Measurement
	Truth        pf.Pose
}

// Steps is the number of motion/measurement pairs.
func (s Scenario) Steps() int {
	return len(s.Motions)
}

// ConstantMotions repeats one command steps times.
func ConstantMotions(steps int, turn, distance float64) []pf.Motion {
	motions := make([]pf.Motion, steps)
	for i := range motions {
		motions[i] = pf.Motion{Turn: turn, Distance: distance}
	}
	return motions
}

// Reference is eight identical 2*pi/10 turns of 20 units, observed from the
// four default corner landmarks.
func Reference() Scenario {
	return Scenario{
		Name:    "reference",
		Motions: ConstantMotions(8, 2*math.Pi/10, 20),
		Measurements: []pf.Measurement{
			{4.746936, 3.859782, 3.045217, 2.045506},
			{3.510067, 2.916300, 2.146394, 1.598332},
			{2.972469, 2.407489, 1.588474, 1.611094},
			{1.906178, 1.193329, 0.619356, 0.807930},
			{1.352825, 0.662233, 0.144927, 0.799090},
			{0.856150, 0.214590, 5.651497, 1.062401},
			{0.194460, 5.660382, 4.761072, 2.471682},
			{5.717342, 4.736780, 3.909599, 2.342536},
		},
		Truth: pf.Pose{X: 93.476, Y: 75.186, Orientation: 5.2664},
	}
}

// GenerateGroundTruth drives a single noisy robot from a provider-chosen
// start through motions, sensing after every move. It returns the final
// true pose and one measurement per motion.
func GenerateGroundTruth(provider pf.PoseProvider, noise pf.Noise, landmarks []pf.Landmark, motions []pf.Motion, rng *rand.Rand) (pf.Pose, []pf.Measurement, error) {
	pose := provider.Initialize(rng)
	measurements := make([]pf.Measurement, len(motions))
	for t, m := range motions {
		next, err := provider.Propagate(pose, noise, m, rng)
		if err != nil {
			return pf.Pose{}, nil, fmt.Errorf("ground truth step %d: %w", t, err)
		}
		pose = next
		measurements[t] = provider.Sense(pose, noise, landmarks, rng)
	}
	return pose, measurements, nil
}

// Generated builds a scenario of steps identical commands with ground truth
// from GenerateGroundTruth.
func Generated(provider pf.PoseProvider, noise pf.Noise, landmarks []pf.Landmark, steps int, turn, distance float64, rng *rand.Rand) (Scenario, error) {
	motions := ConstantMotions(steps, turn, distance)
	truth, measurements, err := GenerateGroundTruth(provider, noise, landmarks, motions, rng)
	if err != nil {
		return Scenario{}, err
	}
	return Scenario{
		Name:         "generated",
		Motions:      motions,
		Measurements: measurements,
		Truth:        truth,
	}, nil
}

// FormatMeasurements renders measurements as a bracketed listing that can be
// pasted back as a literal, each value cut to eight characters.
func FormatMeasurements(measurements []pf.Measurement) string {
	var b strings.Builder
	const prefix = "measurements = ["
	pad := strings.Repeat(" ", len(prefix))
	for t, z := range measurements {
		if t == 0 {
			b.WriteString(prefix)
		} else {
			b.WriteString(pad)
		}
		b.WriteByte('[')
		for i, v := range z {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(truncate(strconv.FormatFloat(v, 'f', -1, 64), 8))
		}
		b.WriteByte(']')
		if t == len(measurements)-1 {
			b.WriteByte(']')
		} else {
			b.WriteString(",\n")
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
