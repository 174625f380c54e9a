package robot

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	pf "github.com/jhoydich/bearing-pf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corners = []pf.Landmark{{Row: 0, Col: 100}, {Row: 0, Col: 0}, {Row: 100, Col: 0}, {Row: 100, Col: 100}}

func noiseless() pf.Noise {
	return pf.Noise{Bearing: 0.1}
}

func TestPropagate_Straight(t *testing.T) {
	b := New()
	rng := rand.New(rand.NewPCG(1, 1))

	got, err := b.Propagate(pf.Pose{X: 10, Y: 10, Orientation: math.Pi / 2}, noiseless(), pf.Motion{Turn: 0, Distance: 10}, rng)
	require.NoError(t, err)

	want := pf.Pose{X: 10, Y: 20, Orientation: math.Pi / 2}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Propagate mismatch (-want +got):\n%s", diff)
	}
}

func TestPropagate_Turning(t *testing.T) {
	b := New()
	rng := rand.New(rand.NewPCG(1, 1))

	// tan(pi/4) * 20 / 20 = one radian of turn on a radius of 20
	got, err := b.Propagate(pf.Pose{}, noiseless(), pf.Motion{Turn: math.Pi / 4, Distance: 20}, rng)
	require.NoError(t, err)

	want := pf.Pose{X: 20 * math.Sin(1), Y: 20 - 20*math.Cos(1), Orientation: 1}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Propagate mismatch (-want +got):\n%s", diff)
	}
}

func TestPropagate_OrientationWraps(t *testing.T) {
	b := New()
	rng := rand.New(rand.NewPCG(1, 1))

	p := pf.Pose{Orientation: 2*math.Pi - 0.2}
	got, err := b.Propagate(p, noiseless(), pf.Motion{Turn: math.Pi / 4, Distance: 10}, rng)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, got.Orientation, 1e-9)
}

func TestPropagate_RejectsMalformedMotion(t *testing.T) {
	b := New()
	rng := rand.New(rand.NewPCG(1, 1))

	_, err := b.Propagate(pf.Pose{}, noiseless(), pf.Motion{Turn: math.Pi / 3, Distance: 1}, rng)
	assert.ErrorIs(t, err, ErrSteeringLimit)

	_, err = b.Propagate(pf.Pose{}, noiseless(), pf.Motion{Turn: 0, Distance: -1}, rng)
	assert.ErrorIs(t, err, ErrNegativeDistance)
}

func TestPropagate_NoiseIsSeeded(t *testing.T) {
	b := New()
	noise := pf.Noise{Bearing: 0.1, Steering: 0.1, Distance: 5}
	start := pf.Pose{X: 50, Y: 50}
	m := pf.Motion{Turn: 0.2, Distance: 20}

	a, err := b.Propagate(start, noise, m, rand.New(rand.NewPCG(5, 6)))
	require.NoError(t, err)
	c, err := b.Propagate(start, noise, m, rand.New(rand.NewPCG(5, 6)))
	require.NoError(t, err)
	assert.Equal(t, a, c)

	d, err := b.Propagate(start, noise, m, rand.New(rand.NewPCG(6, 5)))
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestBearings(t *testing.T) {
	got := Bearings(pf.Pose{X: 50, Y: 50, Orientation: 0}, corners)
	want := pf.Measurement{7 * math.Pi / 4, 5 * math.Pi / 4, 3 * math.Pi / 4, math.Pi / 4}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Bearings mismatch (-want +got):\n%s", diff)
	}

	// heading pi/4 puts the far corner dead ahead
	got = Bearings(pf.Pose{X: 50, Y: 50, Orientation: math.Pi / 4}, corners)
	assert.InDelta(t, 0, pf.NormalizeAngle(got[3]), 1e-12)
}

func TestSense_ZeroNoiseMatchesBearings(t *testing.T) {
	b := New()
	p := pf.Pose{X: 20, Y: 70, Orientation: 1.2}
	got := b.Sense(p, pf.Noise{}, corners, rand.New(rand.NewPCG(1, 1)))
	assert.Equal(t, Bearings(p, corners), got)
}

func TestSense_InRange(t *testing.T) {
	b := New()
	rng := rand.New(rand.NewPCG(2, 3))
	for i := 0; i < 100; i++ {
		z := b.Sense(pf.Pose{X: 50, Y: 99.9, Orientation: 0}, pf.Noise{Bearing: 0.5}, corners, rng)
		require.Len(t, z, len(corners))
		for _, v := range z {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 2*math.Pi)
		}
	}
}

func TestMeasurementLikelihood(t *testing.T) {
	b := New()
	noise := pf.Noise{Bearing: 0.1}
	p := pf.Pose{X: 30, Y: 40, Orientation: 0.5}
	exact := Bearings(p, corners)

	best := b.MeasurementLikelihood(p, noise, exact, corners)
	assert.InDelta(t, math.Pow(1/(0.1*math.Sqrt(2*math.Pi)), 4), best, 1e-9)

	prev := best
	for _, off := range []float64{0.01, 0.05, 0.1, 0.3} {
		z := append(pf.Measurement(nil), exact...)
		z[0] += off
		got := b.MeasurementLikelihood(p, noise, z, corners)
		assert.Less(t, got, prev, "offset %v", off)
		assert.GreaterOrEqual(t, got, 0.0)
		prev = got
	}
}

func TestMeasurementLikelihood_ResidualIsCircular(t *testing.T) {
	b := New()
	noise := pf.Noise{Bearing: 0.1}
	// heading chosen so the first bearing is ~0
	p := pf.Pose{X: 0, Y: 0, Orientation: 0}
	lms := []pf.Landmark{{Row: 0, Col: 100}}

	near := b.MeasurementLikelihood(p, noise, pf.Measurement{0.05}, lms)
	wrapped := b.MeasurementLikelihood(p, noise, pf.Measurement{2*math.Pi - 0.05}, lms)
	assert.InDelta(t, near, wrapped, 1e-9)
	assert.Greater(t, wrapped, 1.0)
}

func TestMeasurementLikelihood_WrongSize(t *testing.T) {
	b := New()
	noise := pf.Noise{Bearing: 0.1}
	p := pf.Pose{X: 30, Y: 40, Orientation: 0.5}
	exact := Bearings(p, corners)

	assert.NotPanics(t, func() {
		assert.Zero(t, b.MeasurementLikelihood(p, noise, exact[:2], corners))
		assert.Zero(t, b.MeasurementLikelihood(p, noise, nil, corners))
		assert.Zero(t, b.MeasurementLikelihood(p, noise, append(exact, 0.1), corners))
	})
}

func TestInitialize_WithinWorld(t *testing.T) {
	b := New()
	rng := rand.New(rand.NewPCG(8, 8))
	for i := 0; i < 1000; i++ {
		p := b.Initialize(rng)
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, b.WorldSize)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.Less(t, p.Y, b.WorldSize)
		assert.GreaterOrEqual(t, p.Orientation, 0.0)
		assert.Less(t, p.Orientation, 2*math.Pi)
	}
}

func TestBicycleIsPoseProvider(t *testing.T) {
	var _ pf.PoseProvider = New()
}
