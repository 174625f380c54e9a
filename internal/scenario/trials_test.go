package scenario

import (
	"context"
	"testing"

	pf "github.com/jhoydich/bearing-pf"
	"github.com/jhoydich/bearing-pf/internal/monitoring"
	"github.com/jhoydich/bearing-pf/robot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceConfig(workers int) pf.Config {
	return pf.Config{
		NumSamples: 500,
		Noise:      pf.Noise{Bearing: 0.1, Steering: 0.1, Distance: 5.0},
		Landmarks:  corners,
		Workers:    workers,
	}
}

func TestRunTrials_ReferenceConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("repeated 500-particle runs")
	}
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	monitoring.SetLogger(t.Logf)

	const trials = 100
	summary, err := RunTrials(context.Background(), Reference(), referenceConfig(4), robot.New(),
		Tolerance{XY: 15.0, Orientation: 0.25}, trials, 2024)
	require.NoError(t, err)
	require.Len(t, summary.Results, trials)

	for _, r := range summary.Results {
		if !r.ConvergedXY {
			t.Logf("trial %d (seed %d) missed: estimate %+v", r.Trial, r.Seed, r.Estimate)
		}
		assert.Equal(t, 8, r.Stats.Steps)
	}
	// the filter is stochastic; an occasional miss is expected
	assert.GreaterOrEqual(t, summary.RateXY(), 0.85)
}

func TestRunTrials_Reproducible(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	monitoring.SetLogger(nil)

	cfg := referenceConfig(2)
	cfg.NumSamples = 100
	tol := Tolerance{XY: 15.0, Orientation: 0.25}

	a, err := RunTrials(context.Background(), Reference(), cfg, robot.New(), tol, 3, 99)
	require.NoError(t, err)
	b, err := RunTrials(context.Background(), Reference(), cfg, robot.New(), tol, 3, 99)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	seeds := map[uint64]bool{}
	for _, r := range a.Results {
		seeds[r.Seed] = true
	}
	assert.Len(t, seeds, 3)
}

func TestRunTrials_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := RunTrials(ctx, Reference(), referenceConfig(1), robot.New(), Tolerance{XY: 15, Orientation: 0.25}, 5, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Results)
}

func TestRunTrials_PropagatesFilterError(t *testing.T) {
	sc := Reference()
	sc.Measurements = sc.Measurements[:3]

	_, err := RunTrials(context.Background(), sc, referenceConfig(1), robot.New(), Tolerance{XY: 15, Orientation: 0.25}, 2, 1)
	assert.ErrorIs(t, err, pf.ErrLengthMismatch)
}

func TestTrialSummaryRates(t *testing.T) {
	assert.Zero(t, TrialSummary{}.Rate())
	s := TrialSummary{Results: make([]TrialResult, 4), Converged: 1, ConvergedXY: 3}
	assert.Equal(t, 0.25, s.Rate())
	assert.Equal(t, 0.75, s.RateXY())
}
