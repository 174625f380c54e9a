package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"

	pf "github.com/jhoydich/bearing-pf"
	"github.com/jhoydich/bearing-pf/internal/monitoring"
)

// Tolerance bounds what counts as a converged estimate.
type Tolerance struct {
	XY          float64
	Orientation float64
}

// TrialResult is the outcome of one independent filter run.
type TrialResult struct {
	Trial     int
	Seed      uint64
	Estimate  pf.Pose
	Truth     pf.Pose
	Converged bool
	// ConvergedXY ignores the heading.
	ConvergedXY bool
	Stats       pf.Stats
}

type TrialSummary struct {
	Results     []TrialResult
	Converged   int
	ConvergedXY int
}

// Rate is the fraction of trials whose full pose converged.
func (s TrialSummary) Rate() float64 {
	if len(s.Results) == 0 {
		return 0
	}
	return float64(s.Converged) / float64(len(s.Results))
}

// RateXY is the fraction of trials whose position converged.
func (s TrialSummary) RateXY() float64 {
	if len(s.Results) == 0 {
		return 0
	}
	return float64(s.ConvergedXY) / float64(len(s.Results))
}

// TrialSeed derives the seed of trial i from a batch seed.
func TrialSeed(seed uint64, i int) uint64 {
	return rand.New(rand.NewPCG(seed, uint64(i))).Uint64()
}

// RunTrials runs the filter over sc trials times, each with its own seed
// derived from seed, and checks every estimate against sc.Truth. ctx is
// checked between trials; a run in progress is never interrupted.
func RunTrials(ctx context.Context, sc Scenario, cfg pf.Config, provider pf.PoseProvider, tol Tolerance, trials int, seed uint64) (TrialSummary, error) {
	summary := TrialSummary{Results: make([]TrialResult, 0, trials)}
	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res, err := RunTrial(sc, cfg, provider, tol, TrialSeed(seed, i))
		if err != nil {
			return summary, fmt.Errorf("trial %d: %w", i, err)
		}
		res.Trial = i
		if res.Converged {
			summary.Converged++
		}
		if res.ConvergedXY {
			summary.ConvergedXY++
		}
		summary.Results = append(summary.Results, res)
	}

	monitoring.Logf("%s: %d/%d trials converged (%d/%d in position)",
		sc.Name, summary.Converged, trials, summary.ConvergedXY, trials)
	return summary, nil
}

// RunTrial runs the filter over sc once from seed.
func RunTrial(sc Scenario, cfg pf.Config, provider pf.PoseProvider, tol Tolerance, seed uint64) (TrialResult, error) {
	filter, err := pf.CreatePF(cfg, provider, rand.New(rand.NewPCG(seed, seed>>1)))
	if err != nil {
		return TrialResult{}, err
	}
	est, err := filter.Run(sc.Motions, sc.Measurements)
	if err != nil {
		return TrialResult{}, err
	}
	return TrialResult{
		Seed:        seed,
		Estimate:    est,
		Truth:       sc.Truth,
		Converged:   pf.IsConverged(sc.Truth, est, tol.XY, tol.Orientation),
		ConvergedXY: pf.IsConverged(sc.Truth, pf.Pose{X: est.X, Y: est.Y, Orientation: sc.Truth.Orientation}, tol.XY, tol.Orientation),
		Stats:       filter.Stats(),
	}, nil
}
