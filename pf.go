package particlefilter

import (
	"fmt"
	"math/rand/v2"

	"github.com/jhoydich/bearing-pf/internal/monitoring"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config is everything a filter run needs besides the pose provider.
type Config struct {
	NumSamples int
	Noise      Noise
	Landmarks  []Landmark
	// Workers splits the particle set into that many chunks for the predict
	// and weight phases. Zero means one.
	Workers int
}

// Stats describes the work done since the last Init.
type Stats struct {
	Steps     int
	Fallbacks int
}

type ParticleFilter struct {
	NumSamples    int
	ListParticles []Particle
	Weights       []float64
	MaxWeight     float64
	Noise         Noise
	Landmarks     []Landmark

	provider  PoseProvider
	rng       *rand.Rand
	workerRng []*rand.Rand
	iteration int
	fallbacks int
}

// CreatePF creates a particle filter. rng drives resampling and seeds one
// independent sub-generator per worker, so a filter built from the same seed
// and worker count replays identically.
func CreatePF(cfg Config, provider PoseProvider, rng *rand.Rand) (*ParticleFilter, error) {
	if cfg.NumSamples < 1 {
		return nil, fmt.Errorf("%w: need at least one particle, got %d", ErrNoParticles, cfg.NumSamples)
	}
	if provider == nil {
		return nil, fmt.Errorf("pose provider is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > cfg.NumSamples {
		workers = cfg.NumSamples
	}

	pf := &ParticleFilter{
		NumSamples: cfg.NumSamples,
		Noise:      cfg.Noise,
		Landmarks:  append([]Landmark(nil), cfg.Landmarks...),
		provider:   provider,
		rng:        rng,
		workerRng:  make([]*rand.Rand, workers),
	}
	for i := range pf.workerRng {
		pf.workerRng[i] = rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
	}

	pf.Init()

	return pf, nil
}

// Init replaces the particle set with NumSamples freshly initialized poses
// and clears Stats.
func (pf *ParticleFilter) Init() {
	pf.ListParticles = make([]Particle, pf.NumSamples)
	pf.Weights = make([]float64, pf.NumSamples)
	pf.iteration = 0
	pf.fallbacks = 0
	pf.checkAndSetMaxWeight(0.0, true)

	// Initialize cannot fail
	_ = pf.forEachChunk(func(lo, hi int, rng *rand.Rand) error {
		for i := lo; i < hi; i++ {
			pf.ListParticles[i] = Particle{Pose: pf.provider.Initialize(rng), Noise: pf.Noise}
		}
		return nil
	})
}

// Particles returns the current particle set. The slice is replaced on every
// Resample, so callers must not hold on to it across steps.
func (pf *ParticleFilter) Particles() []Particle {
	return pf.ListParticles
}

func (pf *ParticleFilter) Stats() Stats {
	return Stats{Steps: pf.iteration, Fallbacks: pf.fallbacks}
}

// check if weight is greater than current max weight
func (pf *ParticleFilter) checkAndSetMaxWeight(weight float64, override bool) {
	if weight > pf.MaxWeight {
		pf.MaxWeight = weight
	}

	// when we want to reset to zero
	if override {
		pf.MaxWeight = weight
	}
}

// chunk returns the half-open particle range owned by worker w.
func (pf *ParticleFilter) chunk(w int) (int, int) {
	n, k := pf.NumSamples, len(pf.workerRng)
	return w * n / k, (w + 1) * n / k
}

// forEachChunk runs fn over every worker chunk, concurrently when there is
// more than one worker. Each invocation gets the worker's own generator.
func (pf *ParticleFilter) forEachChunk(fn func(lo, hi int, rng *rand.Rand) error) error {
	if len(pf.workerRng) == 1 {
		return fn(0, pf.NumSamples, pf.workerRng[0])
	}

	var g errgroup.Group
	for w, rng := range pf.workerRng {
		lo, hi := pf.chunk(w)
		g.Go(func() error {
			return fn(lo, hi, rng)
		})
	}
	return g.Wait()
}

// Move propagates every particle through the motion command.
func (pf *ParticleFilter) Move(m Motion) error {
	return pf.forEachChunk(func(lo, hi int, rng *rand.Rand) error {
		for i := lo; i < hi; i++ {
			p := pf.ListParticles[i]
			next, err := pf.provider.Propagate(p.Pose, p.Noise, m, rng)
			if err != nil {
				return fmt.Errorf("propagate particle %d: %w", i, err)
			}
			pf.ListParticles[i].Pose = next
		}
		return nil
	})
}

// CalculateWeights scores every particle against the measurement. Weights
// are recomputed from scratch; nothing carries over from earlier steps.
func (pf *ParticleFilter) CalculateWeights(z Measurement) error {
	if len(z) != len(pf.Landmarks) {
		return fmt.Errorf("%w: %d bearings for %d landmarks", ErrMeasurementSize, len(z), len(pf.Landmarks))
	}

	// Likelihood cannot fail
	_ = pf.forEachChunk(func(lo, hi int, _ *rand.Rand) error {
		for i := lo; i < hi; i++ {
			p := pf.ListParticles[i]
			pf.Weights[i] = pf.provider.MeasurementLikelihood(p.Pose, p.Noise, z, pf.Landmarks)
		}
		return nil
	})

	pf.checkAndSetMaxWeight(0.0, true)
	for _, w := range pf.Weights {
		pf.checkAndSetMaxWeight(w, false)
	}
	return nil
}

// Resample replaces the particle set with a weight-proportional draw from
// it.
func (pf *ParticleFilter) Resample() error {
	next, err := Resample(pf.ListParticles, pf.Weights, pf.rng)
	if err != nil {
		return fmt.Errorf("resample step %d: %w", pf.iteration, err)
	}
	if pf.MaxWeight == 0 {
		pf.fallbacks++
	}
	pf.ListParticles = next
	pf.iteration++
	return nil
}

// Step runs one predict, weight, resample cycle.
func (pf *ParticleFilter) Step(m Motion, z Measurement) error {
	if err := pf.Move(m); err != nil {
		return err
	}
	if err := pf.CalculateWeights(z); err != nil {
		return err
	}
	return pf.Resample()
}

// Estimate returns the circular mean of the current particle set.
func (pf *ParticleFilter) Estimate() (Pose, error) {
	return MeanPose(pf.ListParticles)
}

// Run starts from a fresh particle set, consumes every motion and its
// measurement in order and returns the final estimate.
func (pf *ParticleFilter) Run(motions []Motion, measurements []Measurement) (Pose, error) {
	if len(motions) != len(measurements) {
		return Pose{}, fmt.Errorf("%w: %d motions, %d measurements", ErrLengthMismatch, len(motions), len(measurements))
	}

	pf.Init()
	for t := range motions {
		if err := pf.Step(motions[t], measurements[t]); err != nil {
			return Pose{}, fmt.Errorf("step %d: %w", t, err)
		}
	}

	if pf.fallbacks > 0 {
		monitoring.Logf("particle filter: %d of %d steps resampled uniformly", pf.fallbacks, pf.iteration)
	}

	return pf.Estimate()
}

// use pdf to get weight of a residual
func CalculateNormDist(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.Prob(x)
}
