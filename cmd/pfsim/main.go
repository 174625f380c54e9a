// Command pfsim localizes a simulated robot with the particle filter. It runs
// the reference scenario or a freshly generated one, once or as a batch of
// independent trials, and reports the estimate and how often it converged.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	pf "github.com/jhoydich/bearing-pf"
	"github.com/jhoydich/bearing-pf/internal/config"
	"github.com/jhoydich/bearing-pf/internal/scenario"
	"github.com/jhoydich/bearing-pf/internal/trialdb"
)

// Config holds command line options.
type Config struct {
	ConfigFile string
	Scenario   string
	Steps      int
	Turn       float64
	Distance   float64
	Particles  int
	Workers    int
	Trials     int
	Seed       uint64
	DBPath     string
	Verbose    bool
}

func main() {
	opts := parseFlags()

	run, err := loadRunConfig(opts)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	seed, ok := run.GetSeed()
	if opts.Seed != 0 {
		seed, ok = opts.Seed, true
	}
	if !ok {
		seed = uint64(time.Now().UnixNano())
	}

	provider := run.Robot()
	filterCfg := run.Filter()
	tol := scenario.Tolerance{XY: run.GetToleranceXY(), Orientation: run.GetToleranceOrientation()}

	sc, err := buildScenario(opts, run, seed)
	if err != nil {
		log.Fatalf("Failed to build scenario: %v", err)
	}
	if opts.Verbose || opts.Scenario == "generated" {
		fmt.Println(scenario.FormatMeasurements(sc.Measurements))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := scenario.RunTrials(ctx, sc, filterCfg, provider, tol, opts.Trials, seed)
	if err != nil {
		log.Fatalf("Trials failed: %v", err)
	}

	for _, r := range summary.Results {
		if opts.Trials == 1 || opts.Verbose {
			fmt.Printf("Trial %d (seed %d)\n", r.Trial, r.Seed)
			fmt.Printf("  Ground truth:    %s\n", formatPose(r.Truth))
			fmt.Printf("  Particle filter: %s\n", formatPose(r.Estimate))
			fmt.Printf("  Code check:      %v\n", r.Converged)
		}
	}
	fmt.Printf("%s: %d particles, %d trials, converged %.1f%% (position %.1f%%)\n",
		sc.Name, filterCfg.NumSamples, len(summary.Results), 100*summary.Rate(), 100*summary.RateXY())

	if opts.DBPath != "" {
		if err := recordBatch(opts.DBPath, sc, filterCfg.NumSamples, summary); err != nil {
			log.Printf("Warning: failed to record trials: %v", err)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to JSON run configuration")
	flag.StringVar(&cfg.Scenario, "scenario", "reference", "Scenario: reference, generated")
	flag.IntVar(&cfg.Steps, "steps", 6, "Steps for the generated scenario")
	flag.Float64Var(&cfg.Turn, "turn", 2*math.Pi/20, "Steering angle per step for the generated scenario")
	flag.Float64Var(&cfg.Distance, "distance", 12, "Distance per step for the generated scenario")
	flag.IntVar(&cfg.Particles, "particles", 0, "Particle count (overrides config)")
	flag.IntVar(&cfg.Workers, "workers", 0, "Worker count (overrides config)")
	flag.IntVar(&cfg.Trials, "trials", 1, "Number of independent filter runs")
	flag.Uint64Var(&cfg.Seed, "seed", 0, "Random seed (0 uses config or time)")
	flag.StringVar(&cfg.DBPath, "db", "", "Record trials in this sqlite file")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Print every trial and the measurements")

	flag.Parse()

	if cfg.Trials < 1 {
		log.Fatalf("trials must be at least 1, got %d", cfg.Trials)
	}
	return cfg
}

func loadRunConfig(opts Config) (*config.RunConfig, error) {
	run := config.DefaultRunConfig()
	if opts.ConfigFile != "" {
		loaded, err := config.LoadRunConfig(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		run = loaded
	}
	if opts.Particles > 0 {
		run.Particles = &opts.Particles
	}
	if opts.Workers > 0 {
		run.Workers = &opts.Workers
	}
	return run, run.Validate()
}

func buildScenario(opts Config, run *config.RunConfig, seed uint64) (scenario.Scenario, error) {
	switch opts.Scenario {
	case "reference":
		return scenario.Reference(), nil
	case "generated":
		rng := rand.New(rand.NewPCG(seed, ^seed))
		return scenario.Generated(run.Robot(), run.Noise(), run.GetLandmarks(), opts.Steps, opts.Turn, opts.Distance, rng)
	default:
		return scenario.Scenario{}, fmt.Errorf("unknown scenario %q", opts.Scenario)
	}
}

func recordBatch(path string, sc scenario.Scenario, particles int, summary scenario.TrialSummary) error {
	store, err := trialdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	batchID := trialdb.NewBatchID()
	for _, r := range summary.Results {
		err := store.Insert(&trialdb.Trial{
			BatchID:         batchID,
			Scenario:        sc.Name,
			Particles:       particles,
			Seed:            r.Seed,
			EstX:            r.Estimate.X,
			EstY:            r.Estimate.Y,
			EstOrientation:  r.Estimate.Orientation,
			TrueX:           r.Truth.X,
			TrueY:           r.Truth.Y,
			TrueOrientation: r.Truth.Orientation,
			Converged:       r.Converged,
		})
		if err != nil {
			return err
		}
	}

	rate, n, err := store.ConvergenceRate(batchID)
	if err != nil {
		return err
	}
	log.Printf("Recorded batch %s: %d trials, %.1f%% converged", batchID, n, 100*rate)
	return nil
}

func formatPose(p pf.Pose) string {
	return fmt.Sprintf("[x=%.6g y=%.6g orient=%.6g]", p.X, p.Y, pf.WrapTwoPi(p.Orientation))
}
