package main

import (
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"time"

	pf "github.com/jhoydich/bearing-pf"
	"github.com/jhoydich/bearing-pf/internal/config"
	"github.com/jhoydich/bearing-pf/internal/scenario"
)

func main() {
	if err := run(uint64(time.Now().UnixNano()), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run filters the reference scenario step by step, printing the estimate
// after every step and the convergence check at the end.
func run(seed uint64, w io.Writer) error {
	cfg := config.DefaultRunConfig()
	sc := scenario.Reference()

	filter, err := pf.CreatePF(cfg.Filter(), cfg.Robot(), rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return err
	}

	filter.Init()
	for t := range sc.Motions {
		if err := filter.Step(sc.Motions[t], sc.Measurements[t]); err != nil {
			return err
		}
		est, err := filter.Estimate()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Step", t, "Filter:", est.X, est.Y, pf.WrapTwoPi(est.Orientation))
	}

	est, err := filter.Estimate()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Robot:  ", sc.Truth.X, sc.Truth.Y, sc.Truth.Orientation)
	fmt.Fprintln(w, "Filter: ", est.X, est.Y, est.Orientation)
	fmt.Fprintln(w, "Converged:", pf.IsConverged(sc.Truth, est, cfg.GetToleranceXY(), cfg.GetToleranceOrientation()))
	return nil
}
