// Package automation runs batches of headless simulations: parameter sweeps
// and Monte Carlo trials over perturbed initial angles.
package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/RazorBest/Pendulum-Sandbox/internal/config"
	"github.com/RazorBest/Pendulum-Sandbox/internal/metrics"
)

// Outcome summarizes one headless run.
type Outcome struct {
	Steps     int
	MinEnergy float64
	MaxEnergy float64
	MaxDrift  float64
	Faults    int
	Final     metrics.Sample
}

// Simulate builds cfg and steps it for cfg.Duration seconds of simulated time.
// Every pendulum must run at the scene dt (see config.Config.UniformDt).
func Simulate(ctx context.Context, cfg *config.Config, logger *log.Logger) (Outcome, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := cfg.UniformDt(); err != nil {
		return Outcome{}, err
	}
	s, err := cfg.Build(logger)
	if err != nil {
		return Outcome{}, err
	}
	tracker, err := metrics.NewEnergyTracker(s.TotalProbe(), cfg.SampleEvery, 0)
	if err != nil {
		return Outcome{}, err
	}
	stability := metrics.NewStability()

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	tracker.Observe()
	for i := 0; i < steps; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
		}
		stability.Observe(s.Step())
		tracker.Tick()
	}
	final := tracker.Observe()

	out := Outcome{
		Steps:    steps,
		MaxDrift: tracker.MaxDrift(),
		Faults:   stability.Faulted(),
		Final:    final,
	}
	for i, e := range tracker.Total() {
		if i == 0 || e < out.MinEnergy {
			out.MinEnergy = e
		}
		if i == 0 || e > out.MaxEnergy {
			out.MaxEnergy = e
		}
	}
	return out, nil
}

// Sweep varies one scene parameter over [Min, Max] in Steps evenly spaced values.
type Sweep struct {
	Base  *config.Config
	Param string
	Min   float64
	Max   float64
	Steps int
}

type SweepResult struct {
	Value float64
	Outcome
}

func setParam(cfg *config.Config, name string, v float64) error {
	switch name {
	case "friction":
		cfg.Friction = v
	case "gravity":
		cfg.Gravity = v
	case "scale":
		cfg.Scale = v
	case "dt":
		cfg.Dt = v
	default:
		return fmt.Errorf("%w: cannot sweep %q", config.ErrInvalidConfig, name)
	}
	return nil
}

// RunSweep runs every point of the sweep in parallel and returns the results
// in parameter order. The first failure cancels the remaining points.
func RunSweep(ctx context.Context, sweep Sweep, logger *log.Logger) ([]SweepResult, error) {
	if sweep.Steps < 2 {
		return nil, fmt.Errorf("%w: sweep needs at least 2 steps, got %d", config.ErrInvalidConfig, sweep.Steps)
	}
	if err := setParam(sweep.Base.Clone(), sweep.Param, sweep.Min); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	results := make([]SweepResult, sweep.Steps)
	step := (sweep.Max - sweep.Min) / float64(sweep.Steps-1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range results {
		i := i
		value := sweep.Min + float64(i)*step
		g.Go(func() error {
			cfg := sweep.Base.Clone()
			setParam(cfg, sweep.Param, value)
			out, err := Simulate(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
			}
			results[i] = SweepResult{Value: value, Outcome: out}
			logger.Debug("sweep point done", sweep.Param, value, "drift", out.MaxDrift)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarlo reruns Base with every initial angle shifted by a uniform
// random offset in [-Perturbation, Perturbation].
type MonteCarlo struct {
	Base         *config.Config
	Perturbation float64
	Trials       int
	Seed         int64
}

type TrialResult struct {
	Trial  int
	Angles []float64
	Outcome
}

// Stable reports whether every pendulum finished without diverging.
func (r TrialResult) Stable() bool { return r.Faults == 0 }

func RunMonteCarlo(ctx context.Context, mc MonteCarlo, logger *log.Logger) ([]TrialResult, error) {
	if mc.Trials < 1 {
		return nil, fmt.Errorf("%w: trials %d", config.ErrInvalidConfig, mc.Trials)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Draw every perturbation up front so results depend only on the seed.
	cfgs := make([]*config.Config, mc.Trials)
	for t := range cfgs {
		cfg := mc.Base.Clone()
		for i := range cfg.Pendulums {
			for j := range cfg.Pendulums[i].Bobs {
				cfg.Pendulums[i].Bobs[j].Angle += (rng.Float64() - 0.5) * 2 * mc.Perturbation
			}
		}
		cfgs[t] = cfg
	}

	results := make([]TrialResult, mc.Trials)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t, cfg := range cfgs {
		t, cfg := t, cfg
		g.Go(func() error {
			out, err := Simulate(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("trial %d: %w", t, err)
			}
			var angles []float64
			for _, p := range cfg.Pendulums {
				for _, b := range p.Bobs {
					angles = append(angles, b.Angle)
				}
			}
			results[t] = TrialResult{Trial: t, Angles: angles, Outcome: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("monte carlo complete", "trials", mc.Trials, "seed", seed)
	return results, nil
}

// MonteCarloStats counts stable and diverged trials.
func MonteCarloStats(results []TrialResult) (stable, unstable int) {
	for _, r := range results {
		if r.Stable() {
			stable++
		} else {
			unstable++
		}
	}
	return
}

// Spread returns the smallest and largest final total energy over results.
func Spread(results []TrialResult) (lo, hi float64) {
	for i, r := range results {
		e := r.Final.Total()
		if i == 0 || e < lo {
			lo = e
		}
		if i == 0 || e > hi {
			hi = e
		}
	}
	return lo, hi
}
