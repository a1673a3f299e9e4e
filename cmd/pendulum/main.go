package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/RazorBest/Pendulum-Sandbox/internal/analysis"
	"github.com/RazorBest/Pendulum-Sandbox/internal/automation"
	"github.com/RazorBest/Pendulum-Sandbox/internal/config"
	"github.com/RazorBest/Pendulum-Sandbox/internal/export"
	"github.com/RazorBest/Pendulum-Sandbox/internal/metrics"
	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/storage"
	"github.com/RazorBest/Pendulum-Sandbox/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	dt         float64
	duration   float64
	friction   float64
	configFile string
	preset     string
	jsonOut    string
	outFile    string
	themeName  string
	benchSteps int
	pendulumID int
	bobID      int
	lyapSteps  int
	ticks      int
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	trials     int
	perturb    float64
	seed       int64

	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pendulum",
		Short: "multi-link pendulum sandbox",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = log.NewWithOptions(os.Stderr, log.Options{
				Level:           level,
				Prefix:          "pendulum",
				ReportTimestamp: true,
				TimeFormat:      time.Kitchen,
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(logger, viz.Options{OutDir: dataDir, Theme: themeName})
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pendulum", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&themeName, "theme", "", "color theme")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene headless and store the trace",
		RunE:  runScene,
	}
	runCmd.Flags().StringVar(&preset, "preset", "double", "preset scene")
	runCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "override the time step")
	runCmd.Flags().Float64Var(&duration, "time", 0, "override the duration in seconds at the scene dt")
	runCmd.Flags().IntVar(&ticks, "ticks", 0, "number of steps (overrides --time)")
	runCmd.Flags().Float64Var(&friction, "friction", 0, "override the friction")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also export the run to this JSON file")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with live visualization",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&preset, "preset", "double", "preset scene")
	liveCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	liveCmd.Flags().Float64Var(&friction, "friction", 0, "override the friction")
	liveCmd.Flags().StringVar(&themeName, "theme", "", "color theme")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the energy of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	pngCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render the energy of a run to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	pngCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <data>/<run_id>/energy.png)")

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write a preset as an editable scene file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetPreset(preset)
			if cfg == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			logger.Info("scene written", "preset", preset, "path", args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&preset, "preset", "double", "preset scene")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-10s %s\n", name, config.Describe(config.Presets[name]))
			}
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "time stepping for one or every preset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  bench,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 10000, "steps per preset")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and phase analysis of one bob",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&pendulumID, "pendulum", 1, "pendulum id")
	analyzeCmd.Flags().IntVar(&bobID, "bob", 1, "bob id")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov",
		Short: "estimate the largest Lyapunov exponent of each pendulum",
		RunE:  lyapunov,
	}
	lyapunovCmd.Flags().StringVar(&preset, "preset", "double", "preset scene")
	lyapunovCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	lyapunovCmd.Flags().Float64Var(&friction, "friction", 0, "override the friction")
	lyapunovCmd.Flags().IntVar(&lyapSteps, "steps", 20000, "steps to integrate")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scene across a range of one parameter",
		RunE:  sweep,
	}
	sweepCmd.Flags().StringVar(&preset, "preset", "double", "preset scene")
	sweepCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	sweepCmd.Flags().Float64Var(&duration, "time", 0, "override the duration")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "friction", "parameter to sweep (friction, gravity, scale, dt)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "rerun a scene with randomly perturbed initial angles",
		RunE:  monteCarlo,
	}
	monteCarloCmd.Flags().StringVar(&preset, "preset", "double", "preset scene")
	monteCarloCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	monteCarloCmd.Flags().Float64Var(&duration, "time", 0, "override the duration")
	monteCarloCmd.Flags().Float64Var(&friction, "friction", 0, "override the friction")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 0.01, "largest angle offset (rad)")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, pngCmd, initCmd, presetsCmd, benchCmd, analyzeCmd, lyapunovCmd, sweepCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadScene resolves --config or --preset and applies command line overrides.
func loadScene(cmd *cobra.Command) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		name string
	)
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	} else {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		name = preset
	}

	if f := cmd.Flags().Lookup("dt"); f != nil && f.Changed {
		cfg.Dt = dt
	}
	if f := cmd.Flags().Lookup("time"); f != nil && f.Changed {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("friction") {
		cfg.Friction = friction
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}

	s, err := cfg.Build(logger)
	if err != nil {
		return err
	}
	tracker, err := metrics.NewEnergyTracker(s.TotalProbe(), cfg.SampleEvery, 0)
	if err != nil {
		return err
	}
	stability := metrics.NewStability()

	// --ticks counts steps per pendulum, so only --time needs a shared dt.
	steps := ticks
	if steps <= 0 {
		if err := cfg.UniformDt(); err != nil {
			return err
		}
		steps = int(math.Round(cfg.Duration / cfg.Dt))
	}
	logger.Info("running scene", "scene", name, "steps", steps, "dt", cfg.Dt, "friction", cfg.Friction)

	var trace storage.Trace
	tracker.Observe()
	trace.States = append(trace.States, storage.StateRows(0, s.Snapshot())...)

	start := time.Now()
	for i := 1; i <= steps; i++ {
		r := s.Step()
		stability.Observe(r)
		for _, id := range r.Faults() {
			logger.Warn("pendulum diverged", "pendulum", id, "step", i)
		}
		if tracker.Tick() {
			trace.States = append(trace.States, storage.StateRows(i, s.Snapshot())...)
		}
	}
	elapsed := time.Since(start)
	trace.Energy = tracker.Samples()

	st := storage.New(dataDir)
	meta := storage.RunMetadata{
		Preset:    name,
		Dt:        cfg.Dt,
		Ticks:     steps,
		Friction:  cfg.Friction,
		Pendulums: len(cfg.Pendulums),
		Bobs:      cfg.BobCount(),
		MaxDrift:  tracker.MaxDrift(),
		Metrics: map[string]float64{
			tracker.Name():   tracker.Value(),
			stability.Name(): stability.Value(),
		},
	}
	for _, c := range s.Snapshot() {
		if c.Fault != nil {
			meta.Faults = append(meta.Faults, c.ID)
		}
	}

	runID, err := st.Save(meta, trace)
	if err != nil {
		return err
	}
	meta.ID = runID

	if jsonOut != "" {
		data := storage.NewExportData(meta, trace.Energy, s.Snapshot())
		if err := storage.ExportJSON(jsonOut, data); err != nil {
			return err
		}
		logger.Info("exported", "path", jsonOut)
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", steps)
	fmt.Println("\nmetrics:")
	for name, val := range meta.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.Build(logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	m, err := viz.NewModel(s, viz.Options{
		Title:       name,
		Logger:      logger,
		SampleEvery: cfg.SampleEvery,
		OutDir:      dataDir,
		Theme:       themeName,
	})
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tTICKS\tDT\tPENDULUMS\tDRIFT\tFAULTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%d\t%.3f%%\t%d\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Ticks,
			run.Dt,
			run.Pendulums,
			100*run.MaxDrift,
			len(run.Faults),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadEnergy(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(samples))

	series := []struct {
		caption string
		value   func(metrics.Sample) float64
	}{
		{"kinetic energy (J)", func(s metrics.Sample) float64 { return s.Kinetic }},
		{"potential energy (J)", func(s metrics.Sample) float64 { return s.Potential }},
		{"total energy (J)", metrics.Sample.Total},
	}
	for _, sr := range series {
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = sr.value(s)
		}
		fmt.Println(asciigraph.Plot(data, asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption(sr.caption)))
		fmt.Println()
	}
	return nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadEnergy(runID)
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = filepath.Join(dataDir, runID, "energy.png")
	}
	if err := export.SaveEnergyPNG(path, meta.Preset, samples, meta.Dt); err != nil {
		return err
	}
	fmt.Printf("written to %s\n", path)
	return nil
}

func bench(cmd *cobra.Command, args []string) error {
	if benchSteps < 1 {
		return fmt.Errorf("steps must be positive")
	}

	names := config.ListPresets()
	if len(args) == 1 {
		if config.GetPreset(args[0]) == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], names)
		}
		names = args[:1]
	}

	fmt.Printf("benchmarking %d steps per preset\n\n", benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tBOBS\tTIME\tSTEPS/SEC\tFAULTS")

	for _, name := range names {
		cfg := config.GetPreset(name)
		s, err := cfg.Build(logger)
		if err != nil {
			return err
		}
		stability := metrics.NewStability()

		start := time.Now()
		for i := 0; i < benchSteps; i++ {
			stability.Observe(s.Step())
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%d\n",
			name,
			cfg.BobCount(),
			elapsed.Round(time.Microsecond),
			float64(benchSteps)/elapsed.Seconds(),
			stability.Faulted(),
		)
	}
	return w.Flush()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	series := analysis.BobSeries(rows, pendulumID, bobID)
	if series.Len() < 2 {
		return fmt.Errorf("no data for pendulum %d bob %d", pendulumID, bobID)
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("pendulum %d, bob %d, %d samples\n\n", pendulumID, bobID, series.Len())

	sampleDt := float64(series.Ticks[1]-series.Ticks[0]) * meta.Dt
	ps := analysis.PowerSpectrum(series.Angle)
	if len(ps) > 4 {
		fmt.Println(asciigraph.Plot(ps[:len(ps)/4],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (angle)"),
		))
		fmt.Println()
	}

	freq, _ := analysis.DominantFrequency(series.Angle, sampleDt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	fmt.Println("\nphase portrait (angle vs angular velocity)")
	fmt.Print(analysis.ToASCII(analysis.PhasePortrait(series), 70, 20))
	return nil
}

func lyapunov(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("lyapunov exponents: %s (%d steps)\n\n", name, lyapSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PENDULUM\tBOBS\tLAMBDA (1/s)")
	for _, p := range cfg.Pendulums {
		newChain := func() (*pendulum.Chain, error) {
			dt := cfg.Dt
			if p.Dt > 0 {
				dt = p.Dt
			}
			c, err := pendulum.New(p.Pivot.X, p.Pivot.Y, dt)
			if err != nil {
				return nil, err
			}
			if err := c.SetParam("scale", cfg.Scale); err != nil {
				return nil, err
			}
			if err := c.SetParam("gravity", cfg.Gravity); err != nil {
				return nil, err
			}
			for _, b := range p.Bobs {
				if err := c.AddBob(b.ID, b.Params()); err != nil {
					return nil, err
				}
			}
			return c, nil
		}

		lambda, err := analysis.LyapunovExponent(newChain, cfg.Friction, 1e-8, lyapSteps)
		if err != nil {
			logger.Warn("estimate failed", "pendulum", p.ID, "err", err)
			fmt.Fprintf(w, "%d\t%d\t-\n", p.ID, len(p.Bobs))
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%.4f\n", p.ID, len(p.Bobs), lambda)
	}
	return w.Flush()
}

func sweep(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}

	logger.Info("sweeping", "scene", name, "param", sweepParam, "min", sweepMin, "max", sweepMax, "steps", sweepSteps)
	results, err := automation.RunSweep(context.Background(), automation.Sweep{
		Base:  cfg,
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMIN E\tMAX E\tFINAL E\tDRIFT\tFAULTS\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%.3f\t%.3f\t%.3f\t%.3f%%\t%d\n",
			r.Value, r.MinEnergy, r.MaxEnergy, r.Final.Total(), 100*r.MaxDrift, r.Faults)
	}
	return w.Flush()
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}

	logger.Info("monte carlo", "scene", name, "trials", trials, "perturb", perturb)
	results, err := automation.RunMonteCarlo(context.Background(), automation.MonteCarlo{
		Base:         cfg,
		Perturbation: perturb,
		Trials:       trials,
		Seed:         seed,
	}, logger)
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	lo, hi := automation.Spread(results)
	finals := make([]float64, len(results))
	for i, r := range results {
		finals[i] = r.Final.Total()
	}

	fmt.Printf("trials: %d\n", len(results))
	fmt.Printf("stable: %d, diverged: %d\n", stable, unstable)
	fmt.Printf("final energy: %.3f .. %.3f J\n\n", lo, hi)
	if len(finals) > 1 {
		fmt.Println(asciigraph.Plot(finals, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("final energy per trial (J)")))
	}
	return nil
}
