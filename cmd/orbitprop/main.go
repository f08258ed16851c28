package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/automation"
	"github.com/san-kum/orbitprop/internal/config"
	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/experiment"
	"github.com/san-kum/orbitprop/internal/metrics"
	"github.com/san-kum/orbitprop/internal/orbit"
	"github.com/san-kum/orbitprop/internal/propagator"
	"github.com/san-kum/orbitprop/internal/sequence"
	"github.com/san-kum/orbitprop/internal/storage"
	"github.com/san-kum/orbitprop/internal/viz"
)

var (
	configFile string
	preset     string
	stepper    string
	stepSize   float64
	duration   float64
	bodies     []string
	samples    int
	adaptive   bool
	tolerance  float64
	elements   []string
	noSave     bool
	limit      int

	sweepMin   float64
	sweepMax   float64
	sweepCount int
)

// app holds what PersistentPreRunE builds from the global flags.
type app struct {
	logger    *slog.Logger
	registry  *experiment.Registry
	gatherer  *prometheus.Registry
	collector *metrics.Collector
	theme     viz.Theme
	store     *storage.Store
}

var cli app

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd, err := newRootCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:                "orbitprop",
		Short:              "satellite orbit propagation with event detection",
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("data", ".orbitprop", "data directory for the run history")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("metrics-file", "", "write prometheus metrics to this textfile on exit")
	pf.String("theme", viz.ThemeNight.Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	pf.Int("workers", 0, "parallel propagations for batch and sweep (0 = GOMAXPROCS)")

	viper.SetEnvPrefix("ORBITPROP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(pf); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	runCmd := &cobra.Command{
		Use:   "run [regime/preset]",
		Short: "propagate a scenario and print a report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPropagation,
	}
	scenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run in the history")

	liveCmd := &cobra.Command{
		Use:   "live [regime/preset]",
		Short: "propagate with a live orbit view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	scenarioFlags(liveCmd)

	plotCmd := &cobra.Command{
		Use:   "plot [regime/preset]",
		Short: "plot altitude and orbital elements over a propagation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotPropagation,
	}
	scenarioFlags(plotCmd)
	plotCmd.Flags().StringSliceVar(&elements, "elements", []string{"SemiMajorAxis", "Eccentricity"}, "elements to plot")

	presetsCmd := &cobra.Command{
		Use:   "presets [regime]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	batchCmd := &cobra.Command{
		Use:   "batch regime/preset...",
		Short: "propagate several presets in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatch,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [regime/preset]",
		Short: "compare fixed step sizes against an adaptive reference",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	scenarioFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 5, "smallest step size [s]")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 120, "largest step size [s]")
	sweepCmd.Flags().IntVar(&sweepCount, "n", 6, "number of step sizes")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	runsCmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show (0 = all)")

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print the scenario of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	rerunCmd := &cobra.Command{
		Use:   "rerun [run_id]",
		Short: "propagate the scenario of a recorded run again",
		Args:  cobra.ExactArgs(1),
		RunE:  rerun,
	}

	rmCmd := &cobra.Command{
		Use:   "rm [run_id]",
		Short: "delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  removeRun,
	}

	rootCmd.AddCommand(runCmd, liveCmd, plotCmd, presetsCmd, batchCmd, scenarioCmd, sweepCmd, runsCmd, showCmd, rerunCmd, rmCmd)
	return rootCmd, nil
}

func scenarioFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "scenario file (yaml)")
	f.StringVar(&preset, "preset", "", "preset as regime/name")
	f.StringVar(&stepper, "stepper", "", "stepper ("+strings.Join(experiment.NewRegistry().ListSteppers(), ", ")+")")
	f.Float64Var(&stepSize, "dt", 0, "step size [s]")
	f.Float64Var(&duration, "time", 0, "duration [s], negative to propagate backward")
	f.StringSliceVar(&bodies, "bodies", nil, "third bodies (moon, sun)")
	f.IntVar(&samples, "samples", 0, "trajectory samples kept for plots")
	f.BoolVar(&adaptive, "adaptive", false, "adaptive step size control (rk45)")
	f.Float64Var(&tolerance, "tol", 0, "adaptive error tolerance")
}

func setup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(viper.GetString("log-level"), viper.GetString("log-format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	gatherer := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(gatherer)
	if err != nil {
		return err
	}

	store, err := storage.Open(filepath.Join(viper.GetString("data"), "runs.db"))
	if err != nil {
		return err
	}

	cli = app{
		logger:    logger,
		registry:  experiment.NewRegistry(),
		gatherer:  gatherer,
		collector: collector,
		theme:     viz.GetTheme(viper.GetString("theme")),
		store:     store,
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	defer cli.store.Close()
	if path := viper.GetString("metrics-file"); path != "" {
		return metrics.WriteTextfile(path, cli.gatherer)
	}
	return nil
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}

// resolveScenario builds the scenario from --config, a preset (argument or
// --preset) or the defaults, then applies the flags the user set.
func resolveScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	step := automation.ScenarioStep{Config: configFile, Preset: preset}
	if len(args) > 0 {
		step.Preset = args[0]
	}

	f := cmd.Flags()
	if f.Changed("stepper") {
		step.Stepper = stepper
	}
	if f.Changed("dt") {
		step.StepSize = stepSize
	}
	if f.Changed("time") {
		step.Duration = duration
	}
	if f.Changed("bodies") {
		step.Bodies = bodies
	}

	cfg, err := step.Resolve(".")
	if err != nil {
		return nil, err
	}
	if f.Changed("samples") {
		cfg.Samples = samples
	}
	if f.Changed("adaptive") {
		cfg.Solver.Adaptive = adaptive
	}
	if f.Changed("tol") {
		cfg.Solver.Tolerance = tolerance
	}
	return cfg, cfg.Validate()
}

func runPropagation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args)
	if err != nil {
		return err
	}
	return propagateAndReport(cmd.Context(), cfg, !noSave)
}

func propagateAndReport(ctx context.Context, cfg *config.Config, save bool) error {
	exp, err := experiment.New(cfg, cli.registry,
		experiment.WithLogger(cli.logger),
		experiment.WithRecorder(cli.collector))
	if err != nil {
		return err
	}

	res, runErr := exp.Run(ctx)
	if save {
		id, err := cli.store.Save(ctx, cfg, res, runErr)
		if err != nil {
			cli.logger.Warn("run not recorded", "error", err)
		} else {
			cli.logger.Info("run recorded", "id", id)
		}
	}
	if res == nil {
		return runErr
	}

	central := exp.Environment().CentralBody()
	fmt.Println(viz.Report(res, central.Mu, cli.theme))
	fmt.Println(viz.AltitudePlot(res.Samples, central.Radius, 70, 10))
	if errors.Is(runErr, sequence.ErrMaximumDuration) {
		fmt.Println("sequence stopped at its maximum duration")
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args)
	if err != nil {
		return err
	}

	feed := viz.NewFeed(64)
	exp, err := experiment.New(cfg, cli.registry,
		experiment.WithRecorder(cli.collector),
		experiment.WithObserver(feed))
	if err != nil {
		return err
	}

	res, err := viz.RunLive(cmd.Context(), cfg.Name, exp, feed, cli.theme)
	if res != nil {
		fmt.Println(viz.Report(res, exp.Environment().CentralBody().Mu, cli.theme))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func plotPropagation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args)
	if err != nil {
		return err
	}

	parsed := make([]orbit.Element, 0, len(elements))
	for _, name := range elements {
		e, err := orbit.ParseElement(name)
		if err != nil {
			return err
		}
		parsed = append(parsed, e)
	}

	exp, err := experiment.New(cfg, cli.registry,
		experiment.WithLogger(cli.logger),
		experiment.WithRecorder(cli.collector))
	if err != nil {
		return err
	}
	res, err := exp.Run(cmd.Context())
	if res == nil {
		return err
	}

	central := exp.Environment().CentralBody()
	fmt.Println(viz.AltitudePlot(res.Samples, central.Radius, 70, 10))
	for _, e := range parsed {
		fmt.Println()
		fmt.Println(viz.ElementPlot(res.Samples, e, central.Mu, 70, 8))
	}
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	regimes := config.Regimes()
	if len(args) > 0 {
		regimes = args
	}
	for _, regime := range regimes {
		names := config.ListPresets(regime)
		if len(names) == 0 {
			fmt.Printf("no presets for regime: %s\n", regime)
			continue
		}
		fmt.Printf("%s:\n", regime)
		for _, name := range names {
			fmt.Printf("  %s/%s\n", regime, name)
		}
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	jobs := make([]propagator.Job, 0, len(args))
	for _, name := range args {
		cfg, err := automation.ScenarioStep{Preset: name}.Resolve(".")
		if err != nil {
			return err
		}
		exp, err := experiment.New(cfg, cli.registry,
			experiment.WithLogger(cli.logger),
			experiment.WithRecorder(cli.collector))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		jobs = append(jobs, exp.Job())
	}

	start := time.Now()
	results, err := propagator.Batch(cmd.Context(), jobs, viper.GetInt("workers"), cli.logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEND\tSTEPS\tEVALS\tRADIUS [km]\tOUTCOME")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%v\n", r.Name, r.Err)
			continue
		}
		outcome := "target"
		if r.Result.ConditionSatisfied {
			outcome = "event " + r.Result.Condition
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.3f\t%s\n",
			r.Name,
			r.Result.State.Instant().UTC().Format(time.RFC3339),
			r.Result.Steps,
			r.Result.Evaluations,
			r3.Norm(r.Result.State.Position())/1e3,
			outcome,
		)
	}
	w.Flush()
	fmt.Printf("%d propagations in %s\n", len(jobs), time.Since(start).Round(time.Millisecond))
	return err
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if scenario.Description != "" {
		fmt.Println(scenario.Description)
	}

	results, err := automation.RunScenario(cmd.Context(), scenario, cli.registry, cli.logger)
	for _, res := range results {
		fmt.Println(viz.Report(res, environment.EarthMu, cli.theme))
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveScenario(cmd, args)
	if err != nil {
		return err
	}

	sweep := &automation.StepSweep{
		Config:   cfg,
		Stepper:  cfg.Solver.Stepper,
		MinStep:  sweepMin,
		MaxStep:  sweepMax,
		NumSteps: sweepCount,
		Workers:  viper.GetInt("workers"),
	}
	results, err := automation.RunSweep(cmd.Context(), sweep, cli.registry, cli.logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STEP [s]\tPOS ERR [m]\tVEL ERR [m/s]\tSTEPS\tEVALS\t(%s)\n", sweep.Stepper)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%.3f\t-\t-\t-\t-\t%v\n", r.StepSize, r.Err)
			continue
		}
		fmt.Fprintf(w, "%.3f\t%.3e\t%.3e\t%d\t%d\t\n", r.StepSize, r.PositionError, r.VelocityError, r.Steps, r.Evaluations)
	}
	w.Flush()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := cli.store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRECORDED\tSPAN\tSTEPPER\tSTEPS\tOUTCOME")
	for _, run := range runs {
		outcome := "target"
		switch {
		case run.Err != "":
			outcome = "error: " + run.Err
		case run.ConditionSatisfied:
			outcome = "event " + run.Condition
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			run.Name,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Final.Sub(run.Epoch),
			run.Stepper,
			run.Steps,
			outcome,
		)
	}
	return w.Flush()
}

func loadRun(ctx context.Context, arg string) (*storage.Run, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q", arg)
	}
	return cli.store.Load(ctx, id)
}

func showRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(run.Scenario)
	return err
}

func rerun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	cfg, err := run.Config()
	if err != nil {
		return fmt.Errorf("run %d: %w", run.ID, err)
	}
	return propagateAndReport(cmd.Context(), cfg, true)
}

func removeRun(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}
	return cli.store.Delete(cmd.Context(), id)
}
