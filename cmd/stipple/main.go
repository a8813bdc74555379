package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/san-kum/stipple/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	logFormat  string
	verbose    bool

	numDots    int
	seed       int64
	backend    string
	polarity   string
	blankLevel float64
	firstSteps int
	steps      int
	samples    int

	inputPrefix string
	inputSuffix string
	inputPad    int
	startFrame  int
	endFrame    int
	frameStep   int

	outputPrefix string
	outputFormat string
	outputSize   int
	dotRadius    float64
	invert       bool

	telemetryEvery int
	stepsPerTick   int
	fieldOut       string
	fieldSize      int
	parallel       int
	benchSteps     int
	spectrumGrid   int
	tuneParamsFlag []string
	topTrials      int
)

// main registers the commands and exits with status 1 if the chosen command
// fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "stipple",
		Short:         "blue-noise stippling by particle simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logFormat, verbose)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset configuration")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "stipple an image sequence into numbered output frames",
		Args:  cobra.NoArgs,
		RunE:  runStipple,
	}
	addSimulationFlags(runCmd)
	addInputFlags(runCmd)
	runCmd.Flags().StringVar(&outputPrefix, "out", "", "output path prefix")
	runCmd.Flags().StringVar(&outputFormat, "format", "png", "output format: png or svg")
	runCmd.Flags().IntVar(&outputSize, "size", config.DefaultOutputSize, "output image size in pixels")
	runCmd.Flags().Float64Var(&dotRadius, "radius", config.DefaultDotRadius, "dot radius in pixels")
	runCmd.Flags().BoolVar(&invert, "invert", false, "light dots on a dark background")
	runCmd.Flags().IntVar(&telemetryEvery, "telemetry-every", 1, "record telemetry every n timesteps")

	fieldCmd := &cobra.Command{
		Use:   "field",
		Short: "write charge field previews for the input frames",
		Args:  cobra.NoArgs,
		RunE:  previewFields,
	}
	addInputFlags(fieldCmd)
	fieldCmd.Flags().StringVar(&polarity, "polarity", "dark", "which tones attract dots: dark or bright")
	fieldCmd.Flags().Float64Var(&blankLevel, "blank", config.DefaultBlankLevel, "luminance that carries no charge")
	fieldCmd.Flags().StringVar(&fieldOut, "out", "field/field_", "preview path prefix")
	fieldCmd.Flags().IntVar(&fieldSize, "size", 512, "preview size in pixels")
	fieldCmd.Flags().IntVar(&parallel, "parallel", 4, "frames built concurrently")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the simulation in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimulationFlags(liveCmd)
	addInputFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerTick, "steps-per-tick", 2, "timesteps per refresh")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run telemetry",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}
	addSimulationFlags(configCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "measure how evenly a run's final dots are spread",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&spectrumGrid, "grid", 64, "density grid used for the spectrum")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search parameters for the most even first frame",
		Args:  cobra.NoArgs,
		RunE:  tuneParams,
	}
	addSimulationFlags(tuneCmd)
	addInputFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParamsFlag, "param", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().IntVar(&parallel, "parallel", 4, "grid points evaluated concurrently")
	tuneCmd.Flags().IntVar(&spectrumGrid, "grid", 64, "density grid used for scoring")
	tuneCmd.Flags().IntVar(&topTrials, "top", 10, "trials to print")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark compute backends",
		Args:  cobra.NoArgs,
		RunE:  benchBackends,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 50, "timesteps per measurement")
	benchCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	rootCmd.AddCommand(runCmd, fieldCmd, liveCmd, listCmd, plotCmd, presetsCmd, configCmd, analyzeCmd, tuneCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&numDots, "dots", config.DefaultNumDots, "number of particles")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&backend, "backend", "auto", "compute backend: auto, cpu or gpu")
	cmd.Flags().StringVar(&polarity, "polarity", "dark", "which tones attract dots: dark or bright")
	cmd.Flags().Float64Var(&blankLevel, "blank", config.DefaultBlankLevel, "luminance that carries no charge")
	cmd.Flags().IntVar(&firstSteps, "first-steps", config.DefaultFirstSteps, "timesteps for the first frame")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "timesteps per later frame")
	cmd.Flags().IntVar(&samples, "samples", 1, "outputs per frame transition")
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&inputPrefix, "in", "", "input path prefix")
	cmd.Flags().StringVar(&inputSuffix, "suffix", "", "input path suffix")
	cmd.Flags().IntVar(&inputPad, "pad", 4, "digits in input frame numbers")
	cmd.Flags().IntVar(&startFrame, "start", 1, "first input frame")
	cmd.Flags().IntVar(&endFrame, "end", 1, "last input frame")
	cmd.Flags().IntVar(&frameStep, "every", 1, "frame index stride")
}

func newLogger(format string, debug bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
}

// resolveConfig layers defaults, preset, config file and changed flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("data") {
		cfg.Run.DataDir = dataDir
	}
	if f.Changed("dots") {
		cfg.Simulation.NumDots = numDots
	}
	if f.Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if f.Changed("backend") {
		cfg.Simulation.Backend = backend
	}
	if f.Changed("polarity") {
		cfg.Simulation.Polarity = polarity
	}
	if f.Changed("blank") {
		cfg.Simulation.BlankLevel = blankLevel
	}
	if f.Changed("first-steps") {
		cfg.Schedule.FirstSteps = firstSteps
	}
	if f.Changed("steps") && cmd.Name() != "bench" {
		cfg.Schedule.Steps = steps
	}
	if f.Changed("samples") {
		cfg.Schedule.Samples = samples
		cfg.Schedule.FirstSamples = samples
	}
	if f.Changed("in") {
		cfg.Input.Prefix = inputPrefix
	}
	if f.Changed("suffix") {
		cfg.Input.Suffix = inputSuffix
	}
	if f.Changed("pad") {
		cfg.Input.Pad = inputPad
	}
	if f.Changed("start") {
		cfg.Input.Start = startFrame
	}
	if f.Changed("end") {
		cfg.Input.End = endFrame
	}
	if f.Changed("every") {
		cfg.Input.Step = frameStep
	}
	if cmd.Name() == "run" {
		if f.Changed("out") {
			cfg.Output.Prefix = outputPrefix
		}
		if f.Changed("format") {
			cfg.Output.Format = outputFormat
			cfg.Output.Suffix = "." + outputFormat
		}
		if f.Changed("size") {
			cfg.Output.Size = outputSize
		}
		if f.Changed("radius") {
			cfg.Output.DotRadius = dotRadius
		}
		if f.Changed("invert") {
			cfg.Output.Invert = invert
		}
	}

	cfg.Refresh()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
