package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/stipple/internal/analysis"
	"github.com/san-kum/stipple/internal/compute"
	"github.com/san-kum/stipple/internal/config"
	"github.com/san-kum/stipple/internal/driver"
	"github.com/san-kum/stipple/internal/frames"
	"github.com/san-kum/stipple/internal/metrics"
	"github.com/san-kum/stipple/internal/optim"
	"github.com/san-kum/stipple/internal/particles"
	"github.com/san-kum/stipple/internal/render"
	"github.com/san-kum/stipple/internal/sim"
	"github.com/san-kum/stipple/internal/storage"
	"github.com/san-kum/stipple/internal/viz"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newStepper allocates the particle store, scatters numDots particles and
// wires the chosen backend. The returned cleanup releases the backend.
func newStepper(cfg *config.Config, numDots int, logger *slog.Logger) (*sim.Stepper, func(), error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, nil, err
	}

	store, err := particles.New(cfg.Simulation.BufXY, params.Codecs())
	if err != nil {
		return nil, nil, err
	}
	if err := store.Initialize(numDots, cfg.Simulation.Seed); err != nil {
		return nil, nil, err
	}

	backend, err := compute.Select(cfg.Simulation.Backend, logger)
	if err != nil {
		return nil, nil, err
	}

	stepper, err := sim.NewStepper(params, store, backend)
	if err != nil {
		backend.Cleanup()
		return nil, nil, err
	}
	return stepper, backend.Cleanup, nil
}

func schedule(cfg *config.Config) driver.Schedule {
	return driver.Schedule{
		FirstSteps:   cfg.Schedule.FirstSteps,
		FirstSamples: cfg.Schedule.FirstSamples,
		Steps:        cfg.Schedule.Steps,
		Samples:      cfg.Schedule.Samples,
	}
}

func inputPattern(cfg *config.Config) frames.Pattern {
	return frames.Pattern{Prefix: cfg.Input.Prefix, Pad: cfg.Input.Pad, Suffix: cfg.Input.Suffix}
}

func runStipple(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder, err := cfg.FieldBuilder()
	if err != nil {
		return err
	}

	stepper, cleanup, err := newStepper(cfg, cfg.Simulation.NumDots, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	style := render.Style{Size: cfg.Output.Size, DotRadius: cfg.Output.DotRadius, Invert: cfg.Output.Invert}
	namer := frames.NewNamer(frames.Pattern{
		Prefix: cfg.Output.Prefix,
		Pad:    cfg.Output.Pad,
		Suffix: cfg.Output.Suffix,
	}, cfg.Output.Start)
	exporter, err := render.NewExporter(style, cfg.Output.Format, namer, logger)
	if err != nil {
		return err
	}
	sinks := driver.MultiSink{exporter}

	var (
		telemetry *metrics.Telemetry
		run       *storage.Run
	)
	if cfg.Run.Telemetry {
		telemetry = metrics.NewTelemetry(telemetryEvery, metrics.DefaultMetrics()...)
		stepper.AddObserver(telemetry)

		run, err = storage.New(cfg.Run.DataDir).Create("stipple")
		if err != nil {
			return err
		}
		if err := run.SaveConfig(cfg); err != nil {
			return err
		}
		sinks = append(sinks, run)
	}

	seq := frames.NewSequence(inputPattern(cfg), cfg.Input.Start, cfg.Input.End, cfg.Input.Step, logger)
	defer seq.Close()

	logger.Info("stippling",
		"frames", seq.Len(),
		"dots", cfg.Simulation.NumDots,
		"backend", stepper.Backend().Name(),
	)

	stats, runErr := driver.New(stepper, builder, schedule(cfg), logger).Run(ctx, seq, sinks)

	if run != nil {
		meta := storage.RunMetadata{
			Seed:      cfg.Simulation.Seed,
			NumDots:   cfg.Simulation.NumDots,
			Backend:   stepper.Backend().Name(),
			Input:     inputPattern(cfg).Path(cfg.Input.Start),
			Frames:    stats.Frames,
			Samples:   stats.Samples,
			Steps:     stats.Steps,
			ElapsedMS: stats.Elapsed.Milliseconds(),
			Metrics:   telemetry.Summary(),
		}
		if err := run.Finish(meta, telemetry.Records()); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info("run saved", "id", run.ID, "dir", run.Dir)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("completed in %v\n", stats.Elapsed.Round(time.Millisecond))
	fmt.Printf("frames: %d\n", stats.Frames)
	fmt.Printf("samples: %d\n", stats.Samples)
	fmt.Printf("steps: %d\n", stats.Steps)
	if telemetry != nil {
		fmt.Println("\nmetrics:")
		summary := telemetry.Summary()
		names := make([]string, 0, len(summary))
		for name := range summary {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %.6f\n", name, summary[name])
		}
	}
	return nil
}

func previewFields(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	builder, err := cfg.FieldBuilder()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := frames.Pattern{Prefix: fieldOut, Pad: cfg.Input.Pad, Suffix: ".png"}
	seq := frames.NewSequence(inputPattern(cfg), cfg.Input.Start, cfg.Input.End, cfg.Input.Step, slog.Default())

	return seq.ForEach(ctx, parallel, func(ctx context.Context, f driver.Frame) error {
		fld, err := builder.Build(f.Image)
		if err != nil {
			return fmt.Errorf("frame %d: %w", f.Index, err)
		}
		path := out.Path(f.Index)
		if err := frames.SavePNG(path, render.Scale(fld.Preview(), fieldSize)); err != nil {
			return err
		}
		slog.Info("field written", "frame", f.Index, "path", path, "limit", fld.Limit())
		return nil
	})
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	builder, err := cfg.FieldBuilder()
	if err != nil {
		return err
	}

	ctx := context.Background()
	seq := frames.NewSequence(inputPattern(cfg), cfg.Input.Start, cfg.Input.End, cfg.Input.Step, slog.Default())
	defer seq.Close()

	var loaded []driver.Frame
	for {
		f, err := seq.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		loaded = append(loaded, f)
	}

	stepper, cleanup, err := newStepper(cfg, cfg.Simulation.NumDots, slog.Default())
	if err != nil {
		return err
	}
	defer cleanup()

	telemetry := metrics.NewTelemetry(1, metrics.DefaultMetrics()...)
	stepper.AddObserver(telemetry)

	model, err := viz.NewModel(viz.LiveOptions{
		Stepper:      stepper,
		Builder:      builder,
		Frames:       loaded,
		Schedule:     schedule(cfg),
		Telemetry:    telemetry,
		Seed:         cfg.Simulation.Seed,
		StepsPerTick: stepsPerTick,
	})
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	runs, err := storage.New(cfg.Run.DataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tDOTS\tFRAMES\tSAMPLES\tSTEPS\tBACKEND\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%v\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NumDots,
			run.Frames,
			run.Samples,
			run.Steps,
			run.Backend,
			time.Duration(run.ElapsedMS)*time.Millisecond,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.Run.DataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadTelemetry(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no telemetry to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("dots: %d\n", meta.NumDots)
	fmt.Printf("records: %d\n\n", len(records))

	series := []struct {
		caption string
		value   func(metrics.Record) float64
	}{
		{"mean speed", func(r metrics.Record) float64 { return r.MeanSpeed }},
		{"kinetic energy", func(r metrics.Record) float64 { return r.KineticEnergy }},
		{"mean acceleration", func(r metrics.Record) float64 { return r.MeanAccel }},
		{"dots on the boundary", func(r metrics.Record) float64 { return float64(r.Boundary) }},
	}

	for _, s := range series {
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = s.value(r)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	positions, err := storage.New(cfg.Run.DataDir).LoadPositions(runID)
	if err != nil {
		return err
	}

	spectrum, err := analysis.RadialSpectrum(positions, spectrumGrid)
	if err != nil {
		return err
	}
	mean, cv, err := analysis.NearestNeighbor(positions)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("dots: %d\n", len(positions))
	fmt.Printf("nearest neighbor: mean %.5f, cv %.4f\n", mean, cv)
	fmt.Printf("low frequency power: %.4f (random dots give 1)\n\n", analysis.LowFrequencyPower(spectrum, len(spectrum)/4))

	fmt.Println(asciigraph.Plot(spectrum[1:],
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("radial power spectrum"),
	))
	return nil
}

func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, nil, fmt.Errorf("invalid --param %q (want name=v1,v2)", spec)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid value in --param %q: %w", spec, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

// tuneParams runs the first transition on the first input frame for every
// grid point and ranks the points by low frequency power of the result.
func tuneParams(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(tuneParamsFlag)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no --param given (tunable: %s)", strings.Join(config.Tunable(), ", "))
	}
	search, err := optim.NewGridSearch(names, ranges, parallel)
	if err != nil {
		return err
	}

	img, err := inputPattern(cfg).Load(cfg.Input.Start)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	objective := func(ctx context.Context, p map[string]float64) (float64, error) {
		tc := *cfg
		tc.Simulation.Backend = "cpu"
		for name, v := range p {
			if err := tc.SetParam(name, v); err != nil {
				return 0, err
			}
		}
		if err := tc.Validate(); err != nil {
			return 0, err
		}

		builder, err := tc.FieldBuilder()
		if err != nil {
			return 0, err
		}
		fld, err := builder.Build(img)
		if err != nil {
			return 0, err
		}
		stepper, cleanup, err := newStepper(&tc, tc.Simulation.NumDots, slog.Default())
		if err != nil {
			return 0, err
		}
		defer cleanup()

		stepper.SetField(fld)
		if err := stepper.Step(ctx, tc.Schedule.FirstSteps); err != nil {
			return 0, err
		}
		spectrum, err := analysis.RadialSpectrum(stepper.Store().Positions(), spectrumGrid)
		if err != nil {
			return 0, err
		}
		return analysis.LowFrequencyPower(spectrum, len(spectrum)/4), nil
	}

	slog.Info("tuning", "points", len(search.Points()), "steps", cfg.Schedule.FirstSteps)
	trials, err := search.Search(ctx, objective)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\t%s\tSCORE\n", strings.ToUpper(strings.Join(names, "\t")))
	for i, tr := range trials[:min(topTrials, len(trials))] {
		fmt.Fprintf(w, "%d", i+1)
		for _, name := range names {
			fmt.Fprintf(w, "\t%g", tr.Params[name])
		}
		fmt.Fprintf(w, "\t%.5f\n", tr.Score)
	}
	return w.Flush()
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("available presets:")
		for _, name := range config.ListPresets() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		fmt.Printf("config written to %s\n", args[0])
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// benchBackends times full timesteps under a flat field for a few particle
// counts on every backend that starts.
func benchBackends(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.Default()
	ctx := context.Background()

	counts := []int{256, 1024, 4096}

	fmt.Printf("benchmarking %d steps per run\n\n", benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tDOTS\tSTEPS\tTIME\tSTEPS/SEC\tPAIRS/SEC")

	for _, name := range []string{"cpu", "gpu"} {
		for _, n := range counts {
			bc := *cfg
			bc.Simulation.Backend = name
			bc.Simulation.NumDots = n
			bc.Simulation.BufXY = int(math.Ceil(math.Sqrt(float64(n))))
			bc.Refresh()

			stepper, cleanup, err := newStepper(&bc, n, logger)
			if errors.Is(err, compute.ErrBackendUnavailable) {
				logger.Info("skipping backend", "backend", name, "err", err)
				break
			}
			if err != nil {
				return err
			}

			builder, err := bc.FieldBuilder()
			if err != nil {
				cleanup()
				return err
			}
			flat, err := builder.BuildFlat()
			if err != nil {
				cleanup()
				return err
			}
			stepper.SetField(flat)

			start := time.Now()
			err = stepper.Step(ctx, benchSteps)
			elapsed := time.Since(start)
			cleanup()
			if err != nil {
				return err
			}

			rate := float64(benchSteps) / elapsed.Seconds()
			fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%.3g\n",
				name, n, benchSteps, elapsed.Round(time.Microsecond), rate, rate*float64(n)*float64(n))
		}
	}

	return w.Flush()
}
