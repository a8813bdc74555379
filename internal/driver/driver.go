// Package driver walks an image sequence through the stepper and hands
// sampled particle positions to sinks.
package driver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/stipple/internal/field"
	"github.com/san-kum/stipple/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

var ErrNoFrames = errors.New("driver: source produced no frames")

// Frame is one decoded target image.
type Frame struct {
	Index int
	Path  string
	Image image.Image
}

// Source yields frames in order and returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Sample is the state handed to a sink after a chunk of timesteps.
type Sample struct {
	// Seq counts samples over the whole run, from 0.
	Seq        int
	Frame      Frame
	Transition int
	// Sub is the sample's position within its transition.
	Sub       int
	Step      int
	Positions []r2.Vec
	Field     *field.Field
}

type Sink interface {
	Sample(ctx context.Context, s Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s Sample) error

func (f SinkFunc) Sample(ctx context.Context, s Sample) error { return f(ctx, s) }

// MultiSink hands each sample to every sink in order and stops at the first
// error.
type MultiSink []Sink

func (m MultiSink) Sample(ctx context.Context, s Sample) error {
	for _, sink := range m {
		if err := sink.Sample(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// FieldBuilder derives a charge field from a frame. field.Builder satisfies
// it.
type FieldBuilder interface {
	Build(img image.Image) (*field.Field, error)
}

var _ FieldBuilder = field.Builder{}

// Stats summarizes a finished run.
type Stats struct {
	Frames  int
	Samples int
	Steps   int
	Elapsed time.Duration
}

type Driver struct {
	stepper  *sim.Stepper
	builder  FieldBuilder
	schedule Schedule
	logger   *slog.Logger
}

func New(stepper *sim.Stepper, builder FieldBuilder, schedule Schedule, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		stepper:  stepper,
		builder:  builder,
		schedule: schedule,
		logger:   logger,
	}
}

// Run consumes src until io.EOF. For every frame it rebuilds the field and
// runs that transition's timesteps, sampling as the schedule says. Samples
// already handed to sink stay valid if a later frame fails.
func (d *Driver) Run(ctx context.Context, src Source, sink Sink) (stats Stats, err error) {
	if err := d.schedule.Validate(); err != nil {
		return stats, err
	}

	start := time.Now()
	defer func() { stats.Elapsed = time.Since(start) }()

	for transition := 0; ; transition++ {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}

		f, err := d.builder.Build(frame.Image)
		if err != nil {
			return stats, fmt.Errorf("frame %d: %w", frame.Index, err)
		}
		d.stepper.SetField(f)
		stats.Frames++

		frameStart := time.Now()
		chunks := d.schedule.Chunks(transition)
		for sub, n := range chunks {
			if err := d.stepper.Step(ctx, n); err != nil {
				return stats, fmt.Errorf("frame %d: %w", frame.Index, err)
			}
			stats.Steps += n

			s := Sample{
				Seq:        stats.Samples,
				Frame:      frame,
				Transition: transition,
				Sub:        sub,
				Step:       d.stepper.Steps(),
				Positions:  d.stepper.Store().Positions(),
				Field:      f,
			}
			if err := sink.Sample(ctx, s); err != nil {
				return stats, fmt.Errorf("frame %d sample %d: %w", frame.Index, sub, err)
			}
			stats.Samples++
		}

		d.logger.Info("frame done",
			"frame", frame.Index,
			"transition", transition,
			"steps", d.schedule.StepsFor(transition),
			"samples", len(chunks),
			"field_sum", f.Sum(),
			"elapsed", time.Since(frameStart).Round(time.Millisecond),
		)
	}

	if stats.Frames == 0 {
		return stats, ErrNoFrames
	}
	return stats, nil
}
