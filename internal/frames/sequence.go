package frames

import (
	"context"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/stipple/internal/driver"
	"golang.org/x/sync/errgroup"
)

// Sequence loads frames Start..End (inclusive) every Step indices. While the
// caller works on one frame the next one is decoded in the background.
type Sequence struct {
	pattern Pattern
	start   int
	end     int
	step    int
	logger  *slog.Logger

	next    int
	pending *prefetch
}

type prefetch struct {
	index int
	g     errgroup.Group
	img   image.Image
}

func NewSequence(p Pattern, start, end, step int, logger *slog.Logger) *Sequence {
	if step < 1 {
		step = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequence{
		pattern: p,
		start:   start,
		end:     end,
		step:    step,
		logger:  logger,
		next:    start,
	}
}

// Len is the number of frames the sequence yields.
func (s *Sequence) Len() int {
	if s.end < s.start {
		return 0
	}
	return (s.end-s.start)/s.step + 1
}

// Indices lists every frame index in order.
func (s *Sequence) Indices() []int {
	out := make([]int, 0, s.Len())
	for i := s.start; i <= s.end; i += s.step {
		out = append(out, i)
	}
	return out
}

func (s *Sequence) fetch(index int) *prefetch {
	p := &prefetch{index: index}
	p.g.Go(func() error {
		start := time.Now()
		img, err := s.pattern.Load(index)
		if err != nil {
			return err
		}
		p.img = img
		s.logger.Debug("frame decoded", "frame", index, "path", s.pattern.Path(index), "elapsed", time.Since(start))
		return nil
	})
	return p
}

func (s *Sequence) Next(ctx context.Context) (driver.Frame, error) {
	if err := ctx.Err(); err != nil {
		return driver.Frame{}, err
	}
	if s.next > s.end {
		return driver.Frame{}, io.EOF
	}

	cur := s.pending
	if cur == nil || cur.index != s.next {
		cur = s.fetch(s.next)
	}
	s.pending = nil
	if err := cur.g.Wait(); err != nil {
		return driver.Frame{}, err
	}

	s.next += s.step
	if s.next <= s.end {
		s.pending = s.fetch(s.next)
	}

	return driver.Frame{
		Index: cur.index,
		Path:  s.pattern.Path(cur.index),
		Image: cur.img,
	}, nil
}

// Close waits for any background decode to finish.
func (s *Sequence) Close() error {
	if s.pending == nil {
		return nil
	}
	s.pending.g.Wait()
	s.pending = nil
	return nil
}

// ForEach loads every frame of the sequence with at most limit decodes in
// flight and calls fn for each. The first error cancels the rest.
func (s *Sequence) ForEach(ctx context.Context, limit int, fn func(ctx context.Context, f driver.Frame) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, index := range s.Indices() {
		index := index
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := s.pattern.Load(index)
			if err != nil {
				return err
			}
			return fn(gctx, driver.Frame{Index: index, Path: s.pattern.Path(index), Image: img})
		})
	}
	return g.Wait()
}
