package compute

import (
	"math"
	"runtime"
	"sync"

	"github.com/san-kum/stipple/internal/codec"
	"gonum.org/v1/gonum/spatial/r2"
)

// minChunk is the smallest particle range worth a goroutine.
const minChunk = 16

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

// NewCPUBackendWorkers pins the worker count; values below 1 mean one.
func NewCPUBackendWorkers(workers int) *CPUBackend {
	if workers < 1 {
		workers = 1
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

// parallelFor splits [0, n) into contiguous chunks and blocks until every
// chunk has run.
func (c *CPUBackend) parallelFor(n int, fn func(start, end int)) {
	workers := c.workers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

type source struct {
	pos r2.Vec
	q   float64
}

// fieldSources decodes the field into point charges at cell centers.
func fieldSources(field *codec.Buffer, limit float64) []source {
	fc := codec.Codec{Limit: limit}
	w, h := field.Rect.Dx(), field.Rect.Dy()
	out := make([]source, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			q := field.Scalar(y*w+x, fc)
			if q == 0 {
				continue
			}
			out = append(out, source{
				pos: r2.Vec{
					X: (float64(x)+0.5)/float64(w)*2 - 1,
					Y: (float64(y)+0.5)/float64(h)*2 - 1,
				},
				q: q,
			})
		}
	}
	return out
}

func (c *CPUBackend) Acceleration(u AccelerationUniforms) error {
	if err := u.validate(); err != nil {
		return err
	}

	pc := codec.Codec{Limit: u.PositionLimit}
	ac := codec.Codec{Limit: u.AccelLimit}
	n := u.NumDots

	pos := make([]r2.Vec, n)
	c.parallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			pos[i] = u.Position.Vec2(i, pc)
		}
	})
	sources := fieldSources(u.Field, u.FieldLimit)

	eps2 := u.Softening * u.Softening
	qq := u.Charge * u.Charge

	c.parallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			p := pos[i]
			var a r2.Vec

			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				d := r2.Sub(p, pos[j])
				f := qq / (d.X*d.X + d.Y*d.Y + eps2)
				a.X += d.X * f
				a.Y += d.Y * f
			}

			for _, s := range sources {
				d := r2.Sub(p, s.pos)
				f := u.Charge * s.q / (d.X*d.X + d.Y*d.Y + eps2)
				a.X -= d.X * f
				a.Y -= d.Y * f
			}

			u.Out.SetVec2(i, ac, a)
		}
	})

	zero := ac.EncodeVec2(r2.Vec{})
	for i := n; i < u.Out.Len(); i++ {
		u.Out.SetPixelAt(i, zero)
	}
	return nil
}

func (c *CPUBackend) Velocity(u VelocityUniforms) error {
	if err := u.validate(); err != nil {
		return err
	}

	vc := codec.Codec{Limit: u.VMax}
	ac := codec.Codec{Limit: u.AccelLimit}

	c.parallelFor(u.NumDots, func(start, end int) {
		for i := start; i < end; i++ {
			v := u.Velocity.Vec2(i, vc)
			prev := u.PreviousAcceleration.Vec2(i, ac)
			next := u.Acceleration.Vec2(i, ac)

			v = r2.Add(r2.Scale(u.Sustain, v), r2.Scale(u.HalfDt, r2.Add(prev, next)))
			u.Out.SetVec2(i, vc, capNorm(v, u.VMax))
		}
	})

	copy(u.Out.Pix[u.NumDots*4:], u.Velocity.Pix[u.NumDots*4:])
	return nil
}

func (c *CPUBackend) Position(u PositionUniforms) error {
	if err := u.validate(); err != nil {
		return err
	}

	pc := codec.Codec{Limit: u.PositionLimit}
	vc := codec.Codec{Limit: u.VMax}
	ac := codec.Codec{Limit: u.AccelLimit}

	c.parallelFor(u.NumDots, func(start, end int) {
		for i := start; i < end; i++ {
			p := u.Position.Vec2(i, pc)
			v := u.Velocity.Vec2(i, vc)
			a := u.Acceleration.Vec2(i, ac)

			d := r2.Add(r2.Scale(u.Dt, v), r2.Scale(0.5*u.Dt2, a))
			u.Out.SetVec2(i, pc, r2.Add(p, capNorm(d, u.MaxDisplacement)))
		}
	})

	copy(u.Out.Pix[u.NumDots*4:], u.Position.Pix[u.NumDots*4:])
	return nil
}

// capNorm scales v down so its length does not exceed limit.
func capNorm(v r2.Vec, limit float64) r2.Vec {
	n := math.Hypot(v.X, v.Y)
	if n <= limit || n == 0 {
		return v
	}
	return r2.Scale(limit/n, v)
}
