package compute

import (
	"errors"
	"fmt"

	"github.com/san-kum/stipple/internal/codec"
)

var ErrBufferMismatch = errors.New("compute: buffer dimensions do not match")

// Resolution is the pixel size of a buffer, width then height.
type Resolution [2]float64

func ResolutionOf(b *codec.Buffer) Resolution {
	return Resolution{float64(b.Rect.Dx()), float64(b.Rect.Dy())}
}

// AccelerationUniforms drives the acceleration pass: pairwise repulsion
// between particles plus attraction to the charge field.
type AccelerationUniforms struct {
	Resolution      Resolution
	Position        *codec.Buffer
	PositionLimit   float64
	Field           *codec.Buffer
	FieldResolution Resolution
	FieldLimit      float64
	NumDots         int
	Charge          float64
	Softening       float64
	AccelLimit      float64
	Out             *codec.Buffer
}

// VelocityUniforms drives the velocity pass.
type VelocityUniforms struct {
	Resolution           Resolution
	Velocity             *codec.Buffer
	PreviousAcceleration *codec.Buffer
	Acceleration         *codec.Buffer
	NumDots              int
	HalfDt               float64
	Sustain              float64
	VMax                 float64
	AccelLimit           float64
	Out                  *codec.Buffer
}

// PositionUniforms drives the position pass.
type PositionUniforms struct {
	Resolution      Resolution
	Position        *codec.Buffer
	Velocity        *codec.Buffer
	Acceleration    *codec.Buffer
	NumDots         int
	Dt              float64
	Dt2             float64
	MaxDisplacement float64
	PositionLimit   float64
	VMax            float64
	AccelLimit      float64
	Out             *codec.Buffer
}

func checkBuffers(pass string, res Resolution, numDots int, out *codec.Buffer, in ...*codec.Buffer) error {
	if out == nil {
		return fmt.Errorf("%w: %s pass has no output buffer", ErrBufferMismatch, pass)
	}
	if ResolutionOf(out) != res {
		return fmt.Errorf("%w: %s output is %vx%v, uniforms say %vx%v", ErrBufferMismatch, pass,
			out.Rect.Dx(), out.Rect.Dy(), res[0], res[1])
	}
	if numDots < 0 || numDots > out.Len() {
		return fmt.Errorf("%w: %s pass addresses %d particles in %d pixels", ErrBufferMismatch, pass, numDots, out.Len())
	}
	for _, b := range in {
		if b == nil {
			return fmt.Errorf("%w: %s pass is missing an input buffer", ErrBufferMismatch, pass)
		}
		if b == out {
			return fmt.Errorf("%w: %s pass reads its own output", ErrBufferMismatch, pass)
		}
		if ResolutionOf(b) != res {
			return fmt.Errorf("%w: %s input is %vx%v, uniforms say %vx%v", ErrBufferMismatch, pass,
				b.Rect.Dx(), b.Rect.Dy(), res[0], res[1])
		}
	}
	return nil
}

func (u AccelerationUniforms) validate() error {
	if err := checkBuffers("acceleration", u.Resolution, u.NumDots, u.Out, u.Position); err != nil {
		return err
	}
	if u.Field == nil || ResolutionOf(u.Field) != u.FieldResolution {
		return fmt.Errorf("%w: acceleration field does not match its resolution", ErrBufferMismatch)
	}
	return nil
}

func (u VelocityUniforms) validate() error {
	return checkBuffers("velocity", u.Resolution, u.NumDots, u.Out, u.Velocity, u.PreviousAcceleration, u.Acceleration)
}

func (u PositionUniforms) validate() error {
	return checkBuffers("position", u.Resolution, u.NumDots, u.Out, u.Position, u.Velocity, u.Acceleration)
}
