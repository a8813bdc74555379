package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/stipple/internal/codec"
	"github.com/san-kum/stipple/internal/particles"
)

// PositionLimit bounds both position axes.
const PositionLimit = 1.0

// Params are the physical constants of a run. Build them with NewParams; the
// derived values are computed once and never change.
type Params struct {
	Dt              float64
	MaxDisplacement float64
	Sustain         float64
	Softening       float64
	DotCharge       float64
	AccelLimit      float64

	halfDt float64
	dt2    float64
	vMax   float64
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// NewParams validates p and fills in the derived constants.
func NewParams(p Params) (Params, error) {
	if !(p.Dt > 0) || !finite(p.Dt) {
		return Params{}, fmt.Errorf("%w: dt=%v", ErrInvalidTimestep, p.Dt)
	}
	if !(p.MaxDisplacement > 0) || !finite(p.MaxDisplacement) {
		return Params{}, fmt.Errorf("%w: max displacement %v", ErrParameterBounds, p.MaxDisplacement)
	}
	if !(p.Sustain >= 0 && p.Sustain <= 1) {
		return Params{}, fmt.Errorf("%w: sustain %v not in [0, 1]", ErrParameterBounds, p.Sustain)
	}
	if !(p.Softening > 0) || !finite(p.Softening) {
		return Params{}, fmt.Errorf("%w: softening %v", ErrParameterBounds, p.Softening)
	}
	if !(p.DotCharge > 0) || !finite(p.DotCharge) {
		return Params{}, fmt.Errorf("%w: dot charge %v", ErrParameterBounds, p.DotCharge)
	}
	if !(p.AccelLimit > 0) || !finite(p.AccelLimit) {
		return Params{}, fmt.Errorf("%w: acceleration limit %v", ErrParameterBounds, p.AccelLimit)
	}

	p.halfDt = p.Dt / 2
	p.dt2 = p.Dt * p.Dt
	p.vMax = p.MaxDisplacement / p.Dt
	return p, nil
}

func (p Params) HalfDt() float64 { return p.halfDt }
func (p Params) Dt2() float64    { return p.dt2 }

// VMax is the speed that covers MaxDisplacement in one timestep.
func (p Params) VMax() float64 { return p.vMax }

// Codecs returns the encodings a store must use with these parameters.
func (p Params) Codecs() particles.Codecs {
	return particles.Codecs{
		Position:     codec.MustNew(PositionLimit),
		Velocity:     codec.MustNew(p.vMax),
		Acceleration: codec.MustNew(p.AccelLimit),
	}
}
