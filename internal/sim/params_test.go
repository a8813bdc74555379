package sim

import (
	"errors"
	"math"
	"testing"
)

func TestNewParamsDerived(t *testing.T) {
	p, err := NewParams(Params{
		Dt:              0.2,
		MaxDisplacement: 0.01,
		Sustain:         0.95,
		Softening:       0.05,
		DotCharge:       0.01,
		AccelLimit:      10,
	})
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(p.HalfDt()-0.1) > 1e-12 {
		t.Errorf("HalfDt = %v, want 0.1", p.HalfDt())
	}
	if math.Abs(p.Dt2()-0.04) > 1e-12 {
		t.Errorf("Dt2 = %v, want 0.04", p.Dt2())
	}
	if math.Abs(p.VMax()-0.05) > 1e-12 {
		t.Errorf("VMax = %v, want 0.05", p.VMax())
	}

	c := p.Codecs()
	if c.Position.Limit != 1 || c.Velocity.Limit != p.VMax() || c.Acceleration.Limit != 10 {
		t.Errorf("unexpected codecs %+v", c)
	}
}

func TestNewParamsInvalid(t *testing.T) {
	base := Params{Dt: 0.1, MaxDisplacement: 0.01, Sustain: 0.9, Softening: 0.05, DotCharge: 0.01, AccelLimit: 10}

	tests := []struct {
		name   string
		mutate func(*Params)
		want   error
	}{
		{"zero dt", func(p *Params) { p.Dt = 0 }, ErrInvalidTimestep},
		{"negative dt", func(p *Params) { p.Dt = -0.1 }, ErrInvalidTimestep},
		{"nan dt", func(p *Params) { p.Dt = math.NaN() }, ErrInvalidTimestep},
		{"inf dt", func(p *Params) { p.Dt = math.Inf(1) }, ErrInvalidTimestep},
		{"zero displacement", func(p *Params) { p.MaxDisplacement = 0 }, ErrParameterBounds},
		{"sustain above one", func(p *Params) { p.Sustain = 1.5 }, ErrParameterBounds},
		{"negative sustain", func(p *Params) { p.Sustain = -0.1 }, ErrParameterBounds},
		{"zero softening", func(p *Params) { p.Softening = 0 }, ErrParameterBounds},
		{"zero charge", func(p *Params) { p.DotCharge = 0 }, ErrParameterBounds},
		{"zero accel limit", func(p *Params) { p.AccelLimit = 0 }, ErrParameterBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if _, err := NewParams(p); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStepErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := error(&StepError{Step: 3, Pass: "position", Wrapped: inner})
	if !errors.Is(err, inner) {
		t.Error("StepError should unwrap to its cause")
	}
	if err.Error() != "sim: step 3 position pass: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
