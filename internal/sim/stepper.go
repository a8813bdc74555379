package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/stipple/internal/compute"
	"github.com/san-kum/stipple/internal/field"
	"github.com/san-kum/stipple/internal/particles"
)

// Observer is notified after every committed timestep. step counts from 1
// over the lifetime of the Stepper.
type Observer interface {
	OnStep(step int, store *particles.Store)
}

type Stepper struct {
	params    Params
	store     *particles.Store
	backend   compute.Backend
	field     *field.Field
	steps     int
	observers []Observer
}

func NewStepper(params Params, store *particles.Store, backend compute.Backend) (*Stepper, error) {
	if params.vMax == 0 {
		return nil, fmt.Errorf("%w: parameters were not built with NewParams", ErrParameterBounds)
	}
	want := params.Codecs()
	if store.Codecs() != want {
		return nil, fmt.Errorf("%w: store %+v, params %+v", ErrCodecMismatch, store.Codecs(), want)
	}
	return &Stepper{
		params:    params,
		store:     store,
		backend:   backend,
		observers: make([]Observer, 0),
	}, nil
}

// SetField replaces the charge field used by subsequent steps.
func (s *Stepper) SetField(f *field.Field) { s.field = f }

func (s *Stepper) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Stepper) Field() *field.Field      { return s.field }
func (s *Stepper) Store() *particles.Store  { return s.store }
func (s *Stepper) Backend() compute.Backend { return s.backend }
func (s *Stepper) Params() Params           { return s.params }
func (s *Stepper) Steps() int               { return s.steps }

// Step runs exactly count timesteps. Cancellation is observed between
// timesteps only, so the store never holds a partially applied step.
func (s *Stepper) Step(ctx context.Context, count int) error {
	if count < 0 {
		return fmt.Errorf("%w: step count %d", ErrParameterBounds, count)
	}
	if count == 0 {
		return nil
	}
	if s.field == nil {
		return ErrNoField
	}

	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.step(); err != nil {
			return err
		}
		s.steps++

		for _, obs := range s.observers {
			obs.OnStep(s.steps, s.store)
		}
	}
	return nil
}

func (s *Stepper) step() error {
	st := s.store
	p := s.params
	codecs := st.Codecs()
	res := compute.ResolutionOf(st.PositionBuffer())
	accTarget := st.AccelerationTarget()

	err := s.backend.Acceleration(compute.AccelerationUniforms{
		Resolution:      res,
		Position:        st.PositionBuffer(),
		PositionLimit:   codecs.Position.Limit,
		Field:           s.field.Buffer,
		FieldResolution: compute.ResolutionOf(s.field.Buffer),
		FieldLimit:      s.field.Limit(),
		NumDots:         st.NumDots(),
		Charge:          p.DotCharge,
		Softening:       p.Softening,
		AccelLimit:      codecs.Acceleration.Limit,
		Out:             accTarget,
	})
	if err != nil {
		return &StepError{Step: s.steps + 1, Pass: "acceleration", Wrapped: err}
	}

	err = s.backend.Velocity(compute.VelocityUniforms{
		Resolution:           res,
		Velocity:             st.VelocityBuffer(),
		PreviousAcceleration: st.AccelerationBuffer(st.ActiveAcceleration()),
		Acceleration:         accTarget,
		NumDots:              st.NumDots(),
		HalfDt:               p.halfDt,
		Sustain:              p.Sustain,
		VMax:                 p.vMax,
		AccelLimit:           codecs.Acceleration.Limit,
		Out:                  st.VelocityTarget(),
	})
	if err != nil {
		return &StepError{Step: s.steps + 1, Pass: "velocity", Wrapped: err}
	}

	// The new velocity stays in scratch until the position pass succeeds.
	err = s.backend.Position(compute.PositionUniforms{
		Resolution:      res,
		Position:        st.PositionBuffer(),
		Velocity:        st.VelocityTarget(),
		Acceleration:    accTarget,
		NumDots:         st.NumDots(),
		Dt:              p.Dt,
		Dt2:             p.dt2,
		MaxDisplacement: p.MaxDisplacement,
		PositionLimit:   codecs.Position.Limit,
		VMax:            p.vMax,
		AccelLimit:      codecs.Acceleration.Limit,
		Out:             st.PositionTarget(),
	})
	if err != nil {
		return &StepError{Step: s.steps + 1, Pass: "position", Wrapped: err}
	}
	st.CommitVelocity()
	st.CommitPosition()
	st.SwapAcceleration()
	return nil
}
