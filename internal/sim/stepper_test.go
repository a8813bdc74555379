package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/stipple/internal/codec"
	"github.com/san-kum/stipple/internal/compute"
	"github.com/san-kum/stipple/internal/field"
	"github.com/san-kum/stipple/internal/particles"
	"github.com/san-kum/stipple/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	bufXY   = 8
	numDots = 60
	simXY   = 8
)

var errInjected = errors.New("injected failure")

type flakyBackend struct {
	*compute.CPUBackend
}

func (flakyBackend) Velocity(compute.VelocityUniforms) error { return errInjected }

type brokenPositionBackend struct {
	*compute.CPUBackend
}

func (brokenPositionBackend) Position(compute.PositionUniforms) error { return errInjected }

type stepCounter struct{ steps []int }

func (c *stepCounter) OnStep(step int, _ *particles.Store) { c.steps = append(c.steps, step) }

func testParams() sim.Params {
	p, err := sim.NewParams(sim.Params{
		Dt:              0.1,
		MaxDisplacement: 0.01,
		Sustain:         0.9,
		Softening:       0.05,
		DotCharge:       0.01,
		AccelLimit:      50,
	})
	Expect(err).NotTo(HaveOccurred())
	return p
}

func newStepper(backend compute.Backend, seed int64) *sim.Stepper {
	params := testParams()
	store, err := particles.New(bufXY, params.Codecs())
	Expect(err).NotTo(HaveOccurred())
	Expect(store.Initialize(numDots, seed)).To(Succeed())

	st, err := sim.NewStepper(params, store, backend)
	Expect(err).NotTo(HaveOccurred())

	f, err := field.Builder{
		SimXY:        simXY,
		BlankLevel:   1,
		TargetCharge: numDots * params.DotCharge,
		MinLimit:     1e-6,
	}.BuildFlat()
	Expect(err).NotTo(HaveOccurred())
	st.SetField(f)
	return st
}

func recomputeAcceleration(st *sim.Stepper, positions *codec.Buffer) *codec.Buffer {
	store := st.Store()
	out := codec.NewBuffer(store.BufXY())
	err := compute.NewCPUBackend().Acceleration(compute.AccelerationUniforms{
		Resolution:      compute.ResolutionOf(positions),
		Position:        positions,
		PositionLimit:   store.Codecs().Position.Limit,
		Field:           st.Field().Buffer,
		FieldResolution: compute.ResolutionOf(st.Field().Buffer),
		FieldLimit:      st.Field().Limit(),
		NumDots:         store.NumDots(),
		Charge:          st.Params().DotCharge,
		Softening:       st.Params().Softening,
		AccelLimit:      store.Codecs().Acceleration.Limit,
		Out:             out,
	})
	Expect(err).NotTo(HaveOccurred())
	return out
}

var _ = Describe("Stepper", func() {
	var (
		ctx context.Context
		st  *sim.Stepper
	)

	BeforeEach(func() {
		ctx = context.Background()
		st = newStepper(compute.NewCPUBackend(), 7)
	})

	Describe("Step(0)", func() {
		It("leaves every buffer byte-identical", func() {
			before := st.Store().Snapshot()
			Expect(st.Step(ctx, 0)).To(Succeed())
			Expect(st.Store().Snapshot().Equal(before)).To(BeTrue())
			Expect(st.Steps()).To(Equal(0))
		})

		It("is a no-op even without a field", func() {
			st.SetField(nil)
			Expect(st.Step(ctx, 0)).To(Succeed())
		})
	})

	It("refuses to step without a field", func() {
		st.SetField(nil)
		Expect(st.Step(ctx, 1)).To(MatchError(sim.ErrNoField))
	})

	It("rejects negative step counts", func() {
		Expect(st.Step(ctx, -1)).To(MatchError(sim.ErrParameterBounds))
	})

	Describe("Step(1)", func() {
		It("keeps every particle inside the domain", func() {
			Expect(st.Step(ctx, 1)).To(Succeed())
			for _, p := range st.Store().Positions() {
				Expect(math.Abs(p.X)).To(BeNumerically("<=", 1))
				Expect(math.Abs(p.Y)).To(BeNumerically("<=", 1))
			}
		})

		It("moves no particle further than the displacement cap", func() {
			before := st.Store().Positions()
			Expect(st.Step(ctx, 1)).To(Succeed())

			tol := 2 * st.Store().Codecs().Position.Vec2Tolerance()
			for i, p := range st.Store().Positions() {
				d := math.Hypot(p.X-before[i].X, p.Y-before[i].Y)
				Expect(d).To(BeNumerically("<=", st.Params().MaxDisplacement+tol))
			}
		})

		It("flips the active acceleration slot exactly once", func() {
			Expect(st.Store().ActiveAcceleration()).To(Equal(0))
			Expect(st.Step(ctx, 1)).To(Succeed())
			Expect(st.Store().ActiveAcceleration()).To(Equal(1))

			store := st.Store()
			for i := 0; i < store.NumDots(); i++ {
				Expect(store.Acceleration(store.PreviousAcceleration(), i)).To(Equal(r2.Vec{}))
			}
		})
	})

	Describe("Step(n)", func() {
		It("keeps the last two accelerations in the slot pair", func() {
			Expect(st.Step(ctx, 4)).To(Succeed())

			store := st.Store()
			positions := store.PositionBuffer().Clone()
			newest := store.AccelerationBuffer(store.ActiveAcceleration()).Clone()

			Expect(st.Step(ctx, 1)).To(Succeed())

			Expect(store.AccelerationBuffer(store.PreviousAcceleration()).Equal(newest)).To(BeTrue())
			Expect(store.AccelerationBuffer(store.ActiveAcceleration()).Equal(recomputeAcceleration(st, positions))).To(BeTrue())
		})

		It("alternates the active slot with step parity", func() {
			for n := 1; n <= 5; n++ {
				Expect(st.Step(ctx, 1)).To(Succeed())
				Expect(st.Store().ActiveAcceleration()).To(Equal(n % 2))
			}
		})

		It("never exceeds the speed cap", func() {
			Expect(st.Step(ctx, 20)).To(Succeed())
			tol := 2 * st.Store().Codecs().Velocity.Vec2Tolerance()
			for _, v := range st.Store().Velocities() {
				Expect(math.Hypot(v.X, v.Y)).To(BeNumerically("<=", st.Params().VMax()+tol))
			}
		})

		It("is deterministic for a seed", func() {
			other := newStepper(compute.NewCPUBackendWorkers(1), 7)
			Expect(st.Step(ctx, 10)).To(Succeed())
			Expect(other.Step(ctx, 10)).To(Succeed())
			Expect(st.Store().Snapshot().Equal(other.Store().Snapshot())).To(BeTrue())
		})

		It("notifies observers after each timestep", func() {
			counter := &stepCounter{}
			st.AddObserver(counter)
			Expect(st.Step(ctx, 3)).To(Succeed())
			Expect(st.Step(ctx, 2)).To(Succeed())
			Expect(counter.steps).To(Equal([]int{1, 2, 3, 4, 5}))
		})
	})

	Describe("failures", func() {
		It("stops at a cancelled context before stepping", func() {
			before := st.Store().Snapshot()
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Expect(st.Step(cctx, 3)).To(MatchError(context.Canceled))
			Expect(st.Steps()).To(Equal(0))
			Expect(st.Store().Snapshot().Equal(before)).To(BeTrue())
		})

		It("reports the failing pass and leaves positions and slots alone", func() {
			flaky := newStepper(flakyBackend{compute.NewCPUBackend()}, 7)
			store := flaky.Store()
			positions := store.PositionBuffer().Clone()
			velocities := store.VelocityBuffer().Clone()

			err := flaky.Step(ctx, 1)
			Expect(err).To(MatchError(errInjected))

			var stepErr *sim.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Pass).To(Equal("velocity"))
			Expect(stepErr.Step).To(Equal(1))

			Expect(store.ActiveAcceleration()).To(Equal(0))
			Expect(store.PositionBuffer().Equal(positions)).To(BeTrue())
			Expect(store.VelocityBuffer().Equal(velocities)).To(BeTrue())
		})

		It("leaves the whole timestep unapplied when the position pass fails", func() {
			broken := newStepper(brokenPositionBackend{compute.NewCPUBackend()}, 7)
			store := broken.Store()
			before := store.Snapshot()

			err := broken.Step(ctx, 1)
			Expect(err).To(MatchError(errInjected))

			var stepErr *sim.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Pass).To(Equal("position"))

			Expect(broken.Steps()).To(Equal(0))
			Expect(store.ActiveAcceleration()).To(Equal(0))
			Expect(store.PositionBuffer().Equal(before.Position)).To(BeTrue())
			Expect(store.VelocityBuffer().Equal(before.Velocity)).To(BeTrue())
			Expect(store.AccelerationBuffer(0).Equal(before.Acceleration[0])).To(BeTrue())
		})
	})
})

var _ = Describe("NewStepper", func() {
	It("rejects a store encoded for other parameters", func() {
		params := testParams()
		codecs := params.Codecs()
		codecs.Velocity = codec.MustNew(1)

		store, err := particles.New(bufXY, codecs)
		Expect(err).NotTo(HaveOccurred())

		_, err = sim.NewStepper(params, store, compute.NewCPUBackend())
		Expect(err).To(MatchError(sim.ErrCodecMismatch))
	})

	It("rejects parameters that skipped NewParams", func() {
		store, err := particles.New(bufXY, testParams().Codecs())
		Expect(err).NotTo(HaveOccurred())

		_, err = sim.NewStepper(sim.Params{Dt: 0.1}, store, compute.NewCPUBackend())
		Expect(err).To(MatchError(sim.ErrParameterBounds))
	})
})
