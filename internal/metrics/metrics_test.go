package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/stipple/internal/codec"
	"github.com/san-kum/stipple/internal/particles"
	"gonum.org/v1/gonum/spatial/r2"
)

func testStore(t *testing.T) *particles.Store {
	t.Helper()
	codecs := particles.Codecs{
		Position:     codec.MustNew(1),
		Velocity:     codec.MustNew(1),
		Acceleration: codec.MustNew(10),
	}
	s, err := particles.New(2, codecs)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(2, 1); err != nil {
		t.Fatal(err)
	}

	s.PositionBuffer().SetVec2(0, codecs.Position, r2.Vec{X: 1, Y: 0})
	s.PositionBuffer().SetVec2(1, codecs.Position, r2.Vec{X: 0.2, Y: 0.3})
	s.VelocityBuffer().SetVec2(0, codecs.Velocity, r2.Vec{X: 0.3, Y: 0.4})
	s.VelocityBuffer().SetVec2(1, codecs.Velocity, r2.Vec{})
	s.AccelerationBuffer(s.ActiveAcceleration()).SetVec2(0, codecs.Acceleration, r2.Vec{X: 2})
	s.AccelerationBuffer(s.ActiveAcceleration()).SetVec2(1, codecs.Acceleration, r2.Vec{Y: 4})
	return s
}

func TestMeasure(t *testing.T) {
	r := Measure(5, testStore(t))

	const tol = 1e-3
	if r.Step != 5 {
		t.Errorf("step %d", r.Step)
	}
	if math.Abs(r.MaxSpeed-0.5) > tol {
		t.Errorf("max speed %v, want 0.5", r.MaxSpeed)
	}
	if math.Abs(r.MeanSpeed-0.25) > tol {
		t.Errorf("mean speed %v, want 0.25", r.MeanSpeed)
	}
	if math.Abs(r.KineticEnergy-0.125) > tol {
		t.Errorf("kinetic energy %v, want 0.125", r.KineticEnergy)
	}
	if math.Abs(r.MeanAccel-3) > 1e-2 {
		t.Errorf("mean accel %v, want 3", r.MeanAccel)
	}
	if r.Boundary != 1 {
		t.Errorf("boundary count %d, want 1", r.Boundary)
	}
}

func TestTelemetrySampling(t *testing.T) {
	store := testStore(t)
	tel := NewTelemetry(2, DefaultMetrics()...)

	for step := 1; step <= 6; step++ {
		tel.OnStep(step, store)
	}

	recs := tel.Records()
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Step != 2 || recs[2].Step != 6 {
		t.Errorf("unexpected steps %d..%d", recs[0].Step, recs[2].Step)
	}

	last, ok := tel.Last()
	if !ok || last.Step != 6 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}

	sum := tel.Summary()
	for _, name := range []string{"energy", "energy_drift", "containment", "accel_effort"} {
		if _, ok := sum[name]; !ok {
			t.Errorf("summary missing %s", name)
		}
	}
	if sum["containment"] != 0 {
		t.Errorf("pinned particle should zero containment, got %v", sum["containment"])
	}

	tel.Reset()
	if len(tel.Records()) != 0 {
		t.Error("expected no records after reset")
	}
	if _, ok := tel.Last(); ok {
		t.Error("Last() should report empty after reset")
	}
}

func TestMetricsReset(t *testing.T) {
	r := Record{KineticEnergy: 2, MeanAccel: 1, Boundary: 0}

	for _, m := range DefaultMetrics() {
		t.Run(m.Name(), func(t *testing.T) {
			empty := m.Value()
			m.Observe(r)
			m.Reset()
			if m.Value() != empty {
				t.Errorf("value after reset %v, want %v", m.Value(), empty)
			}
		})
	}
}

func TestEnergyDrift(t *testing.T) {
	d := NewEnergyDrift()
	d.Observe(Record{KineticEnergy: 4})
	d.Observe(Record{KineticEnergy: 1})
	if math.Abs(d.Value()-0.25) > 1e-12 {
		t.Errorf("drift %v, want 0.25", d.Value())
	}
}
