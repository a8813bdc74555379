package metrics

import (
	"math"
	"sync"

	"github.com/san-kum/stipple/internal/particles"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Record holds the statistics of one committed timestep.
type Record struct {
	Step          int     `csv:"step" json:"step"`
	MeanSpeed     float64 `csv:"mean_speed" json:"mean_speed"`
	MaxSpeed      float64 `csv:"max_speed" json:"max_speed"`
	KineticEnergy float64 `csv:"kinetic_energy" json:"kinetic_energy"`
	MeanAccel     float64 `csv:"mean_accel" json:"mean_accel"`
	Boundary      int     `csv:"boundary" json:"boundary"`
}

// Measure computes a Record from the store as it stands. Particles have unit
// mass.
func Measure(step int, store *particles.Store) Record {
	n := store.NumDots()
	r := Record{Step: step}
	if n == 0 {
		return r
	}

	speeds := make([]float64, n)
	accels := make([]float64, n)
	active := store.ActiveAcceleration()
	for i := 0; i < n; i++ {
		v := store.Velocity(i)
		a := store.Acceleration(active, i)
		p := store.Position(i)

		speeds[i] = math.Hypot(v.X, v.Y)
		accels[i] = math.Hypot(a.X, a.Y)
		r.KineticEnergy += 0.5 * (v.X*v.X + v.Y*v.Y)
		if math.Abs(p.X) >= 1 || math.Abs(p.Y) >= 1 {
			r.Boundary++
		}
	}

	r.MeanSpeed = stat.Mean(speeds, nil)
	r.MaxSpeed = floats.Max(speeds)
	r.MeanAccel = stat.Mean(accels, nil)
	return r
}

// Telemetry records one Record every few timesteps and feeds the metrics.
// It is safe to read while a stepper writes to it.
type Telemetry struct {
	mu      sync.Mutex
	every   int
	records []Record
	metrics []Metric
}

// NewTelemetry samples every n-th step; n below 1 samples every step.
func NewTelemetry(every int, metrics ...Metric) *Telemetry {
	if every < 1 {
		every = 1
	}
	return &Telemetry{
		every:   every,
		records: make([]Record, 0, 256),
		metrics: metrics,
	}
}

func (t *Telemetry) OnStep(step int, store *particles.Store) {
	if step%t.every != 0 {
		return
	}
	r := Measure(step, store)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
	for _, m := range t.metrics {
		m.Observe(r)
	}
}

func (t *Telemetry) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

func (t *Telemetry) Last() (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) == 0 {
		return Record{}, false
	}
	return t.records[len(t.records)-1], true
}

// Summary maps each metric name to its current value.
func (t *Telemetry) Summary() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.metrics))
	for _, m := range t.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (t *Telemetry) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = t.records[:0]
	for _, m := range t.metrics {
		m.Reset()
	}
}
