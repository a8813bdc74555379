package metrics

import "math"

// Metric folds a stream of records into one number.
type Metric interface {
	Name() string
	Observe(r Record)
	Value() float64
	Reset()
}

func DefaultMetrics() []Metric {
	return []Metric{NewEnergy(), NewEnergyDrift(), NewContainment(), NewAccelEffort()}
}

// Energy is the mean kinetic energy over observed steps.
type Energy struct {
	name    string
	total   float64
	samples int
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(r Record) {
	e.total += r.KineticEnergy
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the kinetic energy of the latest step relative to the
// largest seen. Values near zero mean the distribution has settled.
type EnergyDrift struct {
	name    string
	peak    float64
	current float64
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(r Record) {
	e.current = r.KineticEnergy
	e.peak = math.Max(e.peak, r.KineticEnergy)
}

func (e *EnergyDrift) Value() float64 {
	if e.peak == 0 {
		return 0
	}
	return e.current / e.peak
}

func (e *EnergyDrift) Reset() {
	e.peak = 0
	e.current = 0
}

// Containment is the fraction of observed steps with no particle pinned at
// the domain edge.
type Containment struct {
	name       string
	violations int
	samples    int
}

func NewContainment() *Containment {
	return &Containment{name: "containment"}
}

func (c *Containment) Name() string { return c.name }

func (c *Containment) Observe(r Record) {
	c.samples++
	if r.Boundary > 0 {
		c.violations++
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}

// AccelEffort is the mean acceleration magnitude over observed steps.
type AccelEffort struct {
	name    string
	sum     float64
	samples int
}

func NewAccelEffort() *AccelEffort {
	return &AccelEffort{name: "accel_effort"}
}

func (a *AccelEffort) Name() string { return a.name }

func (a *AccelEffort) Observe(r Record) {
	a.sum += r.MeanAccel
	a.samples++
}

func (a *AccelEffort) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return a.sum / float64(a.samples)
}

func (a *AccelEffort) Reset() {
	a.sum = 0
	a.samples = 0
}
