package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/san-kum/stipple/internal/compute"
	"github.com/san-kum/stipple/internal/field"
	"github.com/san-kum/stipple/internal/particles"
	"github.com/san-kum/stipple/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNumDots         = 4000
	DefaultDotCharge       = 0.01
	DefaultBlankLevel      = 1.0
	DefaultDt              = 0.1
	DefaultMaxDisplacement = 0.004
	DefaultSustain         = 0.9
	DefaultSoftening       = 0.01
	DefaultAccelLimit      = 2.0
	DefaultBufXY           = 64
	DefaultSimXY           = 128
	DefaultMaxInteractions = 1 << 26
	DefaultFirstSteps      = 400
	DefaultSteps           = 20
	DefaultOutputSize      = 1024
	DefaultDotRadius       = 1.5
)

var (
	ErrInteractionBound = errors.New("config: pairwise interaction count exceeds bound")
	ErrInvalidSchedule  = errors.New("config: invalid schedule")
	ErrInvalidSequence  = errors.New("config: invalid frame sequence")
	ErrInvalidOutput    = errors.New("config: invalid output settings")
	ErrInvalidGrid      = errors.New("config: grid sizes must be positive")
	ErrUnknownParam     = errors.New("config: unknown tunable parameter")
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Run        RunConfig        `yaml:"run"`

	Derived DerivedConfig `yaml:"-"`
}

type SimulationConfig struct {
	NumDots         int     `yaml:"num_dots"`
	DotCharge       float64 `yaml:"dot_charge"`
	BlankLevel      float64 `yaml:"blank_level"`
	Polarity        string  `yaml:"polarity"`
	Dt              float64 `yaml:"dt"`
	MaxDisplacement float64 `yaml:"max_displacement"`
	Sustain         float64 `yaml:"sustain"`
	Softening       float64 `yaml:"softening"`
	AccelLimit      float64 `yaml:"accel_limit"`
	BufXY           int     `yaml:"buf_xy"`
	SimXY           int     `yaml:"sim_xy"`
	Seed            int64   `yaml:"seed"`
	MaxInteractions int64   `yaml:"max_interactions"`
	Backend         string  `yaml:"backend"`
}

// ScheduleConfig gives timesteps and samples per frame transition. The
// first transition starts from random positions and usually needs more.
type ScheduleConfig struct {
	FirstSteps   int `yaml:"first_steps"`
	FirstSamples int `yaml:"first_samples"`
	Steps        int `yaml:"steps"`
	Samples      int `yaml:"samples"`
}

type InputConfig struct {
	Prefix string `yaml:"prefix"`
	Pad    int    `yaml:"pad"`
	Suffix string `yaml:"suffix"`
	Start  int    `yaml:"start"`
	End    int    `yaml:"end"`
	Step   int    `yaml:"step"`
}

type OutputConfig struct {
	Prefix    string  `yaml:"prefix"`
	Pad       int     `yaml:"pad"`
	Suffix    string  `yaml:"suffix"`
	Start     int     `yaml:"start"`
	Format    string  `yaml:"format"`
	Size      int     `yaml:"size"`
	DotRadius float64 `yaml:"dot_radius"`
	Invert    bool    `yaml:"invert"`
}

type RunConfig struct {
	DataDir   string `yaml:"data_dir"`
	Telemetry bool   `yaml:"telemetry"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	HalfDt       float64
	Dt2          float64
	VMax         float64
	TargetCharge float64
}

func DefaultConfig() *Config {
	cfg := &Config{
		Simulation: SimulationConfig{
			NumDots:         DefaultNumDots,
			DotCharge:       DefaultDotCharge,
			BlankLevel:      DefaultBlankLevel,
			Polarity:        field.DarkAttracts.String(),
			Dt:              DefaultDt,
			MaxDisplacement: DefaultMaxDisplacement,
			Sustain:         DefaultSustain,
			Softening:       DefaultSoftening,
			AccelLimit:      DefaultAccelLimit,
			BufXY:           DefaultBufXY,
			SimXY:           DefaultSimXY,
			Seed:            1,
			MaxInteractions: DefaultMaxInteractions,
			Backend:         "auto",
		},
		Schedule: ScheduleConfig{
			FirstSteps:   DefaultFirstSteps,
			FirstSamples: 1,
			Steps:        DefaultSteps,
			Samples:      1,
		},
		Input: InputConfig{
			Prefix: "frames/frame_",
			Pad:    4,
			Suffix: ".png",
			Start:  1,
			End:    1,
			Step:   1,
		},
		Output: OutputConfig{
			Prefix:    "out/dots_",
			Pad:       5,
			Suffix:    ".png",
			Start:     0,
			Format:    "png",
			Size:      DefaultOutputSize,
			DotRadius: DefaultDotRadius,
		},
		Run: RunConfig{
			DataDir:   "data",
			Telemetry: true,
		},
	}
	cfg.computeDerived()
	return cfg
}

// Load reads a YAML file over the defaults; keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file over base, for example a preset.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.computeDerived()
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Refresh recomputes the derived block after fields were changed in place.
func (c *Config) Refresh() { c.computeDerived() }

func (c *Config) computeDerived() {
	s := c.Simulation
	c.Derived.HalfDt = s.Dt / 2
	c.Derived.Dt2 = s.Dt * s.Dt
	c.Derived.VMax = 0
	if s.Dt > 0 {
		c.Derived.VMax = s.MaxDisplacement / s.Dt
	}
	c.Derived.TargetCharge = float64(s.NumDots) * s.DotCharge
}

// Params builds the stepper parameters.
func (c *Config) Params() (sim.Params, error) {
	s := c.Simulation
	return sim.NewParams(sim.Params{
		Dt:              s.Dt,
		MaxDisplacement: s.MaxDisplacement,
		Sustain:         s.Sustain,
		Softening:       s.Softening,
		DotCharge:       s.DotCharge,
		AccelLimit:      s.AccelLimit,
	})
}

// FieldBuilder returns the builder for this configuration's charge fields.
func (c *Config) FieldBuilder() (field.Builder, error) {
	pol, err := field.ParsePolarity(c.Simulation.Polarity)
	if err != nil {
		return field.Builder{}, err
	}
	return field.Builder{
		SimXY:        c.Simulation.SimXY,
		BlankLevel:   c.Simulation.BlankLevel,
		TargetCharge: c.Derived.TargetCharge,
		Polarity:     pol,
		MinLimit:     c.Simulation.DotCharge * 1e-3,
	}, nil
}

// Tunable lists the names SetParam accepts.
func Tunable() []string {
	return []string{"accel_limit", "dot_charge", "dt", "max_displacement", "softening", "sustain"}
}

// SetParam sets one simulation parameter by its yaml name.
func (c *Config) SetParam(name string, v float64) error {
	s := &c.Simulation
	switch name {
	case "accel_limit":
		s.AccelLimit = v
	case "dot_charge":
		s.DotCharge = v
	case "dt":
		s.Dt = v
	case "max_displacement":
		s.MaxDisplacement = v
	case "softening":
		s.Softening = v
	case "sustain":
		s.Sustain = v
	default:
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownParam, name, strings.Join(Tunable(), ", "))
	}
	c.computeDerived()
	return nil
}

// Validate reports every problem that would stop a run before it starts.
func (c *Config) Validate() error {
	var errs []error
	s := c.Simulation

	if s.BufXY <= 0 || s.SimXY <= 0 {
		errs = append(errs, fmt.Errorf("%w: buf_xy=%d sim_xy=%d", ErrInvalidGrid, s.BufXY, s.SimXY))
	}
	if s.NumDots <= 0 {
		errs = append(errs, fmt.Errorf("%w: num_dots=%d", particles.ErrInvalidCount, s.NumDots))
	} else if s.BufXY > 0 && s.NumDots > particles.Capacity(s.BufXY) {
		errs = append(errs, fmt.Errorf("%w: num_dots=%d, buf_xy=%d holds %d",
			particles.ErrCapacity, s.NumDots, s.BufXY, particles.Capacity(s.BufXY)))
	}
	if n := int64(s.NumDots); n > 0 && s.MaxInteractions > 0 && n*n > s.MaxInteractions {
		errs = append(errs, fmt.Errorf("%w: %d² > %d", ErrInteractionBound, n, s.MaxInteractions))
	}
	if _, err := c.Params(); err != nil {
		errs = append(errs, err)
	}
	if _, err := field.ParsePolarity(s.Polarity); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(compute.Names(), strings.ToLower(s.Backend)) {
		errs = append(errs, fmt.Errorf("%w: %q", compute.ErrUnknownBackend, s.Backend))
	}

	sc := c.Schedule
	if sc.FirstSteps < 0 || sc.Steps < 0 {
		errs = append(errs, fmt.Errorf("%w: negative step count", ErrInvalidSchedule))
	}
	if sc.FirstSamples < 1 || sc.Samples < 1 {
		errs = append(errs, fmt.Errorf("%w: samples per transition must be at least 1", ErrInvalidSchedule))
	}

	in := c.Input
	if in.Prefix == "" && in.Suffix == "" {
		errs = append(errs, fmt.Errorf("%w: empty input pattern", ErrInvalidSequence))
	}
	if in.Pad < 0 || in.Step <= 0 || in.End < in.Start {
		errs = append(errs, fmt.Errorf("%w: pad=%d start=%d end=%d step=%d", ErrInvalidSequence, in.Pad, in.Start, in.End, in.Step))
	}

	out := c.Output
	if out.Format != "png" && out.Format != "svg" {
		errs = append(errs, fmt.Errorf("%w: unknown format %q", ErrInvalidOutput, out.Format))
	}
	if out.Size <= 0 || !(out.DotRadius > 0) || out.Pad < 0 {
		errs = append(errs, fmt.Errorf("%w: size=%d dot_radius=%v pad=%d", ErrInvalidOutput, out.Size, out.DotRadius, out.Pad))
	}

	return errors.Join(errs...)
}
