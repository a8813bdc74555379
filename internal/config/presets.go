package config

import "sort"

// Presets adjust the default configuration for common uses.
var Presets = map[string]func(*Config){
	"draft": func(c *Config) {
		c.Simulation.NumDots = 1000
		c.Simulation.BufXY = 32
		c.Simulation.SimXY = 64
		c.Schedule.FirstSteps = 150
		c.Schedule.Steps = 10
		c.Output.Size = 512
	},
	"standard": func(c *Config) {},
	"dense": func(c *Config) {
		c.Simulation.NumDots = 16000
		c.Simulation.DotCharge = 0.005
		c.Simulation.BufXY = 128
		c.Simulation.SimXY = 256
		c.Simulation.MaxInteractions = 1 << 28
		c.Simulation.Softening = 0.005
		c.Schedule.FirstSteps = 800
		c.Output.Size = 2048
		c.Output.DotRadius = 1.0
	},
	"inverted": func(c *Config) {
		c.Simulation.Polarity = "bright"
		c.Output.Invert = true
	},
	"smooth": func(c *Config) {
		c.Simulation.Sustain = 0.95
		c.Schedule.Steps = 40
		c.Schedule.Samples = 4
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	cfg.computeDerived()
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
