package main

import (
	"testing"

	"github.com/san-kum/stipple/internal/config"
	"github.com/spf13/cobra"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"text", "json", "JSON"} {
		if _, err := newLogger(format, false); err != nil {
			t.Errorf("newLogger(%q): %v", format, err)
		}
	}
	if _, err := newLogger("xml", false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestResolveConfigFlagsOverride(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	addSimulationFlags(cmd)
	addInputFlags(cmd)
	if err := cmd.Flags().Parse([]string{"--dots", "500", "--samples", "3", "--polarity", "bright"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { preset, configFile = "", "" })
	preset = "draft"

	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Simulation.NumDots != 500 {
		t.Errorf("NumDots = %d, want 500", cfg.Simulation.NumDots)
	}
	if cfg.Schedule.Samples != 3 || cfg.Schedule.FirstSamples != 3 {
		t.Errorf("samples = %d/%d, want 3/3", cfg.Schedule.FirstSamples, cfg.Schedule.Samples)
	}
	if cfg.Simulation.Polarity != "bright" {
		t.Errorf("Polarity = %q", cfg.Simulation.Polarity)
	}
	// untouched flags keep the preset's values
	if cfg.Simulation.BufXY != 32 {
		t.Errorf("BufXY = %d, want preset's 32", cfg.Simulation.BufXY)
	}
	if cfg.Derived.TargetCharge != 500*config.DefaultDotCharge {
		t.Errorf("TargetCharge = %v", cfg.Derived.TargetCharge)
	}
}

func TestResolveConfigUnknownPreset(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	addSimulationFlags(cmd)
	t.Cleanup(func() { preset = "" })
	preset = "nope"

	if _, err := resolveConfig(cmd); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"sustain=0.8, 0.9", "dt=0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "sustain" || names[1] != "dt" {
		t.Errorf("names = %v", names)
	}
	if len(ranges[0]) != 2 || ranges[0][1] != 0.9 || ranges[1][0] != 0.1 {
		t.Errorf("ranges = %v", ranges)
	}

	for _, bad := range []string{"sustain", "dt=fast"} {
		if _, _, err := parseGrid([]string{bad}); err == nil {
			t.Errorf("parseGrid(%q): expected error", bad)
		}
	}
}
