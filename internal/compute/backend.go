package compute

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrBackendUnavailable = errors.New("compute: backend unavailable")
	ErrUnknownBackend     = errors.New("compute: unknown backend")
)

type Backend interface {
	Name() string
	Available() bool
	Acceleration(u AccelerationUniforms) error
	Velocity(u VelocityUniforms) error
	Position(u PositionUniforms) error
	Cleanup()
}

// Names lists the accepted backend names.
func Names() []string { return []string{"auto", "cpu", "gpu"} }

// Select returns the named backend. "auto" falls back to the CPU when the GPU
// backend cannot start.
func Select(name string, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(name) {
	case "", "auto":
		b := AutoSelectBackend()
		logger.Debug("compute backend selected", "backend", b.Name())
		return b, nil
	case "cpu":
		return NewCPUBackend(), nil
	case "gpu":
		gpu := NewGPUBackend()
		if !gpu.Available() {
			gpu.Cleanup()
			return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, gpu.Name())
		}
		return gpu, nil
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownBackend, name, strings.Join(Names(), ", "))
}

func AutoSelectBackend() Backend {
	gpu := NewGPUBackend()
	if gpu.Available() {
		return gpu
	}
	gpu.Cleanup()
	return NewCPUBackend()
}
