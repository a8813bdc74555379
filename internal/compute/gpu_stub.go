//go:build !gpu

package compute

// GPUBackend is a placeholder when built without the gpu tag.
type GPUBackend struct{}

func NewGPUBackend() *GPUBackend {
	return &GPUBackend{}
}

func (g *GPUBackend) Name() string    { return "gpu (not built, use -tags gpu)" }
func (g *GPUBackend) Available() bool { return false }
func (g *GPUBackend) Cleanup()        {}

func (g *GPUBackend) Acceleration(u AccelerationUniforms) error { return ErrBackendUnavailable }
func (g *GPUBackend) Velocity(u VelocityUniforms) error         { return ErrBackendUnavailable }
func (g *GPUBackend) Position(u PositionUniforms) error         { return ErrBackendUnavailable }
