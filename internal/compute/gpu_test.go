//go:build gpu

package compute

import (
	"math"
	"testing"

	"github.com/san-kum/stipple/internal/codec"
	"gonum.org/v1/gonum/spatial/r2"
)

func compareVec2(t *testing.T, pass string, c codec.Codec, n int, cpu, gpu *codec.Buffer, tol float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		a, b := cpu.Vec2(i, c), gpu.Vec2(i, c)
		if math.Abs(a.X-b.X) > tol || math.Abs(a.Y-b.Y) > tol {
			t.Fatalf("%s pass dot %d: cpu %v, gpu %v (tol %v)", pass, i, a, b, tol)
		}
	}
}

func TestGPUMatchesCPU(t *testing.T) {
	gpu := NewGPUBackend()
	defer gpu.Cleanup()
	if !gpu.Available() {
		t.Skip("gpu backend not available")
	}
	cpu := NewCPUBackend()

	const n = 200
	pos := randomPositions(16, n, 3)
	field, q := uniformField(8, 0.02)

	accCPU, accGPU := codec.NewBuffer(16), codec.NewBuffer(16)
	if err := cpu.Acceleration(accelUniforms(pos, field, q, n, accCPU)); err != nil {
		t.Fatal(err)
	}
	if err := gpu.Acceleration(accelUniforms(pos, field, q, n, accGPU)); err != nil {
		t.Fatal(err)
	}
	// float32 sums on the GPU drift a little past the codec quantum.
	compareVec2(t, "acceleration", accCodec, n, accCPU, accGPU, 4*accCodec.Vec2Tolerance()+1e-4*testAccelLimit)

	vel := codec.NewBuffer(16)
	vel.Fill(velCodec.EncodeVec2(r2.Vec{}))
	prev := codec.NewBuffer(16)
	prev.Fill(accCodec.EncodeVec2(r2.Vec{}))

	velUniforms := func(out *codec.Buffer) VelocityUniforms {
		return VelocityUniforms{
			Resolution: ResolutionOf(vel), Velocity: vel, PreviousAcceleration: prev, Acceleration: accCPU,
			NumDots: n, HalfDt: 0.05, Sustain: 0.9, VMax: testVMax, AccelLimit: testAccelLimit, Out: out,
		}
	}
	velCPU, velGPU := codec.NewBuffer(16), codec.NewBuffer(16)
	if err := cpu.Velocity(velUniforms(velCPU)); err != nil {
		t.Fatal(err)
	}
	if err := gpu.Velocity(velUniforms(velGPU)); err != nil {
		t.Fatal(err)
	}
	compareVec2(t, "velocity", velCodec, n, velCPU, velGPU, 2*velCodec.Vec2Tolerance())

	posUniforms := func(out *codec.Buffer) PositionUniforms {
		return PositionUniforms{
			Resolution: ResolutionOf(pos), Position: pos, Velocity: velCPU, Acceleration: accCPU,
			NumDots: n, Dt: 0.1, Dt2: 0.01, MaxDisplacement: 0.01,
			PositionLimit: 1, VMax: testVMax, AccelLimit: testAccelLimit, Out: out,
		}
	}
	posCPU, posGPU := codec.NewBuffer(16), codec.NewBuffer(16)
	if err := cpu.Position(posUniforms(posCPU)); err != nil {
		t.Fatal(err)
	}
	if err := gpu.Position(posUniforms(posGPU)); err != nil {
		t.Fatal(err)
	}
	compareVec2(t, "position", posCodec, n, posCPU, posGPU, 2*posCodec.Vec2Tolerance())
}
