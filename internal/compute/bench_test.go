package compute

import (
	"testing"

	"github.com/san-kum/stipple/internal/codec"
)

func BenchmarkAcceleration1024(b *testing.B) {
	pos := randomPositions(32, 1024, 1)
	field, q := uniformField(32, 0.001)
	out := codec.NewBuffer(32)
	u := accelUniforms(pos, field, q, 1024, out)
	backend := NewCPUBackend()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := backend.Acceleration(u); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAcceleration1024Serial(b *testing.B) {
	pos := randomPositions(32, 1024, 1)
	field, q := uniformField(32, 0.001)
	out := codec.NewBuffer(32)
	u := accelUniforms(pos, field, q, 1024, out)
	backend := NewCPUBackendWorkers(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := backend.Acceleration(u); err != nil {
			b.Fatal(err)
		}
	}
}
