// Package compute runs the three per-timestep kernels of the particle
// simulation: acceleration, velocity and position.
//
// Every pass receives a fixed uniform struct (resolution, buffer handles,
// particle count and its physical constants) and writes exactly one output
// buffer with the same dimensions as its inputs. A pass never writes a
// buffer it reads, and returns only once the output is fully materialized,
// so callers can chain passes without further synchronization.
//
// Two backends are available:
//
//   - CPU: goroutine worker pool over particle index ranges
//   - GPU: raylib fragment shaders rendering into textures (build with -tags gpu)
//
// Select picks one by name; "auto" prefers the GPU when it initializes:
//
//	backend, err := compute.Select("auto", logger)
//	defer backend.Cleanup()
//	err = backend.Acceleration(u)
package compute
