// Package codec moves floating point simulation values through image-shaped
// storage.
//
// Every buffer the simulation touches is an RGBA8 image. A [Codec] maps a
// signed float in [-Limit, Limit] onto the integer domain of a pixel:
//
//   - scalars use all four channels as one 32-bit offset-binary integer
//   - 2D vectors use two 16-bit integers, x in R,G and y in B,A
//
// The mapping is monotonic, keeps zero exact and clamps out-of-range input
// instead of wrapping, so a GPU pass that reads a buffer as a texture sees the
// same ordering the CPU does.
//
//	c := codec.MustNew(1.0)
//	buf := codec.NewBuffer(64)
//	buf.SetVec2(17, r2.Vec{X: 0.25, Y: -0.5})
//	p := buf.Vec2(17, c)
package codec
