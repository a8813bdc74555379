package codec

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

var ErrInvalidLimit = errors.New("codec: limit must be positive and finite")

const (
	scalarBits = 32
	vecBits    = 16
)

// Codec encodes values in [-Limit, Limit]. The zero value is unusable; build
// one with New.
type Codec struct {
	Limit float64
}

func New(limit float64) (Codec, error) {
	if !(limit > 0) || math.IsInf(limit, 0) {
		return Codec{}, fmt.Errorf("%w: %v", ErrInvalidLimit, limit)
	}
	return Codec{Limit: limit}, nil
}

func MustNew(limit float64) Codec {
	c, err := New(limit)
	if err != nil {
		panic(err)
	}
	return c
}

// half returns 2^(bits-1), the level that encodes zero.
func half(bits uint) uint64 { return 1 << (bits - 1) }

// span returns the number of levels between zero and Limit.
func span(bits uint) float64 { return float64(half(bits) - 1) }

func (c Codec) toLevel(v float64, bits uint) uint64 {
	if math.IsNaN(v) {
		return half(bits)
	}
	v = math.Max(-c.Limit, math.Min(c.Limit, v))
	off := math.Round(v / c.Limit * span(bits))
	return uint64(int64(half(bits)) + int64(off))
}

func (c Codec) fromLevel(level uint64, bits uint) float64 {
	if level == 0 {
		return -c.Limit
	}
	off := int64(level) - int64(half(bits))
	return float64(off) / span(bits) * c.Limit
}

// Encode packs v into one pixel. Values outside the domain clamp to ±Limit,
// NaN encodes as zero.
func (c Codec) Encode(v float64) color.NRGBA {
	l := c.toLevel(v, scalarBits)
	return color.NRGBA{
		R: uint8(l >> 24),
		G: uint8(l >> 16),
		B: uint8(l >> 8),
		A: uint8(l),
	}
}

func (c Codec) Decode(p color.NRGBA) float64 {
	l := uint64(p.R)<<24 | uint64(p.G)<<16 | uint64(p.B)<<8 | uint64(p.A)
	return c.fromLevel(l, scalarBits)
}

// EncodeVec2 packs the two components independently; each one clamps on its
// own so a vector outside the square keeps its in-range component.
func (c Codec) EncodeVec2(v r2.Vec) color.NRGBA {
	x := c.toLevel(v.X, vecBits)
	y := c.toLevel(v.Y, vecBits)
	return color.NRGBA{
		R: uint8(x >> 8),
		G: uint8(x),
		B: uint8(y >> 8),
		A: uint8(y),
	}
}

func (c Codec) DecodeVec2(p color.NRGBA) r2.Vec {
	x := uint64(p.R)<<8 | uint64(p.G)
	y := uint64(p.B)<<8 | uint64(p.A)
	return r2.Vec{X: c.fromLevel(x, vecBits), Y: c.fromLevel(y, vecBits)}
}

// Quantum is the distance between two adjacent scalar levels.
func (c Codec) Quantum() float64 { return c.Limit / span(scalarBits) }

// Vec2Quantum is the distance between two adjacent vector component levels.
func (c Codec) Vec2Quantum() float64 { return c.Limit / span(vecBits) }

// Tolerance bounds |Decode(Encode(v)) - v| for v inside the domain.
func (c Codec) Tolerance() float64 { return c.Quantum() / 2 }

func (c Codec) Vec2Tolerance() float64 { return c.Vec2Quantum() / 2 }

// Clamp returns v limited to the codec domain.
func (c Codec) Clamp(v float64) float64 {
	return math.Max(-c.Limit, math.Min(c.Limit, v))
}
