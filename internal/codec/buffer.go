package codec

import (
	"bytes"
	"image"
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"
)

// Buffer is a square RGBA8 image addressed by flat index. Pixels are stored
// non-premultiplied so every channel, alpha included, holds raw data.
type Buffer struct {
	*image.NRGBA
}

func NewBuffer(size int) *Buffer {
	return &Buffer{NRGBA: image.NewNRGBA(image.Rect(0, 0, size, size))}
}

// Size returns the edge length.
func (b *Buffer) Size() int { return b.Rect.Dx() }

// Len returns the number of addressable pixels.
func (b *Buffer) Len() int { return b.Rect.Dx() * b.Rect.Dy() }

// Coord maps a flat index to pixel coordinates.
func (b *Buffer) Coord(i int) (x, y int) {
	w := b.Rect.Dx()
	return b.Rect.Min.X + i%w, b.Rect.Min.Y + i/w
}

func (b *Buffer) PixelAt(i int) color.NRGBA {
	o := i * 4
	s := b.Pix[o : o+4 : o+4]
	return color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]}
}

func (b *Buffer) SetPixelAt(i int, c color.NRGBA) {
	o := i * 4
	s := b.Pix[o : o+4 : o+4]
	s[0], s[1], s[2], s[3] = c.R, c.G, c.B, c.A
}

func (b *Buffer) Scalar(i int, c Codec) float64 { return c.Decode(b.PixelAt(i)) }

func (b *Buffer) SetScalar(i int, c Codec, v float64) { b.SetPixelAt(i, c.Encode(v)) }

func (b *Buffer) Vec2(i int, c Codec) r2.Vec { return c.DecodeVec2(b.PixelAt(i)) }

func (b *Buffer) SetVec2(i int, c Codec, v r2.Vec) { b.SetPixelAt(i, c.EncodeVec2(v)) }

// Fill writes the same pixel everywhere.
func (b *Buffer) Fill(p color.NRGBA) {
	for i := 0; i < b.Len(); i++ {
		b.SetPixelAt(i, p)
	}
}

func (b *Buffer) Clone() *Buffer {
	c := NewBuffer(b.Size())
	copy(c.Pix, b.Pix)
	return c
}

// CopyFrom overwrites b with the contents of src. Sizes must match.
func (b *Buffer) CopyFrom(src *Buffer) bool {
	if src.Size() != b.Size() {
		return false
	}
	copy(b.Pix, src.Pix)
	return true
}

func (b *Buffer) Equal(o *Buffer) bool {
	if o == nil || o.Size() != b.Size() {
		return false
	}
	return bytes.Equal(b.Pix, o.Pix)
}
