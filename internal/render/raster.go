// Package render draws particle positions as dots.
package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/spatial/r2"
)

// Style controls how dots are drawn. Positions in [-1,1]² fill the whole
// Size x Size image; image row 0 is y = -1.
type Style struct {
	Size      int
	DotRadius float64
	// Invert draws light dots on a dark background.
	Invert bool
}

func (s Style) colors() (bg, fg color.Gray) {
	if s.Invert {
		return color.Gray{Y: 0}, color.Gray{Y: 0xff}
	}
	return color.Gray{Y: 0xff}, color.Gray{Y: 0}
}

// ToImage maps a position to image coordinates.
func (s Style) ToImage(p r2.Vec) (x, y float64) {
	size := float64(s.Size)
	return (p.X + 1) / 2 * size, (p.Y + 1) / 2 * size
}

// Rasterize draws each position as an antialiased disc.
func Rasterize(positions []r2.Vec, s Style) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.Size, s.Size))
	bg, fg := s.colors()
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	r := s.DotRadius
	for _, p := range positions {
		cx, cy := s.ToImage(p)
		x0 := int(math.Floor(cx - r - 1))
		x1 := int(math.Ceil(cx + r + 1))
		y0 := int(math.Floor(cy - r - 1))
		y1 := int(math.Ceil(cy + r + 1))

		for y := max(y0, 0); y < min(y1, s.Size); y++ {
			for x := max(x0, 0); x < min(x1, s.Size); x++ {
				d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
				cover := math.Min(1, math.Max(0, r+0.5-d))
				if cover == 0 {
					continue
				}
				i := img.PixOffset(x, y)
				cur := float64(img.Pix[i])
				img.Pix[i] = uint8(math.Round(cur + (float64(fg.Y)-cur)*cover))
			}
		}
	}
	return img
}

// Scale resizes img to size x size, for previews of small buffers.
func Scale(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
