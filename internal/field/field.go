// Package field turns a target image into the normalized charge field that
// pulls particles toward the dark (or bright) parts of the picture.
package field

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/san-kum/stipple/internal/codec"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrNonPositiveCharge = errors.New("field: total raw charge is not positive")
	ErrInvalidSize       = errors.New("field: simulation size must be positive")
	ErrInvalidTarget     = errors.New("field: target charge must be positive")
	ErrEmptyImage        = errors.New("field: image has no pixels")
)

// Perceptual channel weights.
const (
	weightR = 0.2989
	weightG = 0.5870
	weightB = 0.1140
)

// Polarity selects which end of the brightness range carries charge.
type Polarity int

const (
	// DarkAttracts gives dark pixels the most charge.
	DarkAttracts Polarity = iota
	// BrightAttracts inverts luminance first.
	BrightAttracts
)

func (p Polarity) String() string {
	switch p {
	case DarkAttracts:
		return "dark"
	case BrightAttracts:
		return "bright"
	default:
		return fmt.Sprintf("polarity(%d)", int(p))
	}
}

func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dark":
		return DarkAttracts, nil
	case "bright":
		return BrightAttracts, nil
	}
	return 0, fmt.Errorf("field: unknown polarity %q (want dark or bright)", s)
}

// Builder derives charge fields. It holds no per-image state and can be
// shared between goroutines.
type Builder struct {
	SimXY        int
	BlankLevel   float64
	TargetCharge float64
	Polarity     Polarity
	// MinLimit is the smallest codec limit used for the field buffer.
	MinLimit float64
}

// Field is one normalized charge field.
type Field struct {
	Size   int
	Buffer *codec.Buffer
	Codec  codec.Codec
}

// Luminance returns the perceptual brightness of c in [0, 1].
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (weightR*float64(r) + weightG*float64(g) + weightB*float64(b)) / 0xffff
}

// rawCharge is the unnormalized charge of one pixel. Undefined luminance
// contributes nothing.
func rawCharge(lum, blank float64) float64 {
	if math.IsNaN(lum) || math.IsInf(lum, 0) {
		return 0
	}
	return blank - lum
}

func (b Builder) validate() error {
	if b.SimXY <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, b.SimXY)
	}
	if !(b.TargetCharge > 0) || math.IsInf(b.TargetCharge, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, b.TargetCharge)
	}
	return nil
}

// Resample copies img into a SimXY x SimXY working buffer.
func (b Builder) Resample(img image.Image) (*image.RGBA, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	src := img.Bounds()
	if src.Empty() {
		return nil, ErrEmptyImage
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.SimXY, b.SimXY))
	if src.Dx() == b.SimXY && src.Dy() == b.SimXY {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst, nil
}

// Luminances resamples img and returns one luminance per field cell in
// row-major order, with polarity applied.
func (b Builder) Luminances(img image.Image) ([]float64, error) {
	work, err := b.Resample(img)
	if err != nil {
		return nil, err
	}
	lums := make([]float64, b.SimXY*b.SimXY)
	for y := 0; y < b.SimXY; y++ {
		for x := 0; x < b.SimXY; x++ {
			l := Luminance(work.RGBAAt(x, y))
			if b.Polarity == BrightAttracts {
				l = 1 - l
			}
			lums[y*b.SimXY+x] = l
		}
	}
	return lums, nil
}

// Build derives the charge field for img. The decoded charges sum to
// TargetCharge within the field codec's quantization.
func (b Builder) Build(img image.Image) (*Field, error) {
	lums, err := b.Luminances(img)
	if err != nil {
		return nil, err
	}
	return b.FromLuminance(lums)
}

// FromLuminance normalizes a row-major SimXY*SimXY luminance grid.
func (b Builder) FromLuminance(lums []float64) (*Field, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	n := b.SimXY * b.SimXY
	if len(lums) != n {
		return nil, fmt.Errorf("field: got %d luminance values for a %dx%d field", len(lums), b.SimXY, b.SimXY)
	}

	charges := make([]float64, n)
	for i, l := range lums {
		charges[i] = rawCharge(l, b.BlankLevel)
	}

	totalRaw := floats.Sum(charges)
	if !(totalRaw > 0) || math.IsInf(totalRaw, 0) {
		return nil, fmt.Errorf("%w: sum %v with blank level %v", ErrNonPositiveCharge, totalRaw, b.BlankLevel)
	}

	floats.Scale(b.TargetCharge/totalRaw, charges)

	limit := math.Max(b.MinLimit, math.Max(floats.Max(charges), -floats.Min(charges)))
	c, err := codec.New(limit)
	if err != nil {
		return nil, fmt.Errorf("field: %w", err)
	}

	f := &Field{Size: b.SimXY, Buffer: codec.NewBuffer(b.SimXY), Codec: c}
	for i, q := range charges {
		f.Buffer.SetScalar(i, c, q)
	}
	return f, nil
}

// BuildFlat returns a field with the same charge in every cell.
func (b Builder) BuildFlat() (*Field, error) {
	lums := make([]float64, b.SimXY*b.SimXY)
	flat := b
	flat.BlankLevel = 1
	return flat.FromLuminance(lums)
}

// At returns the decoded charge of cell (x, y).
func (f *Field) At(x, y int) float64 {
	return f.Buffer.Scalar(y*f.Size+x, f.Codec)
}

// Charges decodes the whole field in row-major order.
func (f *Field) Charges() []float64 {
	out := make([]float64, f.Size*f.Size)
	for i := range out {
		out[i] = f.Buffer.Scalar(i, f.Codec)
	}
	return out
}

// Sum returns the total decoded charge.
func (f *Field) Sum() float64 { return floats.Sum(f.Charges()) }

func (f *Field) Limit() float64 { return f.Codec.Limit }

// Tolerance bounds |Sum() - target| from quantization alone.
func (f *Field) Tolerance() float64 {
	return f.Codec.Tolerance() * float64(f.Size*f.Size)
}

// CellCenter returns the simulation-space position of cell (x, y).
func (f *Field) CellCenter(x, y int) (float64, float64) {
	s := float64(f.Size)
	return (float64(x)+0.5)/s*2 - 1, (float64(y)+0.5)/s*2 - 1
}

// Preview renders the field as a grayscale image, mid gray at zero charge and
// black at the strongest positive charge.
func (f *Field) Preview() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Size, f.Size))
	for i, q := range f.Charges() {
		v := 0.5 - 0.5*q/f.Codec.Limit
		img.Pix[i] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return img
}
