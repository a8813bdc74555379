package field

import (
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"
)

func grayImage(size int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func noiseImage(size int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func TestUniformGrayScenario(t *testing.T) {
	numDots, dotCharge := 4, 0.5
	b := Builder{SimXY: 4, BlankLevel: 0.95, TargetCharge: float64(numDots) * dotCharge}

	f, err := b.Build(grayImage(4, 128))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	first := f.At(0, 0)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := f.At(x, y); got != first {
				t.Errorf("cell (%d,%d) = %v, want %v", x, y, got, first)
			}
		}
	}
	if math.Abs(first-0.125) > f.Codec.Tolerance() {
		t.Errorf("cell charge %v, want 0.125", first)
	}
	if math.Abs(f.Sum()-2.0) > 1e-6 {
		t.Errorf("total charge %v, want 2.0", f.Sum())
	}
}

func TestChargeConservation(t *testing.T) {
	tests := []struct {
		name  string
		img   image.Image
		blank float64
		simXY int
	}{
		{"noise downscaled", noiseImage(97, 1), 0.9, 32},
		{"noise upscaled", noiseImage(9, 2), 0.75, 24},
		{"noise exact size", noiseImage(16, 3), 1.0, 16},
		{"dark gray", grayImage(20, 30), 0.5, 8},
		{"mostly bright high blank", noiseImage(40, 4), 1.2, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := 1024 * 0.002
			b := Builder{SimXY: tt.simXY, BlankLevel: tt.blank, TargetCharge: target}
			f, err := b.Build(tt.img)
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			if math.Abs(f.Sum()-target) > f.Tolerance()+1e-9 {
				t.Errorf("sum %v, want %v (tolerance %v)", f.Sum(), target, f.Tolerance())
			}
		})
	}
}

func TestNonPositiveTotal(t *testing.T) {
	tests := []struct {
		name  string
		img   image.Image
		blank float64
	}{
		{"white image", grayImage(8, 255), 0.5},
		{"exactly balanced", grayImage(8, 0), 0},
		{"negative blank", grayImage(8, 100), -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Builder{SimXY: 8, BlankLevel: tt.blank, TargetCharge: 1}
			if _, err := b.Build(tt.img); !errors.Is(err, ErrNonPositiveCharge) {
				t.Errorf("expected ErrNonPositiveCharge, got %v", err)
			}
		})
	}
}

func TestBuilderValidation(t *testing.T) {
	img := grayImage(4, 10)
	if _, err := (Builder{SimXY: 0, BlankLevel: 1, TargetCharge: 1}).Build(img); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := (Builder{SimXY: 4, BlankLevel: 1, TargetCharge: 0}).Build(img); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
	empty := image.NewGray(image.Rect(0, 0, 0, 0))
	if _, err := (Builder{SimXY: 4, BlankLevel: 1, TargetCharge: 1}).Build(empty); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestUndefinedLuminanceIsZeroCharge(t *testing.T) {
	if got := rawCharge(math.NaN(), 0.9); got != 0 {
		t.Errorf("NaN luminance gave charge %v", got)
	}
	if got := rawCharge(math.Inf(1), 0.9); got != 0 {
		t.Errorf("Inf luminance gave charge %v", got)
	}

	b := Builder{SimXY: 2, BlankLevel: 1, TargetCharge: 3}
	f, err := b.FromLuminance([]float64{0, math.NaN(), 0, 0})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if f.At(1, 0) != 0 {
		t.Errorf("NaN cell charge %v, want 0", f.At(1, 0))
	}
	if math.Abs(f.At(0, 0)-1) > f.Codec.Tolerance() {
		t.Errorf("remaining cells should share the target, got %v", f.At(0, 0))
	}
}

func TestPolarity(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(src.Pix, []uint8{0, 255, 0, 255})

	build := func(p Polarity) *Field {
		t.Helper()
		f, err := Builder{SimXY: 2, BlankLevel: 1, TargetCharge: 1, Polarity: p}.Build(src)
		if err != nil {
			t.Fatal(err)
		}
		return f
	}

	fd, fb := build(DarkAttracts), build(BrightAttracts)
	if !(fd.At(0, 0) > fd.At(1, 0)) {
		t.Errorf("dark polarity: black cell %v should outweigh white cell %v", fd.At(0, 0), fd.At(1, 0))
	}
	if !(fb.At(1, 0) > fb.At(0, 0)) {
		t.Errorf("bright polarity: white cell %v should outweigh black cell %v", fb.At(1, 0), fb.At(0, 0))
	}
}

func TestParsePolarity(t *testing.T) {
	tests := []struct {
		in      string
		want    Polarity
		wantErr bool
	}{
		{"dark", DarkAttracts, false},
		{"", DarkAttracts, false},
		{"Bright", BrightAttracts, false},
		{"grey", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePolarity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolarity(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePolarity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildFlat(t *testing.T) {
	b := Builder{SimXY: 8, TargetCharge: 6.4}
	f, err := b.BuildFlat()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f.At(3, 5)-0.1) > f.Codec.Tolerance() {
		t.Errorf("flat cell %v, want 0.1", f.At(3, 5))
	}
}

func TestPreviewAndCellCenter(t *testing.T) {
	b := Builder{SimXY: 4, BlankLevel: 0.95, TargetCharge: 2}
	f, err := b.Build(grayImage(4, 128))
	if err != nil {
		t.Fatal(err)
	}
	p := f.Preview()
	if p.Bounds().Dx() != 4 || p.Pix[0] != 0 {
		t.Errorf("uniform positive field should preview black, got %d", p.Pix[0])
	}

	x, y := f.CellCenter(0, 3)
	if math.Abs(x+0.75) > 1e-12 || math.Abs(y-0.75) > 1e-12 {
		t.Errorf("CellCenter(0,3) = (%v, %v)", x, y)
	}
}
