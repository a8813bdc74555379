// Package frames names, loads and saves the numbered images a run reads
// and writes.
package frames

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
)

var (
	ErrMissingFrame = errors.New("frames: missing frame")
	ErrDecode       = errors.New("frames: cannot decode frame")
)

// Pattern builds paths as Prefix + zero-padded index + Suffix.
type Pattern struct {
	Prefix string
	Pad    int
	Suffix string
}

func (p Pattern) Path(index int) string {
	return fmt.Sprintf("%s%0*d%s", p.Prefix, p.Pad, index, p.Suffix)
}

// Load decodes the image at index. A file that cannot be opened is reported
// as ErrMissingFrame.
func (p Pattern) Load(index int) (image.Image, error) {
	path := p.Path(index)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %w", ErrMissingFrame, index, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w %d (%s): %w", ErrDecode, index, path, err)
	}
	return img, nil
}

// Namer hands out output paths with a running index.
type Namer struct {
	Pattern Pattern
	next    int
}

func NewNamer(p Pattern, start int) *Namer {
	return &Namer{Pattern: p, next: start}
}

// Next returns the path for the next output and advances the index.
func (n *Namer) Next() (string, int) {
	i := n.next
	n.next++
	return n.Pattern.Path(i), i
}

// SavePNG encodes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
