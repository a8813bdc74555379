package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/san-kum/stipple/internal/driver"
	"github.com/san-kum/stipple/internal/frames"
)

var ErrUnknownFormat = errors.New("render: unknown output format")

// Exporter writes every sample to the next numbered output file.
type Exporter struct {
	style  Style
	format string
	namer  *frames.Namer
	logger *slog.Logger

	written []string
}

func NewExporter(style Style, format string, namer *frames.Namer, logger *slog.Logger) (*Exporter, error) {
	if format != "png" && format != "svg" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{style: style, format: format, namer: namer, logger: logger}, nil
}

func (e *Exporter) Sample(ctx context.Context, s driver.Sample) error {
	path, index := e.namer.Next()

	var err error
	switch e.format {
	case "png":
		err = frames.SavePNG(path, Rasterize(s.Positions, e.style))
	case "svg":
		err = writeSVG(path, s, e.style)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	e.written = append(e.written, path)
	e.logger.Debug("sample written", "output", index, "path", path, "frame", s.Frame.Index, "step", s.Step)
	return nil
}

// Written lists the files produced so far.
func (e *Exporter) Written() []string { return e.written }

func writeSVG(path string, s driver.Sample, style Style) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := SVG(f, s.Positions, style); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
