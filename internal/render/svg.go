package render

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// SVG writes the positions as circles in a Size x Size document.
func SVG(w io.Writer, positions []r2.Vec, s Style) error {
	var sb strings.Builder

	bg, fg := "#ffffff", "#000000"
	if s.Invert {
		bg, fg = fg, bg
	}

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, s.Size, s.Size, s.Size, s.Size, bg, fg))

	for _, p := range positions {
		x, y := s.ToImage(p)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="%.2f"/>
`, x, y, s.DotRadius))
	}

	sb.WriteString("</g>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
