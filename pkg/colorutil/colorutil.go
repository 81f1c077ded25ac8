// Package colorutil provides shared color utilities for the selector UI.
package colorutil

import (
	"image/color"
)

// Overlay colors used by the selection canvas.
var (
	Path     = color.RGBA{R: 0, G: 229, B: 255, A: 255}   // Committed segments
	LiveWire = color.RGBA{R: 255, G: 255, B: 255, A: 200} // Rubber-band preview
	Handle   = color.RGBA{R: 255, G: 213, B: 0, A: 255}   // Vertex drag handles
	Start    = color.RGBA{R: 0, G: 230, B: 64, A: 255}    // First placed point
	Label    = color.RGBA{R: 255, G: 255, B: 255, A: 255} // Vertex index labels
)

// WithAlpha returns the color with its alpha replaced.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}
