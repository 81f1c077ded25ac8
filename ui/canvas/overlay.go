package canvas

import (
	"fyne.io/fyne/v2"

	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

const (
	// handleSize is the drawn size of a vertex handle in canvas pixels.
	// Odd so the square centers on the vertex.
	handleSize = 9

	// handleRadius is the hit test radius around a vertex in canvas pixels.
	handleRadius = 8
)

// canvasPoint converts image coordinates to canvas coordinates at the
// current zoom.
func (sc *SelectionCanvas) canvasPoint(p geometry.Point) geometry.Point {
	return geometry.Pt(
		int(float64(p.X)*sc.zoom),
		int(float64(p.Y)*sc.zoom),
	)
}

// hitTestVertex returns the index of the vertex whose handle contains the
// given widget position, or -1 when no handle is hit. When handles overlap
// the nearest vertex wins.
func (sc *SelectionCanvas) hitTestVertex(pos fyne.Position) int {
	verts := geometry.Vertices(sc.model.Path())

	best := -1
	bestDist := float64(handleRadius*handleRadius) + 1

	for i, v := range verts {
		c := sc.canvasPoint(v)
		dx := float64(pos.X) - float64(c.X)
		dy := float64(pos.Y) - float64(c.Y)
		dist := dx*dx + dy*dy
		if dist <= float64(handleRadius*handleRadius) && dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	return best
}
