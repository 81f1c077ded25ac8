package selection

import (
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

// Strategy converts accepted points into path segments. Implementations
// must be stateless with respect to the model; the model passes in
// everything a decision needs.
type Strategy interface {
	// LiveWire returns a preview segment from last to p. It must not
	// commit anything.
	LiveWire(last, p geometry.Point) geometry.PolyLine

	// Commit returns the segment(s) to append when p is accepted after
	// last. The result must contain at least one segment.
	Commit(last, p geometry.Point) []geometry.PolyLine

	// RebuildAdjacent returns the replacement outgoing and incoming
	// segments for relocating the vertex at index to p. path is read-only
	// input; the model applies the replacements.
	RebuildAdjacent(path []geometry.PolyLine, index int, p geometry.Point) (out, in geometry.PolyLine)
}

// PointToPoint joins consecutive points with a single straight segment.
type PointToPoint struct{}

// NewPointToPoint creates the straight-segment strategy.
func NewPointToPoint() PointToPoint {
	return PointToPoint{}
}

// LiveWire returns the straight preview segment from last to p.
func (PointToPoint) LiveWire(last, p geometry.Point) geometry.PolyLine {
	return geometry.NewPolyLine(last, p)
}

// Commit returns the single straight segment from last to p.
func (PointToPoint) Commit(last, p geometry.Point) []geometry.PolyLine {
	return []geometry.PolyLine{geometry.NewPolyLine(last, p)}
}

// RebuildAdjacent replaces the edge leaving the vertex with (p, oldEnd) and
// the edge entering it with (oldStart, p). A ring of one segment collapses
// to the degenerate segment (p, p).
func (PointToPoint) RebuildAdjacent(path []geometry.PolyLine, index int, p geometry.Point) (out, in geometry.PolyLine) {
	if len(path) == 1 {
		seg := geometry.NewPolyLine(p, p)
		return seg, seg
	}
	ring := geometry.Ring(len(path))
	out = geometry.NewPolyLine(p, path[index].End)
	in = geometry.NewPolyLine(path[ring.Prev(index)].Start, p)
	return out, in
}
