// Package geometry provides the geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point represents a 2D pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt creates a new Point.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// PolyLine represents one straight edge of a path, from Start to End.
type PolyLine struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// NewPolyLine creates a new PolyLine.
func NewPolyLine(start, end Point) PolyLine {
	return PolyLine{Start: start, End: end}
}

// Length returns the Euclidean length of the segment.
func (l PolyLine) Length() float64 {
	return l.Start.Distance(l.End)
}

// Ring provides wraparound index arithmetic over a cycle of n elements.
// The size must be positive.
type Ring int

// Next returns the index following i on the ring.
func (r Ring) Next(i int) int {
	return (i + 1) % int(r)
}

// Prev returns the index preceding i on the ring.
func (r Ring) Prev(i int) int {
	return (i - 1 + int(r)) % int(r)
}

// Contains returns true if i is a valid index on the ring.
func (r Ring) Contains(i int) bool {
	return i >= 0 && i < int(r)
}

// Rect represents a rectangle with integer coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Empty returns true if the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersect returns the largest rectangle contained in both rectangles.
func (r Rect) Intersect(other Rect) Rect {
	x := max(r.X, other.X)
	y := max(r.Y, other.Y)
	x2 := min(r.X+r.Width, other.X+other.Width)
	y2 := min(r.Y+r.Height, other.Y+other.Height)
	if x2 <= x || y2 <= y {
		return Rect{}
	}
	return Rect{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}
