package geometry

// Vertices returns the polygon vertices of a segment path, one per segment
// start. For a closed ring this is the full vertex cycle.
func Vertices(path []PolyLine) []Point {
	if len(path) == 0 {
		return nil
	}
	verts := make([]Point, len(path))
	for i, seg := range path {
		verts[i] = seg.Start
	}
	return verts
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := Ring(n).Next(i)
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(float64(p.X) < float64(pj.X-pi.X)*float64(p.Y-pi.Y)/float64(pj.Y-pi.Y)+float64(pi.X)) {
			inside = !inside
		}
	}

	return inside
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
