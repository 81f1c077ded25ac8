// Package edgesnap provides a segment strategy that pulls placed points
// onto nearby image edges.
package edgesnap

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

const defaultRadius = 12

// Canny thresholds for photographic input.
const (
	cannyLow  = 50
	cannyHigh = 150
)

// Strategy snaps new selection points to the nearest detected edge within a
// fixed radius. Segments stay straight lines; only their endpoints move.
// The first point of a selection is stored as placed.
type Strategy struct {
	radius int

	mu     sync.RWMutex
	edges  *image.Gray
	offset image.Point
}

var _ selection.Strategy = (*Strategy)(nil)

// New creates an edge snapping strategy. radius <= 0 selects the default
// search radius.
func New(radius int) *Strategy {
	if radius <= 0 {
		radius = defaultRadius
	}
	return &Strategy{radius: radius}
}

// SetImage recomputes the edge map for img. A nil image clears it, leaving
// the strategy as plain point to point until the next image arrives.
func (s *Strategy) SetImage(img image.Image) error {
	if img == nil {
		s.mu.Lock()
		s.edges = nil
		s.mu.Unlock()
		return nil
	}

	mat, err := imageToMat(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)

	edgeMat := gocv.NewMat()
	defer edgeMat.Close()
	gocv.Canny(blurred, &edgeMat, cannyLow, cannyHigh)

	edges := image.NewGray(image.Rect(0, 0, edgeMat.Cols(), edgeMat.Rows()))
	for y := 0; y < edgeMat.Rows(); y++ {
		for x := 0; x < edgeMat.Cols(); x++ {
			edges.SetGray(x, y, color.Gray{Y: edgeMat.GetUCharAt(y, x)})
		}
	}

	s.mu.Lock()
	s.edges = edges
	s.offset = img.Bounds().Min
	s.mu.Unlock()
	return nil
}

// LiveWire previews the segment from last to the snapped target.
func (s *Strategy) LiveWire(last, p geometry.Point) geometry.PolyLine {
	return geometry.NewPolyLine(last, s.snap(p))
}

// Commit produces the segment from last to the snapped target.
func (s *Strategy) Commit(last, p geometry.Point) []geometry.PolyLine {
	return []geometry.PolyLine{geometry.NewPolyLine(last, s.snap(p))}
}

// RebuildAdjacent recomputes the two segments meeting at index for the
// snapped replacement vertex.
func (s *Strategy) RebuildAdjacent(path []geometry.PolyLine, index int, p geometry.Point) (out, in geometry.PolyLine) {
	p = s.snap(p)
	if len(path) == 1 {
		seg := geometry.NewPolyLine(p, p)
		return seg, seg
	}
	ring := geometry.Ring(len(path))
	out = geometry.NewPolyLine(p, path[index].End)
	in = geometry.NewPolyLine(path[ring.Prev(index)].Start, p)
	return out, in
}

// snap returns the nearest edge pixel within the search radius, or p
// unchanged when none is found.
func (s *Strategy) snap(p geometry.Point) geometry.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.edges == nil {
		return p
	}

	b := s.edges.Bounds()
	px, py := p.X-s.offset.X, p.Y-s.offset.Y

	best := p
	bestDist := s.radius*s.radius + 1
	for dy := -s.radius; dy <= s.radius; dy++ {
		for dx := -s.radius; dx <= s.radius; dx++ {
			x, y := px+dx, py+dy
			if x < b.Min.X || y < b.Min.Y || x >= b.Max.X || y >= b.Max.Y {
				continue
			}
			if s.edges.GrayAt(x, y).Y == 0 {
				continue
			}
			d := dx*dx + dy*dy
			if d < bestDist {
				bestDist = d
				best = geometry.Pt(x+s.offset.X, y+s.offset.Y)
			}
		}
	}
	return best
}

// imageToMat converts a Go image to an OpenCV Mat in BGR byte order.
func imageToMat(srcImg image.Image) (gocv.Mat, error) {
	bounds := srcImg.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := srcImg.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// 16-bit to 8-bit, BGR order for OpenCV
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}
