// Package extract produces output artifacts from a finished selection:
// cropped and masked rasters, PNG files, PDF exports, and path metrics.
package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/jung-kurt/gofpdf"
	"gonum.org/v1/gonum/floats"

	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

// region computes the bounding box of the path clamped to the image bounds.
func region(img image.Image, path []geometry.PolyLine) (geometry.Rect, error) {
	if img == nil {
		return geometry.Rect{}, fmt.Errorf("%w: no image", selection.ErrInvalidArgument)
	}
	if len(path) == 0 {
		return geometry.Rect{}, fmt.Errorf("%w: empty path", selection.ErrInvalidArgument)
	}

	b := img.Bounds()
	imgRect := geometry.NewRect(b.Min.X, b.Min.Y, b.Dx(), b.Dy())
	box := geometry.BoundingBox(geometry.Vertices(path)).Intersect(imgRect)
	if box.Empty() {
		return geometry.Rect{}, fmt.Errorf("%w: selection has no area inside the image", selection.ErrInvalidArgument)
	}
	return box, nil
}

// Crop returns the axis-aligned bounding box region of the path as a new
// image.
func Crop(img image.Image, path []geometry.PolyLine) (*image.RGBA, error) {
	box, err := region(img, path)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, box.Width, box.Height))
	draw.Draw(out, out.Bounds(), img, image.Pt(box.X, box.Y), draw.Src)
	return out, nil
}

// Mask returns the bounding box region of the path with every pixel outside
// the polygon fully transparent.
func Mask(img image.Image, path []geometry.PolyLine) (*image.RGBA, error) {
	box, err := region(img, path)
	if err != nil {
		return nil, err
	}

	polygon := geometry.Vertices(path)
	out := image.NewRGBA(image.Rect(0, 0, box.Width, box.Height))
	for y := 0; y < box.Height; y++ {
		for x := 0; x < box.Width; x++ {
			p := geometry.Pt(box.X+x, box.Y+y)
			if geometry.PointInPolygon(p, polygon) {
				out.Set(x, y, img.At(p.X, p.Y))
			}
		}
	}
	return out, nil
}

// SavePNG writes the masked selection region to file as PNG.
func SavePNG(img image.Image, path []geometry.PolyLine, file string) error {
	masked, err := Mask(img, path)
	if err != nil {
		return err
	}
	return writePNG(masked, file)
}

// SaveCropPNG writes the rectangular crop of the selection region to file
// as PNG.
func SaveCropPNG(img image.Image, path []geometry.PolyLine, file string) error {
	cropped, err := Crop(img, path)
	if err != nil {
		return err
	}
	return writePNG(cropped, file)
}

func writePNG(img image.Image, file string) error {
	out, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// ExportPDF writes a one-page A4 PDF containing the masked selection region
// and its metrics.
func ExportPDF(img image.Image, path []geometry.PolyLine, file string) error {
	masked, err := Mask(img, path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, masked); err != nil {
		return fmt.Errorf("failed to encode PNG for PDF: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Image Selection")
	pdf.Ln(12)

	m := Measure(path)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Perimeter: %.1f px    Area: %.1f px2", m.Perimeter, m.Area))
	pdf.Ln(10)

	// Fit the image to the printable area, preserving aspect ratio.
	const availW, availH = 190.0, 240.0
	w := availW
	h := w * float64(masked.Bounds().Dy()) / float64(masked.Bounds().Dx())
	if h > availH {
		h = availH
		w = h * float64(masked.Bounds().Dx()) / float64(masked.Bounds().Dy())
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("selection", opts, &buf)
	pdf.ImageOptions("selection", 10, 32, w, h, false, opts, 0, "")

	if err := pdf.OutputFileAndClose(file); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// Metrics describes a selection path.
type Metrics struct {
	Perimeter float64 // Sum of segment lengths in pixels
	Area      float64 // Shoelace area in square pixels; meaningful for closed rings
}

// Measure computes the metrics of a path.
func Measure(path []geometry.PolyLine) Metrics {
	if len(path) == 0 {
		return Metrics{}
	}

	lengths := make([]float64, len(path))
	for i, seg := range path {
		lengths[i] = seg.Length()
	}

	verts := geometry.Vertices(path)
	ring := geometry.Ring(len(verts))
	cross := make([]float64, len(verts))
	for i, v := range verts {
		next := verts[ring.Next(i)]
		cross[i] = float64(v.X*next.Y - next.X*v.Y)
	}

	return Metrics{
		Perimeter: floats.Sum(lengths),
		Area:      math.Abs(floats.Sum(cross)) / 2,
	}
}
