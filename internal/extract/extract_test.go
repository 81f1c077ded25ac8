package extract

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 25), G: uint8(y * 25), A: 255})
		}
	}
	return img
}

// ringPath builds a closed ring through the given vertices.
func ringPath(verts ...geometry.Point) []geometry.PolyLine {
	path := make([]geometry.PolyLine, len(verts))
	ring := geometry.Ring(len(verts))
	for i, v := range verts {
		path[i] = geometry.NewPolyLine(v, verts[ring.Next(i)])
	}
	return path
}

func TestCrop(t *testing.T) {
	img := testImage()
	path := ringPath(geometry.Pt(1, 1), geometry.Pt(8, 1), geometry.Pt(8, 8), geometry.Pt(1, 8))

	out, err := Crop(img, path)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if out.Bounds().Dx() != 7 || out.Bounds().Dy() != 7 {
		t.Fatalf("crop size = %dx%d, want 7x7", out.Bounds().Dx(), out.Bounds().Dy())
	}
	// Top-left of the crop is source pixel (1,1).
	if out.At(0, 0) != img.At(1, 1) {
		t.Errorf("crop origin = %v, want source (1,1) = %v", out.At(0, 0), img.At(1, 1))
	}
}

func TestCropClampsToImage(t *testing.T) {
	img := testImage()
	path := ringPath(geometry.Pt(-5, -5), geometry.Pt(5, -5), geometry.Pt(5, 5), geometry.Pt(-5, 5))

	out, err := Crop(img, path)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if out.Bounds().Dx() != 5 || out.Bounds().Dy() != 5 {
		t.Errorf("clamped crop size = %dx%d, want 5x5", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestMask(t *testing.T) {
	img := testImage()
	// Right triangle: inside means x+y below the diagonal.
	path := ringPath(geometry.Pt(0, 0), geometry.Pt(8, 0), geometry.Pt(0, 8))

	out, err := Mask(img, path)
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}

	if got := out.RGBAAt(3, 3); got != img.RGBAAt(3, 3) {
		t.Errorf("inside pixel = %v, want source %v", got, img.RGBAAt(3, 3))
	}
	if got := out.RGBAAt(7, 7); got.A != 0 {
		t.Errorf("outside pixel alpha = %d, want transparent", got.A)
	}
}

func TestRegionErrors(t *testing.T) {
	img := testImage()
	square := ringPath(geometry.Pt(1, 1), geometry.Pt(8, 1), geometry.Pt(8, 8), geometry.Pt(1, 8))

	if _, err := Crop(nil, square); !errors.Is(err, selection.ErrInvalidArgument) {
		t.Errorf("Crop(nil image) = %v, want ErrInvalidArgument", err)
	}
	if _, err := Crop(img, nil); !errors.Is(err, selection.ErrInvalidArgument) {
		t.Errorf("Crop(empty path) = %v, want ErrInvalidArgument", err)
	}

	// A two-point ring encloses no area.
	line := []geometry.PolyLine{
		geometry.NewPolyLine(geometry.Pt(0, 0), geometry.Pt(9, 0)),
		geometry.NewPolyLine(geometry.Pt(9, 0), geometry.Pt(0, 0)),
	}
	if _, err := Mask(img, line); !errors.Is(err, selection.ErrInvalidArgument) {
		t.Errorf("Mask(degenerate ring) = %v, want ErrInvalidArgument", err)
	}

	// Entirely off the image.
	offside := ringPath(geometry.Pt(20, 20), geometry.Pt(30, 20), geometry.Pt(30, 30), geometry.Pt(20, 30))
	if _, err := Crop(img, offside); !errors.Is(err, selection.ErrInvalidArgument) {
		t.Errorf("Crop(offside ring) = %v, want ErrInvalidArgument", err)
	}
}

func TestSavePNG(t *testing.T) {
	img := testImage()
	path := ringPath(geometry.Pt(1, 1), geometry.Pt(8, 1), geometry.Pt(8, 8), geometry.Pt(1, 8))
	file := filepath.Join(t.TempDir(), "selection.png")

	if err := SavePNG(img, path, file); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	in, err := os.Open(file)
	if err != nil {
		t.Fatalf("failed to open saved file: %v", err)
	}
	defer in.Close()
	decoded, err := png.Decode(in)
	if err != nil {
		t.Fatalf("saved file does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 7 || decoded.Bounds().Dy() != 7 {
		t.Errorf("saved size = %dx%d, want 7x7", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestSavePNGUnwritablePath(t *testing.T) {
	img := testImage()
	path := ringPath(geometry.Pt(1, 1), geometry.Pt(8, 1), geometry.Pt(8, 8), geometry.Pt(1, 8))
	file := filepath.Join(t.TempDir(), "missing", "dir", "selection.png")

	if err := SavePNG(img, path, file); err == nil {
		t.Fatal("SavePNG to unwritable path succeeded")
	}
}

func TestSaveCropPNG(t *testing.T) {
	img := testImage()
	path := ringPath(geometry.Pt(2, 2), geometry.Pt(6, 2), geometry.Pt(6, 6), geometry.Pt(2, 6))
	file := filepath.Join(t.TempDir(), "crop.png")

	if err := SaveCropPNG(img, path, file); err != nil {
		t.Fatalf("SaveCropPNG failed: %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("saved crop missing: %v", err)
	}
}

func TestExportPDF(t *testing.T) {
	img := testImage()
	path := ringPath(geometry.Pt(1, 1), geometry.Pt(8, 1), geometry.Pt(8, 8), geometry.Pt(1, 8))
	file := filepath.Join(t.TempDir(), "selection.pdf")

	if err := ExportPDF(img, path, file); err != nil {
		t.Fatalf("ExportPDF failed: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("failed to read PDF: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Errorf("output does not look like a PDF (%d bytes)", len(data))
	}
}

func TestMeasure(t *testing.T) {
	square := ringPath(geometry.Pt(0, 0), geometry.Pt(10, 0), geometry.Pt(10, 10), geometry.Pt(0, 10))
	m := Measure(square)
	if math.Abs(m.Perimeter-40) > 1e-9 {
		t.Errorf("perimeter = %v, want 40", m.Perimeter)
	}
	if math.Abs(m.Area-100) > 1e-9 {
		t.Errorf("area = %v, want 100", m.Area)
	}

	if got := Measure(nil); got != (Metrics{}) {
		t.Errorf("Measure(nil) = %+v, want zero", got)
	}
}
