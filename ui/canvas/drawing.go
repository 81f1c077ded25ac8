package canvas

import (
	"image"
	"image/color"
	"strconv"

	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/pkg/colorutil"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9, used to label
// vertex handles with their path index. Each digit is 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// draw renders one frame: the image at the current zoom with the selection
// overlay on top. Called by the raster on every refresh.
func (sc *SelectionCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))

	// Dark background behind and around the image
	bg := color.RGBA{R: 24, G: 24, B: 28, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			output.SetRGBA(x, y, bg)
		}
	}

	img := sc.model.Image()
	if img == nil {
		return output
	}

	sc.drawScaledImage(output, img)
	sc.drawSelection(output)

	return output
}

// drawScaledImage paints the source image into the output using nearest
// neighbor sampling at the current zoom.
func (sc *SelectionCanvas) drawScaledImage(output *image.RGBA, img image.Image) {
	bounds := output.Bounds()
	src := img.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		srcY := src.Min.Y + int(float64(y)/sc.zoom)
		if srcY < src.Min.Y || srcY >= src.Max.Y {
			continue
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			srcX := src.Min.X + int(float64(x)/sc.zoom)
			if srcX < src.Min.X || srcX >= src.Max.X {
				continue
			}
			output.Set(x, y, img.At(srcX, srcY))
		}
	}
}

// drawSelection paints the committed path, the live wire, and the vertex
// handles for the model's current state.
func (sc *SelectionCanvas) drawSelection(output *image.RGBA) {
	state := sc.model.State()
	path := sc.model.Path()
	thickness := sc.lineThickness()

	pathColor := colorutil.Path
	if state == selection.Processing {
		// Dim the path while an export is running
		pathColor = colorutil.WithAlpha(colorutil.Path, 128)
	}

	for _, seg := range path {
		a := sc.canvasPoint(seg.Start)
		b := sc.canvasPoint(seg.End)
		sc.drawLine(output, a.X, a.Y, b.X, b.Y, pathColor, thickness)
	}

	switch state {
	case selection.Selecting:
		sc.drawLiveWire(output, thickness)
		if start, ok := sc.model.Start(); ok {
			p := sc.canvasPoint(start)
			sc.drawHandle(output, p.X, p.Y, colorutil.Start)
		}
	case selection.Selected:
		for i, v := range geometry.Vertices(path) {
			p := sc.canvasPoint(v)
			sc.drawHandle(output, p.X, p.Y, colorutil.Handle)
			sc.drawIndexLabel(output, strconv.Itoa(i), p.X+handleSize, p.Y-handleSize)
		}
	}
}

// drawLiveWire paints the rubber band segment from the last committed point
// to the pointer.
func (sc *SelectionCanvas) drawLiveWire(output *image.RGBA, thickness int) {
	if sc.hover == nil {
		return
	}
	seg, ok := sc.model.LiveWire(*sc.hover)
	if !ok {
		return
	}
	a := sc.canvasPoint(seg.Start)
	b := sc.canvasPoint(seg.End)
	sc.drawLine(output, a.X, a.Y, b.X, b.Y, colorutil.LiveWire, thickness)
}

// lineThickness scales the path stroke with the zoom so it stays visible at
// low magnification without swallowing the image at high magnification.
func (sc *SelectionCanvas) lineThickness() int {
	t := int(sc.zoom)
	if t < 2 {
		t = 2
	}
	if t > 6 {
		t = 6
	}
	return t
}

// drawLine draws a line between two points using Bresenham's algorithm.
func (sc *SelectionCanvas) drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		// Draw thick point
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					output.Set(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawHandle draws a filled square marker centered on the given pixel with a
// dark outline so it reads against any image content.
func (sc *SelectionCanvas) drawHandle(output *image.RGBA, cx, cy int, col color.RGBA) {
	bounds := output.Bounds()
	half := handleSize / 2
	outline := color.RGBA{R: 20, G: 20, B: 20, A: 255}

	for y := cy - half - 1; y <= cy+half+1; y++ {
		for x := cx - half - 1; x <= cx+half+1; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			if x < cx-half || x > cx+half || y < cy-half || y > cy+half {
				output.SetRGBA(x, y, outline)
			} else {
				output.SetRGBA(x, y, col)
			}
		}
	}
}

// drawIndexLabel draws a small numeric label centered at the given
// coordinates, scaled with the zoom.
func (sc *SelectionCanvas) drawIndexLabel(output *image.RGBA, label string, centerX, centerY int) {
	scale := int(sc.zoom)
	if scale < 1 {
		scale = 1
	}
	if scale > 4 {
		scale = 4
	}

	// 3 pixels per digit plus 1 pixel spacing
	charWidth := 3 * scale
	charHeight := 5 * scale
	spacing := scale
	labelWidth := len(label)*charWidth + (len(label)-1)*spacing

	startX := centerX - labelWidth/2
	startY := centerY - charHeight/2

	bounds := output.Bounds()

	for i, ch := range label {
		if ch < '0' || ch > '9' {
			continue
		}
		pattern := digitPatterns[ch-'0']
		charX := startX + i*(charWidth+spacing)

		for row := 0; row < 5; row++ {
			for c := 0; c < 3; c++ {
				if (pattern[row] & (1 << (2 - c))) == 0 {
					continue
				}
				// Draw a scaled pixel block
				for dy := 0; dy < scale; dy++ {
					for dx := 0; dx < scale; dx++ {
						px := charX + c*scale + dx
						py := startY + row*scale + dy
						if px >= bounds.Min.X && px < bounds.Max.X &&
							py >= bounds.Min.Y && py < bounds.Max.Y {
							output.SetRGBA(px, py, colorutil.Label)
						}
					}
				}
			}
		}
	}
}
