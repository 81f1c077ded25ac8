// Package canvas provides the image canvas with pan, zoom, and selection
// path editing.
package canvas

import (
	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

// SelectionCanvas displays the model's image and selection path and turns
// pointer interaction into selection operations via callbacks.
type SelectionCanvas struct {
	widget.BaseWidget

	model *selection.Model

	// Display state
	raster *fynecanvas.Raster
	zoom   float64

	// Interaction state
	hover     *geometry.Point // Pointer position in image coords, nil when outside
	dragIndex int             // Vertex being dragged; -1 idle, -2 drag missed every handle

	// Container
	scroll  *zoomScroll
	content *interactiveContent
	imgSize fyne.Size

	// Fit to window
	fitToWindow    bool
	lastScrollSize fyne.Size

	// Callbacks
	onAddPoint   func(p geometry.Point)
	onMovePoint  func(index int, p geometry.Point)
	onFinish     func()
	onZoomChange func(zoom float64)
}

// NewSelectionCanvas creates a canvas over the given selection model.
func NewSelectionCanvas(model *selection.Model) *SelectionCanvas {
	sc := &SelectionCanvas{
		model:     model,
		zoom:      1.0,
		dragIndex: -1,
		imgSize:   fyne.NewSize(400, 300),
	}

	sc.raster = fynecanvas.NewRaster(sc.draw)
	sc.raster.ScaleMode = fynecanvas.ImageScalePixels
	sc.raster.SetMinSize(sc.imgSize)

	sc.content = newInteractiveContent(sc, sc.raster)
	sc.scroll = newZoomScroll(sc.content, sc)

	sc.ExtendBaseWidget(sc)
	return sc
}

// Container returns the canvas container for embedding in layouts.
func (sc *SelectionCanvas) Container() fyne.CanvasObject {
	return sc.scroll
}

// ImageChanged resizes the canvas content to the model's current image.
// Call it after the model's image property changes.
func (sc *SelectionCanvas) ImageChanged() {
	sc.updateContentSize()
}

// OnAddPoint sets the callback for placing a new point. Coordinates are in
// image space.
func (sc *SelectionCanvas) OnAddPoint(callback func(p geometry.Point)) {
	sc.onAddPoint = callback
}

// OnMovePoint sets the callback for dragging a vertex to a new position.
func (sc *SelectionCanvas) OnMovePoint(callback func(index int, p geometry.Point)) {
	sc.onMovePoint = callback
}

// OnFinish sets the callback for closing the selection (right click).
func (sc *SelectionCanvas) OnFinish(callback func()) {
	sc.onFinish = callback
}

// OnZoomChange sets a callback for zoom changes.
func (sc *SelectionCanvas) OnZoomChange(callback func(zoom float64)) {
	sc.onZoomChange = callback
}

// SetZoom sets the zoom level.
func (sc *SelectionCanvas) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	sc.zoom = zoom
	sc.updateContentSize()

	if sc.onZoomChange != nil {
		sc.onZoomChange(zoom)
	}
}

// GetZoom returns the current zoom level.
func (sc *SelectionCanvas) GetZoom() float64 {
	return sc.zoom
}

// ZoomIn increases the zoom level.
func (sc *SelectionCanvas) ZoomIn() {
	sc.SetZoom(sc.zoom * zoomStep)
}

// ZoomOut decreases the zoom level.
func (sc *SelectionCanvas) ZoomOut() {
	sc.SetZoom(sc.zoom / zoomStep)
}

// FitToWindow adjusts zoom to fit the image in the visible area.
func (sc *SelectionCanvas) FitToWindow() {
	img := sc.model.Image()
	if img == nil {
		return
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}

	viewSize := sc.scroll.Size()
	if viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}

	zoomX := float64(viewSize.Width) / float64(bounds.Dx())
	zoomY := float64(viewSize.Height) / float64(bounds.Dy())

	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}

	sc.SetZoom(zoom * 0.95) // Leave a small margin
}

// SetFitToWindow enables or disables auto-fit on resize.
func (sc *SelectionCanvas) SetFitToWindow(fit bool) {
	sc.fitToWindow = fit
	if fit {
		sc.FitToWindow()
	}
}

// GetFitToWindow reports whether auto-fit is enabled.
func (sc *SelectionCanvas) GetFitToWindow() bool {
	return sc.fitToWindow
}

// CheckResize checks if the scroll container was resized and auto-fits if
// enabled.
func (sc *SelectionCanvas) CheckResize(size fyne.Size) {
	if !sc.fitToWindow {
		return
	}
	if size.Width > 0 && size.Height > 0 && size != sc.lastScrollSize {
		sc.lastScrollSize = size
		sc.FitToWindow()
	}
}

// Refresh refreshes the canvas display.
func (sc *SelectionCanvas) Refresh() {
	sc.raster.Refresh()
}

// updateContentSize updates the content size based on the image and zoom.
func (sc *SelectionCanvas) updateContentSize() {
	img := sc.model.Image()
	if img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		sc.imgSize = fyne.NewSize(400, 300)
	} else {
		width := float32(float64(img.Bounds().Dx()) * sc.zoom)
		height := float32(float64(img.Bounds().Dy()) * sc.zoom)
		sc.imgSize = fyne.NewSize(width, height)
	}

	sc.raster.SetMinSize(sc.imgSize)
	sc.raster.Resize(sc.imgSize)
	if sc.content != nil {
		sc.content.Resize(sc.imgSize)
		sc.content.Refresh()
	}
	sc.raster.Refresh()
	if sc.scroll != nil {
		sc.scroll.Refresh()
	}
}

// imagePoint converts a widget-relative event position to clamped image
// coordinates.
func (sc *SelectionCanvas) imagePoint(pos fyne.Position) geometry.Point {
	p := geometry.Pt(int(float64(pos.X)/sc.zoom), int(float64(pos.Y)/sc.zoom))
	img := sc.model.Image()
	if img == nil {
		return p
	}
	b := img.Bounds()
	if p.X < b.Min.X {
		p.X = b.Min.X
	}
	if p.X > b.Max.X-1 {
		p.X = b.Max.X - 1
	}
	if p.Y < b.Min.Y {
		p.Y = b.Min.Y
	}
	if p.Y > b.Max.Y-1 {
		p.Y = b.Max.Y - 1
	}
	return p
}

// CreateRenderer implements fyne.Widget.
func (sc *SelectionCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &selectionCanvasRenderer{canvas: sc}
}

type selectionCanvasRenderer struct {
	canvas *SelectionCanvas
}

func (r *selectionCanvasRenderer) Layout(size fyne.Size) {
	if r.canvas.scroll != nil {
		r.canvas.scroll.Resize(size)
	}
	r.canvas.CheckResize(size)
}

func (r *selectionCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *selectionCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *selectionCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *selectionCanvasRenderer) Destroy() {}

// zoomScroll wraps a scroll container but intercepts wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *SelectionCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *SelectionCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	// Use wheel for zoom, not scroll
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
	zs.canvas.CheckResize(size)
}

// interactiveContent wraps the raster to handle pointer events.
type interactiveContent struct {
	widget.BaseWidget
	canvas *SelectionCanvas
	raster *fynecanvas.Raster
}

var _ desktop.Hoverable = (*interactiveContent)(nil)

func newInteractiveContent(sc *SelectionCanvas, raster *fynecanvas.Raster) *interactiveContent {
	ic := &interactiveContent{
		canvas: sc,
		raster: raster,
	}
	ic.ExtendBaseWidget(ic)
	return ic
}

func (ic *interactiveContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ic.raster)
}

func (ic *interactiveContent) MinSize() fyne.Size {
	return ic.raster.MinSize()
}

// Tapped places the next selection point.
func (ic *interactiveContent) Tapped(ev *fyne.PointEvent) {
	sc := ic.canvas
	if sc.onAddPoint == nil {
		return
	}

	// Reject clicks outside widget bounds; Fyne can deliver them after
	// focus changes.
	size := ic.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}

	sc.onAddPoint(sc.imagePoint(ev.Position))
}

// TappedSecondary closes the selection.
func (ic *interactiveContent) TappedSecondary(ev *fyne.PointEvent) {
	if ic.canvas.onFinish != nil {
		ic.canvas.onFinish()
	}
}

// Dragged relocates the vertex picked up at the drag start.
func (ic *interactiveContent) Dragged(ev *fyne.DragEvent) {
	sc := ic.canvas

	if sc.dragIndex == -1 {
		if sc.model.State() != selection.Selected {
			sc.dragIndex = -2
			return
		}
		startPos := fyne.Position{
			X: ev.Position.X - ev.Dragged.DX,
			Y: ev.Position.Y - ev.Dragged.DY,
		}
		if hit := sc.hitTestVertex(startPos); hit >= 0 {
			sc.dragIndex = hit
		} else {
			sc.dragIndex = -2
		}
	}

	if sc.dragIndex >= 0 && sc.onMovePoint != nil {
		sc.onMovePoint(sc.dragIndex, sc.imagePoint(ev.Position))
	}
}

func (ic *interactiveContent) DragEnd() {
	ic.canvas.dragIndex = -1
}

func (ic *interactiveContent) Scrolled(ev *fyne.ScrollEvent) {
	// Use mouse wheel for zooming
	if ev.Scrolled.DY > 0 {
		ic.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		ic.canvas.ZoomOut()
	}
}

// MouseIn implements desktop.Hoverable.
func (ic *interactiveContent) MouseIn(ev *desktop.MouseEvent) {
	ic.mouseMoved(ev)
}

// MouseMoved tracks the pointer for the live wire preview.
func (ic *interactiveContent) MouseMoved(ev *desktop.MouseEvent) {
	ic.mouseMoved(ev)
}

// MouseOut implements desktop.Hoverable.
func (ic *interactiveContent) MouseOut() {
	sc := ic.canvas
	sc.hover = nil
	if sc.model.State() == selection.Selecting {
		sc.Refresh()
	}
}

func (ic *interactiveContent) mouseMoved(ev *desktop.MouseEvent) {
	sc := ic.canvas
	p := sc.imagePoint(ev.Position)
	sc.hover = &p
	// Only the rubber band needs continuous repaints.
	if sc.model.State() == selection.Selecting {
		sc.Refresh()
	}
}
