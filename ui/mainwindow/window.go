// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/shreyansh-kabir/image-selector/internal/extract"
	selimage "github.com/shreyansh-kabir/image-selector/internal/image"
	"github.com/shreyansh-kabir/image-selector/internal/project"
	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/internal/version"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
	"github.com/shreyansh-kabir/image-selector/ui/canvas"
	"github.com/shreyansh-kabir/image-selector/ui/prefs"
)

const projectExt = ".selproj"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	model *selection.Model
	saver *extract.Service
	prefs *prefs.Prefs

	canvas    *canvas.SelectionCanvas
	statusBar *widget.Label
	zoomLabel *widget.Label

	// Current files
	imagePath   string
	projectPath string
	project     *project.File

	// Menu items that need state tracking
	fitToWindowItem *fyne.MenuItem
}

// New creates a new main window.
func New(fyneApp fyne.App, model *selection.Model, saver *extract.Service, pr *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(version.AppName)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		model:  model,
		saver:  saver,
		prefs:  pr,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	return mw
}

// OpenPath opens a project or image file given on the command line.
func (mw *MainWindow) OpenPath(path string) {
	switch {
	case filepath.Ext(path) == projectExt:
		mw.openProject(path)
	case selimage.IsSupportedFormat(path):
		mw.openImage(path)
	default:
		log.Printf("Ignoring unrecognized file: %s", path)
	}
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Open an image to start selecting")
	mw.zoomLabel = widget.NewLabel("100%")

	mw.canvas = canvas.NewSelectionCanvas(mw.model)
	mw.canvas.OnAddPoint(mw.onCanvasAddPoint)
	mw.canvas.OnMovePoint(mw.onCanvasMovePoint)
	mw.canvas.OnFinish(mw.onFinishSelection)
	mw.canvas.OnZoomChange(func(zoom float64) {
		mw.zoomLabel.SetText(fmt.Sprintf("%.0f%%", zoom*100))
	})
	// Restored zoom governs until the first image load fits the view
	mw.canvas.SetZoom(mw.prefs.Zoom())

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar, // top
		nil,     // bottom
		nil,     // left
		nil,     // right
		mw.canvas.Container(), // center
	)

	statusLine := container.NewBorder(
		nil,          // top
		nil,          // bottom
		nil,          // left
		mw.zoomLabel, // right
		mw.statusBar, // center
	)

	content := container.NewBorder(
		nil,                            // top
		container.NewPadded(statusLine), // bottom
		nil,                            // left
		nil,                            // right
		canvasArea,                     // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with zoom and selection controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", func() {
		mw.onZoomOut()
	})
	zoomInBtn := widget.NewButton("+", func() {
		mw.onZoomIn()
	})
	fitBtn := widget.NewButton("Fit", func() {
		mw.onToggleFitToWindow()
	})
	actualBtn := widget.NewButton("1:1", func() {
		mw.onActualSize()
	})
	undoBtn := widget.NewButton("Undo", func() {
		mw.onUndo()
	})
	finishBtn := widget.NewButton("Finish", func() {
		mw.onFinishSelection()
	})

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
		actualBtn,
		widget.NewSeparator(),
		undoBtn,
		finishBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	// File menu
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		fyne.NewMenuItem("Save Project", mw.onSaveProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Selection As PNG...", mw.onSaveSelectionPNG),
		fyne.NewMenuItem("Save Cropped PNG...", mw.onSaveCropPNG),
		fyne.NewMenuItem("Export Selection As PDF...", mw.onExportPDF),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	// Edit menu
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Reset Selection", mw.onReset),
	)

	// Selection menu
	selectionMenu := fyne.NewMenu("Selection",
		fyne.NewMenuItem("Finish Selection", mw.onFinishSelection),
		fyne.NewMenuItem("Cancel Export", mw.onCancelExport),
	)

	// View menu
	mw.fitToWindowItem = fyne.NewMenuItem("  Fit to Window", mw.onToggleFitToWindow)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	// Help menu
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, editMenu, selectionMenu, viewMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// setupEventHandlers registers for model change notifications. Listeners can
// fire on the notifier's dispatch goroutine when async delivery is enabled,
// so UI updates hop to the main thread.
func (mw *MainWindow) setupEventHandlers() {
	mw.model.On(selection.PropertyState, func(e selection.Event) {
		fyne.Do(func() {
			mw.canvas.Refresh()
			mw.showStateStatus()
		})
	})

	mw.model.On(selection.PropertySelection, func(e selection.Event) {
		fyne.Do(func() {
			mw.canvas.Refresh()
			if mw.model.State() == selection.Selecting {
				mw.updateStatus(fmt.Sprintf("Selecting: %d points", mw.model.PointCount()))
			}
		})
	})

	mw.model.On(selection.PropertyImage, func(e selection.Event) {
		fyne.Do(func() {
			mw.canvas.ImageChanged()
			if e.New != nil {
				mw.canvas.FitToWindow()
			}
			mw.canvas.Refresh()
		})
	})
}

// showStateStatus sets the status line for the model's current state.
func (mw *MainWindow) showStateStatus() {
	switch mw.model.State() {
	case selection.NoSelection:
		mw.updateStatus("Click to place the first point")
	case selection.Selecting:
		mw.updateStatus(fmt.Sprintf("Selecting: %d points", mw.model.PointCount()))
	case selection.Processing:
		mw.updateStatus("Exporting selection...")
	case selection.Selected:
		m := extract.Measure(mw.model.Path())
		mw.updateStatus(fmt.Sprintf("Selection closed: %d vertices, perimeter %.1f px, area %.0f sq px",
			mw.model.PointCount(), m.Perimeter, m.Area))
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// savePrefs persists preference changes, logging failures.
func (mw *MainWindow) savePrefs() {
	if err := mw.prefs.Save(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}

// SavePreferences captures the window geometry and zoom into the
// preferences and writes them to disk.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	mw.prefs.SetWindowSize(float64(size.Width), float64(size.Height))
	mw.prefs.SetZoom(mw.canvas.GetZoom())
	mw.savePrefs()
}

// dirURI returns the directory as a ListableURI for file dialogs, or nil.
func dirURI(dir string) fyne.ListableURI {
	if dir == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return listable
}

// Canvas callbacks

func (mw *MainWindow) onCanvasAddPoint(p geometry.Point) {
	if mw.model.Image() == nil {
		mw.updateStatus("Open an image before selecting")
		return
	}
	if err := mw.model.AddPoint(p); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onCanvasMovePoint(index int, p geometry.Point) {
	if err := mw.model.MovePoint(index, p); err != nil {
		mw.updateStatus(err.Error())
	}
}

// Menu action handlers

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.openImage(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(selimage.SupportedFormats()))
	if loc := dirURI(mw.prefs.LastImageDir()); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// openImage loads an image file into the model, discarding any selection.
func (mw *MainWindow) openImage(path string) {
	layer, err := selimage.Load(path)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	mw.imagePath = path
	mw.model.SetImage(layer.Image)

	mw.prefs.SetLastImageDir(filepath.Dir(path))
	mw.savePrefs()

	mw.SetTitle(version.AppName + " - " + filepath.Base(path))
	mw.updateStatus(fmt.Sprintf("Loaded %s (%dx%d)", filepath.Base(path), layer.Width(), layer.Height()))
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.openProject(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{projectExt}))
	if loc := dirURI(mw.prefs.LastImageDir()); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// openProject loads a project file, its image, and its saved selection.
func (mw *MainWindow) openProject(path string) {
	proj, err := project.Load(path)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	if imgPath := proj.GetImagePath(path); imgPath != "" {
		layer, err := selimage.Load(imgPath)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to load project image: %w", err), mw.Window)
			return
		}
		mw.imagePath = imgPath
		mw.model.SetImage(layer.Image)
	}

	if err := proj.Apply(mw.model); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	mw.project = proj
	mw.projectPath = path
	mw.prefs.SetLastImageDir(filepath.Dir(path))
	mw.savePrefs()

	mw.SetTitle(version.AppName + " - " + filepath.Base(path))
	mw.updateStatus("Project loaded: " + path)
}

func (mw *MainWindow) onSaveProject() {
	if mw.projectPath == "" {
		mw.onSaveProjectAs()
		return
	}
	mw.saveProjectTo(mw.projectPath)
}

func (mw *MainWindow) onSaveProjectAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != projectExt {
			path += projectExt
		}
		mw.saveProjectTo(path)
	}, mw.Window)
	fd.SetFileName("selection" + projectExt)
	if loc := dirURI(mw.prefs.LastImageDir()); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) saveProjectTo(path string) {
	if mw.project == nil {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		mw.project = project.New(name)
	}

	mw.project.Capture(mw.model)
	if mw.imagePath != "" {
		mw.project.SetImage(path, mw.imagePath)
	}

	if err := mw.project.Save(path); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	mw.projectPath = path
	mw.SetTitle(version.AppName + " - " + filepath.Base(path))
	mw.updateStatus("Project saved: " + path)
}

func (mw *MainWindow) onSaveSelectionPNG() {
	mw.exportSelection("selection.png", ".png", mw.saver.Save)
}

func (mw *MainWindow) onSaveCropPNG() {
	mw.exportSelection("crop.png", ".png", mw.saver.SaveCrop)
}

func (mw *MainWindow) onExportPDF() {
	mw.exportSelection("selection.pdf", ".pdf", mw.saver.SavePDF)
}

// exportSelection prompts for an output file and hands the write to the
// extraction service.
func (mw *MainWindow) exportSelection(defaultName, ext string, start func(context.Context, *selection.Model, string, func(error)) error) {
	if mw.model.State() != selection.Selected {
		mw.updateStatus("Finish a selection before exporting")
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ext {
			path += ext
		}

		mw.prefs.SetLastExportDir(filepath.Dir(path))
		mw.savePrefs()
		mw.startExport(path, start)
	}, mw.Window)
	fd.SetFileName(defaultName)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{ext}))
	if loc := dirURI(mw.prefs.LastExportDir()); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) startExport(path string, start func(context.Context, *selection.Model, string, func(error)) error) {
	err := start(context.Background(), mw.model, path, func(saveErr error) {
		// Worker goroutine
		fyne.Do(func() {
			switch {
			case errors.Is(saveErr, context.Canceled):
				mw.updateStatus("Export cancelled")
			case saveErr != nil:
				dialog.ShowError(saveErr, mw.Window)
				mw.updateStatus("Export failed")
			default:
				mw.updateStatus("Saved " + filepath.Base(path))
			}
		})
	})

	if errors.Is(err, extract.ErrBusy) {
		mw.updateStatus("An export is already running")
	} else if err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onCancelExport() {
	if mw.saver.Running() {
		mw.saver.Cancel()
		mw.updateStatus("Cancelling export...")
		return
	}
	if err := mw.model.CancelProcessing(); err != nil {
		mw.updateStatus("No export to cancel")
	}
}

func (mw *MainWindow) onFinishSelection() {
	if err := mw.model.FinishSelection(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onUndo() {
	err := mw.model.Undo()
	switch {
	case errors.Is(err, selection.ErrNothingToUndo):
		mw.updateStatus("Nothing to undo")
	case err != nil:
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onReset() {
	mw.model.Reset()
}

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onToggleFitToWindow() {
	enabled := !mw.canvas.GetFitToWindow()
	mw.canvas.SetFitToWindow(enabled)

	// Update menu label to show state
	if enabled {
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	} else {
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.canvas.SetZoom(1.0)
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.canvas.GetFitToWindow() {
		mw.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+version.AppName,
		fmt.Sprintf("%s v%s\n\n"+
			"Draw a polygon over an image, refine its vertices, and save\n"+
			"the region as a masked PNG, a cropped PNG, or a PDF.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.AppName, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
