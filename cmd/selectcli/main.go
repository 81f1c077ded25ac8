// Command selectcli drives an image selection session from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shreyansh-kabir/image-selector/internal/edgesnap"
	"github.com/shreyansh-kabir/image-selector/internal/extract"
	selimage "github.com/shreyansh-kabir/image-selector/internal/image"
	"github.com/shreyansh-kabir/image-selector/internal/project"
	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/internal/version"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

// session holds the model and its collaborators for one shell run.
type session struct {
	model *selection.Model
	saver *extract.Service

	imagePath   string
	projectPath string
	proj        *project.File
}

func main() {
	imagePath := flag.String("image", "", "Image to load at startup")
	projectPath := flag.String("project", "", "Project to load at startup")
	strategyName := flag.String("strategy", "point", "Segment strategy: point or edge")
	snapRadius := flag.Int("snap-radius", 0, "Edge snap search radius in pixels (0 = default)")
	async := flag.Bool("async", false, "Deliver change notifications on a dedicated goroutine")
	quiet := flag.Bool("quiet", false, "Suppress change notification echo")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	var strat selection.Strategy
	var snapper *edgesnap.Strategy
	switch *strategyName {
	case "point":
		strat = selection.NewPointToPoint()
	case "edge":
		snapper = edgesnap.New(*snapRadius)
		strat = snapper
	default:
		fmt.Fprintf(os.Stderr, "Unknown strategy %q (want point or edge)\n", *strategyName)
		os.Exit(1)
	}

	var opts []selection.Option
	if *async {
		opts = append(opts, selection.WithAsyncNotify())
	}

	s := &session{
		model: selection.NewModel(strat, opts...),
		saver: extract.NewService(),
	}

	// The edge map follows the model's image
	if snapper != nil {
		s.model.On(selection.PropertyImage, func(e selection.Event) {
			img, _ := e.New.(image.Image)
			if err := snapper.SetImage(img); err != nil {
				fmt.Fprintf(os.Stderr, "edge map: %v\n", err)
			}
		})
	}

	if !*quiet {
		s.echoEvents()
	}

	if *imagePath != "" {
		if err := s.openImage(*imagePath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
			os.Exit(1)
		}
	}
	if *projectPath != "" {
		if err := s.loadProject(*projectPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load project: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("%s selection shell; \"help\" lists commands\n", version.AppName)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if s.dispatch(line) {
			break
		}
	}

	// Let an in-flight export finish rather than dropping its output
	s.saver.Wait()
	s.model.Close()
}

// dispatch runs one command line. It returns true when the session should
// end.
func (s *session) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "open":
		if len(args) != 1 {
			err = errors.New("usage: open <image>")
			break
		}
		err = s.openImage(args[0])

	case "point":
		var p geometry.Point
		if p, err = parsePoint(args); err == nil {
			err = s.model.AddPoint(p)
		}

	case "move":
		if len(args) != 3 {
			err = errors.New("usage: move <index> <x> <y>")
			break
		}
		var index int
		if index, err = strconv.Atoi(args[0]); err != nil {
			err = fmt.Errorf("invalid index %q", args[0])
			break
		}
		var p geometry.Point
		if p, err = parsePoint(args[1:]); err == nil {
			err = s.model.MovePoint(index, p)
		}

	case "finish":
		err = s.model.FinishSelection()

	case "undo":
		if err = s.model.Undo(); errors.Is(err, selection.ErrNothingToUndo) {
			fmt.Println("nothing to undo")
			err = nil
		}

	case "reset":
		s.model.Reset()

	case "save":
		err = s.export(args, "save <file.png>", ".png", s.saver.Save)

	case "crop":
		err = s.export(args, "crop <file.png>", ".png", s.saver.SaveCrop)

	case "pdf":
		err = s.export(args, "pdf <file.pdf>", ".pdf", s.saver.SavePDF)

	case "cancel":
		s.cancelExport()

	case "wait":
		s.saver.Wait()

	case "project":
		err = s.projectCmd(args)

	case "status":
		s.printStatus()

	case "help":
		printHelp()

	case "quit", "exit":
		return true

	default:
		fmt.Printf("unknown command %q; \"help\" lists commands\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	return false
}

// parsePoint reads an x y coordinate pair.
func parsePoint(args []string) (geometry.Point, error) {
	if len(args) != 2 {
		return geometry.Point{}, errors.New("usage: point <x> <y>")
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return geometry.Point{}, fmt.Errorf("invalid coordinate %q", args[0])
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return geometry.Point{}, fmt.Errorf("invalid coordinate %q", args[1])
	}
	return geometry.Pt(x, y), nil
}

// openImage loads an image into the model, discarding any selection.
func (s *session) openImage(path string) error {
	layer, err := selimage.Load(path)
	if err != nil {
		return err
	}
	s.imagePath = path
	s.model.SetImage(layer.Image)
	fmt.Printf("Loaded %s image: %dx%d pixels\n", layer.Format, layer.Width(), layer.Height())
	return nil
}

// export hands one output file to the extraction service. The outcome is
// reported asynchronously when the worker finishes.
func (s *session) export(args []string, usage, ext string, start func(context.Context, *selection.Model, string, func(error)) error) error {
	if len(args) != 1 {
		return errors.New("usage: " + usage)
	}
	file := args[0]
	if filepath.Ext(file) == "" {
		file += ext
	}

	err := start(context.Background(), s.model, file, func(saveErr error) {
		switch {
		case errors.Is(saveErr, context.Canceled):
			fmt.Println("export cancelled")
		case saveErr != nil:
			fmt.Fprintf(os.Stderr, "export failed: %v\n", saveErr)
		default:
			fmt.Printf("saved %s\n", file)
		}
	})
	if errors.Is(err, extract.ErrBusy) {
		return errors.New("an export is already running; \"cancel\" or \"wait\" first")
	}
	return err
}

// cancelExport aborts a running export, or clears a stray Processing state
// when no export is in flight.
func (s *session) cancelExport() {
	if s.saver.Running() {
		s.saver.Cancel()
		s.saver.Wait()
		return
	}
	if err := s.model.CancelProcessing(); err != nil {
		fmt.Println("nothing to cancel")
	}
}

func (s *session) projectCmd(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: project save <file> | project load <file>")
	}
	switch args[0] {
	case "save":
		return s.saveProject(args[1])
	case "load":
		return s.loadProject(args[1])
	default:
		return fmt.Errorf("unknown project command %q", args[0])
	}
}

func (s *session) saveProject(path string) error {
	if filepath.Ext(path) == "" {
		path += ".selproj"
	}
	if s.proj == nil {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s.proj = project.New(name)
	}

	s.proj.Capture(s.model)
	if s.imagePath != "" {
		s.proj.SetImage(path, s.imagePath)
	}

	if err := s.proj.Save(path); err != nil {
		return err
	}
	s.projectPath = path
	fmt.Printf("project saved to %s\n", path)
	return nil
}

func (s *session) loadProject(path string) error {
	proj, err := project.Load(path)
	if err != nil {
		return err
	}

	if imgPath := proj.GetImagePath(path); imgPath != "" {
		if err := s.openImage(imgPath); err != nil {
			return fmt.Errorf("failed to load project image: %w", err)
		}
	}

	if err := proj.Apply(s.model); err != nil {
		return err
	}

	s.proj = proj
	s.projectPath = path
	fmt.Printf("project %s: %d points\n", proj.Name, len(proj.Points))
	return nil
}

func (s *session) printStatus() {
	fmt.Printf("State:  %s\n", s.model.State())
	if img := s.model.Image(); img != nil {
		b := img.Bounds()
		fmt.Printf("Image:  %s (%dx%d)\n", s.imagePath, b.Dx(), b.Dy())
	}
	fmt.Printf("Points: %d\n", s.model.PointCount())

	if s.model.State() == selection.Selected {
		m := extract.Measure(s.model.Path())
		fmt.Printf("Perimeter: %.1f px\n", m.Perimeter)
		fmt.Printf("Area:      %.1f sq px\n", m.Area)
	}
	if s.saver.Running() {
		fmt.Println("Export in progress")
	}
}

// echoEvents prints model change notifications as they are delivered.
func (s *session) echoEvents() {
	s.model.On(selection.PropertyState, func(e selection.Event) {
		fmt.Printf("[state] %v -> %v\n", e.Old, e.New)
	})
	s.model.On(selection.PropertySelection, func(e selection.Event) {
		if path, ok := e.New.([]geometry.PolyLine); ok {
			fmt.Printf("[selection] %d segments\n", len(path))
		}
	})
	s.model.On(selection.PropertyImage, func(e selection.Event) {
		if img, ok := e.New.(image.Image); ok && img != nil {
			b := img.Bounds()
			fmt.Printf("[image] %dx%d\n", b.Dx(), b.Dy())
		} else {
			fmt.Println("[image] cleared")
		}
	})
}

func printHelp() {
	fmt.Print(`Commands:
  open <image>          load an image (png, jpg, gif, bmp, tiff, webp)
  point <x> <y>         add a selection point
  finish                close the selection into a ring
  move <index> <x> <y>  move a vertex of a closed selection
  undo                  undo the last point or finish
  reset                 discard the selection
  save <file.png>       export the selection as a masked PNG
  crop <file.png>       export the selection's bounding box as a PNG
  pdf <file.pdf>        export the selection as a PDF page
  cancel                cancel the running export
  wait                  block until the running export finishes
  project save <file>   save the image path and selection as a project
  project load <file>   restore a saved project
  status                show the session state
  help                  show this help
  quit                  exit
`)
}
