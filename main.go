// Package main provides the entry point for the Image Selector application.
package main

import (
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"github.com/shreyansh-kabir/image-selector/internal/app"
	"github.com/shreyansh-kabir/image-selector/internal/extract"
	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/internal/version"
	"github.com/shreyansh-kabir/image-selector/ui/mainwindow"
	"github.com/shreyansh-kabir/image-selector/ui/prefs"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", version.AppName, version.Version)

	appPrefs := prefs.Load()

	var opts []selection.Option
	if appPrefs.AsyncNotify() {
		opts = append(opts, selection.WithAsyncNotify())
	}
	model := selection.NewModel(selection.NewPointToPoint(), opts...)
	saver := extract.NewService()

	fyneApp := fyneapp.New()
	fyneApp.Settings().SetTheme(&app.SelectorTheme{})

	win := mainwindow.New(fyneApp, model, saver, appPrefs)

	width, height := appPrefs.WindowSize()
	if width > 0 && height > 0 {
		win.Resize(fyne.NewSize(float32(width), float32(height)))
	} else {
		win.Resize(fyne.NewSize(1200, 800))
	}

	// Open a project or image given on the command line
	if len(os.Args) > 1 {
		win.OpenPath(os.Args[1])
	}

	win.SetCloseIntercept(func() {
		win.SavePreferences()

		// Let any running export observe the cancellation before quitting
		saver.Cancel()
		saver.Wait()
		model.Close()

		win.Close()
	})

	startBuildWatcher(win)

	win.ShowAndRun()
}

// startBuildWatcher offers a restart when a newer binary appears on
// disk, so a running session picks up a fresh "go build" without a
// manual quit and relaunch.
func startBuildWatcher(win *mainwindow.MainWindow) {
	watcher := app.NewBuildWatcher(2 * time.Second)
	if watcher == nil {
		log.Println("Build watcher: unable to determine executable path")
		return
	}

	log.Printf("Build watcher: watching %s (modified %s)",
		watcher.Path(), watcher.Baseline().Format("15:04:05"))

	watcher.OnNewBuild(func() {
		log.Println("Build watcher: newer binary detected")
		fyne.Do(func() {
			dialog.ShowConfirm("New Version Available",
				"The application binary has been updated.\nRestart now?",
				func(restart bool) {
					if !restart {
						watcher.ResetBaseline()
						watcher.Start()
						return
					}
					win.SavePreferences()
					log.Println("Build watcher: restarting")
					if err := watcher.Restart(); err != nil {
						log.Printf("Build watcher: restart failed: %v", err)
					}
				}, win)
		})
	})

	watcher.Start()
}
