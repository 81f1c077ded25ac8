package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/shreyansh-kabir/image-selector/internal/selection"
	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

// ErrBusy means an extraction is already running.
var ErrBusy = errors.New("extraction already running")

// Service runs selection extraction in the background so callers can keep
// the model responsive and offer cancellation. At most one extraction runs
// at a time.
type Service struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates an extraction service.
func NewService() *Service {
	return &Service{}
}

// Save writes the model's selection to file as a masked PNG on a background
// goroutine. The model enters Processing until the save finishes, is
// cancelled, or fails; on cancellation any partial output is removed and
// the selection is left untouched. done, if non-nil, is called with the
// outcome on the worker goroutine.
func (s *Service) Save(ctx context.Context, model *selection.Model, file string, done func(error)) error {
	return s.start(ctx, model, file, SavePNG, done)
}

// SaveCrop writes the selection's bounding box as a plain PNG crop.
func (s *Service) SaveCrop(ctx context.Context, model *selection.Model, file string, done func(error)) error {
	return s.start(ctx, model, file, SaveCropPNG, done)
}

// SavePDF writes the masked selection as a single page PDF document.
func (s *Service) SavePDF(ctx context.Context, model *selection.Model, file string, done func(error)) error {
	return s.start(ctx, model, file, ExportPDF, done)
}

// start snapshots the selection, moves the model into Processing, and runs
// the write on a worker goroutine.
func (s *Service) start(ctx context.Context, model *selection.Model, file string, write func(image.Image, []geometry.PolyLine, string) error, done func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrBusy
	}

	if model.State() != selection.Selected {
		return fmt.Errorf("%w: cannot save selection while %s", selection.ErrInvalidState, model.State())
	}
	img := model.Image()
	path := model.Path()

	if err := model.BeginProcessing(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		err := s.run(ctx, file, func() error {
			return write(img, path, file)
		})
		if err != nil {
			model.CancelProcessing()
		} else {
			model.FinishProcessing()
		}

		s.mu.Lock()
		cancel()
		close(s.done)
		s.cancel = nil
		s.done = nil
		s.mu.Unlock()

		if done != nil {
			done(err)
		}
	}()
	return nil
}

// run executes one extraction stage, honoring cancellation before and after
// the write.
func (s *Service) run(ctx context.Context, file string, write func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(file)
		return err
	}
	return nil
}

// Cancel aborts the running extraction, if any. The model resumes its prior
// state once the worker observes the cancellation.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Running reports whether an extraction is in flight.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Wait blocks until the running extraction finishes. It returns immediately
// when none is running.
func (s *Service) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
