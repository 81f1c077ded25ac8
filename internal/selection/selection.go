// Package selection implements the selection state machine and the polyline
// path model it maintains. A Model owns the current state, the image the
// selection is defined over, the ordered ring of path segments, and an undo
// history. Segment generation is delegated to a Strategy so that other
// selection tools can share the same state machine.
package selection

import (
	"fmt"
	"image"
	"sync"

	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

// State identifies the current phase of the selection lifecycle.
type State int

const (
	NoSelection State = iota
	Selecting
	Processing
	Selected
)

// String returns the display name of the state.
func (s State) String() string {
	switch s {
	case NoSelection:
		return "No Selection"
	case Selecting:
		return "Selecting"
	case Processing:
		return "Processing"
	case Selected:
		return "Selected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const defaultUndoLimit = 50

// snapshot captures everything Undo needs to reverse one operation.
type snapshot struct {
	path  []geometry.PolyLine
	start geometry.Point
	state State
}

// Model is the selection state machine. All mutating operations must be
// serialized by the caller; accessors may be called from any goroutine.
type Model struct {
	mu sync.RWMutex

	img      image.Image
	path     []geometry.PolyLine
	start    geometry.Point
	state    State
	resume   State
	history  []snapshot
	strategy Strategy

	undoLimit int
	notifier  *notifier
}

// Option configures a Model at construction time.
type Option func(*Model)

// WithAsyncNotify delivers change notifications on a single dedicated
// goroutine owned by the model instead of on the mutating goroutine.
// Close must be called to stop the consumer.
func WithAsyncNotify() Option {
	return func(m *Model) {
		m.notifier.async = true
	}
}

// WithUndoLimit bounds the undo history to n snapshots. The oldest
// snapshot is dropped when the bound is exceeded.
func WithUndoLimit(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.undoLimit = n
		}
	}
}

// NewModel creates a selection model using the given segment strategy.
func NewModel(strategy Strategy, opts ...Option) *Model {
	m := &Model{
		state:     NoSelection,
		strategy:  strategy,
		undoLimit: defaultUndoLimit,
		notifier:  newNotifier(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.notifier.start()
	return m
}

// On registers a listener for the named property ("state", "selection" or
// "image") and returns a function that removes it.
func (m *Model) On(property string, fn Listener) func() {
	return m.notifier.on(property, fn)
}

// Close stops the notification consumer after the queue drains. It is a
// no-op for synchronous delivery.
func (m *Model) Close() {
	m.notifier.close()
}

// State returns the current selection state.
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Path returns a copy of the current segment path.
func (m *Model) Path() []geometry.PolyLine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyPath(m.path)
}

// Start returns the first point of the path. The second return is false
// when no point has been placed.
func (m *Model) Start() (geometry.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.start, m.state != NoSelection
}

// Image returns the image the selection is defined over, or nil.
func (m *Model) Image() image.Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.img
}

// PointCount returns the number of placed vertices.
func (m *Model) PointCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.state == NoSelection:
		return 0
	case m.state == Selected:
		return len(m.path)
	case len(m.path) == 0:
		return 1
	default:
		return len(m.path) + 1
	}
}

// LastPoint returns the most recently accepted point. The second return is
// false when no point has been placed.
func (m *Model) LastPoint() (geometry.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastPointLocked()
}

func (m *Model) lastPointLocked() (geometry.Point, bool) {
	if m.state == NoSelection {
		return geometry.Point{}, false
	}
	if len(m.path) == 0 {
		return m.start, true
	}
	return m.path[len(m.path)-1].End, true
}

// LiveWire returns a preview segment from the last accepted point to p
// without mutating the model. The second return is false when no point has
// been placed yet.
func (m *Model) LiveWire(p geometry.Point) (geometry.PolyLine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last, ok := m.lastPointLocked()
	if !ok {
		return geometry.PolyLine{}, false
	}
	return m.strategy.LiveWire(last, p), true
}

// SetImage replaces the image the selection is defined over. Any selection
// in progress is discarded and the model returns to NoSelection. A nil
// image clears the reference.
func (m *Model) SetImage(img image.Image) {
	m.mu.Lock()
	if img == nil && m.img == nil && m.state == NoSelection {
		m.mu.Unlock()
		return
	}
	oldImg := m.img
	oldPath := m.path
	oldState := m.state

	m.img = img
	m.path = nil
	m.start = geometry.Point{}
	m.state = NoSelection
	m.history = nil
	m.mu.Unlock()

	if oldImg != img {
		m.notifier.emit(Event{Property: PropertyImage, Old: oldImg, New: img})
	}
	if len(oldPath) > 0 || oldState != NoSelection {
		m.notifier.emit(Event{Property: PropertySelection, Old: oldPath, New: nil})
	}
	if oldState != NoSelection {
		m.notifier.emit(Event{Property: PropertyState, Old: oldState, New: NoSelection})
	}
}

// AddPoint accepts the next point of the selection. The first point starts
// a new selection; subsequent points extend the path by the strategy's
// committed segments.
func (m *Model) AddPoint(p geometry.Point) error {
	m.mu.Lock()
	switch m.state {
	case Processing, Selected:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot add point while %s", ErrInvalidState, state)
	case NoSelection:
		if m.img == nil {
			m.mu.Unlock()
			return fmt.Errorf("%w: no image loaded", ErrInvalidState)
		}
	}

	oldState := m.state
	oldPath := copyPath(m.path)
	m.pushSnapshotLocked()

	if m.state == NoSelection {
		m.start = p
		m.path = nil
		m.state = Selecting
	} else {
		last, _ := m.lastPointLocked()
		m.path = append(m.path, m.strategy.Commit(last, p)...)
	}
	newPath := copyPath(m.path)
	m.mu.Unlock()

	m.notifier.emit(Event{Property: PropertySelection, Old: oldPath, New: newPath})
	if oldState != Selecting {
		m.notifier.emit(Event{Property: PropertyState, Old: oldState, New: Selecting})
	}
	return nil
}

// FinishSelection closes the path back to the start point and moves the
// model to Selected.
func (m *Model) FinishSelection() error {
	m.mu.Lock()
	if m.state != Selecting {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot finish selection while %s", ErrInvalidState, state)
	}
	if len(m.path) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: selection has no segments to close", ErrInvalidState)
	}

	oldPath := copyPath(m.path)
	m.pushSnapshotLocked()

	last := m.path[len(m.path)-1].End
	closing := m.strategy.Commit(last, m.start)
	// The ring must close exactly on the start point, whatever the
	// strategy made of it.
	closing[len(closing)-1].End = m.start
	m.path = append(m.path, closing...)
	m.state = Selected
	newPath := copyPath(m.path)
	m.mu.Unlock()

	m.notifier.emit(Event{Property: PropertySelection, Old: oldPath, New: newPath})
	m.notifier.emit(Event{Property: PropertyState, Old: Selecting, New: Selected})
	return nil
}

// MovePoint relocates the vertex at index to p, rebuilding the two adjacent
// segments so the ring stays consistent. Only valid in Selected.
func (m *Model) MovePoint(index int, p geometry.Point) error {
	m.mu.Lock()
	if m.state != Selected {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot move point while %s", ErrInvalidState, state)
	}
	ring := geometry.Ring(len(m.path))
	if !ring.Contains(index) {
		n := len(m.path)
		m.mu.Unlock()
		return fmt.Errorf("%w: point index %d out of range [0,%d)", ErrInvalidArgument, index, n)
	}

	oldPath := copyPath(m.path)
	out, in := m.strategy.RebuildAdjacent(m.path, index, p)
	m.path[index] = out
	m.path[ring.Prev(index)] = in
	if index == 0 {
		// The strategy decides the final vertex position
		m.start = out.Start
	}
	newPath := copyPath(m.path)
	m.mu.Unlock()

	m.notifier.emit(Event{Property: PropertySelection, Old: oldPath, New: newPath})
	return nil
}

// Undo reverses the most recent point addition or finish. It reports
// ErrNothingToUndo when the history is empty; this is benign.
func (m *Model) Undo() error {
	m.mu.Lock()
	if m.state == Processing {
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot undo while processing", ErrInvalidState)
	}
	if len(m.history) == 0 {
		m.mu.Unlock()
		return ErrNothingToUndo
	}

	oldPath := m.path
	oldStart := m.start
	oldState := m.state

	snap := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.path = snap.path
	m.start = snap.start
	m.state = snap.state
	newPath := copyPath(m.path)
	m.mu.Unlock()

	if !pathsEqual(oldPath, snap.path) || oldStart != snap.start {
		m.notifier.emit(Event{Property: PropertySelection, Old: oldPath, New: newPath})
	}
	if oldState != snap.state {
		m.notifier.emit(Event{Property: PropertyState, Old: oldState, New: snap.state})
	}
	return nil
}

// Reset discards the selection and the undo history, returning to
// NoSelection. The image is kept.
func (m *Model) Reset() {
	m.mu.Lock()
	oldPath := m.path
	oldState := m.state

	m.path = nil
	m.start = geometry.Point{}
	m.state = NoSelection
	m.history = nil
	m.mu.Unlock()

	if len(oldPath) > 0 || oldState != NoSelection {
		m.notifier.emit(Event{Property: PropertySelection, Old: oldPath, New: nil})
	}
	if oldState != NoSelection {
		m.notifier.emit(Event{Property: PropertyState, Old: oldState, New: NoSelection})
	}
}

// BeginProcessing marks the start of a long-running operation over the
// current selection. The prior state is restored by FinishProcessing or
// CancelProcessing.
func (m *Model) BeginProcessing() error {
	m.mu.Lock()
	if m.state != Selecting && m.state != Selected {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot begin processing while %s", ErrInvalidState, state)
	}
	oldState := m.state
	m.resume = m.state
	m.state = Processing
	m.mu.Unlock()

	m.notifier.emit(Event{Property: PropertyState, Old: oldState, New: Processing})
	return nil
}

// FinishProcessing ends a long-running operation and resumes the state the
// model was in when BeginProcessing was called.
func (m *Model) FinishProcessing() error {
	return m.endProcessing("finish")
}

// CancelProcessing aborts a long-running operation and resumes the prior
// state. Outside Processing it reports ErrNotProcessing; this is benign.
func (m *Model) CancelProcessing() error {
	return m.endProcessing("cancel")
}

func (m *Model) endProcessing(verb string) error {
	m.mu.Lock()
	if m.state != Processing {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot %s processing while %s", ErrNotProcessing, verb, state)
	}
	resume := m.resume
	m.state = resume
	m.mu.Unlock()

	m.notifier.emit(Event{Property: PropertyState, Old: Processing, New: resume})
	return nil
}

// pushSnapshotLocked records the current path, start and state for Undo.
// The caller must hold the write lock.
func (m *Model) pushSnapshotLocked() {
	m.history = append(m.history, snapshot{
		path:  copyPath(m.path),
		start: m.start,
		state: m.state,
	})
	if len(m.history) > m.undoLimit {
		m.history = m.history[1:]
	}
}

func copyPath(path []geometry.PolyLine) []geometry.PolyLine {
	if path == nil {
		return nil
	}
	out := make([]geometry.PolyLine, len(path))
	copy(out, path)
	return out
}

func pathsEqual(a, b []geometry.PolyLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
