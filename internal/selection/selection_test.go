package selection

import (
	"errors"
	"image"
	"testing"

	"github.com/shreyansh-kabir/image-selector/pkg/geometry"
)

func newTestModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m := NewModel(NewPointToPoint(), opts...)
	m.SetImage(image.NewRGBA(image.Rect(0, 0, 100, 100)))
	return m
}

func seg(x1, y1, x2, y2 int) geometry.PolyLine {
	return geometry.NewPolyLine(geometry.Pt(x1, y1), geometry.Pt(x2, y2))
}

func mustAdd(t *testing.T, m *Model, x, y int) {
	t.Helper()
	if err := m.AddPoint(geometry.Pt(x, y)); err != nil {
		t.Fatalf("AddPoint(%d,%d) failed: %v", x, y, err)
	}
}

func mustFinish(t *testing.T, m *Model) {
	t.Helper()
	if err := m.FinishSelection(); err != nil {
		t.Fatalf("FinishSelection failed: %v", err)
	}
}

// finishedSquare builds a Selected model tracing (0,0) (10,0) (10,10) (0,10).
func finishedSquare(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m := newTestModel(t, opts...)
	mustAdd(t, m, 0, 0)
	mustAdd(t, m, 10, 0)
	mustAdd(t, m, 10, 10)
	mustAdd(t, m, 0, 10)
	mustFinish(t, m)
	return m
}

func checkPath(t *testing.T, got, want []geometry.PolyLine) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("path has %d segments, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewModelStartsEmpty(t *testing.T) {
	m := NewModel(NewPointToPoint())
	if got := m.State(); got != NoSelection {
		t.Errorf("initial state = %v, want NoSelection", got)
	}
	if len(m.Path()) != 0 {
		t.Errorf("initial path not empty: %v", m.Path())
	}
	if _, ok := m.Start(); ok {
		t.Error("Start reported a point before any was placed")
	}
}

func TestAddPointRequiresImage(t *testing.T) {
	m := NewModel(NewPointToPoint())
	err := m.AddPoint(geometry.Pt(1, 1))
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("AddPoint without image = %v, want ErrInvalidState", err)
	}
	if m.State() != NoSelection {
		t.Errorf("state changed to %v after rejected AddPoint", m.State())
	}
}

// Scenario: place two points and close the ring.
func TestFinishSelectionClosesRing(t *testing.T) {
	m := newTestModel(t)

	mustAdd(t, m, 0, 0)
	if got := m.State(); got != Selecting {
		t.Fatalf("state after first point = %v, want Selecting", got)
	}
	if len(m.Path()) != 0 {
		t.Fatalf("path after first point = %v, want empty", m.Path())
	}

	mustAdd(t, m, 10, 0)
	checkPath(t, m.Path(), []geometry.PolyLine{seg(0, 0, 10, 0)})

	mustFinish(t, m)
	if got := m.State(); got != Selected {
		t.Fatalf("state after finish = %v, want Selected", got)
	}
	path := m.Path()
	checkPath(t, path, []geometry.PolyLine{seg(0, 0, 10, 0), seg(10, 0, 0, 0)})

	// Ring closure: last end meets first start meets the cached start.
	start, ok := m.Start()
	if !ok {
		t.Fatal("Start not set after finish")
	}
	if path[len(path)-1].End != path[0].Start || path[0].Start != start {
		t.Errorf("ring not closed: last.End=%v first.Start=%v start=%v",
			path[len(path)-1].End, path[0].Start, start)
	}
}

func TestFinishSelectionGuards(t *testing.T) {
	m := newTestModel(t)

	if err := m.FinishSelection(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("FinishSelection in NoSelection = %v, want ErrInvalidState", err)
	}

	// One point placed, no segments yet.
	mustAdd(t, m, 0, 0)
	if err := m.FinishSelection(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("FinishSelection with empty path = %v, want ErrInvalidState", err)
	}
	if m.State() != Selecting {
		t.Errorf("rejected finish changed state to %v", m.State())
	}

	mustAdd(t, m, 10, 0)
	mustFinish(t, m)
	if err := m.FinishSelection(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second FinishSelection = %v, want ErrInvalidState", err)
	}
}

// Scenario: moving the ring's first vertex updates both seam segments and
// the cached start.
func TestMovePointStart(t *testing.T) {
	m := newTestModel(t)
	mustAdd(t, m, 0, 0)
	mustAdd(t, m, 10, 0)
	mustFinish(t, m)

	if err := m.MovePoint(0, geometry.Pt(5, 5)); err != nil {
		t.Fatalf("MovePoint failed: %v", err)
	}

	checkPath(t, m.Path(), []geometry.PolyLine{seg(5, 5, 10, 0), seg(10, 0, 5, 5)})
	start, _ := m.Start()
	if start != geometry.Pt(5, 5) {
		t.Errorf("start = %v, want (5,5)", start)
	}
}

func TestMovePointLocality(t *testing.T) {
	m := finishedSquare(t)
	before := m.Path()

	if err := m.MovePoint(2, geometry.Pt(12, 12)); err != nil {
		t.Fatalf("MovePoint failed: %v", err)
	}
	after := m.Path()

	if after[1] != seg(10, 0, 12, 12) {
		t.Errorf("incoming segment = %v, want (10,0)-(12,12)", after[1])
	}
	if after[2] != seg(12, 12, 0, 10) {
		t.Errorf("outgoing segment = %v, want (12,12)-(0,10)", after[2])
	}
	for _, i := range []int{0, 3} {
		if after[i] != before[i] {
			t.Errorf("segment %d changed from %v to %v", i, before[i], after[i])
		}
	}
	if start, _ := m.Start(); start != geometry.Pt(0, 0) {
		t.Errorf("start changed to %v moving a non-first vertex", start)
	}
}

func TestMovePointDoesNotAliasInputs(t *testing.T) {
	m := finishedSquare(t)

	p := geometry.Pt(7, 7)
	if err := m.MovePoint(1, p); err != nil {
		t.Fatalf("MovePoint failed: %v", err)
	}
	p.X = 999
	p.Y = 999

	path := m.Path()
	if path[1].Start != geometry.Pt(7, 7) {
		t.Errorf("stored path aliased caller point: %v", path[1].Start)
	}

	// Mutating a returned path copy must not touch the model either.
	path[0] = seg(42, 42, 43, 43)
	if m.Path()[0] == path[0] {
		t.Error("Path() returned a slice aliasing internal state")
	}
}

func TestMovePointStateGating(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Model
	}{
		{"no selection", func(t *testing.T) *Model {
			return newTestModel(t)
		}},
		{"selecting", func(t *testing.T) *Model {
			m := newTestModel(t)
			mustAdd(t, m, 0, 0)
			mustAdd(t, m, 10, 0)
			return m
		}},
		{"processing", func(t *testing.T) *Model {
			m := finishedSquare(t)
			if err := m.BeginProcessing(); err != nil {
				t.Fatalf("BeginProcessing failed: %v", err)
			}
			return m
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.setup(t)
			stateBefore := m.State()
			pathBefore := m.Path()

			err := m.MovePoint(0, geometry.Pt(1, 1))
			if !errors.Is(err, ErrInvalidState) {
				t.Fatalf("MovePoint = %v, want ErrInvalidState", err)
			}
			if m.State() != stateBefore {
				t.Errorf("state changed from %v to %v", stateBefore, m.State())
			}
			checkPath(t, m.Path(), pathBefore)
		})
	}
}

func TestMovePointIndexOutOfRange(t *testing.T) {
	m := finishedSquare(t)
	for _, index := range []int{-1, 4, 100} {
		err := m.MovePoint(index, geometry.Pt(1, 1))
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("MovePoint(%d) = %v, want ErrInvalidArgument", index, err)
		}
	}
}

func TestUndoRestoresPreviousPath(t *testing.T) {
	m := newTestModel(t)

	points := []geometry.Point{
		geometry.Pt(0, 0), geometry.Pt(10, 0), geometry.Pt(10, 10), geometry.Pt(0, 10),
	}

	type modelView struct {
		path  []geometry.PolyLine
		start geometry.Point
		state State
	}
	views := make([]modelView, 0, len(points)+1)
	capture := func() modelView {
		start, _ := m.Start()
		return modelView{path: m.Path(), start: start, state: m.State()}
	}

	views = append(views, capture())
	for _, p := range points {
		if err := m.AddPoint(p); err != nil {
			t.Fatalf("AddPoint(%v) failed: %v", p, err)
		}
		views = append(views, capture())
	}

	// Walk back through every addition, checking each restore exactly.
	for k := len(points); k >= 1; k-- {
		if err := m.Undo(); err != nil {
			t.Fatalf("Undo after %d points failed: %v", k, err)
		}
		want := views[k-1]
		got := capture()
		checkPath(t, got.path, want.path)
		if got.start != want.start {
			t.Errorf("start after undo %d = %v, want %v", k, got.start, want.start)
		}
		if got.state != want.state {
			t.Errorf("state after undo %d = %v, want %v", k, got.state, want.state)
		}
	}
}

func TestUndoReversesFinish(t *testing.T) {
	m := newTestModel(t)
	mustAdd(t, m, 0, 0)
	mustAdd(t, m, 10, 0)
	mustFinish(t, m)

	if err := m.Undo(); err != nil {
		t.Fatalf("Undo of finish failed: %v", err)
	}
	if m.State() != Selecting {
		t.Errorf("state after undoing finish = %v, want Selecting", m.State())
	}
	checkPath(t, m.Path(), []geometry.PolyLine{seg(0, 0, 10, 0)})
}

// Scenario: undo with no history reports a benign error and changes nothing.
func TestUndoEmptyHistory(t *testing.T) {
	m := newTestModel(t)

	err := m.Undo()
	if !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("Undo on empty history = %v, want ErrNothingToUndo", err)
	}
	if m.State() != NoSelection || len(m.Path()) != 0 {
		t.Error("empty-history undo mutated the model")
	}
}

func TestUndoRejectedWhileProcessing(t *testing.T) {
	m := finishedSquare(t)
	if err := m.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing failed: %v", err)
	}
	if err := m.Undo(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Undo while Processing = %v, want ErrInvalidState", err)
	}
}

func TestUndoLimitDropsOldest(t *testing.T) {
	m := newTestModel(t, WithUndoLimit(2))
	mustAdd(t, m, 0, 0)
	mustAdd(t, m, 10, 0)
	mustAdd(t, m, 10, 10)

	for i := 0; i < 2; i++ {
		if err := m.Undo(); err != nil {
			t.Fatalf("Undo %d failed: %v", i+1, err)
		}
	}
	if err := m.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo past limit = %v, want ErrNothingToUndo", err)
	}
	// The two retained snapshots step back to the single-point state.
	if m.State() != Selecting {
		t.Errorf("state after bounded undos = %v, want Selecting", m.State())
	}
	if len(m.Path()) != 0 {
		t.Errorf("path after bounded undos = %v, want empty", m.Path())
	}
}

func TestAddPointRejectedWhileProcessing(t *testing.T) {
	m := newTestModel(t)
	mustAdd(t, m, 0, 0)
	mustAdd(t, m, 10, 0)
	if err := m.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing failed: %v", err)
	}

	if err := m.AddPoint(geometry.Pt(5, 5)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("AddPoint while Processing = %v, want ErrInvalidState", err)
	}
}

func TestAddPointRejectedWhileSelected(t *testing.T) {
	m := finishedSquare(t)
	if err := m.AddPoint(geometry.Pt(5, 5)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("AddPoint while Selected = %v, want ErrInvalidState", err)
	}
}

func TestProcessingLifecycle(t *testing.T) {
	tests := []struct {
		name   string
		end    func(m *Model) error
		resume State
	}{
		{"cancel resumes selected", (*Model).CancelProcessing, Selected},
		{"finish resumes selected", (*Model).FinishProcessing, Selected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := finishedSquare(t)
			if err := m.BeginProcessing(); err != nil {
				t.Fatalf("BeginProcessing failed: %v", err)
			}
			if m.State() != Processing {
				t.Fatalf("state = %v, want Processing", m.State())
			}
			if err := tt.end(m); err != nil {
				t.Fatalf("ending processing failed: %v", err)
			}
			if m.State() != tt.resume {
				t.Errorf("state = %v, want %v", m.State(), tt.resume)
			}
		})
	}
}

func TestProcessingResumesSelecting(t *testing.T) {
	m := newTestModel(t)
	mustAdd(t, m, 0, 0)
	mustAdd(t, m, 10, 0)

	if err := m.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing failed: %v", err)
	}
	if err := m.CancelProcessing(); err != nil {
		t.Fatalf("CancelProcessing failed: %v", err)
	}
	if m.State() != Selecting {
		t.Errorf("state = %v, want Selecting", m.State())
	}
}

func TestCancelProcessingOutsideProcessing(t *testing.T) {
	m := finishedSquare(t)
	err := m.CancelProcessing()
	if !errors.Is(err, ErrNotProcessing) {
		t.Fatalf("CancelProcessing while Selected = %v, want ErrNotProcessing", err)
	}
	if m.State() != Selected {
		t.Errorf("benign cancel changed state to %v", m.State())
	}
}

func TestBeginProcessingGuards(t *testing.T) {
	m := newTestModel(t)
	if err := m.BeginProcessing(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("BeginProcessing in NoSelection = %v, want ErrInvalidState", err)
	}
}

func TestResetClearsSelectionKeepsImage(t *testing.T) {
	m := finishedSquare(t)
	m.Reset()

	if m.State() != NoSelection {
		t.Errorf("state after reset = %v, want NoSelection", m.State())
	}
	if len(m.Path()) != 0 {
		t.Errorf("path after reset = %v, want empty", m.Path())
	}
	if m.Image() == nil {
		t.Error("reset dropped the image")
	}
	if err := m.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("undo after reset = %v, want ErrNothingToUndo", err)
	}
}

// Scenario: clearing the image while selected fires one selection and one
// state notification.
func TestSetImageClearsSelection(t *testing.T) {
	m := finishedSquare(t)

	var selectionEvents, stateEvents int
	m.On(PropertySelection, func(e Event) { selectionEvents++ })
	m.On(PropertyState, func(e Event) {
		stateEvents++
		if e.New != NoSelection {
			t.Errorf("state event carries %v, want NoSelection", e.New)
		}
	})

	m.SetImage(nil)

	if m.State() != NoSelection {
		t.Errorf("state = %v, want NoSelection", m.State())
	}
	if len(m.Path()) != 0 {
		t.Errorf("path = %v, want empty", m.Path())
	}
	if m.Image() != nil {
		t.Error("image not cleared")
	}
	if selectionEvents != 1 {
		t.Errorf("selection notifications = %d, want 1", selectionEvents)
	}
	if stateEvents != 1 {
		t.Errorf("state notifications = %d, want 1", stateEvents)
	}
}

func TestSetImageNilWhenEmptyIsSilent(t *testing.T) {
	m := NewModel(NewPointToPoint())
	fired := false
	m.On(PropertyImage, func(Event) { fired = true })
	m.SetImage(nil)
	if fired {
		t.Error("clearing an already-empty model fired an image event")
	}
}

func TestNotificationsFireBeforeReturn(t *testing.T) {
	m := newTestModel(t)

	var events []string
	m.On(PropertySelection, func(e Event) { events = append(events, e.Property) })
	m.On(PropertyState, func(e Event) { events = append(events, e.Property) })

	mustAdd(t, m, 0, 0)
	if len(events) != 2 {
		t.Fatalf("first point fired %d events, want selection and state", len(events))
	}

	events = nil
	mustAdd(t, m, 10, 0)
	if len(events) != 1 || events[0] != PropertySelection {
		t.Fatalf("second point fired %v, want one selection event", events)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := newTestModel(t)

	calls := 0
	off := m.On(PropertySelection, func(Event) { calls++ })
	mustAdd(t, m, 0, 0)
	off()
	mustAdd(t, m, 10, 0)

	if calls != 1 {
		t.Errorf("listener called %d times after unsubscribe, want 1", calls)
	}
}

func TestAsyncNotifyDeliversInOrder(t *testing.T) {
	m := NewModel(NewPointToPoint(), WithAsyncNotify())
	m.SetImage(image.NewRGBA(image.Rect(0, 0, 20, 20)))

	var got []State
	m.On(PropertyState, func(e Event) { got = append(got, e.New.(State)) })

	mustAdd(t, m, 0, 0)
	mustAdd(t, m, 10, 0)
	mustFinish(t, m)
	m.Reset()
	m.Close()

	want := []State{Selecting, Selected, NoSelection}
	if len(got) != len(want) {
		t.Fatalf("received %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLiveWire(t *testing.T) {
	m := newTestModel(t)

	if _, ok := m.LiveWire(geometry.Pt(5, 5)); ok {
		t.Error("LiveWire available before any point")
	}

	mustAdd(t, m, 0, 0)
	wire, ok := m.LiveWire(geometry.Pt(5, 5))
	if !ok {
		t.Fatal("LiveWire unavailable after first point")
	}
	if wire != seg(0, 0, 5, 5) {
		t.Errorf("live wire = %v, want (0,0)-(5,5)", wire)
	}

	mustAdd(t, m, 10, 0)
	wire, _ = m.LiveWire(geometry.Pt(5, 5))
	if wire != seg(10, 0, 5, 5) {
		t.Errorf("live wire = %v, want (10,0)-(5,5)", wire)
	}

	if len(m.Path()) != 1 {
		t.Errorf("live wire mutated the path: %v", m.Path())
	}
}

func TestPointCount(t *testing.T) {
	m := newTestModel(t)
	if got := m.PointCount(); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	mustAdd(t, m, 0, 0)
	if got := m.PointCount(); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	mustAdd(t, m, 10, 0)
	if got := m.PointCount(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	mustFinish(t, m)
	if got := m.PointCount(); got != 2 {
		t.Errorf("count after finish = %d, want 2", got)
	}
}

func TestRebuildAdjacentSingleSegmentRing(t *testing.T) {
	strategy := NewPointToPoint()
	path := []geometry.PolyLine{seg(3, 3, 3, 3)}
	out, in := strategy.RebuildAdjacent(path, 0, geometry.Pt(8, 8))
	if out != seg(8, 8, 8, 8) || in != seg(8, 8, 8, 8) {
		t.Errorf("single-segment rebuild = %v/%v, want degenerate (8,8)", out, in)
	}
}
