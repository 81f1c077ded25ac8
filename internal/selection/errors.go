package selection

import "errors"

// Sentinel errors returned by model operations. Callers match them with
// errors.Is.
var (
	// ErrInvalidState means the operation is not allowed in the current
	// selection state.
	ErrInvalidState = errors.New("invalid selection state")

	// ErrInvalidArgument means an input was out of range or missing.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNothingToUndo means the undo history is empty. Benign.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNotProcessing means no long-running operation is in flight.
	// Benign.
	ErrNotProcessing = errors.New("not processing")
)
