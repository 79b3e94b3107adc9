// Package editor implements the timeline edit operations and the editing
// session that feeds their results into the history manager.
package editor

import "fmt"

// Edit error codes.
const (
	CodeOverlap      = "OVERLAP"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidRange = "INVALID_RANGE"
	CodeOutOfBounds  = "OUT_OF_BOUNDS"
	CodeInvalidTrack = "INVALID_TRACK"
	CodeNoProject    = "NO_PROJECT"
)

// EditError is the outcome of an edit that was rejected. The project is left
// unchanged; the caller may retry with different arguments.
type EditError struct {
	Code   string
	ClipID string
	Detail string
	Err    error
}

func (e *EditError) Error() string {
	msg := "edit rejected: " + e.Code
	if e.ClipID != "" {
		msg += " (clip " + e.ClipID + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EditError) Unwrap() error { return e.Err }

// Is matches another *EditError with the same code.
func (e *EditError) Is(target error) bool {
	t, ok := target.(*EditError)
	return ok && t.Code == e.Code
}

var (
	ErrOverlap      = &EditError{Code: CodeOverlap}
	ErrNotFound     = &EditError{Code: CodeNotFound}
	ErrInvalidRange = &EditError{Code: CodeInvalidRange}
	ErrOutOfBounds  = &EditError{Code: CodeOutOfBounds}
	ErrInvalidTrack = &EditError{Code: CodeInvalidTrack}
	ErrNoProject    = &EditError{Code: CodeNoProject}
)

func notFound(clipID string) *EditError {
	return &EditError{Code: CodeNotFound, ClipID: clipID}
}

func invalidRange(clipID, format string, args ...any) *EditError {
	return &EditError{Code: CodeInvalidRange, ClipID: clipID, Detail: fmt.Sprintf(format, args...)}
}
