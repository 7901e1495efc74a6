package connector

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupported is returned for operations that are deliberately not
	// implemented, such as changing the renderer of a bound column.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrNoGridContext is returned when a renderer binding is used before
	// its column is attached to a grid.
	ErrNoGridContext = errors.New("renderer is not attached to a grid")
	// ErrUnknownColumn is returned for a column id that is not bound.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnknownRenderer is returned when a column names a renderer that is
	// not registered.
	ErrUnknownRenderer = errors.New("unknown renderer")
	// ErrNotClickable is returned when clicking a column whose renderer has
	// no click handling.
	ErrNotClickable = errors.New("renderer is not clickable")
	// ErrNotSortable is returned when sorting by a column that is not
	// sortable.
	ErrNotSortable = errors.New("column is not sortable")
	// ErrSelectionDisabled is returned when the selection mode does not
	// allow the requested change.
	ErrSelectionDisabled = errors.New("selection not allowed in current mode")
	// ErrNoRequest is returned when a confirmation arrives with no matching
	// editor request outstanding.
	ErrNoRequest = errors.New("no editor request awaiting confirmation")
)

// CellError reports a header or footer cell that could not be decoded.
type CellError struct {
	Row      int
	ColumnID string
	Err      error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell %d/%s: %v", e.Row, e.ColumnID, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// ConfirmError is the failure the server reported for an editor bind or
// save.
type ConfirmError struct {
	Message   string
	ColumnIDs []string
}

func (e *ConfirmError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rejected by server"
	}
	if len(e.ColumnIDs) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (columns: %s)", msg, strings.Join(e.ColumnIDs, ", "))
}
