// Package editor implements the row editor state machine and the guarded
// request objects passed to an editor Handler.
package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCompleted is returned when a request is completed twice.
	ErrAlreadyCompleted = errors.New("editor request already completed")
	// ErrBusy is returned while a previous request is still pending.
	ErrBusy = errors.New("editor request pending")
	// ErrDisabled is returned when the editor is not enabled.
	ErrDisabled = errors.New("editor disabled")
	// ErrNotActive is returned by Save when no row is being edited.
	ErrNotActive = errors.New("editor not active")
)

// RequestType names the operation a Request represents.
type RequestType int

const (
	Bind RequestType = iota
	Save
	Cancel
)

func (t RequestType) String() string {
	switch t {
	case Bind:
		return "bind"
	case Save:
		return "save"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("RequestType(%d)", int(t))
	}
}

// Request is one bind, save or cancel operation. It completes exactly once.
type Request struct {
	typ       RequestType
	rowIndex  int
	async     bool
	completed bool
	done      func(r *Request, err error)
}

// NewRequest returns a request that calls done when completed. err is nil on
// success.
func NewRequest(typ RequestType, rowIndex int, done func(r *Request, err error)) *Request {
	return &Request{typ: typ, rowIndex: rowIndex, done: done}
}

// Type returns the request type.
func (r *Request) Type() RequestType { return r.typ }

// RowIndex returns the row being edited.
func (r *Request) RowIndex() int { return r.rowIndex }

// StartAsync marks the request as completing later. Without it the request
// counts as completed when the handler returns.
func (r *Request) StartAsync() { r.async = true }

// IsAsync reports whether StartAsync was called.
func (r *Request) IsAsync() bool { return r.async }

// IsCompleted reports whether the request has completed.
func (r *Request) IsCompleted() bool { return r.completed }

// Complete finishes the request successfully.
func (r *Request) Complete() error {
	return r.finish(nil)
}

// Fail finishes the request with err.
func (r *Request) Fail(err error) error {
	if err == nil {
		err = fmt.Errorf("%s row %d failed", r.typ, r.rowIndex)
	}
	return r.finish(err)
}

func (r *Request) finish(err error) error {
	if r.completed {
		return fmt.Errorf("%s row %d: %w", r.typ, r.rowIndex, ErrAlreadyCompleted)
	}
	r.completed = true
	if r.done != nil {
		r.done(r, err)
	}
	return nil
}
