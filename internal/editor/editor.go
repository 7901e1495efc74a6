package editor

import "fmt"

// State is the editor lifecycle state.
type State int

const (
	Inactive State = iota
	Binding
	Active
	Saving
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Binding:
		return "binding"
	case Active:
		return "active"
	case Saving:
		return "saving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Handler performs editor operations. A handler that needs to wait for
// something calls StartAsync on the request and completes it later; otherwise
// returning is enough.
type Handler interface {
	Bind(r *Request)
	Save(r *Request)
	Cancel(r *Request)
}

// Editor drives one row editor. Only one request is outstanding at a time; a
// request that is never completed blocks the editor for good.
type Editor struct {
	handler  Handler
	enabled  bool
	state    State
	row      int
	pending  *Request
	lastErr  error
	onChange func(state State, row int)
}

// New returns a disabled editor using h.
func New(h Handler) *Editor {
	return &Editor{handler: h, row: -1}
}

// OnStateChange registers fn to be called after every state transition.
func (e *Editor) OnStateChange(fn func(state State, row int)) {
	e.onChange = fn
}

// SetEnabled turns the editor on or off. It cannot be disabled mid-edit.
func (e *Editor) SetEnabled(enabled bool) error {
	if !enabled && e.state != Inactive {
		return fmt.Errorf("disable editor while %s: %w", e.state, ErrBusy)
	}
	e.enabled = enabled
	return nil
}

// Enabled reports whether the editor may be opened.
func (e *Editor) Enabled() bool { return e.enabled }

// State returns the current state.
func (e *Editor) State() State { return e.state }

// Row returns the row being edited, or -1.
func (e *Editor) Row() int { return e.row }

// Pending reports whether a request is outstanding.
func (e *Editor) Pending() bool { return e.pending != nil }

// LastError returns the error of the most recent failed request.
func (e *Editor) LastError() error { return e.lastErr }

// EditRow opens the editor on row.
func (e *Editor) EditRow(row int) error {
	if !e.enabled {
		return ErrDisabled
	}
	if e.pending != nil {
		return fmt.Errorf("edit row %d: %w", row, ErrBusy)
	}
	if e.state == Active && e.row == row {
		return nil
	}
	e.setState(Binding, row)
	e.dispatch(NewRequest(Bind, row, e.bindDone), e.handler.Bind)
	return nil
}

// Save commits the row being edited.
func (e *Editor) Save() error {
	if e.pending != nil {
		return fmt.Errorf("save row %d: %w", e.row, ErrBusy)
	}
	if e.state != Active {
		return ErrNotActive
	}
	e.setState(Saving, e.row)
	e.dispatch(NewRequest(Save, e.row, e.saveDone), e.handler.Save)
	return nil
}

// Cancel closes the editor without saving.
func (e *Editor) Cancel() error {
	if e.pending != nil {
		return fmt.Errorf("cancel row %d: %w", e.row, ErrBusy)
	}
	if e.state == Inactive {
		return ErrNotActive
	}
	e.dispatch(NewRequest(Cancel, e.row, e.cancelDone), e.handler.Cancel)
	return nil
}

func (e *Editor) dispatch(r *Request, run func(*Request)) {
	e.pending = r
	run(r)
	if !r.IsAsync() && !r.IsCompleted() {
		_ = r.Complete()
	}
}

func (e *Editor) bindDone(r *Request, err error) {
	e.settle(r, err)
	if err != nil {
		e.setState(Inactive, -1)
		return
	}
	e.setState(Active, r.RowIndex())
}

func (e *Editor) saveDone(r *Request, err error) {
	e.settle(r, err)
	e.setState(Active, r.RowIndex())
}

func (e *Editor) cancelDone(r *Request, err error) {
	e.settle(r, err)
	e.setState(Inactive, -1)
}

func (e *Editor) settle(r *Request, err error) {
	if e.pending == r {
		e.pending = nil
	}
	e.lastErr = err
}

func (e *Editor) setState(s State, row int) {
	e.state = s
	e.row = row
	if e.onChange != nil {
		e.onChange(s, row)
	}
}
