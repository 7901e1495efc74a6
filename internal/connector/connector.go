package connector

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/datasource"
	"github.com/five82/gridsync/internal/editor"
	"github.com/five82/gridsync/internal/protocol"
	"github.com/five82/gridsync/internal/sched"
)

// Column is a bound column.
type Column struct {
	State    protocol.ColumnState
	Renderer Renderer
	Binding  *Binding
}

// Options configure a Connector.
type Options struct {
	Renderers *RendererRegistry        // nil means an empty registry
	Strategy  datasource.CacheStrategy // nil uses the default prefetch
}

// Connector keeps a widget in sync with the server: it feeds pushed rows into
// the data source, reconciles state diffs with the widget and turns user
// actions into RPCs. It is owned by the event loop.
type Connector struct {
	server    Server
	widget    Widget
	renderers *RendererRegistry
	ds        *datasource.DataSource[protocol.Row]
	editor    *editor.Editor
	queue     sched.Queue

	state       protocol.StateDiff
	columns     map[string]*Column
	columnOrder []string
	sortOrder   []SortOrder
	selection   Selection

	updatedFromState bool
	serverInitiated  bool
	awaiting         *editor.Request
	deferredErrs     []error
}

// New returns a connector driving w and talking to server.
func New(server Server, w Widget, opts Options) *Connector {
	renderers := opts.Renderers
	if renderers == nil {
		renderers = NewRendererRegistry()
	}
	c := &Connector{
		server:    server,
		widget:    w,
		renderers: renderers,
		columns:   make(map[string]*Column),
	}
	c.ds = datasource.New[protocol.Row](server, protocol.RowKey, datasource.Options{
		Strategy:  opts.Strategy,
		Handler:   w,
		OnLoading: w.SetLoading,
	})
	c.editor = editor.New(editorHandler{c: c})
	c.editor.OnStateChange(func(s editor.State, row int) {
		c.widget.EditorStateChanged(s, row, c.editor.LastError())
	})
	return c
}

// DataSource returns the row cache.
func (c *Connector) DataSource() *datasource.DataSource[protocol.Row] { return c.ds }

// Editor returns the row editor.
func (c *Connector) Editor() *editor.Editor { return c.editor }

// State returns the accumulated server state.
func (c *Connector) State() protocol.StateDiff { return c.state }

// Column returns the bound column with the given id.
func (c *Connector) Column(id string) (*Column, bool) {
	col, ok := c.columns[id]
	return col, ok
}

// Columns returns the bound columns in display order.
func (c *Connector) Columns() []*Column {
	out := make([]*Column, 0, len(c.columnOrder))
	for _, id := range c.columnOrder {
		out = append(out, c.columns[id])
	}
	return out
}

// FrozenColumnCount returns the number of frozen leading columns.
func (c *Connector) FrozenColumnCount() int {
	if c.state.FrozenColumnCount == nil {
		return 0
	}
	return *c.state.FrozenColumnCount
}

// Receive handles one server message. RPC invocations are applied at once so
// that pushed rows are in the cache before the state diff, which is deferred
// to the next Flush, reads them.
func (c *Connector) Receive(msg protocol.ServerMessage) error {
	var errs []error
	for _, inv := range msg.RPC {
		if err := c.invoke(inv); err != nil {
			errs = append(errs, err)
		}
	}
	if msg.State != nil {
		diff := *msg.State
		c.queue.Defer(func() {
			if err := c.ApplyState(diff); err != nil {
				c.deferredErrs = append(c.deferredErrs, err)
			}
		})
	}
	return errors.Join(errs...)
}

// Flush applies deferred state and returns any errors it produced.
func (c *Connector) Flush() error {
	c.queue.Flush()
	err := errors.Join(c.deferredErrs...)
	c.deferredErrs = nil
	return err
}

// Pending returns the number of deferred tasks.
func (c *Connector) Pending() int { return c.queue.Len() }

func (c *Connector) invoke(inv protocol.Invocation) error {
	glog.V(2).Infof("rpc %s %s", inv.Method, inv.Params)
	switch inv.Method {
	case protocol.MethodSetRowData:
		var p protocol.SetRowDataParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		c.ds.SetRowData(p.FirstRow, p.Rows)
	case protocol.MethodInsertRowData:
		var p protocol.RowSpanParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		return c.ds.InsertRowData(p.FirstRow, p.Count)
	case protocol.MethodRemoveRowData:
		var p protocol.RowSpanParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		return c.ds.RemoveRowData(p.FirstRow, p.Count)
	case protocol.MethodResetDataAndSize:
		var p protocol.ResetParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		return c.ds.ResetDataAndSize(p.Size)
	case protocol.MethodScrollToStart:
		c.widget.ScrollToStart()
	case protocol.MethodScrollToEnd:
		c.widget.ScrollToEnd()
	case protocol.MethodScrollToRow:
		var p protocol.ScrollToRowParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		c.widget.ScrollToRow(p.Row, p.Destination)
	case protocol.MethodEditorBind:
		var p protocol.EditorParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		return c.serverEditorBind(p.RowIndex)
	case protocol.MethodEditorCancel:
		var p protocol.EditorParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		return c.serverEditorCancel(p.RowIndex)
	case protocol.MethodConfirmBind, protocol.MethodConfirmSave:
		var p protocol.ConfirmParams
		if err := protocol.DecodeParams(inv.Method, inv.Params, &p); err != nil {
			return err
		}
		typ := editor.Bind
		if inv.Method == protocol.MethodConfirmSave {
			typ = editor.Save
		}
		return c.confirm(typ, p)
	default:
		glog.Warningf("ignoring unknown rpc %q", inv.Method)
	}
	return nil
}

// Selection returns the local selection state.
func (c *Connector) Selection() *Selection { return &c.selection }

// IsSelected reports whether the row with key is selected.
func (c *Connector) IsSelected(key string) bool { return c.selection.Contains(key) }

// SelectRow selects the row with key. In SINGLE mode any other selected row
// is deselected.
func (c *Connector) SelectRow(key string) error {
	if key == "" {
		return fmt.Errorf("select: %w", datasource.ErrNoKey)
	}
	var delta SelectionDelta
	switch c.selection.Mode() {
	case protocol.SelectionMulti:
	case protocol.SelectionSingle:
		for _, k := range c.selection.Keys() {
			if k != key {
				c.deselect(k)
				delta.Removed = append(delta.Removed, k)
			}
		}
	default:
		return fmt.Errorf("select %q: %w", key, ErrSelectionDisabled)
	}
	if c.selection.add(key) {
		c.widget.SelectRow(c.ds.HandleByKey(key))
		delta.Added = append(delta.Added, key)
	}
	if len(delta.Added)+len(delta.Removed) > 0 {
		c.selectionChanged(&delta)
	}
	return nil
}

// DeselectRow deselects the row with key.
func (c *Connector) DeselectRow(key string) error {
	if key == "" {
		return fmt.Errorf("deselect: %w", datasource.ErrNoKey)
	}
	if c.selection.Mode() == protocol.SelectionNone {
		return fmt.Errorf("deselect %q: %w", key, ErrSelectionDisabled)
	}
	if c.deselect(key) {
		c.selectionChanged(&SelectionDelta{Removed: []string{key}})
	}
	return nil
}

// ToggleRow flips the selection of the row with key.
func (c *Connector) ToggleRow(key string) error {
	if key == "" {
		return fmt.Errorf("toggle: %w", datasource.ErrNoKey)
	}
	if c.selection.Contains(key) {
		return c.DeselectRow(key)
	}
	return c.SelectRow(key)
}

// SelectAll asks the server to select every row. The server answers with the
// new selected keys in a state diff.
func (c *Connector) SelectAll() error {
	if c.selection.Mode() != protocol.SelectionMulti {
		return fmt.Errorf("select all: %w", ErrSelectionDisabled)
	}
	c.server.SelectAll()
	return nil
}

func (c *Connector) deselect(key string) bool {
	if !c.selection.remove(key) {
		return false
	}
	c.widget.DeselectRow(c.ds.HandleByKey(key))
	return true
}

// selectionChanged notifies the widget and reports the selection to the
// server unless the change is being applied from server state.
func (c *Connector) selectionChanged(delta *SelectionDelta) {
	c.widget.SelectionChanged(delta)
	if c.updatedFromState {
		return
	}
	c.server.SelectionChange(c.selection.Keys())
}

// Cell decodes the value of column id in row using the column's renderer.
func (c *Connector) Cell(row protocol.Row, id string) (any, error) {
	col, ok := c.columns[id]
	if !ok {
		return nil, fmt.Errorf("cell %q: %w", id, ErrUnknownColumn)
	}
	return col.Renderer.Decode(row.Data[id])
}

// Click delivers a click on the cell at row in column id to the column's
// renderer.
func (c *Connector) Click(row int, id string, details protocol.MouseDetails) error {
	col, ok := c.columns[id]
	if !ok {
		return fmt.Errorf("click %q: %w", id, ErrUnknownColumn)
	}
	cl, ok := col.Renderer.(Clickable)
	if !ok {
		return fmt.Errorf("click %q: %w", id, ErrNotClickable)
	}
	return cl.OnClick(col.Binding, row, details)
}

// ColumnOrder returns the ids of the bound columns in display order.
func (c *Connector) ColumnOrder() []string {
	return slices.Clone(c.columnOrder)
}
