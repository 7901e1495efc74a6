package connector

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/protocol"
)

// ApplyState reconciles the widget with a state diff. Only fields present in
// the diff are processed. Errors from individual fields are joined; the
// remaining fields are still applied.
func (c *Connector) ApplyState(diff protocol.StateDiff) error {
	c.state = protocol.Merge(c.state, diff)

	var errs []error
	if diff.Columns != nil {
		errs = append(errs, c.reconcileColumns(*diff.Columns)...)
	}
	if diff.ColumnOrder != nil {
		c.applyColumnOrder(*diff.ColumnOrder)
	}
	if diff.FrozenColumnCount != nil {
		c.widget.SetFrozenColumnCount(*diff.FrozenColumnCount)
	}
	if diff.Header != nil {
		s, err := decodeSection(*diff.Header)
		if err != nil {
			errs = append(errs, fmt.Errorf("header: %w", err))
		} else {
			c.widget.SetHeader(s)
		}
	}
	if diff.Footer != nil {
		s, err := decodeSection(*diff.Footer)
		if err != nil {
			errs = append(errs, fmt.Errorf("footer: %w", err))
		} else {
			c.widget.SetFooter(s)
		}
	}
	if diff.EditorEnabled != nil {
		if err := c.editor.SetEnabled(*diff.EditorEnabled); err != nil {
			errs = append(errs, err)
		}
		c.widget.SetEditorEnabled(c.editor.Enabled())
	}
	if diff.SelectionMode != nil {
		if mode := *diff.SelectionMode; mode.Valid() {
			c.selection.mode = mode
			c.widget.SetSelectionMode(mode)
		} else {
			errs = append(errs, fmt.Errorf("selection mode %q: %w", mode, ErrUnsupported))
		}
	}
	if diff.SelectedKeys != nil {
		c.applySelectedKeys(*diff.SelectedKeys)
	}
	if diff.SortColumns != nil || diff.SortDirs != nil {
		c.setSortOrder(c.serverSortOrder())
	}
	if diff.HasCellStyleGenerator != nil || diff.HasRowStyleGenerator != nil {
		c.widget.SetStyleGenerators(deref(c.state.HasCellStyleGenerator), deref(c.state.HasRowStyleGenerator))
	}
	return errors.Join(errs...)
}

// reconcileColumns detaches columns missing from cols before attaching new
// ones. Columns present in both keep their binding.
func (c *Connector) reconcileColumns(cols []protocol.ColumnState) []error {
	keep := make(map[string]bool, len(cols))
	for _, cs := range cols {
		keep[cs.ID] = true
	}
	for _, id := range slices.Clone(c.columnOrder) {
		if !keep[id] {
			c.detachColumn(id)
		}
	}

	var errs []error
	for _, cs := range cols {
		col, ok := c.columns[cs.ID]
		if !ok {
			if err := c.attachColumn(cs); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if cs.Renderer != col.State.Renderer {
			errs = append(errs, fmt.Errorf("column %q: change renderer %q to %q: %w",
				cs.ID, col.State.Renderer, cs.Renderer, ErrUnsupported))
			continue
		}
		if cs != col.State {
			col.State = cs
			c.widget.UpdateColumn(col)
		}
	}
	return errs
}

func (c *Connector) attachColumn(cs protocol.ColumnState) error {
	r, err := c.renderers.New(cs.Renderer)
	if err != nil {
		return fmt.Errorf("column %q: %w", cs.ID, err)
	}
	col := &Column{State: cs, Renderer: r, Binding: &Binding{conn: c, columnID: cs.ID}}
	c.columns[cs.ID] = col
	c.columnOrder = append(c.columnOrder, cs.ID)
	glog.V(1).Infof("attach column %s (%s)", cs.ID, cs.Renderer)
	c.widget.AddColumn(col)
	return nil
}

// detachColumn unbinds a column from the widget, the column order and the
// sort order.
func (c *Connector) detachColumn(id string) {
	col, ok := c.columns[id]
	if !ok {
		return
	}
	col.Binding.detach()
	delete(c.columns, id)
	c.columnOrder = slices.DeleteFunc(c.columnOrder, func(s string) bool { return s == id })
	if slices.ContainsFunc(c.sortOrder, func(o SortOrder) bool { return o.ColumnID == id }) {
		c.setSortOrder(slices.DeleteFunc(slices.Clone(c.sortOrder), func(o SortOrder) bool { return o.ColumnID == id }))
	}
	glog.V(1).Infof("detach column %s", id)
	c.widget.RemoveColumn(id)
}

// applyColumnOrder reorders the widget only when the order actually changes.
// Unknown ids are skipped and bound columns missing from order keep their
// relative position at the end.
func (c *Connector) applyColumnOrder(order []string) {
	next := make([]string, 0, len(c.columnOrder))
	for _, id := range order {
		if _, ok := c.columns[id]; ok && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	for _, id := range c.columnOrder {
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	if slices.Equal(next, c.columnOrder) {
		return
	}
	c.columnOrder = next
	c.widget.SetColumnOrder(slices.Clone(next))
}

// applySelectedKeys installs the server's selection. The selection change RPC
// is suppressed while doing so, and a single change notification without a
// delta is raised when anything changed.
func (c *Connector) applySelectedKeys(keys []string) {
	c.updatedFromState = true
	defer func() { c.updatedFromState = false }()

	added, removed := c.selection.replace(keys)
	for _, k := range added {
		c.widget.SelectRow(c.ds.HandleByKey(k))
	}
	for _, k := range removed {
		c.widget.DeselectRow(c.ds.HandleByKey(k))
	}
	if len(added)+len(removed) > 0 {
		c.selectionChanged(nil)
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
