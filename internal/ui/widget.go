package ui

import (
	"slices"

	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/connector"
	"github.com/five82/gridsync/internal/editor"
	"github.com/five82/gridsync/internal/protocol"
)

var _ connector.Widget = (*Model)(nil)

// gridState is what the connector has told the widget about the grid.
type gridState struct {
	columns    map[string]*connector.Column
	order      []string
	frozen     int
	header     connector.Section
	footer     connector.Section
	cellStyles bool
	rowStyles  bool
	mode       protocol.SelectionMode
	marked     map[string]bool
	sort       []connector.SortOrder
	canEdit    bool
}

func newGridState() gridState {
	return gridState{
		columns: make(map[string]*connector.Column),
		marked:  make(map[string]bool),
		mode:    protocol.SelectionNone,
	}
}

func (g gridState) orderedColumns() []*connector.Column {
	out := make([]*connector.Column, 0, len(g.order))
	for _, id := range g.order {
		if col, ok := g.columns[id]; ok {
			out = append(out, col)
		}
	}
	return out
}

// DataUpdated implements datasource.DataChangeHandler. Rows are read from the
// data source on every render, so there is nothing to copy.
func (m *Model) DataUpdated(first, count int) {
	glog.V(3).Infof("ui: rows %d+%d updated", first, count)
}

// DataAvailable implements datasource.DataChangeHandler.
func (m *Model) DataAvailable(first, count int) {
	glog.V(3).Infof("ui: rows %d+%d available", first, count)
}

// DataAdded implements datasource.DataChangeHandler. The cursor stays on the
// row it was on.
func (m *Model) DataAdded(first, count int) {
	if first <= m.cursor {
		m.cursor += count
		if first <= m.top {
			m.top += count
		}
	}
}

// DataRemoved implements datasource.DataChangeHandler.
func (m *Model) DataRemoved(first, count int) {
	switch {
	case m.cursor >= first+count:
		m.cursor -= count
	case m.cursor >= first:
		m.cursor = first
	}
	if m.top >= first+count {
		m.top -= count
	} else if m.top > first {
		m.top = first
	}
}

// ResetDataAndSize implements datasource.DataChangeHandler.
func (m *Model) ResetDataAndSize(size int) {
	m.cursor = min(m.cursor, max(size-1, 0))
}

// AddColumn implements connector.Widget.
func (m *Model) AddColumn(col *connector.Column) {
	id := col.State.ID
	m.grid.columns[id] = col
	if !slices.Contains(m.grid.order, id) {
		m.grid.order = append(m.grid.order, id)
	}
}

// RemoveColumn implements connector.Widget.
func (m *Model) RemoveColumn(id string) {
	delete(m.grid.columns, id)
	m.grid.order = slices.DeleteFunc(m.grid.order, func(s string) bool { return s == id })
}

// UpdateColumn implements connector.Widget.
func (m *Model) UpdateColumn(col *connector.Column) {
	m.grid.columns[col.State.ID] = col
}

// SetColumnOrder implements connector.Widget.
func (m *Model) SetColumnOrder(ids []string) {
	cur := m.currentColumn()
	m.grid.order = slices.Clone(ids)
	if i := slices.Index(m.grid.order, cur); i >= 0 {
		m.colCursor = i
	}
}

func (m *Model) SetFrozenColumnCount(n int)        { m.grid.frozen = n }
func (m *Model) SetHeader(s connector.Section)     { m.grid.header = s }
func (m *Model) SetFooter(s connector.Section)     { m.grid.footer = s }
func (m *Model) SetStyleGenerators(cell, row bool) { m.grid.cellStyles, m.grid.rowStyles = cell, row }

// SetSelectionMode implements connector.Widget.
func (m *Model) SetSelectionMode(mode protocol.SelectionMode) {
	m.grid.mode = mode
}

func (m *Model) SelectRow(row connector.Row)   { m.grid.marked[row.Key()] = true }
func (m *Model) DeselectRow(row connector.Row) { delete(m.grid.marked, row.Key()) }

// SelectionChanged implements connector.Widget.
func (m *Model) SelectionChanged(delta *connector.SelectionDelta) {
	if delta == nil {
		glog.V(1).Infof("ui: selection replaced by server (%d rows)", len(m.grid.marked))
		return
	}
	glog.V(1).Infof("ui: selection +%v -%v", delta.Added, delta.Removed)
}

// SetSortOrder implements connector.Widget.
func (m *Model) SetSortOrder(order []connector.SortOrder) {
	m.grid.sort = slices.Clone(order)
}

// SetEditorEnabled implements connector.Widget.
func (m *Model) SetEditorEnabled(enabled bool) {
	m.grid.canEdit = enabled
}

// EditorStateChanged implements connector.Widget.
func (m *Model) EditorStateChanged(s editor.State, row int, err error) {
	prev := m.editor.state
	m.editor.state = s
	m.editor.err = err
	if row >= 0 {
		m.editor.row = row
	}
	switch {
	case s == editor.Active && prev == editor.Binding:
		m.editor.start(m.editorFields(row))
	case s == editor.Inactive:
		if err != nil {
			m.setNotice("editor: "+err.Error(), true)
		}
		m.editor.close()
	case s == editor.Active && prev == editor.Saving:
		if err != nil {
			m.setNotice("save failed: "+err.Error(), true)
		} else {
			m.setNotice("saved", false)
		}
	}
}

// EditorValues implements connector.Widget.
func (m *Model) EditorValues() map[string]string {
	return m.editor.values()
}

// SetLoading implements connector.Widget.
func (m *Model) SetLoading(loading bool) { m.loading = loading }

func (m *Model) ScrollToStart() { m.cursor, m.top = 0, 0 }
func (m *Model) ScrollToEnd()   { m.cursor = m.size() - 1 }

// ScrollToRow implements connector.Widget.
func (m *Model) ScrollToRow(row int, dest protocol.ScrollDestination) {
	m.cursor = row
	rows := max(m.visibleRows(), 1)
	switch dest {
	case protocol.ScrollStart:
		m.top = row
	case protocol.ScrollMiddle:
		m.top = row - rows/2
	case protocol.ScrollEnd:
		m.top = row - rows + 1
	}
}
