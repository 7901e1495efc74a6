package connector

import (
	"github.com/five82/gridsync/internal/datasource"
	"github.com/five82/gridsync/internal/editor"
	"github.com/five82/gridsync/internal/protocol"
)

// ServerRPC is the outbound call surface. Every call is fire-and-forget.
type ServerRPC interface {
	SelectionChange(keys []string)
	Sort(columnIDs []string, dirs []protocol.SortDirection, userOriginated bool)
	SelectAll()
	EditorBind(row int)
	EditorSave(row int, values map[string]string)
	EditorCancel(row int)
	Click(rowKey, columnID string, details protocol.MouseDetails)
}

// Server is everything the connector sends to the server: row requests and
// pin notifications for the data source plus the RPC surface.
type Server interface {
	datasource.Collaborator
	ServerRPC
}

// Row is the handle type the connector hands to the widget.
type Row = datasource.RowHandle[protocol.Row]

// Widget is the grid the connector drives. All calls happen on the event
// loop.
type Widget interface {
	datasource.DataChangeHandler

	AddColumn(col *Column)
	RemoveColumn(id string)
	UpdateColumn(col *Column)
	SetColumnOrder(ids []string)
	SetFrozenColumnCount(n int)
	SetHeader(s Section)
	SetFooter(s Section)
	SetStyleGenerators(cell, row bool)

	SetSelectionMode(mode protocol.SelectionMode)
	SelectRow(row Row)
	DeselectRow(row Row)
	// SelectionChanged is called after the selection changed. delta is nil
	// when the change was applied from server state and the exact rows are
	// not known.
	SelectionChanged(delta *SelectionDelta)

	SetSortOrder(order []SortOrder)

	SetEditorEnabled(enabled bool)
	EditorStateChanged(state editor.State, row int, err error)
	EditorValues() map[string]string

	SetLoading(loading bool)
	ScrollToStart()
	ScrollToEnd()
	ScrollToRow(row int, dest protocol.ScrollDestination)
}

// SelectionDelta lists the keys a user-originated change added or removed.
type SelectionDelta struct {
	Added   []string
	Removed []string
}

// Section is a decoded header or footer.
type Section struct {
	Visible bool
	Rows    []SectionRow
}

// SectionRow is one decoded header or footer row.
type SectionRow struct {
	Cells     map[string]protocol.CellContent
	Styles    map[string]string
	Default   bool
	StyleName string
}

func decodeSection(s protocol.SectionState) (Section, error) {
	out := Section{Visible: s.Visible, Rows: make([]SectionRow, 0, len(s.Rows))}
	for i, r := range s.Rows {
		row := SectionRow{
			Cells:     make(map[string]protocol.CellContent, len(r.Cells)),
			Styles:    make(map[string]string),
			Default:   r.Default,
			StyleName: r.StyleName,
		}
		for id, cell := range r.Cells {
			content, err := cell.Content()
			if err != nil {
				return Section{}, &CellError{Row: i, ColumnID: id, Err: err}
			}
			row.Cells[id] = content
			if cell.StyleName != "" {
				row.Styles[id] = cell.StyleName
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
