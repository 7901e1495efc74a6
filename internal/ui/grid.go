package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/gridsync/internal/connector"
	"github.com/five82/gridsync/internal/datasource"
	"github.com/five82/gridsync/internal/protocol"
)

const (
	defaultColumnWidth = 10
	gutterWidth        = 3
)

// layoutColumn is a column placed on screen.
type layoutColumn struct {
	col   *connector.Column
	index int // position in the column order
	width int
}

// chromeHeight is the number of lines around the grid body.
func (m *Model) chromeHeight() int {
	lines := 2 // status bar and help bar
	lines += m.sectionHeight(m.grid.header)
	if m.showFooter {
		lines += m.sectionHeight(m.grid.footer)
	}
	return lines + m.editorHeight()
}

func (m *Model) sectionHeight(s connector.Section) int {
	if !s.Visible {
		return 0
	}
	return len(s.Rows)
}

// visibleRows is the number of data rows that fit on screen.
func (m *Model) visibleRows() int {
	return max(m.height-m.chromeHeight(), 0)
}

// columnWidth is the natural width of a column before expansion.
func columnWidth(cs protocol.ColumnState) int {
	w := int(cs.Width)
	if w <= 0 {
		w = max(int(cs.MinWidth), defaultColumnWidth)
	}
	if cs.MinWidth > 0 {
		w = max(w, int(cs.MinWidth))
	}
	if cs.MaxWidth > 0 {
		w = min(w, int(cs.MaxWidth))
	}
	return w
}

// layout picks the columns to draw. Frozen columns are always shown; the
// rest scroll horizontally so the column cursor stays on screen. Spare width
// goes to columns with an expand ratio.
func (m *Model) layout() []layoutColumn {
	cols := m.grid.orderedColumns()
	if len(cols) == 0 {
		return nil
	}
	avail := m.width - gutterWidth
	frozen := min(max(m.grid.frozen, 0), len(cols))

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = columnWidth(c.State)
	}
	used := 0
	for i := range frozen {
		used += widths[i] + 1
	}

	start := frozen
	if m.colCursor >= frozen {
		for start < m.colCursor {
			need := used
			for i := start; i <= m.colCursor; i++ {
				need += widths[i] + 1
			}
			if need <= avail {
				break
			}
			start++
		}
	}

	var out []layoutColumn
	for i := range frozen {
		out = append(out, layoutColumn{col: cols[i], index: i, width: widths[i]})
	}
	for i := start; i < len(cols); i++ {
		if used+widths[i]+1 > avail && len(out) > 0 {
			break
		}
		out = append(out, layoutColumn{col: cols[i], index: i, width: widths[i]})
		used += widths[i] + 1
	}

	spare := avail - used
	ratios := 0
	for _, lc := range out {
		ratios += lc.col.State.ExpandRatio
	}
	if spare > 0 && ratios > 0 {
		given := 0
		last := -1
		for i := range out {
			r := out[i].col.State.ExpandRatio
			if r <= 0 {
				continue
			}
			extra := spare * r / ratios
			if maxW := int(out[i].col.State.MaxWidth); maxW > 0 {
				extra = min(extra, max(maxW-out[i].width, 0))
			}
			out[i].width += extra
			given += extra
			last = i
		}
		if last >= 0 && out[last].col.State.MaxWidth == 0 {
			out[last].width += spare - given
		}
	}
	return out
}

func isNumeric(col *connector.Column) bool {
	return col.Renderer != nil && col.Renderer.PresentationType() == "number"
}

// cellText formats the decoded value of a cell.
func (m *Model) cellText(row protocol.Row, id string) string {
	if m.conn == nil {
		return ""
	}
	v, err := m.conn.Cell(row, id)
	if err != nil {
		return "!"
	}
	return fmt.Sprint(v)
}

func sectionText(c protocol.CellContent) string {
	switch c := c.(type) {
	case protocol.TextContent:
		return c.Text
	case protocol.HTMLContent:
		return stripTags(c.HTML)
	case protocol.WidgetContent:
		return "[" + c.ConnectorID + "]"
	default:
		return ""
	}
}

// renderMain renders the whole screen.
func (m *Model) renderMain() string {
	cols := m.layout()
	lines := []string{m.renderHeader()}
	lines = append(lines, m.renderSection(m.grid.header, cols, true)...)
	lines = append(lines, m.renderRows(cols)...)
	if m.showFooter {
		lines = append(lines, m.renderSection(m.grid.footer, cols, false)...)
	}
	if m.editor.isOpen() {
		lines = append(lines, m.renderEditor())
	}
	lines = append(lines, m.renderHelpBar())
	return strings.Join(lines, "\n")
}

func (m *Model) renderSection(s connector.Section, cols []layoutColumn, header bool) []string {
	if !s.Visible {
		return nil
	}
	styles := m.theme.Styles()
	base := styles.GridFooter
	if header {
		base = styles.GridHeader
	}
	bg := NewBgStyle(m.theme.SurfaceAlt)

	out := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		rowStyle := styles.Named(base, row.StyleName)
		parts := []string{bg.Spaces(gutterWidth - 1)}
		for _, lc := range cols {
			id := lc.col.State.ID
			text := ""
			if c, ok := row.Cells[id]; ok {
				text = sectionText(c)
			}
			if header && row.Default {
				text += m.sortIndicator(id)
			}
			style := styles.Named(rowStyle, row.Styles[id])
			parts = append(parts, bg.Render(fit(text, lc.width, isNumeric(lc.col)), style))
		}
		out = append(out, bg.FillLine(bg.Join(parts, " "), m.width))
	}
	return out
}

func (m *Model) sortIndicator(id string) string {
	for i, o := range m.grid.sort {
		if o.ColumnID != id {
			continue
		}
		arrow := " ▲"
		if o.Direction == protocol.Descending {
			arrow = " ▼"
		}
		if len(m.grid.sort) > 1 {
			arrow += fmt.Sprint(i + 1)
		}
		return arrow
	}
	return ""
}

func (m *Model) renderRows(cols []layoutColumn) []string {
	n := m.visibleRows()
	out := make([]string, 0, n)
	if m.conn == nil {
		if n > 0 {
			msg := "not connected"
			if m.snapshot.ServerURL != "" {
				msg = "waiting for " + m.snapshot.ServerURL
			}
			out = append(out, m.theme.Styles().MutedText.Render(padRight("", gutterWidth)+msg))
		}
		for len(out) < n {
			out = append(out, "")
		}
		return out
	}

	size := m.size()
	for i := m.top; i < m.top+n; i++ {
		if i >= size {
			out = append(out, "")
			continue
		}
		out = append(out, m.renderRow(i, cols))
	}
	return out
}

func (m *Model) renderRow(i int, cols []layoutColumn) string {
	styles := m.theme.Styles()
	ds := m.conn.DataSource()

	row, err := ds.Row(i)
	if err != nil {
		placeholder := "..."
		if !errors.Is(err, datasource.ErrNotAvailable) {
			placeholder = err.Error()
		}
		return styles.FaintText.Render(padRight("", gutterWidth) + placeholder)
	}

	base := styles.Text
	if m.grid.rowStyles {
		base = styles.Named(base, row.RowStyle)
	}
	selected := m.grid.marked[row.Key]
	if selected {
		base = styles.Selected
	}

	gutter := []rune("   ")
	if i == m.cursor {
		gutter[0] = '>'
	}
	if selected {
		gutter[1] = '*'
	}
	if ds.HandleByKey(row.Key).Pinned() {
		gutter[1] = '^'
		if selected {
			gutter[1] = '#'
		}
	}

	var b strings.Builder
	b.WriteString(base.Render(string(gutter[:gutterWidth-1])))
	for _, lc := range cols {
		id := lc.col.State.ID
		style := base
		if m.grid.cellStyles && !selected {
			style = styles.Named(style, row.CellStyles[id])
		}
		if i == m.cursor && lc.index == m.colCursor {
			style = styles.Cursor
		}
		b.WriteString(base.Render(" "))
		b.WriteString(style.Render(fit(m.cellText(row, id), lc.width, isNumeric(lc.col))))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}
