package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/gridsync/internal/connector"
	"github.com/five82/gridsync/internal/editor"
)

// editorPanel is the inline row editor shown under the grid.
type editorPanel struct {
	state  editor.State
	row    int
	err    error
	fields []editorField
	focus  int
}

type editorField struct {
	columnID string
	name     string
	input    textinput.Model
}

func (p *editorPanel) isOpen() bool { return p.state != editor.Inactive }
func (p *editorPanel) busy() bool   { return p.state == editor.Binding || p.state == editor.Saving }

func (p *editorPanel) start(fields []editorField) {
	p.fields = fields
	p.focus = 0
	p.focusField()
}

func (p *editorPanel) close() {
	p.fields = nil
	p.focus = 0
}

func (p *editorPanel) move(delta int) {
	if len(p.fields) == 0 {
		return
	}
	p.focus = (p.focus + delta + len(p.fields)) % len(p.fields)
	p.focusField()
}

func (p *editorPanel) focusField() {
	for i := range p.fields {
		if i == p.focus {
			p.fields[i].input.Focus()
		} else {
			p.fields[i].input.Blur()
		}
	}
}

func (p *editorPanel) values() map[string]string {
	out := make(map[string]string, len(p.fields))
	for _, f := range p.fields {
		out[f.name] = f.input.Value()
	}
	return out
}

// invalidColumns returns the columns the server rejected on the last save.
func (p *editorPanel) invalidColumns() []string {
	var cerr *connector.ConfirmError
	if errors.As(p.err, &cerr) {
		return cerr.ColumnIDs
	}
	return nil
}

// editorFields builds one input per editable column, prefilled from the row.
func (m *Model) editorFields(row int) []editorField {
	var fields []editorField
	data, err := m.conn.DataSource().Row(row)
	for _, col := range m.grid.orderedColumns() {
		if col.State.EditorField == "" {
			continue
		}
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 64
		in.Width = max(int(col.State.Width), int(col.State.MinWidth), 12)
		if err == nil {
			in.SetValue(m.cellText(data, col.State.ID))
		}
		fields = append(fields, editorField{columnID: col.State.ID, name: col.State.EditorField, input: in})
	}
	return fields
}

// handleEditorKey processes keyboard input while the editor is open.
func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.conn == nil {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Save):
		if m.editor.state == editor.Active {
			if err := m.conn.SaveEditor(); err != nil {
				m.fail("save", err)
			}
		}
	case key.Matches(msg, m.keys.Cancel):
		if err := m.conn.CancelEditor(); err != nil {
			m.fail("cancel", err)
		}
	case key.Matches(msg, m.keys.NextField):
		m.editor.move(1)
	case key.Matches(msg, m.keys.PrevField):
		m.editor.move(-1)
	default:
		if m.editor.state != editor.Active || len(m.editor.fields) == 0 {
			return nil
		}
		f := &m.editor.fields[m.editor.focus]
		var cmd tea.Cmd
		f.input, cmd = f.input.Update(msg)
		return cmd
	}
	return nil
}

// editorHeight is the number of lines renderEditor produces.
func (m *Model) editorHeight() int {
	if !m.editor.isOpen() {
		return 0
	}
	return 2
}

func (m *Model) renderEditor() string {
	styles := m.theme.Styles()
	label := styles.Named(styles.AccentText, "editor")

	var status string
	switch m.editor.state {
	case editor.Binding:
		status = m.spinner.View() + " opening row " + fmt.Sprint(m.editor.row+1)
	case editor.Saving:
		status = m.spinner.View() + " saving row " + fmt.Sprint(m.editor.row+1)
	default:
		status = "editing row " + fmt.Sprint(m.editor.row+1)
	}
	if m.editor.err != nil {
		status += "  " + styles.DangerText.Render(m.editor.err.Error())
	}

	invalid := m.editor.invalidColumns()
	parts := make([]string, 0, len(m.editor.fields))
	for i, f := range m.editor.fields {
		name := styles.MutedText.Render(f.columnID + ":")
		if slices.Contains(invalid, f.columnID) {
			name = styles.DangerText.Render(f.columnID + ":")
		} else if i == m.editor.focus {
			name = styles.AccentText.Render(f.columnID + ":")
		}
		parts = append(parts, name+" "+f.input.View())
	}

	return label.Render("editor") + " " + status + "\n" +
		strings.Join(parts, "  ")
}
