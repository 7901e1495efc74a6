package protocol

import "fmt"

// SelectionMode is the grid selection mode.
type SelectionMode string

const (
	SelectionNone   SelectionMode = "NONE"
	SelectionSingle SelectionMode = "SINGLE"
	SelectionMulti  SelectionMode = "MULTI"
)

// Valid reports whether m is a known mode.
func (m SelectionMode) Valid() bool {
	switch m {
	case SelectionNone, SelectionSingle, SelectionMulti:
		return true
	}
	return false
}

// SortDirection is a column sort direction.
type SortDirection string

const (
	Ascending  SortDirection = "ASCENDING"
	Descending SortDirection = "DESCENDING"
)

// Opposite returns the other direction.
func (d SortDirection) Opposite() SortDirection {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// ColumnState describes one column.
type ColumnState struct {
	ID          string  `json:"id"`
	Renderer    string  `json:"renderer"`
	Width       float64 `json:"width,omitempty"`
	MinWidth    float64 `json:"minWidth,omitempty"`
	MaxWidth    float64 `json:"maxWidth,omitempty"`
	ExpandRatio int     `json:"expandRatio,omitempty"`
	Sortable    bool    `json:"sortable,omitempty"`
	EditorField string  `json:"editorField,omitempty"`
}

// CellType tags the content of a header or footer cell.
type CellType string

const (
	CellText   CellType = "TEXT"
	CellHTML   CellType = "HTML"
	CellWidget CellType = "WIDGET"
)

// CellState is the wire form of a header or footer cell.
type CellState struct {
	Type      CellType `json:"type"`
	Text      string   `json:"text,omitempty"`
	HTML      string   `json:"html,omitempty"`
	Connector string   `json:"connector,omitempty"`
	StyleName string   `json:"styleName,omitempty"`
}

// CellContent is the content of a header or footer cell: one of TextContent,
// HTMLContent or WidgetContent.
type CellContent interface {
	isCellContent()
}

// TextContent is plain text.
type TextContent struct{ Text string }

// HTMLContent is an HTML fragment.
type HTMLContent struct{ HTML string }

// WidgetContent refers to a component by connector id.
type WidgetContent struct{ ConnectorID string }

func (TextContent) isCellContent()   {}
func (HTMLContent) isCellContent()   {}
func (WidgetContent) isCellContent() {}

// Content converts the wire cell into its CellContent variant. An empty type
// is treated as TEXT.
func (c CellState) Content() (CellContent, error) {
	switch c.Type {
	case CellText, "":
		return TextContent{Text: c.Text}, nil
	case CellHTML:
		return HTMLContent{HTML: c.HTML}, nil
	case CellWidget:
		return WidgetContent{ConnectorID: c.Connector}, nil
	default:
		return nil, fmt.Errorf("unknown cell type %q", c.Type)
	}
}

// TextCell builds a TEXT cell.
func TextCell(text string) CellState {
	return CellState{Type: CellText, Text: text}
}

// SectionRow is one header or footer row; Cells is keyed by column id.
type SectionRow struct {
	Cells     map[string]CellState `json:"cells"`
	Default   bool                 `json:"default,omitempty"`
	StyleName string               `json:"styleName,omitempty"`
}

// SectionState is a header or footer.
type SectionState struct {
	Visible bool         `json:"visible"`
	Rows    []SectionRow `json:"rows"`
}

// StateDiff is a partial update of the grid's shared state. Nil fields are
// unchanged.
type StateDiff struct {
	Columns               *[]ColumnState   `json:"columns,omitempty"`
	ColumnOrder           *[]string        `json:"columnOrder,omitempty"`
	Header                *SectionState    `json:"header,omitempty"`
	Footer                *SectionState    `json:"footer,omitempty"`
	EditorEnabled         *bool            `json:"editorEnabled,omitempty"`
	FrozenColumnCount     *int             `json:"frozenColumnCount,omitempty"`
	SelectionMode         *SelectionMode   `json:"selectionMode,omitempty"`
	SelectedKeys          *[]string        `json:"selectedKeys,omitempty"`
	SortColumns           *[]string        `json:"sortColumns,omitempty"`
	SortDirs              *[]SortDirection `json:"sortDirs,omitempty"`
	HasCellStyleGenerator *bool            `json:"hasCellStyleGenerator,omitempty"`
	HasRowStyleGenerator  *bool            `json:"hasRowStyleGenerator,omitempty"`
}

// IsEmpty reports whether the diff changes nothing.
func (d StateDiff) IsEmpty() bool {
	return d == StateDiff{}
}

// Merge returns base with every non-nil field of diff applied. Slices are
// copied so the result shares nothing with diff.
func Merge(base, diff StateDiff) StateDiff {
	out := base
	if diff.Columns != nil {
		out.Columns = Ptr(cloneSlice(*diff.Columns))
	}
	if diff.ColumnOrder != nil {
		out.ColumnOrder = Ptr(cloneSlice(*diff.ColumnOrder))
	}
	if diff.Header != nil {
		out.Header = Ptr(*diff.Header)
	}
	if diff.Footer != nil {
		out.Footer = Ptr(*diff.Footer)
	}
	if diff.EditorEnabled != nil {
		out.EditorEnabled = Ptr(*diff.EditorEnabled)
	}
	if diff.FrozenColumnCount != nil {
		out.FrozenColumnCount = Ptr(*diff.FrozenColumnCount)
	}
	if diff.SelectionMode != nil {
		out.SelectionMode = Ptr(*diff.SelectionMode)
	}
	if diff.SelectedKeys != nil {
		out.SelectedKeys = Ptr(cloneSlice(*diff.SelectedKeys))
	}
	if diff.SortColumns != nil {
		out.SortColumns = Ptr(cloneSlice(*diff.SortColumns))
	}
	if diff.SortDirs != nil {
		out.SortDirs = Ptr(cloneSlice(*diff.SortDirs))
	}
	if diff.HasCellStyleGenerator != nil {
		out.HasCellStyleGenerator = Ptr(*diff.HasCellStyleGenerator)
	}
	if diff.HasRowStyleGenerator != nil {
		out.HasRowStyleGenerator = Ptr(*diff.HasRowStyleGenerator)
	}
	return out
}

// Ptr returns a pointer to v, for building diffs.
func Ptr[T any](v T) *T {
	return &v
}

// cloneSlice copies s and never returns nil, so an empty list still encodes
// as [] rather than null.
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
