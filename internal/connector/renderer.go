package connector

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/five82/gridsync/internal/protocol"
)

// Renderer turns the wire value of a cell into its presentation value.
type Renderer interface {
	// PresentationType names the kind of value Decode returns.
	PresentationType() string
	Decode(raw json.RawMessage) (any, error)
}

// Clickable is implemented by renderers that react to clicks. The binding
// identifies the column and resolves row keys.
type Clickable interface {
	OnClick(b *Binding, row int, details protocol.MouseDetails) error
}

// RendererFactory creates a renderer instance for one column.
type RendererFactory func() Renderer

// RendererRegistry maps renderer names used in column state to factories.
type RendererRegistry struct {
	factories map[string]RendererFactory
}

// NewRendererRegistry returns an empty registry.
func NewRendererRegistry() *RendererRegistry {
	return &RendererRegistry{factories: make(map[string]RendererFactory)}
}

// Register adds or replaces the factory for name.
func (r *RendererRegistry) Register(name string, f RendererFactory) {
	r.factories[name] = f
}

// New instantiates the renderer registered as name.
func (r *RendererRegistry) New(name string) (Renderer, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("renderer %q: %w", name, ErrUnknownRenderer)
	}
	return f(), nil
}

// Names returns the registered renderer names in sorted order.
func (r *RendererRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Binding ties a renderer to the column it renders. The zero value is
// unattached and every method fails with ErrNoGridContext.
type Binding struct {
	conn     *Connector
	columnID string
}

// ColumnID returns the id of the bound column.
func (b *Binding) ColumnID() (string, error) {
	if b == nil || b.conn == nil {
		return "", ErrNoGridContext
	}
	return b.columnID, nil
}

// RowKey resolves the key of the row at index row.
func (b *Binding) RowKey(row int) (string, error) {
	if b == nil || b.conn == nil {
		return "", ErrNoGridContext
	}
	h, err := b.conn.ds.HandleAt(row)
	if err != nil {
		return "", fmt.Errorf("row key for %d: %w", row, err)
	}
	return h.Key(), nil
}

// SendClick reports a click on the bound column of the row with key rowKey.
func (b *Binding) SendClick(rowKey string, details protocol.MouseDetails) error {
	id, err := b.ColumnID()
	if err != nil {
		return err
	}
	b.conn.server.Click(rowKey, id, details)
	return nil
}

func (b *Binding) detach() {
	b.conn = nil
}
