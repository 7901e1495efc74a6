// Package renderer holds the concrete cell renderers. Each decodes the JSON
// value the server sends for a cell; Button also handles clicks.
package renderer

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/five82/gridsync/internal/connector"
	"github.com/five82/gridsync/internal/protocol"
)

// Names used in column state.
const (
	TextName   = "text"
	NumberName = "number"
	MoneyName  = "money"
	ButtonName = "button"
)

// Register adds the built-in renderers to reg.
func Register(reg *connector.RendererRegistry) {
	reg.Register(TextName, func() connector.Renderer { return Text{} })
	reg.Register(NumberName, func() connector.Renderer { return Number{} })
	reg.Register(MoneyName, func() connector.Renderer { return Number{Decimals: 2} })
	reg.Register(ButtonName, func() connector.Renderer { return Button{} })
}

// Registry returns a registry with the built-in renderers.
func Registry() *connector.RendererRegistry {
	reg := connector.NewRendererRegistry()
	Register(reg)
	return reg
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Text renders a string value.
type Text struct{}

// PresentationType implements connector.Renderer.
func (Text) PresentationType() string { return "string" }

// Decode implements connector.Renderer. Missing values decode to "".
func (Text) Decode(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("text value: %w", err)
	}
	return s, nil
}

// NumberValue is a decoded number. Valid is false for a missing value.
type NumberValue struct {
	Value    float64
	Decimals int
	Valid    bool
}

func (n NumberValue) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', n.Decimals, 64)
}

// Number renders a numeric value with a fixed number of decimals.
type Number struct {
	Decimals int
}

// PresentationType implements connector.Renderer.
func (Number) PresentationType() string { return "number" }

// Decode implements connector.Renderer.
func (r Number) Decode(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return NumberValue{Decimals: r.Decimals}, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("number value: %w", err)
	}
	return NumberValue{Value: f, Decimals: r.Decimals, Valid: true}, nil
}

// ButtonValue is a decoded button caption.
type ButtonValue struct {
	Caption string
}

func (b ButtonValue) String() string {
	return "[" + b.Caption + "]"
}

// Button renders a clickable caption. Clicks are reported to the server with
// the row key and column id.
type Button struct{}

// PresentationType implements connector.Renderer.
func (Button) PresentationType() string { return "button" }

// Decode implements connector.Renderer.
func (Button) Decode(raw json.RawMessage) (any, error) {
	caption, err := Text{}.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("button caption: %w", err)
	}
	return ButtonValue{Caption: caption.(string)}, nil
}

// OnClick implements connector.Clickable.
func (Button) OnClick(b *connector.Binding, row int, details protocol.MouseDetails) error {
	key, err := b.RowKey(row)
	if err != nil {
		return err
	}
	return b.SendClick(key, details)
}

var (
	_ connector.Renderer  = Text{}
	_ connector.Renderer  = Number{}
	_ connector.Clickable = Button{}
)
