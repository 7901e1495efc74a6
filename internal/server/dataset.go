package server

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/five82/gridsync/internal/protocol"
)

// Column ids of the demo dataset.
const (
	ColID       = "id"
	ColName     = "name"
	ColQuantity = "quantity"
	ColPrice    = "price"
	ColAction   = "action"
)

const lowStock = 10

// Item is one product in the dataset.
type Item struct {
	ID       int
	Name     string
	Quantity int
	Price    float64
}

// Key returns the row key of the item.
func (it Item) Key() string { return strconv.Itoa(it.ID) }

// ValidationError lists the fields an update rejected.
type ValidationError struct {
	Message   string
	ColumnIDs []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(e.ColumnIDs, ", "))
}

var (
	adjectives = []string{"Red", "Blue", "Green", "Heavy", "Light", "Smart", "Tiny", "Giant", "Quiet", "Rapid"}
	nouns      = []string{"Widget", "Gadget", "Sprocket", "Bracket", "Gear", "Lever", "Valve", "Spring", "Bolt", "Panel"}
)

// Dataset is an ordered, keyed list of items. It is not safe for concurrent
// use; the server serializes access.
type Dataset struct {
	items  []Item
	nextID int
	rng    *rand.Rand
}

// NewDataset generates n items deterministically from seed.
func NewDataset(n int, seed uint64) *Dataset {
	d := &Dataset{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	d.items = make([]Item, 0, n)
	for range n {
		d.items = append(d.items, d.generate())
	}
	return d
}

func (d *Dataset) generate() Item {
	d.nextID++
	return Item{
		ID:       d.nextID,
		Name:     adjectives[d.rng.IntN(len(adjectives))] + " " + nouns[d.rng.IntN(len(nouns))],
		Quantity: d.rng.IntN(100),
		Price:    float64(d.rng.IntN(100000)) / 100,
	}
}

// Len returns the number of items.
func (d *Dataset) Len() int { return len(d.items) }

// Keys returns every row key in order.
func (d *Dataset) Keys() []string {
	keys := make([]string, len(d.items))
	for i, it := range d.items {
		keys[i] = it.Key()
	}
	return keys
}

// Item returns the item at index i.
func (d *Dataset) Item(i int) (Item, bool) {
	if i < 0 || i >= len(d.items) {
		return Item{}, false
	}
	return d.items[i], true
}

// IndexOf returns the index of the item with key, or -1.
func (d *Dataset) IndexOf(key string) int {
	return slices.IndexFunc(d.items, func(it Item) bool { return it.Key() == key })
}

// Rows returns the wire rows for [first, first+count) clipped to the
// dataset.
func (d *Dataset) Rows(first, count int) []protocol.Row {
	first = max(first, 0)
	end := min(first+count, len(d.items))
	if first >= end {
		return []protocol.Row{}
	}
	rows := make([]protocol.Row, 0, end-first)
	for _, it := range d.items[first:end] {
		rows = append(rows, toRow(it))
	}
	return rows
}

func toRow(it Item) protocol.Row {
	row := protocol.Row{
		Key: it.Key(),
		Data: map[string]json.RawMessage{
			ColID:       mustJSON(it.ID),
			ColName:     mustJSON(it.Name),
			ColQuantity: mustJSON(it.Quantity),
			ColPrice:    mustJSON(it.Price),
			ColAction:   mustJSON("Order"),
		},
	}
	if it.Quantity < lowStock {
		row.RowStyle = "low-stock"
	}
	if it.Quantity == 0 {
		row.CellStyles = map[string]string{ColQuantity: "sold-out"}
	}
	return row
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// Sort orders the items by the given columns. Sorting is stable, so equal
// items keep their previous relative order.
func (d *Dataset) Sort(ids []string, dirs []protocol.SortDirection) error {
	if len(ids) != len(dirs) {
		return fmt.Errorf("sort: %d columns but %d directions", len(ids), len(dirs))
	}
	cmps := make([]func(a, b Item) int, len(ids))
	for i, id := range ids {
		c, err := comparator(id)
		if err != nil {
			return err
		}
		if dirs[i] == protocol.Descending {
			asc := c
			c = func(a, b Item) int { return asc(b, a) }
		}
		cmps[i] = c
	}
	if len(cmps) == 0 {
		cmps = append(cmps, func(a, b Item) int { return cmp.Compare(a.ID, b.ID) })
	}
	slices.SortStableFunc(d.items, func(a, b Item) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	})
	return nil
}

func comparator(id string) (func(a, b Item) int, error) {
	switch id {
	case ColID:
		return func(a, b Item) int { return cmp.Compare(a.ID, b.ID) }, nil
	case ColName:
		return func(a, b Item) int { return strings.Compare(a.Name, b.Name) }, nil
	case ColQuantity:
		return func(a, b Item) int { return cmp.Compare(a.Quantity, b.Quantity) }, nil
	case ColPrice:
		return func(a, b Item) int { return cmp.Compare(a.Price, b.Price) }, nil
	default:
		return nil, fmt.Errorf("column %q is not sortable", id)
	}
}

// Insert adds n generated items at index at and returns them.
func (d *Dataset) Insert(at, n int) ([]Item, error) {
	if at < 0 || at > len(d.items) || n < 0 {
		return nil, fmt.Errorf("insert %d items at %d of %d: out of range", n, at, len(d.items))
	}
	added := make([]Item, n)
	for i := range added {
		added[i] = d.generate()
	}
	d.items = slices.Insert(d.items, at, added...)
	return added, nil
}

// Remove deletes n items starting at index at and returns them.
func (d *Dataset) Remove(at, n int) ([]Item, error) {
	if at < 0 || n < 0 || at+n > len(d.items) {
		return nil, fmt.Errorf("remove %d items at %d of %d: out of range", n, at, len(d.items))
	}
	removed := slices.Clone(d.items[at : at+n])
	d.items = slices.Delete(d.items, at, at+n)
	return removed, nil
}

// Update applies editor values to the item with key. Unknown fields are
// ignored. Nothing is changed when any value is invalid.
func (d *Dataset) Update(key string, values map[string]string) (Item, error) {
	i := d.IndexOf(key)
	if i < 0 {
		return Item{}, fmt.Errorf("update %q: no such row", key)
	}
	it := d.items[i]
	var bad []string
	if v, ok := values[ColName]; ok {
		if name := strings.TrimSpace(v); name != "" {
			it.Name = name
		} else {
			bad = append(bad, ColName)
		}
	}
	if v, ok := values[ColQuantity]; ok {
		if q, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && q >= 0 {
			it.Quantity = q
		} else {
			bad = append(bad, ColQuantity)
		}
	}
	if v, ok := values[ColPrice]; ok {
		if p, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && p >= 0 {
			it.Price = p
		} else {
			bad = append(bad, ColPrice)
		}
	}
	if len(bad) > 0 {
		return Item{}, &ValidationError{Message: "invalid values", ColumnIDs: bad}
	}
	d.items[i] = it
	return it, nil
}

// Order takes one unit of the item with key out of stock. It reports false
// when the item is sold out or missing.
func (d *Dataset) Order(key string) (Item, bool) {
	i := d.IndexOf(key)
	if i < 0 || d.items[i].Quantity == 0 {
		return Item{}, false
	}
	d.items[i].Quantity--
	return d.items[i], true
}

// RandomIndex returns an index in [0, n) from the dataset's generator.
func (d *Dataset) RandomIndex(n int) int {
	if n <= 0 {
		return 0
	}
	return d.rng.IntN(n)
}
