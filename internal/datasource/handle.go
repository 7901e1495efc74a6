package datasource

import "fmt"

// RowHandle identifies a row by its key rather than its position. Handles
// are comparable: two handles for the same key on the same source are equal
// and share pin state.
type RowHandle[T any] struct {
	key string
	ds  *DataSource[T]
}

// HandleByKey returns the handle for key. The handle is valid even when no
// row with that key is cached; Row fails with ErrNotAvailable until the data
// arrives.
func (ds *DataSource[T]) HandleByKey(key string) RowHandle[T] {
	return RowHandle[T]{key: key, ds: ds}
}

// HandleAt returns the handle of the row currently at index i.
func (ds *DataSource[T]) HandleAt(i int) (RowHandle[T], error) {
	row, err := ds.Row(i)
	if err != nil {
		return RowHandle[T]{}, err
	}
	key, ok := ds.keyOf(row)
	if !ok {
		return RowHandle[T]{}, fmt.Errorf("row %d: %w", i, ErrNoKey)
	}
	return ds.HandleByKey(key), nil
}

// Pin keeps the handle's row data regardless of the cached window. Rows
// without a key cannot be pinned.
func (ds *DataSource[T]) Pin(h RowHandle[T]) error {
	if h.key == "" {
		return fmt.Errorf("pin: %w", ErrNoKey)
	}
	if _, ok := ds.pinned[h.key]; ok {
		return nil
	}
	p := &pinnedRow[T]{index: -1}
	if i, ok := ds.keys[h.key]; ok {
		p.row = ds.rows[i]
		p.hasRow = true
		p.index = i
	}
	ds.pinned[h.key] = p
	ds.collab.SetPinned(h.key, true)
	return nil
}

// Unpin releases the retention guarantee. Cached data stays until the next
// eviction pass.
func (ds *DataSource[T]) Unpin(h RowHandle[T]) error {
	if h.key == "" {
		return fmt.Errorf("unpin: %w", ErrNoKey)
	}
	if _, ok := ds.pinned[h.key]; !ok {
		return nil
	}
	delete(ds.pinned, h.key)
	ds.collab.SetPinned(h.key, false)
	return nil
}

// Key returns the row key.
func (h RowHandle[T]) Key() string { return h.key }

// IsZero reports whether h is the zero handle.
func (h RowHandle[T]) IsZero() bool { return h.ds == nil }

// Row returns the row data, from the cache or from the pinned copy.
func (h RowHandle[T]) Row() (T, error) {
	var zero T
	if h.ds == nil {
		return zero, fmt.Errorf("zero handle: %w", ErrNotAvailable)
	}
	if i, ok := h.ds.keys[h.key]; ok {
		return h.ds.rows[i], nil
	}
	if p, ok := h.ds.pinned[h.key]; ok && p.hasRow {
		return p.row, nil
	}
	return zero, fmt.Errorf("row %q: %w", h.key, ErrNotAvailable)
}

// Index returns the row's current index, or -1 when unknown.
func (h RowHandle[T]) Index() int {
	if h.ds == nil {
		return -1
	}
	if i, ok := h.ds.keys[h.key]; ok {
		return i
	}
	if p, ok := h.ds.pinned[h.key]; ok {
		return p.index
	}
	return -1
}

// Pinned reports whether the handle is pinned.
func (h RowHandle[T]) Pinned() bool {
	if h.ds == nil {
		return false
	}
	_, ok := h.ds.pinned[h.key]
	return ok
}

// Stale reports whether the pinned row's last known position now holds a
// different row.
func (h RowHandle[T]) Stale() bool {
	if h.ds == nil {
		return false
	}
	p, ok := h.ds.pinned[h.key]
	return ok && p.stale
}

// Pin is shorthand for the source's Pin.
func (h RowHandle[T]) Pin() error {
	if h.ds == nil {
		return fmt.Errorf("pin zero handle: %w", ErrNoKey)
	}
	return h.ds.Pin(h)
}

// Unpin is shorthand for the source's Unpin.
func (h RowHandle[T]) Unpin() error {
	if h.ds == nil {
		return fmt.Errorf("unpin zero handle: %w", ErrNoKey)
	}
	return h.ds.Unpin(h)
}

func (h RowHandle[T]) String() string {
	return fmt.Sprintf("row(%s)", h.key)
}
