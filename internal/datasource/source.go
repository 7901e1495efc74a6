package datasource

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"github.com/five82/gridsync/internal/span"
)

// KeyFunc extracts the stable external key of a row. ok is false when the row
// has no identity; selection and pinning by key are unavailable for it.
type KeyFunc[T any] func(row T) (key string, ok bool)

// Collaborator is the server side of the data source. Both calls are
// fire-and-forget; responses arrive later through the push methods.
type Collaborator interface {
	RequestRows(first, count int, cached span.Range)
	SetPinned(key string, pinned bool)
}

// DataChangeHandler receives notifications about cache changes, typically
// the grid widget.
type DataChangeHandler interface {
	DataUpdated(first, count int)
	DataRemoved(first, count int)
	DataAdded(first, count int)
	DataAvailable(first, count int)
	ResetDataAndSize(size int)
}

// PendingRequest is a row request that has been sent and not yet answered.
// The ID carries the time the request was issued.
type PendingRequest struct {
	ID    ulid.ULID
	Range span.Range
}

// Age returns how long the request has been outstanding at now.
func (p PendingRequest) Age(now time.Time) time.Duration {
	return max(now.Sub(ulid.Time(p.ID.Time())), 0)
}

// OldestPending returns the age of the longest outstanding request, or zero
// when nothing is pending.
func (ds *DataSource[T]) OldestPending(now time.Time) time.Duration {
	var oldest time.Duration
	for _, p := range ds.pending {
		oldest = max(oldest, p.Age(now))
	}
	return oldest
}

// Options configure a DataSource.
type Options struct {
	Strategy CacheStrategy     // nil uses DefaultStrategy
	Handler  DataChangeHandler // may be set later with SetHandler
	// OnLoading is called when the loading indicator should be shown or
	// hidden.
	OnLoading func(loading bool)
}

type pinnedRow[T any] struct {
	row    T
	hasRow bool
	index  int // last known index, -1 when unknown
	stale  bool
}

// DataSource is a windowed cache over a remote row set.
type DataSource[T any] struct {
	collab    Collaborator
	keyOf     KeyFunc[T]
	strategy  CacheStrategy
	handler   DataChangeHandler
	onLoading func(bool)

	size      int
	viewport  span.Range
	requested span.Range
	cached    span.Range
	rows      map[int]T
	keys      map[string]int
	pinned    map[string]*pinnedRow[T]
	pending   []PendingRequest
	loading   bool
}

// New creates an empty data source. The size stays zero until the server
// reports it with ResetDataAndSize.
func New[T any](collab Collaborator, keyOf KeyFunc[T], opts Options) *DataSource[T] {
	strategy := opts.Strategy
	if strategy == nil {
		strategy = DefaultStrategy()
	}
	handler := opts.Handler
	if handler == nil {
		handler = noopHandler{}
	}
	return &DataSource[T]{
		collab:    collab,
		keyOf:     keyOf,
		strategy:  strategy,
		handler:   handler,
		onLoading: opts.OnLoading,
		rows:      make(map[int]T),
		keys:      make(map[string]int),
		pinned:    make(map[string]*pinnedRow[T]),
	}
}

// SetHandler replaces the data change handler.
func (ds *DataSource[T]) SetHandler(h DataChangeHandler) {
	if h == nil {
		h = noopHandler{}
	}
	ds.handler = h
}

// Size returns the total number of rows reported by the server.
func (ds *DataSource[T]) Size() int { return ds.size }

// CachedRange returns the rows currently held.
func (ds *DataSource[T]) CachedRange() span.Range { return ds.cached }

// RequestedRange returns the working set the source wants cached.
func (ds *DataSource[T]) RequestedRange() span.Range { return ds.requested }

// Viewport returns the range last passed to EnsureAvailability.
func (ds *DataSource[T]) Viewport() span.Range { return ds.viewport }

// IsWaitingForData reports whether a pending request touches the viewport.
func (ds *DataSource[T]) IsWaitingForData() bool { return ds.loading }

// Pending returns a copy of the outstanding requests.
func (ds *DataSource[T]) Pending() []PendingRequest {
	out := make([]PendingRequest, len(ds.pending))
	copy(out, ds.pending)
	return out
}

// EnsureAvailability records the visible rows and requests whatever part of
// the resulting working set is neither cached nor already on its way. It
// never blocks.
func (ds *DataSource[T]) EnsureAvailability(first, count int) {
	if count < 0 {
		count = 0
	}
	ds.viewport = span.WithLength(first, count)
	ds.checkCacheCoverage()
}

// Row returns the row at index i.
func (ds *DataSource[T]) Row(i int) (T, error) {
	var zero T
	if i < 0 || i >= ds.size {
		return zero, fmt.Errorf("row %d of %d: %w", i, ds.size, ErrOutOfBounds)
	}
	if ds.cached.Contains(i) {
		if row, ok := ds.rows[i]; ok {
			return row, nil
		}
	}
	for _, p := range ds.pinned {
		if p.hasRow && !p.stale && p.index == i {
			return p.row, nil
		}
	}
	return zero, fmt.Errorf("row %d: %w", i, ErrNotAvailable)
}

// SetRowData merges rows starting at first. Rows outside the current working
// set are stale and dropped.
func (ds *DataSource[T]) SetRowData(first int, rows []T) {
	received := span.WithLength(first, len(rows))
	useful := received.Intersection(ds.requested)
	if dropped := received.Len() - useful.Len(); dropped > 0 {
		glog.V(2).Infof("datasource: dropped %d stale rows of %s (requested %s)", dropped, received, ds.requested)
	}
	ds.settle(received)

	if !useful.IsEmpty() {
		combined, err := ds.cached.CombineWith(useful)
		if err != nil {
			// Disjoint from what we hold; the new rows win.
			ds.evictRange(ds.cached)
			combined = useful
		}
		ds.cached = combined
		for i := useful.Start(); i < useful.End(); i++ {
			ds.install(i, rows[i-first])
		}
		ds.handler.DataUpdated(useful.Start(), useful.Len())
		ds.handler.DataAvailable(ds.cached.Start(), ds.cached.Len())
	}
	ds.checkCacheCoverage()
}

// InsertRowData shifts the data source for count rows inserted at first.
func (ds *DataSource[T]) InsertRowData(first, count int) error {
	if first < 0 || first > ds.size || count < 0 {
		return fmt.Errorf("insert %d rows at %d of %d: %w", count, first, ds.size, ErrOutOfBounds)
	}
	if count == 0 {
		return nil
	}
	ds.size += count

	switch {
	case first <= ds.cached.Start():
		ds.remap(func(i int) int { return i + count })
		ds.cached = ds.cached.Offset(count)
	case first < ds.cached.End():
		keep, drop := ds.cached.SplitAt(first)
		ds.evictRange(drop)
		ds.cached = keep
	}
	for _, p := range ds.pinned {
		if p.index >= first {
			p.index += count
		}
	}
	ds.pending = nil

	ds.handler.DataAdded(first, count)
	ds.notifyAvailable()
	ds.checkCacheCoverage()
	return nil
}

// RemoveRowData shifts the data source for count rows removed at first.
func (ds *DataSource[T]) RemoveRowData(first, count int) error {
	if first < 0 || count < 0 || first+count > ds.size {
		return fmt.Errorf("remove %d rows at %d of %d: %w", count, first, ds.size, ErrOutOfBounds)
	}
	if count == 0 {
		return nil
	}
	ds.size -= count
	removed := span.WithLength(first, count)

	before, inside, after := ds.cached.PartitionWith(removed)
	ds.evictRange(inside)
	ds.remap(func(i int) int {
		if i >= removed.End() {
			return i - count
		}
		return i
	})
	shifted := after.Offset(-count)
	cached, err := before.CombineWith(shifted)
	if err != nil {
		// before ends where removed starts and shifted begins there too.
		panic(fmt.Sprintf("datasource: remove left a gap between %s and %s", before, shifted))
	}
	ds.cached = cached

	for _, p := range ds.pinned {
		switch {
		case removed.Contains(p.index):
			p.index = -1
		case p.index >= removed.End():
			p.index -= count
		}
	}
	ds.pending = nil

	ds.handler.DataRemoved(first, count)
	ds.notifyAvailable()
	ds.checkCacheCoverage()
	return nil
}

// ResetDataAndSize discards the whole cache. Pinned rows keep their data but
// lose their position until the server sends them again.
func (ds *DataSource[T]) ResetDataAndSize(size int) error {
	if size < 0 {
		return fmt.Errorf("reset to size %d: %w", size, ErrOutOfBounds)
	}
	ds.evictRange(ds.cached)
	ds.cached = span.Empty()
	ds.size = size
	ds.pending = nil
	for _, p := range ds.pinned {
		p.index = -1
	}
	ds.handler.ResetDataAndSize(size)
	ds.checkCacheCoverage()
	return nil
}

func (ds *DataSource[T]) checkCacheCoverage() {
	ds.requested = ds.strategy.WorkingSet(ds.viewport).RestrictTo(span.New(0, ds.size))

	keep := ds.cached.RestrictTo(ds.requested)
	if keep != ds.cached {
		b, _, a := ds.cached.PartitionWith(keep)
		ds.evictRange(b)
		ds.evictRange(a)
		if keep.IsEmpty() {
			keep = span.WithLength(ds.requested.Start(), 0)
		}
		ds.cached = keep
	}

	live := ds.pending[:0]
	for _, p := range ds.pending {
		want := p.Range.Intersection(ds.requested)
		if !want.IsEmpty() && !want.IsSubsetOf(ds.cached) {
			live = append(live, p)
		} else {
			glog.V(2).Infof("datasource: request %s for %s superseded", p.ID, p.Range)
		}
	}
	ds.pending = live

	var missing []span.Range
	for _, gap := range ds.requested.Subtract(ds.cached) {
		missing = append(missing, ds.uncovered(gap)...)
	}
	issued := make([]PendingRequest, 0, len(missing))
	for _, r := range missing {
		req := PendingRequest{ID: ulid.Make(), Range: r}
		ds.pending = append(ds.pending, req)
		issued = append(issued, req)
	}
	ds.updateLoading()

	cached := ds.cached
	for _, req := range issued {
		glog.V(2).Infof("datasource: request %s rows %s (cached %s)", req.ID, req.Range, cached)
		ds.collab.RequestRows(req.Range.Start(), req.Range.Len(), cached)
	}
}

// uncovered returns the parts of r not already covered by a pending request.
func (ds *DataSource[T]) uncovered(r span.Range) []span.Range {
	parts := []span.Range{r}
	for _, p := range ds.pending {
		var next []span.Range
		for _, part := range parts {
			next = append(next, part.Subtract(p.Range)...)
		}
		parts = next
	}
	return parts
}

// settle forgets the pending requests fully covered by received. A push
// that covers only part of a request leaves it pending.
func (ds *DataSource[T]) settle(received span.Range) {
	live := ds.pending[:0]
	for _, p := range ds.pending {
		if p.Range.IsSubsetOf(received) {
			glog.V(2).Infof("datasource: request %s for %s answered after %s", p.ID, p.Range, p.Age(time.Now()))
			continue
		}
		live = append(live, p)
	}
	ds.pending = live
}

func (ds *DataSource[T]) updateLoading() {
	waiting := false
	for _, p := range ds.pending {
		if p.Range.Intersects(ds.viewport) {
			waiting = true
			break
		}
	}
	if waiting == ds.loading {
		return
	}
	ds.loading = waiting
	if ds.onLoading != nil {
		ds.onLoading(waiting)
	}
}

func (ds *DataSource[T]) notifyAvailable() {
	if !ds.cached.IsEmpty() {
		ds.handler.DataAvailable(ds.cached.Start(), ds.cached.Len())
	}
}

func (ds *DataSource[T]) install(i int, row T) {
	ds.evict(i)
	ds.rows[i] = row

	key, ok := ds.keyOf(row)
	if ok {
		ds.keys[key] = i
		if p, pinned := ds.pinned[key]; pinned {
			p.row = row
			p.hasRow = true
			p.index = i
			p.stale = false
		}
	}
	for k, p := range ds.pinned {
		if p.index == i && (!ok || k != key) {
			p.index = -1
			p.stale = true
		}
	}
}

func (ds *DataSource[T]) evict(i int) {
	row, ok := ds.rows[i]
	if !ok {
		return
	}
	delete(ds.rows, i)
	if key, ok := ds.keyOf(row); ok && ds.keys[key] == i {
		delete(ds.keys, key)
	}
}

func (ds *DataSource[T]) evictRange(r span.Range) {
	for i := r.Start(); i < r.End(); i++ {
		ds.evict(i)
	}
}

// remap moves every cached row to a new index.
func (ds *DataSource[T]) remap(move func(i int) int) {
	rows := make(map[int]T, len(ds.rows))
	keys := make(map[string]int, len(ds.keys))
	for i, row := range ds.rows {
		j := move(i)
		rows[j] = row
		if key, ok := ds.keyOf(row); ok {
			keys[key] = j
		}
	}
	ds.rows = rows
	ds.keys = keys
}

type noopHandler struct{}

func (noopHandler) DataUpdated(int, int)   {}
func (noopHandler) DataRemoved(int, int)   {}
func (noopHandler) DataAdded(int, int)     {}
func (noopHandler) DataAvailable(int, int) {}
func (noopHandler) ResetDataAndSize(int)   {}
