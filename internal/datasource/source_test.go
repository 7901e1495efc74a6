package datasource

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/gridsync/internal/span"
)

type testRow struct {
	key string
	val int
}

func keyOf(r testRow) (string, bool) {
	return r.key, r.key != ""
}

func rowsFor(first, count int, prefix string) []testRow {
	rows := make([]testRow, count)
	for i := range rows {
		rows[i] = testRow{key: fmt.Sprintf("%s%d", prefix, first+i), val: first + i}
	}
	return rows
}

type rowRequest struct {
	first, count int
	cached       span.Range
}

type pinCall struct {
	key    string
	pinned bool
}

type fakeCollaborator struct {
	requests []rowRequest
	pins     []pinCall
}

func (f *fakeCollaborator) RequestRows(first, count int, cached span.Range) {
	f.requests = append(f.requests, rowRequest{first: first, count: count, cached: cached})
}

func (f *fakeCollaborator) SetPinned(key string, pinned bool) {
	f.pins = append(f.pins, pinCall{key: key, pinned: pinned})
}

type recordingHandler struct {
	events []string
}

func (h *recordingHandler) DataUpdated(first, count int) {
	h.events = append(h.events, fmt.Sprintf("updated %d %d", first, count))
}

func (h *recordingHandler) DataRemoved(first, count int) {
	h.events = append(h.events, fmt.Sprintf("removed %d %d", first, count))
}

func (h *recordingHandler) DataAdded(first, count int) {
	h.events = append(h.events, fmt.Sprintf("added %d %d", first, count))
}

func (h *recordingHandler) DataAvailable(first, count int) {
	h.events = append(h.events, fmt.Sprintf("available %d %d", first, count))
}

func (h *recordingHandler) ResetDataAndSize(size int) {
	h.events = append(h.events, fmt.Sprintf("reset %d", size))
}

func newTestSource(t *testing.T, size int, strategy CacheStrategy) (*DataSource[testRow], *fakeCollaborator, *recordingHandler) {
	t.Helper()
	collab := &fakeCollaborator{}
	handler := &recordingHandler{}
	ds := New[testRow](collab, keyOf, Options{Strategy: strategy, Handler: handler})
	require.NoError(t, ds.ResetDataAndSize(size))
	handler.events = nil
	return ds, collab, handler
}

func requireInvariants(t *testing.T, ds *DataSource[testRow]) {
	t.Helper()
	bounds := span.New(0, ds.Size())
	require.Truef(t, ds.RequestedRange().IsSubsetOf(bounds), "requested %s outside %s", ds.RequestedRange(), bounds)
	require.Truef(t, ds.CachedRange().IsSubsetOf(ds.RequestedRange()), "cached %s outside requested %s", ds.CachedRange(), ds.RequestedRange())
	require.Equal(t, ds.CachedRange().Len(), len(ds.rows), "row map out of sync with cached range")
	for i := ds.CachedRange().Start(); i < ds.CachedRange().End(); i++ {
		_, err := ds.Row(i)
		require.NoErrorf(t, err, "cached row %d", i)
	}
}

func TestEnsureAvailability_RequestsMissingRows(t *testing.T) {
	ds, collab, _ := newTestSource(t, 100, NoPrefetch{})

	ds.EnsureAvailability(10, 20)

	require.Len(t, collab.requests, 1)
	assert.Equal(t, 10, collab.requests[0].first)
	assert.Equal(t, 20, collab.requests[0].count)
	assert.True(t, ds.IsWaitingForData())

	// Asking again while the request is in flight does not duplicate it.
	ds.EnsureAvailability(10, 20)
	assert.Len(t, collab.requests, 1)

	ds.SetRowData(10, rowsFor(10, 20, "r"))
	assert.False(t, ds.IsWaitingForData())
	assert.Equal(t, span.New(10, 30), ds.CachedRange())
	assert.Empty(t, ds.Pending())

	ds.EnsureAvailability(12, 10)
	assert.Len(t, collab.requests, 1, "fully cached viewport should not request")
}

func TestEnsureAvailability_PrefetchClippedToSize(t *testing.T) {
	ds, collab, _ := newTestSource(t, 50, DefaultStrategy())

	ds.EnsureAvailability(0, 10)

	require.Len(t, collab.requests, 1)
	// 20 rows minimum prefetch after the viewport, nothing before row 0.
	assert.Equal(t, rowRequest{first: 0, count: 30, cached: span.New(0, 0)}, collab.requests[0])
	assert.Equal(t, span.New(0, 30), ds.RequestedRange())
}

func TestEnsureAvailability_RequestsBothSidesOfCache(t *testing.T) {
	ds, collab, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(20, 10)
	ds.SetRowData(20, rowsFor(20, 10, "r"))
	collab.requests = nil

	ds.EnsureAvailability(15, 20)

	require.Len(t, collab.requests, 2)
	assert.Equal(t, 15, collab.requests[0].first)
	assert.Equal(t, 5, collab.requests[0].count)
	assert.Equal(t, 30, collab.requests[1].first)
	assert.Equal(t, 5, collab.requests[1].count)
	assert.Equal(t, span.New(20, 30), collab.requests[1].cached)
}

func TestSetRowData_SupersededResponseOnlyInstallsValidRows(t *testing.T) {
	ds, collab, _ := newTestSource(t, 100, NoPrefetch{})

	ds.EnsureAvailability(10, 20)
	ds.EnsureAvailability(15, 20)
	require.Len(t, collab.requests, 2)
	assert.Equal(t, rowRequest{first: 30, count: 5, cached: span.New(15, 15)}, collab.requests[1])

	// Response to the first, superseded request.
	ds.SetRowData(10, rowsFor(10, 20, "r"))

	assert.Equal(t, span.New(15, 30), ds.CachedRange())
	for i := 10; i < 15; i++ {
		_, err := ds.Row(i)
		assert.ErrorIsf(t, err, ErrNotAvailable, "row %d outside requested range must not be installed", i)
	}
	row, err := ds.Row(15)
	require.NoError(t, err)
	assert.Equal(t, "r15", row.key)
	assert.True(t, ds.IsWaitingForData(), "second request still pending for visible rows")
	requireInvariants(t, ds)

	ds.SetRowData(30, rowsFor(30, 5, "r"))
	assert.Equal(t, span.New(15, 35), ds.CachedRange())
	assert.False(t, ds.IsWaitingForData())
	assert.Len(t, collab.requests, 2)
}

func TestSetRowData_PartialPushKeepsRequestPending(t *testing.T) {
	ds, collab, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	require.Len(t, collab.requests, 1)

	// A single-row update pushed while the page is still on its way.
	ds.SetRowData(0, rowsFor(0, 1, "r"))

	assert.Len(t, collab.requests, 1, "the outstanding request already covers the rest")
	pending := ds.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, span.New(0, 10), pending[0].Range)
	assert.True(t, ds.IsWaitingForData())

	ds.SetRowData(0, rowsFor(0, 10, "r"))
	assert.Empty(t, ds.Pending())
	assert.False(t, ds.IsWaitingForData())
	assert.Len(t, collab.requests, 1)
}

func TestPending_AgeFromRequestID(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	assert.Zero(t, ds.OldestPending(time.Now()))

	ds.EnsureAvailability(0, 10)
	pending := ds.Pending()
	require.Len(t, pending, 1)

	later := time.Now().Add(3 * time.Second)
	age := pending[0].Age(later)
	assert.GreaterOrEqual(t, age, 3*time.Second)
	assert.Less(t, age, 4*time.Second)
	assert.Equal(t, age, ds.OldestPending(later))
	assert.Zero(t, pending[0].Age(time.Unix(0, 0)), "age is never negative")

	ds.SetRowData(0, rowsFor(0, 10, "r"))
	assert.Zero(t, ds.OldestPending(later))
}

func TestSetRowData_UnrequestedDataIgnored(t *testing.T) {
	ds, _, handler := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)

	ds.SetRowData(60, rowsFor(60, 10, "r"))

	assert.True(t, ds.CachedRange().IsEmpty())
	assert.Empty(t, handler.events)
}

func TestSetRowData_DisjointResponseReplacesCache(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))

	ds.EnsureAvailability(0, 60)
	ds.SetRowData(40, rowsFor(40, 5, "r"))

	assert.Equal(t, span.New(40, 45), ds.CachedRange())
	_, err := ds.Row(3)
	assert.ErrorIs(t, err, ErrNotAvailable)
	requireInvariants(t, ds)
}

func TestRow_OutOfBounds(t *testing.T) {
	ds, _, _ := newTestSource(t, 10, NoPrefetch{})

	_, err := ds.Row(-1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = ds.Row(10)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = ds.Row(5)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestInsertRowData_BeforeCacheShiftsRows(t *testing.T) {
	ds, collab, handler := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))
	handler.events = nil
	collab.requests = nil

	require.NoError(t, ds.InsertRowData(0, 2))

	assert.Equal(t, 102, ds.Size())
	assert.Equal(t, []string{"added 0 2", "available 2 10"}, handler.events)
	row, err := ds.Row(2)
	require.NoError(t, err)
	assert.Equal(t, "r0", row.key)
	assert.Equal(t, 2, ds.HandleByKey("r0").Index())
	// Rows pushed past the viewport are evicted, the gap at the top requested.
	assert.Equal(t, span.New(2, 10), ds.CachedRange())
	require.Len(t, collab.requests, 1)
	assert.Equal(t, 0, collab.requests[0].first)
	assert.Equal(t, 2, collab.requests[0].count)
	requireInvariants(t, ds)
}

func TestInsertRowData_InsideCacheTruncates(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))

	require.NoError(t, ds.InsertRowData(4, 3))

	assert.Equal(t, span.New(0, 4), ds.CachedRange())
	_, err := ds.Row(5)
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, -1, ds.HandleByKey("r6").Index())
	requireInvariants(t, ds)
}

func TestRemoveRowData_ShiftsRemainder(t *testing.T) {
	ds, collab, handler := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))
	handler.events = nil
	collab.requests = nil

	require.NoError(t, ds.RemoveRowData(3, 2))

	assert.Equal(t, 98, ds.Size())
	assert.Equal(t, []string{"removed 3 2", "available 0 8"}, handler.events)
	row, err := ds.Row(3)
	require.NoError(t, err)
	assert.Equal(t, "r5", row.key)
	assert.Equal(t, -1, ds.HandleByKey("r3").Index())
	require.Len(t, collab.requests, 1)
	assert.Equal(t, 8, collab.requests[0].first)
	assert.Equal(t, 2, collab.requests[0].count)
	requireInvariants(t, ds)

	assert.ErrorIs(t, ds.RemoveRowData(95, 10), ErrOutOfBounds)
	assert.ErrorIs(t, ds.InsertRowData(99, 1), ErrOutOfBounds)
}

func TestResetDataAndSize_DiscardsCacheAndRerequests(t *testing.T) {
	ds, collab, handler := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))
	collab.requests = nil
	handler.events = nil

	require.NoError(t, ds.ResetDataAndSize(5))

	assert.Equal(t, []string{"reset 5"}, handler.events)
	assert.True(t, ds.CachedRange().IsEmpty())
	require.Len(t, collab.requests, 1)
	assert.Equal(t, rowRequest{first: 0, count: 5, cached: span.New(0, 0)}, collab.requests[0])
	assert.Error(t, ds.ResetDataAndSize(-1))
}

func TestLoadingIndicator_Transitions(t *testing.T) {
	var transitions []bool
	collab := &fakeCollaborator{}
	ds := New[testRow](collab, keyOf, Options{
		Strategy:  NoPrefetch{},
		OnLoading: func(loading bool) { transitions = append(transitions, loading) },
	})
	require.NoError(t, ds.ResetDataAndSize(100))

	ds.EnsureAvailability(0, 10)
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))

	assert.Equal(t, []bool{true, false}, transitions)
}

func TestCacheBoundsInvariant_RandomOperations(t *testing.T) {
	strategies := map[string]CacheStrategy{
		"no prefetch": NoPrefetch{},
		"default":     DefaultStrategy(),
	}
	for name, strategy := range strategies {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(7, 11))
			ds, collab, _ := newTestSource(t, 120, strategy)

			for step := 0; step < 2000; step++ {
				switch rng.IntN(6) {
				case 0:
					ds.EnsureAvailability(rng.IntN(ds.Size()+10), rng.IntN(30))
				case 1:
					if pending := ds.Pending(); len(pending) > 0 {
						p := pending[rng.IntN(len(pending))]
						ds.SetRowData(p.Range.Start(), rowsFor(p.Range.Start(), p.Range.Len(), "r"))
					}
				case 2:
					if len(collab.requests) > 0 {
						r := collab.requests[rng.IntN(len(collab.requests))]
						ds.SetRowData(r.first, rowsFor(r.first, r.count, "old"))
					}
				case 3:
					require.NoError(t, ds.InsertRowData(rng.IntN(ds.Size()+1), rng.IntN(5)))
				case 4:
					if ds.Size() > 0 {
						first := rng.IntN(ds.Size())
						require.NoError(t, ds.RemoveRowData(first, rng.IntN(min(5, ds.Size()-first)+1)))
					}
				case 5:
					if rng.IntN(10) == 0 {
						require.NoError(t, ds.ResetDataAndSize(rng.IntN(200)))
					}
				}
				requireInvariants(t, ds)
			}
		})
	}
}
