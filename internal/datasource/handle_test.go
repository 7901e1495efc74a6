package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleByKey_IdentityAndSharedPinState(t *testing.T) {
	ds, collab, _ := newTestSource(t, 100, NoPrefetch{})

	a := ds.HandleByKey("r5")
	b := ds.HandleByKey("r5")
	require.Equal(t, a, b)
	assert.True(t, a == b)

	a.Pin()
	b.Pin()
	assert.True(t, b.Pinned())
	assert.Equal(t, []pinCall{{key: "r5", pinned: true}}, collab.pins, "pin notifies once per transition")

	b.Unpin()
	a.Unpin()
	assert.False(t, a.Pinned())
	assert.Equal(t, []pinCall{{key: "r5", pinned: true}, {key: "r5", pinned: false}}, collab.pins)
}

func TestHandle_RowBeforeDataArrives(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	h := ds.HandleByKey("r3")

	_, err := h.Row()
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, -1, h.Index())

	h.Pin()
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))

	row, err := h.Row()
	require.NoError(t, err)
	assert.Equal(t, 3, row.val)
	assert.Equal(t, 3, h.Index())
}

func TestPin_SurvivesEviction(t *testing.T) {
	ds, collab, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))

	pinned := ds.HandleByKey("r5")
	pinned.Pin()
	loose := ds.HandleByKey("r6")

	for _, first := range []int{20, 40, 60} {
		ds.EnsureAvailability(first, 10)
		ds.SetRowData(first, rowsFor(first, 10, "r"))
	}
	require.False(t, ds.CachedRange().Contains(5))

	row, err := pinned.Row()
	require.NoError(t, err)
	assert.Equal(t, "r5", row.key)
	_, err = loose.Row()
	assert.ErrorIs(t, err, ErrNotAvailable, "unpinned rows are evicted with the window")

	// Scrolling back: the pinned row is served before the response arrives.
	requests := len(collab.requests)
	ds.EnsureAvailability(0, 10)
	require.Len(t, collab.requests, requests+1)
	row, err = ds.Row(5)
	require.NoError(t, err)
	assert.Equal(t, "r5", row.key)
	_, err = ds.Row(6)
	assert.ErrorIs(t, err, ErrNotAvailable)
	requireInvariants(t, ds)
}

func TestPin_MarkedStaleWhenKeyMoves(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))
	h := ds.HandleByKey("r5")
	h.Pin()

	ds.EnsureAvailability(50, 10)
	ds.EnsureAvailability(0, 10)
	// The server changed its data: index 5 now holds a different row.
	ds.SetRowData(0, rowsFor(0, 10, "x"))

	assert.True(t, h.Stale())
	assert.Equal(t, -1, h.Index())
	row, err := h.Row()
	require.NoError(t, err, "stale pinned data is still retained")
	assert.Equal(t, "r5", row.key)

	current, err := ds.Row(5)
	require.NoError(t, err)
	assert.Equal(t, "x5", current.key)

	// The key shows up again elsewhere and the handle rebinds.
	ds.EnsureAvailability(0, 20)
	ds.SetRowData(10, []testRow{{key: "r5", val: 55}})
	assert.False(t, h.Stale())
	assert.Equal(t, 10, h.Index())
	row, err = h.Row()
	require.NoError(t, err)
	assert.Equal(t, 55, row.val)
}

func TestUnpin_DataDiscardedOnNextEviction(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))
	h := ds.HandleByKey("r2")
	h.Pin()
	h.Unpin()

	row, err := h.Row()
	require.NoError(t, err, "still cached until evicted")
	assert.Equal(t, "r2", row.key)

	ds.EnsureAvailability(50, 10)
	_, err = h.Row()
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestRemoveRowData_PinnedRowLosesPosition(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	ds.SetRowData(0, rowsFor(0, 10, "r"))
	removed := ds.HandleByKey("r4")
	removed.Pin()
	shifted := ds.HandleByKey("r8")
	shifted.Pin()

	require.NoError(t, ds.RemoveRowData(3, 2))

	assert.Equal(t, -1, removed.Index())
	_, err := removed.Row()
	assert.NoError(t, err)
	assert.Equal(t, 6, shifted.Index())
}

func TestHandleAt(t *testing.T) {
	ds, _, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	rows := rowsFor(0, 10, "r")
	rows[7].key = ""
	ds.SetRowData(0, rows)

	h, err := ds.HandleAt(3)
	require.NoError(t, err)
	assert.Equal(t, "r3", h.Key())

	_, err = ds.HandleAt(7)
	assert.ErrorIs(t, err, ErrNoKey)
	_, err = ds.HandleAt(50)
	assert.ErrorIs(t, err, ErrNotAvailable)
	_, err = ds.HandleAt(500)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestPin_RowWithoutKeyRefused(t *testing.T) {
	ds, collab, _ := newTestSource(t, 100, NoPrefetch{})
	ds.EnsureAvailability(0, 10)
	rows := rowsFor(0, 10, "r")
	rows[2].key = ""
	ds.SetRowData(0, rows)

	_, err := ds.HandleAt(2)
	require.ErrorIs(t, err, ErrNoKey)

	assert.ErrorIs(t, ds.HandleByKey("").Pin(), ErrNoKey)
	assert.ErrorIs(t, ds.HandleByKey("").Unpin(), ErrNoKey)
	var zero RowHandle[testRow]
	assert.ErrorIs(t, zero.Pin(), ErrNoKey)
	assert.ErrorIs(t, zero.Unpin(), ErrNoKey)
	assert.Empty(t, collab.pins)

	require.NoError(t, ds.HandleByKey("r3").Pin())
	assert.Equal(t, []pinCall{{key: "r3", pinned: true}}, collab.pins)
}
