// Package protocol defines the JSON messages exchanged between a grid client
// and a grid server.
//
// # Overview
//
// Messages travel over a websocket as JSON text frames. The client sends one
// ClientMessage per call; the server sends ServerMessages that bundle any
// number of RPC invocations with an optional state diff.
//
//	client ── ClientMessage{method, params} ──────────────> server
//	client <── ServerMessage{rpc: [...], state: {...}} ──── server
//
// # Ordering
//
// Within one ServerMessage the RPC invocations are applied before the state
// diff. Row data carried by setRowData must already be in the client cache
// when, for example, a newly added column reads it.
//
// # State Diffs
//
// StateDiff fields are pointers. A nil field means "unchanged"; a non-nil
// pointer to an empty slice means "now empty". Merge folds a diff into an
// accumulated state, which is how the server keeps its authoritative copy.
//
// # Client Methods
//
//   - requestRows: firstRow, count, cachedStart, cachedLength
//   - setPinned: key, pinned
//   - selectionChange: selectedKeys
//   - sort: columnIds, directions, userOriginated
//   - selectAll
//   - editorBind, editorSave, editorCancel: rowIndex (save adds values)
//   - click: rowKey, columnId, details
//
// # Server Methods
//
//   - setRowData, insertRowData, removeRowData, resetDataAndSize
//   - scrollToStart, scrollToEnd, scrollToRow
//   - editorBind, editorCancel, confirmBind, confirmSave
//
// # Header and Footer Cells
//
// Cells are TEXT, HTML or WIDGET. CellState.Content converts the wire form
// into the closed CellContent sum type so callers switch on a Go type rather
// than a string.
package protocol
