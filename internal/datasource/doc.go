// Package datasource implements the client-side windowed row cache that feeds
// the grid widget from a remote, lazily-fetched dataset.
//
// # Overview
//
// A DataSource holds a contiguous window of rows indexed by absolute position.
// The widget tells it which rows are visible (EnsureAvailability); the source
// works out which rows it wants cached around that viewport, asks the server
// collaborator for whatever is missing, and merges the rows pushed back.
//
//	viewport ──> CacheStrategy ──> requested ──> RequestRows ──> server
//	                                  ▲                            │
//	                                  │  bounds check              │
//	widget <── DataChangeHandler <── cached <── SetRowData <───────┘
//
// # Ranges
//
// Three ranges describe the window at any moment:
//
//   - viewport: the rows last passed to EnsureAvailability
//   - requested: the working set computed from the viewport, clipped to
//     [0, Size)
//   - cached: the rows actually held; always a subset of requested
//
// # Stale Responses
//
// Requests are never cancelled. When the viewport moves before a response
// arrives, the response is clipped against the current requested range and
// the remainder is dropped silently (logged at glog V(2)). Responses are
// applied in arrival order; no sequence numbers are involved.
//
// # Row Identity and Pinning
//
// Rows carry a stable key supplied by a KeyFunc. HandleByKey returns a
// RowHandle that identifies a row by key rather than position; two handles
// with the same key compare equal and share pin state. Pinning keeps the
// row's data after it leaves the cached window and tells the collaborator so
// the server keeps serving it under the same key. Pin and Unpin are
// idempotent and notify the collaborator only on a real transition.
//
// # Error Handling
//
//   - ErrOutOfBounds: index outside [0, Size); a caller bug
//   - ErrNotAvailable: the row is valid but not cached right now
//   - ErrNoKey: the row has no external identity
//
// # Concurrency
//
// DataSource is not safe for concurrent use. It is owned by the single
// event loop that also drives the widget and receives server pushes.
package datasource
