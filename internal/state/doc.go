// Package state provides the thread-safe connection status shared by the
// reconnect loop and the grid UI.
//
// # Overview
//
// The reconnect loop in package app is the only writer. It records each dial
// attempt, each established connection and each disconnect. The UI reads a
// Snapshot whenever it renders its status line, so it never blocks on
// network I/O.
//
//	Reconnect loop:                 UI:
//	SetConnecting(url)
//	SetConnected(url)     ──────→   Snapshot()
//	CountMessage() ...                 ↓
//	SetDisconnected(err, retryAt)   render status line
//
// # Failure Accounting
//
// SetDisconnected with a non-nil error increments ConsecutiveFailures and
// keeps the error for display; SetConnected resets both. A clean close (nil
// error) leaves the counter alone. IsOffline reports two or more failures in
// a row, which the UI shows as "offline" rather than "reconnecting".
//
// # Concurrency
//
// Store uses a sync.RWMutex. Snapshot returns a copy with the error wrapped
// anew so callers never share the stored instance. The zero Store is ready
// to use.
package state
