// Package ui is the terminal grid client, built on Bubble Tea.
//
// The root Model is both the Bubble Tea model and the connector's widget.
// Server messages arrive as ServerMsg and are handed to the connector inside
// Update; the deferred state diff is applied by a follow-up flush message, so
// rows pushed by a message are cached before its state is reconciled.
//
// Files:
//
//   - model.go: Model, messages, the update loop and key handling
//   - widget.go: the connector.Widget implementation
//   - grid.go: column layout and grid rendering
//   - editor.go: the inline row editor
//   - header.go, help.go: status bar and help overlay
//   - theme.go, keys.go: themes and key bindings
package ui
