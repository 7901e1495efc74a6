// Package connector bridges the server and the grid widget.
//
// Each server message is applied in two phases. RPC invocations (row data,
// scroll commands, editor commands and confirmations) run as soon as the
// message is received; the state diff is deferred until Flush so it always
// sees the rows that arrived with it. State reconciliation detaches removed
// columns before attaching new ones, reorders only when the order changed,
// and applies selection without echoing it back to the server.
//
// Renderers are composed from capabilities: every renderer decodes cell
// values, and renderers that handle clicks also implement Clickable.
package connector
