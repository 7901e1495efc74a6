// Package app wires configuration, preferences, the connection and the UI
// into the two programs: the grid client and the demo server.
//
// The client runs two goroutines. The Bubble Tea program owns the model and,
// through it, the connector and its data source. maintainConnection dials the
// server, forwards every pushed message to the program and redials with
// exponential backoff when the connection drops:
//
//	maintainConnection
//	  ├─> transport.Dial
//	  ├─> program.Send(ConnectedMsg)
//	  ├─> program.Send(ServerMsg) ...   one per pushed message
//	  ├─> program.Send(DisconnectedMsg)
//	  └─> wait calculateBackoff, redial
//
// Connection status goes to a state.Store that the UI polls for its status
// bar, so the UI never blocks on the network.
package app
