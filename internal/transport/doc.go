// Package transport carries grid protocol messages over websockets.
//
// Conn owns one websocket and runs a write loop and a read loop for it; Client
// wraps a Conn dialed to a grid server and exposes the outbound calls the data
// source and the connector need. Calls never wait for a reply: answers arrive
// later on Inbound.
package transport
