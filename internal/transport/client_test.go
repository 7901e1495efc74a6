package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/gridsync/internal/protocol"
	"github.com/five82/gridsync/internal/span"
)

func testSettings() *Settings {
	return &Settings{
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     2 * time.Second,
		ReadTimeout:      2 * time.Second,
		PingTimeout:      50 * time.Millisecond,
		BufferSize:       8,
	}
}

func newWSServer(t *testing.T, handle func(ws *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		handle(ws)
	}))
	t.Cleanup(server.Close)
	return server
}

// readClientMessages forwards every non-keepalive message to out until the
// connection fails.
func readClientMessages(ws *websocket.Conn, out chan<- protocol.ClientMessage) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if len(raw) == 0 {
			continue
		}
		var msg protocol.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		out <- msg
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "localhost:7070", want: "ws://localhost:7070"},
		{in: " http://example.com/grid ", want: "ws://example.com/grid"},
		{in: "https://example.com/grid", want: "wss://example.com/grid"},
		{in: "wss://example.com", want: "wss://example.com"},
		{in: "", wantErr: true},
		{in: "ftp://example.com", wantErr: true},
		{in: "ws://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := normalizeURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("normalizeURL(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeURL(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClient_SendsCallsAndReceivesPushes(t *testing.T) {
	got := make(chan protocol.ClientMessage, 8)
	server := newWSServer(t, func(ws *websocket.Conn) {
		push := protocol.ServerMessage{RPC: []protocol.Invocation{
			protocol.MustInvocation(protocol.MethodSetRowData, protocol.SetRowDataParams{
				FirstRow: 5,
				Rows:     []protocol.Row{{Key: "k5"}},
			}),
		}}
		if err := ws.WriteJSON(push); err != nil {
			t.Errorf("write push: %v", err)
			return
		}
		readClientMessages(ws, got)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client, err := Dial(ctx, server.URL, testSettings())
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}

	select {
	case msg := <-client.Inbound():
		if len(msg.RPC) != 1 || msg.RPC[0].Method != protocol.MethodSetRowData {
			t.Fatalf("push = %+v", msg)
		}
		var params protocol.SetRowDataParams
		if err := protocol.DecodeParams(msg.RPC[0].Method, msg.RPC[0].Params, &params); err != nil {
			t.Fatalf("DecodeParams: %v", err)
		}
		if params.FirstRow != 5 || len(params.Rows) != 1 || params.Rows[0].Key != "k5" {
			t.Fatalf("params = %+v", params)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no push received")
	}

	// Let a few keepalives pass in both directions.
	time.Sleep(150 * time.Millisecond)

	client.RequestRows(5, 10, span.New(2, 6))
	client.SelectAll()

	msg := receive(t, got)
	if msg.Method != protocol.MethodRequestRows {
		t.Fatalf("method = %q, want %q", msg.Method, protocol.MethodRequestRows)
	}
	var req protocol.RequestRowsParams
	if err := protocol.DecodeParams(msg.Method, msg.Params, &req); err != nil {
		t.Fatalf("DecodeParams: %v", err)
	}
	want := protocol.RequestRowsParams{FirstRow: 5, Count: 10, CachedStart: 2, CachedLength: 4}
	if req != want {
		t.Fatalf("params = %+v, want %+v", req, want)
	}

	msg = receive(t, got)
	if msg.Method != protocol.MethodSelectAll || len(msg.Params) != 0 {
		t.Fatalf("message = %+v, want bare selectAll", msg)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, ok := <-client.Inbound(); ok {
		t.Fatalf("Inbound still open after Close")
	}
	if err := client.Err(); err != nil {
		t.Fatalf("Err after Close = %v, want nil", err)
	}
	if err := client.conn.Send(protocol.ClientMessage{Method: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after Close = %v, want ErrClosed", err)
	}
}

func receive(t *testing.T, ch <-chan protocol.ClientMessage) protocol.ClientMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("no message received")
		return protocol.ClientMessage{}
	}
}

func TestClient_PeerCloseEndsConnection(t *testing.T) {
	tests := []struct {
		name    string
		close   func(ws *websocket.Conn)
		wantErr bool
	}{
		{
			name: "normal close",
			close: func(ws *websocket.Conn) {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
				_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				time.Sleep(100 * time.Millisecond)
			},
		},
		{
			name:    "dropped",
			close:   func(ws *websocket.Conn) { ws.UnderlyingConn().Close() },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newWSServer(t, tt.close)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			t.Cleanup(cancel)
			client, err := Dial(ctx, server.URL, testSettings())
			if err != nil {
				t.Fatalf("Dial returned error: %v", err)
			}

			select {
			case <-client.Done():
			case <-time.After(3 * time.Second):
				t.Fatalf("connection did not end")
			}
			if gotErr := client.Err() != nil; gotErr != tt.wantErr {
				t.Fatalf("Err = %v, wantErr %v", client.Err(), tt.wantErr)
			}
		})
	}
}

func TestDial_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	if _, err := Dial(context.Background(), server.URL, testSettings()); err == nil {
		t.Fatalf("Dial to a non-websocket endpoint returned nil error")
	}
}

func TestConn_TrySendDropsSlowPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// No loops are running, so nothing drains the buffer.
	c := &Conn[protocol.ServerMessage]{
		name:   "slow",
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, 1),
	}

	if err := c.TrySend(protocol.ServerMessage{}); err != nil {
		t.Fatalf("first TrySend: %v", err)
	}
	if err := c.TrySend(protocol.ServerMessage{}); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("TrySend on full buffer = %v, want ErrBufferFull", err)
	}
	if ctx.Err() == nil {
		t.Fatalf("connection not ended after a full buffer")
	}
	if err := c.Err(); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("Err = %v, want ErrBufferFull", err)
	}
	if err := c.TrySend(protocol.ServerMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("TrySend after close = %v, want ErrClosed", err)
	}
}
