package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/five82/gridsync/internal/connector"
	"github.com/five82/gridsync/internal/protocol"
	"github.com/five82/gridsync/internal/span"
)

// Client is the grid's connection to a grid server. Its calls are
// fire-and-forget: failures are logged and end the connection, and the
// caller learns about them from Done and Err.
type Client struct {
	conn *Conn[protocol.ServerMessage]
	url  string
}

var _ connector.Server = (*Client)(nil)

// Dial connects to the grid server at rawURL. http and https URLs are
// accepted and mapped to ws and wss. ctx bounds both the handshake and the
// life of the connection.
func Dial(ctx context.Context, rawURL string, settings *Settings) (*Client, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: settings.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	glog.Infof("[t]connected to %s", u)
	return &Client{conn: NewConn[protocol.ServerMessage](ctx, ws, settings, u), url: u}, nil
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("server url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse server url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("server url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q: missing host", raw)
	}
	return u.String(), nil
}

// URL returns the websocket URL the client is connected to.
func (c *Client) URL() string { return c.url }

// Inbound returns the messages pushed by the server. The channel is closed
// when the connection ends.
func (c *Client) Inbound() <-chan protocol.ServerMessage { return c.conn.Receive() }

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.conn.Done() }

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error { return c.conn.Err() }

// Close ends the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) call(method string, params any) {
	msg, err := protocol.NewClientMessage(method, params)
	if err != nil {
		glog.Errorf("encode %s: %v", method, err)
		return
	}
	if err := c.conn.Send(msg); err != nil {
		glog.Warningf("send %s: %v", method, err)
	}
}

// RequestRows implements datasource.Collaborator.
func (c *Client) RequestRows(first, count int, cached span.Range) {
	c.call(protocol.MethodRequestRows, protocol.RequestRowsParams{
		FirstRow:     first,
		Count:        count,
		CachedStart:  cached.Start(),
		CachedLength: cached.Len(),
	})
}

// SetPinned implements datasource.Collaborator.
func (c *Client) SetPinned(key string, pinned bool) {
	c.call(protocol.MethodSetPinned, protocol.SetPinnedParams{Key: key, Pinned: pinned})
}

// SelectionChange implements connector.ServerRPC.
func (c *Client) SelectionChange(keys []string) {
	if keys == nil {
		keys = []string{}
	}
	c.call(protocol.MethodSelectionChange, protocol.SelectionChangeParams{SelectedKeys: keys})
}

// Sort implements connector.ServerRPC.
func (c *Client) Sort(columnIDs []string, dirs []protocol.SortDirection, userOriginated bool) {
	c.call(protocol.MethodSort, protocol.SortParams{ColumnIDs: columnIDs, Directions: dirs, UserOriginated: userOriginated})
}

// SelectAll implements connector.ServerRPC.
func (c *Client) SelectAll() {
	c.call(protocol.MethodSelectAll, nil)
}

// EditorBind implements connector.ServerRPC.
func (c *Client) EditorBind(row int) {
	c.call(protocol.MethodEditorBind, protocol.EditorParams{RowIndex: row})
}

// EditorSave implements connector.ServerRPC.
func (c *Client) EditorSave(row int, values map[string]string) {
	c.call(protocol.MethodEditorSave, protocol.EditorParams{RowIndex: row, Values: values})
}

// EditorCancel implements connector.ServerRPC.
func (c *Client) EditorCancel(row int) {
	c.call(protocol.MethodEditorCancel, protocol.EditorParams{RowIndex: row})
}

// Click implements connector.ServerRPC.
func (c *Client) Click(rowKey, columnID string, details protocol.MouseDetails) {
	c.call(protocol.MethodClick, protocol.ClickParams{RowKey: rowKey, ColumnID: columnID, Details: details})
}
