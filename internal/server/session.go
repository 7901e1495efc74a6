package server

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"github.com/five82/gridsync/internal/protocol"
	"github.com/five82/gridsync/internal/transport"
)

// Session is one connected grid. Its selection, pins and open editor are its
// own; the dataset and sort order are shared.
type Session struct {
	id     ulid.ULID
	server *Server
	conn   *transport.Conn[protocol.ClientMessage]

	// Guarded by server.mu.
	mode     protocol.SelectionMode
	selected []string
	pinned   map[string]bool
	editing  string
}

func (sess *Session) run() {
	for msg := range sess.conn.Receive() {
		sess.server.mu.Lock()
		err := sess.handle(msg)
		sess.server.mu.Unlock()
		if err != nil {
			glog.Warningf("session %s: %s: %v", sess.id, msg.Method, err)
		}
	}
}

// send never blocks: it runs under server.mu, and a session whose buffer is
// full is dropped rather than stalling the others.
func (sess *Session) send(msg protocol.ServerMessage) {
	if err := sess.conn.TrySend(msg); err != nil && !errors.Is(err, transport.ErrClosed) {
		glog.Errorf("session %s: send: %v", sess.id, err)
	}
}

func (sess *Session) deselect(key string) bool {
	i := slices.Index(sess.selected, key)
	if i < 0 {
		return false
	}
	sess.selected = slices.Delete(sess.selected, i, i+1)
	return true
}

// handle applies one client message. Callers hold server.mu.
func (sess *Session) handle(msg protocol.ClientMessage) error {
	data := sess.server.data
	switch msg.Method {
	case protocol.MethodRequestRows:
		var p protocol.RequestRowsParams
		if err := protocol.DecodeParams(msg.Method, msg.Params, &p); err != nil {
			return err
		}
		glog.V(2).Infof("session %s: rows %d+%d (cached %d+%d)", sess.id, p.FirstRow, p.Count, p.CachedStart, p.CachedLength)
		sess.send(protocol.ServerMessage{RPC: []protocol.Invocation{
			protocol.MustInvocation(protocol.MethodSetRowData, protocol.SetRowDataParams{
				FirstRow: p.FirstRow,
				Rows:     data.Rows(p.FirstRow, p.Count),
			}),
		}})

	case protocol.MethodSetPinned:
		var p protocol.SetPinnedParams
		if err := protocol.DecodeParams(msg.Method, msg.Params, &p); err != nil {
			return err
		}
		if p.Pinned {
			sess.pinned[p.Key] = true
		} else {
			delete(sess.pinned, p.Key)
		}
		glog.V(1).Infof("session %s: pinned %s = %t (%d pinned)", sess.id, p.Key, p.Pinned, len(sess.pinned))

	case protocol.MethodSelectionChange:
		var p protocol.SelectionChangeParams
		if err := protocol.DecodeParams(msg.Method, msg.Params, &p); err != nil {
			return err
		}
		sess.selected = sess.allowedSelection(p.SelectedKeys)
		if !slices.Equal(sess.selected, p.SelectedKeys) {
			sess.sendSelection()
		}

	case protocol.MethodSelectAll:
		if sess.mode != protocol.SelectionMulti {
			return fmt.Errorf("select all in %s mode", sess.mode)
		}
		sess.selected = data.Keys()
		sess.sendSelection()

	case protocol.MethodSort:
		var p protocol.SortParams
		if err := protocol.DecodeParams(msg.Method, msg.Params, &p); err != nil {
			return err
		}
		if err := sess.server.sortBy(p.ColumnIDs, p.Directions); err != nil {
			// Put the client back on the order that is actually in effect.
			sess.send(protocol.ServerMessage{State: &protocol.StateDiff{
				SortColumns: protocol.Ptr(list(sess.server.sortIDs)),
				SortDirs:    protocol.Ptr(list(sess.server.sortDirs)),
			}})
			return err
		}

	case protocol.MethodEditorBind:
		var p protocol.EditorParams
		if err := protocol.DecodeParams(msg.Method, msg.Params, &p); err != nil {
			return err
		}
		confirm := protocol.ConfirmParams{Succeeded: true}
		if it, ok := data.Item(p.RowIndex); ok {
			sess.editing = it.Key()
		} else {
			confirm = protocol.ConfirmParams{ErrorMessage: fmt.Sprintf("row %d does not exist", p.RowIndex)}
		}
		sess.send(protocol.ServerMessage{RPC: []protocol.Invocation{
			protocol.MustInvocation(protocol.MethodConfirmBind, confirm),
		}})

	case protocol.MethodEditorSave:
		var p protocol.EditorParams
		if err := protocol.DecodeParams(msg.Method, msg.Params, &p); err != nil {
			return err
		}
		confirm := sess.save(p)
		sess.send(protocol.ServerMessage{RPC: []protocol.Invocation{
			protocol.MustInvocation(protocol.MethodConfirmSave, confirm),
		}})

	case protocol.MethodEditorCancel:
		sess.editing = ""

	case protocol.MethodClick:
		var p protocol.ClickParams
		if err := protocol.DecodeParams(msg.Method, msg.Params, &p); err != nil {
			return err
		}
		glog.Infof("session %s: click %s on %s (%s)", sess.id, p.ColumnID, p.RowKey, p.Details.Button)
		if p.ColumnID != ColAction {
			return nil
		}
		if _, ok := data.Order(p.RowKey); ok {
			sess.server.broadcastRow(data.IndexOf(p.RowKey))
		}

	default:
		return fmt.Errorf("unknown method")
	}
	return nil
}

// allowedSelection drops unknown keys and trims keys to what the selection
// mode permits.
func (sess *Session) allowedSelection(keys []string) []string {
	out := []string{}
	if sess.mode == protocol.SelectionNone {
		return out
	}
	for _, k := range keys {
		if sess.server.data.IndexOf(k) >= 0 && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	if sess.mode == protocol.SelectionSingle && len(out) > 1 {
		out = out[len(out)-1:]
	}
	return out
}

func (sess *Session) sendSelection() {
	sess.send(protocol.ServerMessage{State: &protocol.StateDiff{
		SelectedKeys: protocol.Ptr(list(sess.selected)),
	}})
}

func (sess *Session) save(p protocol.EditorParams) protocol.ConfirmParams {
	key := sess.editing
	if key == "" {
		if it, ok := sess.server.data.Item(p.RowIndex); ok {
			key = it.Key()
		}
	}
	if _, err := sess.server.data.Update(key, p.Values); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return protocol.ConfirmParams{ErrorMessage: verr.Message, ErrorColumnIDs: verr.ColumnIDs}
		}
		return protocol.ConfirmParams{ErrorMessage: err.Error()}
	}
	sess.server.broadcastRow(sess.server.data.IndexOf(key))
	return protocol.ConfirmParams{Succeeded: true}
}

// list copies s into a non-nil slice so it encodes as a JSON array.
func list[T any](s []T) []T {
	return append(make([]T, 0, len(s)), s...)
}
