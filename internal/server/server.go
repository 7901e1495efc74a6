package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/five82/gridsync/internal/protocol"
	"github.com/five82/gridsync/internal/renderer"
	"github.com/five82/gridsync/internal/transport"
)

const defaultRows = 1000

// Options configure a Server.
type Options struct {
	Rows     int           // zero uses 1000
	Seed     uint64        // dataset generator seed
	Churn    time.Duration // interval of random inserts and removals; zero disables
	Settings *transport.Settings
}

// Server serves one shared dataset to any number of grid sessions. All
// dataset and session state is guarded by a single mutex, so every session
// sees changes in the same order.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader

	mu       sync.Mutex
	data     *Dataset
	sortIDs  []string
	sortDirs []protocol.SortDirection
	sessions map[*Session]struct{}
}

// New returns a server with a freshly generated dataset.
func New(opts Options) *Server {
	if opts.Rows <= 0 {
		opts.Rows = defaultRows
	}
	if opts.Settings == nil {
		opts.Settings = transport.DefaultSettings()
	}
	return &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: opts.Settings.HandshakeTimeout,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		data:     NewDataset(opts.Rows, opts.Seed),
		sortIDs:  []string{},
		sortDirs: []protocol.SortDirection{},
		sessions: make(map[*Session]struct{}),
	}
}

// Handler returns the websocket endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveWS)
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Size returns the current number of rows.
func (s *Server) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Len()
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if s.opts.Churn > 0 {
		go s.runChurn(ctx, s.opts.Churn)
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			glog.Warningf("shutdown: %v", err)
		}
		s.closeSessions()
	}()

	glog.Infof("grid server listening on %s (%d rows)", addr, s.Size())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	id := ulid.Make()
	sess := &Session{
		id:     id,
		server: s,
		conn:   transport.NewConn[protocol.ClientMessage](r.Context(), ws, s.opts.Settings, "session "+id.String()),
		mode:   protocol.SelectionMulti,
		pinned: make(map[string]bool),
	}

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	sess.send(s.initialMessage())
	s.mu.Unlock()
	glog.Infof("session %s connected from %s", id, r.RemoteAddr)

	sess.run()

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	if err := sess.conn.Err(); err != nil {
		glog.Warningf("session %s ended: %v", id, err)
	} else {
		glog.Infof("session %s closed", id)
	}
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	open := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()
	for _, sess := range open {
		sess.conn.Close()
	}
}

func (s *Server) columns() []protocol.ColumnState {
	return []protocol.ColumnState{
		{ID: ColID, Renderer: renderer.NumberName, Width: 6, Sortable: true},
		{ID: ColName, Renderer: renderer.TextName, MinWidth: 12, ExpandRatio: 2, Sortable: true, EditorField: ColName},
		{ID: ColQuantity, Renderer: renderer.NumberName, Width: 9, Sortable: true, EditorField: ColQuantity},
		{ID: ColPrice, Renderer: renderer.MoneyName, Width: 10, Sortable: true, EditorField: ColPrice},
		{ID: ColAction, Renderer: renderer.ButtonName, Width: 9},
	}
}

func (s *Server) header() protocol.SectionState {
	return protocol.SectionState{
		Visible: true,
		Rows: []protocol.SectionRow{{
			Default: true,
			Cells: map[string]protocol.CellState{
				ColID:       protocol.TextCell("#"),
				ColName:     protocol.TextCell("Product"),
				ColQuantity: protocol.TextCell("Stock"),
				ColPrice:    {Type: protocol.CellHTML, HTML: "<b>Price</b>"},
				ColAction:   protocol.TextCell(""),
			},
		}},
	}
}

func (s *Server) footer() protocol.SectionState {
	return protocol.SectionState{
		Visible: true,
		Rows: []protocol.SectionRow{{
			Cells: map[string]protocol.CellState{
				ColName: protocol.TextCell(fmt.Sprintf("%d products", s.data.Len())),
			},
		}},
	}
}

func (s *Server) initialMessage() protocol.ServerMessage {
	cols := s.columns()
	order := make([]string, len(cols))
	for i, c := range cols {
		order[i] = c.ID
	}
	return protocol.ServerMessage{
		RPC: []protocol.Invocation{
			protocol.MustInvocation(protocol.MethodResetDataAndSize, protocol.ResetParams{Size: s.data.Len()}),
		},
		State: &protocol.StateDiff{
			Columns:               &cols,
			ColumnOrder:           &order,
			Header:                protocol.Ptr(s.header()),
			Footer:                protocol.Ptr(s.footer()),
			EditorEnabled:         protocol.Ptr(true),
			FrozenColumnCount:     protocol.Ptr(1),
			SelectionMode:         protocol.Ptr(protocol.SelectionMulti),
			SelectedKeys:          protocol.Ptr([]string{}),
			SortColumns:           protocol.Ptr(list(s.sortIDs)),
			SortDirs:              protocol.Ptr(list(s.sortDirs)),
			HasCellStyleGenerator: protocol.Ptr(true),
			HasRowStyleGenerator:  protocol.Ptr(true),
		},
	}
}

// sortBy sorts the dataset and tells every session to reload. Callers hold
// s.mu.
func (s *Server) sortBy(ids []string, dirs []protocol.SortDirection) error {
	if err := s.data.Sort(ids, dirs); err != nil {
		return err
	}
	s.sortIDs = slices.Clone(ids)
	s.sortDirs = slices.Clone(dirs)
	for sess := range s.sessions {
		sess.send(protocol.ServerMessage{
			RPC: []protocol.Invocation{
				protocol.MustInvocation(protocol.MethodResetDataAndSize, protocol.ResetParams{Size: s.data.Len()}),
				protocol.MustInvocation(protocol.MethodScrollToStart, nil),
			},
			State: &protocol.StateDiff{
				SortColumns: protocol.Ptr(list(ids)),
				SortDirs:    protocol.Ptr(list(dirs)),
			},
		})
	}
	return nil
}

// broadcastRow pushes the current data of the row at index i to every
// session. Callers hold s.mu.
func (s *Server) broadcastRow(i int) {
	for sess := range s.sessions {
		sess.send(protocol.ServerMessage{RPC: []protocol.Invocation{
			protocol.MustInvocation(protocol.MethodSetRowData, protocol.SetRowDataParams{
				FirstRow: i,
				Rows:     s.data.Rows(i, 1),
			}),
		}})
	}
}

func (s *Server) runChurn(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Churn()
		}
	}
}

// Churn inserts or removes one random row and pushes the change to every
// session.
func (s *Server) Churn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.data.Len()
	if n == 0 || s.data.RandomIndex(2) == 0 {
		at := s.data.RandomIndex(n + 1)
		if _, err := s.data.Insert(at, 1); err != nil {
			glog.Errorf("churn insert: %v", err)
			return
		}
		glog.V(1).Infof("churn: inserted row at %d", at)
		footer := s.footer()
		for sess := range s.sessions {
			sess.send(protocol.ServerMessage{
				RPC:   []protocol.Invocation{protocol.MustInvocation(protocol.MethodInsertRowData, protocol.RowSpanParams{FirstRow: at, Count: 1})},
				State: &protocol.StateDiff{Footer: &footer},
			})
		}
		return
	}

	at := s.data.RandomIndex(n)
	removed, err := s.data.Remove(at, 1)
	if err != nil {
		glog.Errorf("churn remove: %v", err)
		return
	}
	key := removed[0].Key()
	glog.V(1).Infof("churn: removed row %s at %d", key, at)
	footer := s.footer()
	for sess := range s.sessions {
		msg := protocol.ServerMessage{
			RPC:   []protocol.Invocation{protocol.MustInvocation(protocol.MethodRemoveRowData, protocol.RowSpanParams{FirstRow: at, Count: 1})},
			State: &protocol.StateDiff{Footer: &footer},
		}
		if sess.editing == key {
			sess.editing = ""
			msg.RPC = append(msg.RPC, protocol.MustInvocation(protocol.MethodEditorCancel, protocol.EditorParams{RowIndex: at}))
		}
		if sess.deselect(key) {
			msg.State.SelectedKeys = protocol.Ptr(list(sess.selected))
		}
		delete(sess.pinned, key)
		sess.send(msg)
	}
}
