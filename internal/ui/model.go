package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/connector"
	"github.com/five82/gridsync/internal/datasource"
	"github.com/five82/gridsync/internal/prefs"
	"github.com/five82/gridsync/internal/protocol"
	"github.com/five82/gridsync/internal/state"
)

const defaultStatusTick = 500 * time.Millisecond

// Options configures the UI.
type Options struct {
	Store      *state.Store
	Renderers  *connector.RendererRegistry
	Strategy   datasource.CacheStrategy
	ThemeName  string
	PrefsPath  string
	ShowFooter bool
	StatusTick time.Duration
}

// Model is the root Bubble Tea model. It is also the connector's widget;
// every connector call happens inside Update, which makes the Bubble Tea
// event loop the single thread that owns the data source and the editor.
type Model struct {
	// Configuration
	store      *state.Store
	renderers  *connector.RendererRegistry
	strategy   datasource.CacheStrategy
	prefsPath  string
	statusTick time.Duration

	// UI state
	theme      Theme
	keys       keyMap
	help       help.Model
	spinner    spinner.Model
	width      int
	height     int
	ready      bool
	showHelp   bool
	showFooter bool
	spinning   bool

	snapshot state.Snapshot
	conn     *connector.Connector
	url      string

	// Widget state, reset for every connection.
	grid    gridState
	editor  editorPanel
	loading bool

	cursor    int
	top       int
	colCursor int

	notice       string
	noticeDanger bool
}

// New creates the grid model. It shows an empty grid until a ConnectedMsg
// arrives.
func New(opts Options) *Model {
	statusTick := opts.StatusTick
	if statusTick <= 0 {
		statusTick = defaultStatusTick
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return &Model{
		store:      opts.Store,
		renderers:  opts.Renderers,
		strategy:   opts.Strategy,
		prefsPath:  prefsPath,
		statusTick: statusTick,
		theme:      GetTheme(opts.ThemeName),
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		showFooter: opts.ShowFooter,
		grid:       newGridState(),
	}
}

// Messages

// ConnectedMsg hands the model a live server connection. A new connector is
// created for it; the previous grid state is discarded.
type ConnectedMsg struct {
	Server connector.Server
	URL    string
}

// ServerMsg carries one message pushed by the server.
type ServerMsg struct {
	Msg protocol.ServerMessage
}

// DisconnectedMsg reports the end of the current connection.
type DisconnectedMsg struct {
	Err error
}

type flushMsg struct{}

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func flushCmd() tea.Msg { return flushMsg{} }

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.statusTick), fetchSnapshotCmd(m.store))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case ConnectedMsg:
		m.connect(msg)

	case ServerMsg:
		if m.conn == nil {
			break
		}
		if err := m.conn.Receive(msg.Msg); err != nil {
			m.fail("server message", err)
		}
		// State diffs apply after every RPC of the message has run.
		cmds = append(cmds, flushCmd)

	case flushMsg:
		if m.conn == nil {
			break
		}
		if err := m.conn.Flush(); err != nil {
			m.fail("apply state", err)
		}

	case DisconnectedMsg:
		m.disconnect(msg.Err)

	case tickMsg:
		cmds = append(cmds, fetchSnapshotCmd(m.store), tickCmd(m.statusTick))

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			break
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.syncViewport()
	if m.busy() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m *Model) connect(msg ConnectedMsg) {
	m.grid = newGridState()
	m.editor = editorPanel{}
	m.loading = false
	m.cursor, m.top, m.colCursor = 0, 0, 0
	m.url = msg.URL
	m.conn = connector.New(msg.Server, m, connector.Options{
		Renderers: m.renderers,
		Strategy:  m.strategy,
	})
	m.setNotice("connected to "+msg.URL, false)
	glog.Infof("grid connected to %s", msg.URL)
}

func (m *Model) disconnect(err error) {
	m.conn = nil
	m.loading = false
	m.editor = editorPanel{}
	if err != nil {
		m.setNotice("disconnected: "+err.Error(), true)
	} else {
		m.setNotice("disconnected", false)
	}
}

func (m *Model) busy() bool {
	return m.loading || m.editor.busy()
}

// handleKey processes keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return nil
	}
	if m.editor.isOpen() {
		return m.handleEditorKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
	case key.Matches(msg, m.keys.ToggleFooter):
		m.showFooter = !m.showFooter
		m.savePrefs()
	case key.Matches(msg, m.keys.Up):
		m.cursor--
	case key.Matches(msg, m.keys.Down):
		m.cursor++
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= max(m.visibleRows(), 1)
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += max(m.visibleRows(), 1)
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = m.size() - 1
	case key.Matches(msg, m.keys.Left):
		m.colCursor = max(m.colCursor-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.colCursor = min(m.colCursor+1, max(len(m.grid.order)-1, 0))
	default:
		m.handleRowKey(msg)
	}
	return nil
}

// handleRowKey runs the actions that need a connection.
func (m *Model) handleRowKey(msg tea.KeyMsg) {
	if m.conn == nil {
		return
	}
	switch {
	case key.Matches(msg, m.keys.Select):
		h, err := m.conn.DataSource().HandleAt(m.cursor)
		if err != nil {
			m.fail("select", err)
			return
		}
		if err := m.conn.ToggleRow(h.Key()); err != nil {
			m.fail("select", err)
		}
	case key.Matches(msg, m.keys.SelectAll):
		if err := m.conn.SelectAll(); err != nil {
			m.fail("select all", err)
		}
	case key.Matches(msg, m.keys.Sort), key.Matches(msg, m.keys.SortAdd):
		id := m.currentColumn()
		if err := m.conn.SortBy(id, key.Matches(msg, m.keys.SortAdd)); err != nil {
			m.fail("sort", err)
		}
	case key.Matches(msg, m.keys.Pin):
		m.togglePin()
	case key.Matches(msg, m.keys.Click):
		id := m.currentColumn()
		if err := m.conn.Click(m.cursor, id, protocol.MouseDetails{Button: "LEFT"}); err != nil {
			m.fail("click", err)
		}
	case key.Matches(msg, m.keys.Edit):
		if err := m.conn.EditRow(m.cursor); err != nil {
			m.fail("edit", err)
		}
	}
}

func (m *Model) togglePin() {
	h, err := m.conn.DataSource().HandleAt(m.cursor)
	if err != nil {
		m.fail("pin", err)
		return
	}
	if h.Pinned() {
		if err := h.Unpin(); err != nil {
			m.fail("unpin", err)
			return
		}
		m.setNotice("unpinned row "+h.Key(), false)
		return
	}
	if err := h.Pin(); err != nil {
		m.fail("pin", err)
		return
	}
	m.setNotice("pinned row "+h.Key(), false)
}

func (m *Model) currentColumn() string {
	if m.colCursor < 0 || m.colCursor >= len(m.grid.order) {
		return ""
	}
	return m.grid.order[m.colCursor]
}

func (m *Model) size() int {
	if m.conn == nil {
		return 0
	}
	return m.conn.DataSource().Size()
}

// syncViewport keeps the cursor inside the data and visible, then tells the
// data source which rows are on screen.
func (m *Model) syncViewport() {
	size := m.size()
	rows := m.visibleRows()
	m.cursor = min(max(m.cursor, 0), max(size-1, 0))
	m.colCursor = min(max(m.colCursor, 0), max(len(m.grid.order)-1, 0))
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if rows > 0 && m.cursor >= m.top+rows {
		m.top = m.cursor - rows + 1
	}
	m.top = min(max(m.top, 0), max(size-rows, 0))

	if m.conn == nil {
		return
	}
	ds := m.conn.DataSource()
	count := max(min(rows, size-m.top), 0)
	if vp := ds.Viewport(); vp.Start() == m.top && vp.Len() == count {
		return
	}
	ds.EnsureAvailability(m.top, count)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, ShowFooter: m.showFooter}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		glog.Warningf("save prefs: %v", err)
	}
}

func (m *Model) setNotice(text string, danger bool) {
	m.notice = text
	m.noticeDanger = danger
}

func (m *Model) fail(action string, err error) {
	glog.Warningf("%s: %v", action, err)
	m.setNotice(fmt.Sprintf("%s: %v", action, err), true)
}
