package app

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/gridsync/internal/protocol"
	"github.com/five82/gridsync/internal/server"
	"github.com/five82/gridsync/internal/state"
	"github.com/five82/gridsync/internal/transport"
	"github.com/five82/gridsync/internal/ui"
)

func TestCalculateBackoff(t *testing.T) {
	base := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, base, 0)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, base, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_Limit(t *testing.T) {
	for failures := 0; failures <= 70; failures++ {
		got := calculateBackoff(failures, time.Second, 5*time.Second)
		if got > 5*time.Second || got <= 0 {
			t.Errorf("calculateBackoff(%d) = %v, want within (0, 5s]", failures, got)
		}
	}
}

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
	seen chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan struct{}, 256)}
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	select {
	case r.seen <- struct{}{}:
	default:
	}
}

// waitFor blocks until a recorded message satisfies match.
func (r *recorder) waitFor(t *testing.T, what string, match func(tea.Msg) bool) tea.Msg {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		r.mu.Lock()
		for _, msg := range r.msgs {
			if match(msg) {
				r.mu.Unlock()
				return msg
			}
		}
		r.mu.Unlock()
		select {
		case <-r.seen:
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func TestMaintainConnection_ForwardsPushes(t *testing.T) {
	srv := server.New(server.Options{Rows: 10, Seed: 1})
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	store := &state.Store{}
	rec := newRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		maintainConnection(ctx, store, rec, hs.URL, transport.DefaultSettings(), time.Second)
	}()

	rec.waitFor(t, "connected", func(msg tea.Msg) bool {
		_, ok := msg.(ui.ConnectedMsg)
		return ok
	})
	got := rec.waitFor(t, "initial state", func(msg tea.Msg) bool {
		m, ok := msg.(ui.ServerMsg)
		return ok && m.Msg.State != nil
	}).(ui.ServerMsg)
	if len(got.Msg.RPC) == 0 || got.Msg.RPC[0].Method != protocol.MethodResetDataAndSize {
		t.Fatalf("first push = %+v, want resetDataAndSize", got.Msg.RPC)
	}

	snap := store.Snapshot()
	if snap.Phase != state.Connected {
		t.Fatalf("phase = %v, want connected", snap.Phase)
	}
	if snap.Messages < 1 {
		t.Fatalf("messages = %d, want at least 1", snap.Messages)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("maintainConnection did not return after cancel")
	}
	rec.waitFor(t, "disconnected", func(msg tea.Msg) bool {
		m, ok := msg.(ui.DisconnectedMsg)
		return ok && m.Err == nil
	})
}

func TestMaintainConnection_RecordsDialFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &state.Store{}
	rec := newRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nothing listens on port 1.
		maintainConnection(ctx, store, rec, "ws://127.0.0.1:1", transport.DefaultSettings(), 50*time.Millisecond)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for store.Snapshot().ConsecutiveFailures < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("failures = %d, want at least 2", store.Snapshot().ConsecutiveFailures)
		}
		time.Sleep(10 * time.Millisecond)
	}
	snap := store.Snapshot()
	if !snap.IsOffline() || snap.LastError == nil {
		t.Fatalf("snapshot = %+v, want offline with an error", snap)
	}

	cancel()
	<-done
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != 0 {
		t.Fatalf("ui got %d messages without a connection", len(rec.msgs))
	}
}
