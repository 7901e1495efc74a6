package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/state"
	"github.com/five82/gridsync/internal/transport"
	"github.com/five82/gridsync/internal/ui"
)

const (
	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second
)

// sender delivers messages to the UI; *tea.Program satisfies it.
type sender interface {
	Send(msg tea.Msg)
}

// calculateBackoff doubles base for every consecutive failure, capped at
// limit. A non-positive limit uses maxBackoff.
func calculateBackoff(failures int, base, limit time.Duration) time.Duration {
	if limit <= 0 {
		limit = maxBackoff
	}
	if failures <= 0 {
		return min(base, limit)
	}
	backoff := base
	for range failures {
		backoff *= 2
		if backoff >= limit {
			return limit
		}
	}
	return backoff
}

// maintainConnection keeps one connection to the server open until ctx is
// done, redialing with exponential backoff. Every connection is announced to
// the UI with a ConnectedMsg and ends with a DisconnectedMsg.
func maintainConnection(ctx context.Context, store *state.Store, out sender, url string, settings *transport.Settings, limit time.Duration) {
	failures := 0
	for {
		store.SetConnecting(url)
		client, err := transport.Dial(ctx, url, settings)
		if err == nil {
			failures = 0
			err = serve(ctx, store, out, client)
		}
		if ctx.Err() != nil {
			return
		}

		wait := calculateBackoff(failures, baseBackoff, limit)
		if err != nil {
			failures++
			glog.Warningf("connection to %s: %v (retry in %s)", url, err, wait)
		} else {
			glog.Infof("server %s closed the connection (retry in %s)", url, wait)
		}
		store.SetDisconnected(err, time.Now().Add(wait))

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// serve forwards the pushes of one connection to the UI until it ends.
func serve(ctx context.Context, store *state.Store, out sender, client *transport.Client) error {
	store.SetConnected(client.URL())
	out.Send(ui.ConnectedMsg{Server: client, URL: client.URL()})

	var err error
	for done := false; !done; {
		select {
		case <-ctx.Done():
			_ = client.Close()
			err, done = ctx.Err(), true
		case msg, ok := <-client.Inbound():
			if !ok {
				err, done = client.Err(), true
				break
			}
			store.CountMessage()
			out.Send(ui.ServerMsg{Msg: msg})
		}
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	out.Send(ui.DisconnectedMsg{Err: err})
	return err
}
