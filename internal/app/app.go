package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/config"
	"github.com/five82/gridsync/internal/prefs"
	"github.com/five82/gridsync/internal/renderer"
	"github.com/five82/gridsync/internal/server"
	"github.com/five82/gridsync/internal/state"
	"github.com/five82/gridsync/internal/transport"
	"github.com/five82/gridsync/internal/ui"
)

// Options configure the grid client.
type Options struct {
	Config    config.Config
	PrefsPath string // empty uses default ~/.config/gridsync/prefs.toml
}

// Run shows the grid until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	userPrefs := prefs.Load(opts.PrefsPath)

	store := &state.Store{}
	model := ui.New(ui.Options{
		Store:      store,
		Renderers:  renderer.Registry(),
		Strategy:   cfg.Strategy(),
		ThemeName:  userPrefs.Theme,
		PrefsPath:  opts.PrefsPath,
		ShowFooter: userPrefs.ShowFooter,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		maintainConnection(runCtx, store, program, cfg.ServerURL, transport.DefaultSettings(), cfg.ReconnectMax)
	}()

	_, err := program.Run()
	cancel()
	<-done
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("run ui: %w", err)
	}
	glog.Infof("grid client exited")
	return nil
}

// ServerOptions configure the demo server.
type ServerOptions struct {
	Config config.Config
}

// RunServer serves the demo dataset until ctx is cancelled.
func RunServer(ctx context.Context, opts ServerOptions) error {
	cfg := opts.Config
	srv := server.New(server.Options{
		Rows:  cfg.Rows,
		Seed:  cfg.Seed,
		Churn: cfg.ChurnEvery,
	})
	return srv.ListenAndServe(ctx, cfg.Listen)
}
