package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/app"
	"github.com/five82/gridsync/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	serverURL := flag.String("server", "", "grid server url (optional, overrides config)")
	// The terminal belongs to the UI; only fatal log lines go to stderr.
	_ = flag.Set("stderrthreshold", "FATAL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridview: %v\n", err)
		return 1
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if err := setLogDir(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "gridview: %v\n", err)
		return 1
	}
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, app.Options{Config: cfg, PrefsPath: *prefsPath}); err != nil {
		glog.Errorf("gridview: %v", err)
		fmt.Fprintf(os.Stderr, "gridview: %v\n", err)
		return 1
	}
	return 0
}

// setLogDir points glog at dir unless -log_dir was given.
func setLogDir(dir string) error {
	if f := flag.Lookup("log_dir"); f == nil || f.Value.String() != "" || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	return flag.Set("log_dir", dir)
}
