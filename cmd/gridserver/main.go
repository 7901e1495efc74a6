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
	listen := flag.String("listen", "", "listen address (optional, overrides config)")
	rows := flag.Int("rows", 0, "number of generated rows (optional)")
	seed := flag.Uint64("seed", 0, "dataset seed (optional)")
	churn := flag.Duration("churn", 0, "interval of random inserts and removals (optional)")
	// Log to stderr unless told otherwise.
	_ = flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridserver: %v\n", err)
		return 1
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *rows > 0 {
		cfg.Rows = *rows
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *churn > 0 {
		cfg.ChurnEvery = *churn
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunServer(ctx, app.ServerOptions{Config: cfg}); err != nil {
		glog.Errorf("gridserver: %v", err)
		return 1
	}
	return 0
}
