// Package config loads the gridsync TOML configuration shared by the grid
// client and the demo server.
//
// # Configuration Discovery
//
// Load resolves the file as follows:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/gridsync/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. Empty or missing fields keep their defaults
//
// # Fields
//
//	server_url = "ws://127.0.0.1:7070"   # grid client: server to dial
//	listen = "127.0.0.1:7070"            # demo server: listen address
//	rows = 1000                          # demo server: generated rows
//	seed = 0                             # demo server: generator seed
//	prefetch_factor = 1.0                # viewports cached on each side
//	min_prefetch = 20                    # minimum rows cached on each side
//	churn_every = "2s"                   # demo server: random inserts/removals
//	reconnect_max = "30s"                # grid client: reconnect backoff cap
//	log_dir = "~/.local/share/gridsync/logs"
//
// Durations use Go syntax. Tilde paths are expanded and relative paths made
// absolute. Missing config files are not an error; parse failures and
// negative values are.
package config
