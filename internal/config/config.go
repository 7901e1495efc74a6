package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/gridsync/internal/datasource"
)

// Config holds the settings shared by the grid client and the demo server.
type Config struct {
	ServerURL      string
	Listen         string
	Rows           int
	Seed           uint64
	PrefetchFactor float64
	MinPrefetch    int
	ChurnEvery     time.Duration
	ReconnectMax   time.Duration
	LogDir         string
}

const (
	defaultConfigPath   = "~/.config/gridsync/config.toml"
	defaultLogDir       = "~/.local/share/gridsync/logs"
	defaultServerURL    = "ws://127.0.0.1:7070"
	defaultListen       = "127.0.0.1:7070"
	defaultRows         = 1000
	defaultReconnectMax = 30 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	strategy := datasource.DefaultStrategy()
	return Config{
		ServerURL:      defaultServerURL,
		Listen:         defaultListen,
		Rows:           defaultRows,
		PrefetchFactor: strategy.Factor,
		MinPrefetch:    strategy.Min,
		ReconnectMax:   defaultReconnectMax,
		LogDir:         mustExpand(defaultLogDir),
	}
}

// Load locates and parses the config file, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL      string   `toml:"server_url"`
		Listen         string   `toml:"listen"`
		Rows           int      `toml:"rows"`
		Seed           uint64   `toml:"seed"`
		PrefetchFactor *float64 `toml:"prefetch_factor"`
		MinPrefetch    *int     `toml:"min_prefetch"`
		ChurnEvery     string   `toml:"churn_every"`
		ReconnectMax   string   `toml:"reconnect_max"`
		LogDir         string   `toml:"log_dir"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(raw.Listen); v != "" {
		cfg.Listen = v
	}
	if raw.Rows < 0 {
		return Config{}, fmt.Errorf("rows = %d, must not be negative", raw.Rows)
	}
	if raw.Rows > 0 {
		cfg.Rows = raw.Rows
	}
	cfg.Seed = raw.Seed
	if raw.PrefetchFactor != nil {
		if *raw.PrefetchFactor < 0 {
			return Config{}, fmt.Errorf("prefetch_factor = %g, must not be negative", *raw.PrefetchFactor)
		}
		cfg.PrefetchFactor = *raw.PrefetchFactor
	}
	if raw.MinPrefetch != nil {
		if *raw.MinPrefetch < 0 {
			return Config{}, fmt.Errorf("min_prefetch = %d, must not be negative", *raw.MinPrefetch)
		}
		cfg.MinPrefetch = *raw.MinPrefetch
	}
	if cfg.ChurnEvery, err = parseDuration("churn_every", raw.ChurnEvery, 0); err != nil {
		return Config{}, err
	}
	if cfg.ReconnectMax, err = parseDuration("reconnect_max", raw.ReconnectMax, defaultReconnectMax); err != nil {
		return Config{}, err
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}

	return cfg, nil
}

// Strategy returns the cache strategy described by the prefetch settings.
func (c Config) Strategy() datasource.PrefetchStrategy {
	return datasource.PrefetchStrategy{Factor: c.PrefetchFactor, Min: c.MinPrefetch}
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s = %s, must not be negative", field, d)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
