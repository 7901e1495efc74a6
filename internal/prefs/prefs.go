// Package prefs remembers the grid client's display choices between runs.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	toml "github.com/pelletier/go-toml/v2"
)

// Prefs are toggled from the UI and written back on every change.
type Prefs struct {
	Theme      string `toml:"theme"`
	ShowFooter bool   `toml:"show_footer"`
}

const (
	defaultPrefsPath = "~/.config/gridsync/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Default returns the preferences used when no file exists.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, ShowFooter: true}
}

// Load reads the preferences at path; an empty path means DefaultPath.
// Preferences never keep the grid from starting: a missing file yields
// Default, and an unreadable or malformed one is logged and ignored.
func Load(path string) Prefs {
	resolved, err := resolvePath(path)
	if err != nil {
		glog.Warningf("prefs: %v", err)
		return Default()
	}

	raw, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	if err != nil {
		glog.Warningf("prefs: read %s: %v", resolved, err)
		return Default()
	}

	p := Default()
	if err := toml.Unmarshal(raw, &p); err != nil {
		glog.Warningf("prefs: parse %s: %v", resolved, err)
		return Default()
	}
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	return p
}

// Save writes p to path. The file is replaced by rename so a crash mid-write
// leaves the previous preferences intact.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	raw, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	return filepath.Abs(path)
}
