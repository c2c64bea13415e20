// Package prefs persists the dashboard's user preferences (currently the
// theme) as a small YAML document on disk.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Theme is the dashboard colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ErrInvalidTheme is returned for a theme name other than light or dark.
var ErrInvalidTheme = errors.New("invalid theme")

// ParseTheme converts a case-insensitive name into a Theme.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Preferences is the persisted document.
type Preferences struct {
	Theme Theme `yaml:"theme" json:"theme"`
}

// Store loads and saves Preferences at a fixed path.
type Store struct {
	mu    sync.RWMutex
	path  string
	prefs Preferences
}

// Open loads the preferences at path. A missing file yields the defaults
// (light theme); an unreadable or invalid one is an error.
func Open(path string) (*Store, error) {
	s := &Store{path: path, prefs: Preferences{Theme: ThemeLight}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("reading preferences %s: %w", path, err)
	}

	var p Preferences
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing preferences %s: %w", path, err)
	}
	if p.Theme != "" {
		theme, err := ParseTheme(string(p.Theme))
		if err != nil {
			return nil, fmt.Errorf("preferences %s: %w", path, err)
		}
		s.prefs.Theme = theme
	}
	return s, nil
}

// Get returns the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetTheme updates the theme and writes the file.
func (s *Store) SetTheme(theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	next.Theme = theme
	if err := s.write(next); err != nil {
		return err
	}
	s.prefs = next
	return nil
}

// write replaces the file atomically via a temp file and rename.
func (s *Store) write(p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating preferences directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".preferences-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp preferences file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("saving preferences %s: %w", s.path, err)
	}
	return nil
}
