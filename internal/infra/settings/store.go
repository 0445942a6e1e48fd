// Package settings persists connection settings as a JSON file.
package settings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pe200012/Syrinx/internal/domain/session"
)

// stored is the on-disk shape. The password is deliberately absent; it is
// re-entered on every connect.
type stored struct {
	BaseURL   string `json:"baseUrl"`
	Username  string `json:"username"`
	RootPath  string `json:"rootPath"`
	Recursive bool   `json:"recursive"`
}

// Store reads and writes settings at a fixed path.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted settings, or nil when none are stored.
func (s *Store) Load() (*session.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var st stored
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Settings file is corrupt, ignoring")
		return nil, nil
	}

	return &session.Config{
		BaseURL:   st.BaseURL,
		Username:  st.Username,
		RootPath:  st.RootPath,
		Recursive: st.Recursive,
		Remember:  true,
	}, nil
}

// Save persists the connection settings, creating parent directories as
// needed. The password in cfg is never written.
func (s *Store) Save(cfg session.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(stored{
		BaseURL:   cfg.BaseURL,
		Username:  cfg.Username,
		RootPath:  cfg.RootPath,
		Recursive: cfg.Recursive,
	}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the settings file. Clearing absent settings is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
