package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Settings are the persisted per-user preferences carried across sessions.
type Settings struct {
	UserID            string `json:"user_id"`
	ShowDebateDetails bool   `json:"show_debate_details"`
	MaxIterations     int    `json:"max_iterations"`
}

const defaultMaxIterations = 3

// SettingsStore persists Settings as a JSON file. It is initialized lazily on
// first access and written back on every change, so the protocol handler can
// take a Settings value instead of reaching into ambient state.
type SettingsStore struct {
	path string

	mu       sync.Mutex
	loaded   bool
	settings Settings
}

// NewSettingsStore creates a store backed by the given file path.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Get returns the current settings, loading them from disk on first access.
// A missing file yields defaults with a freshly generated user id, persisted
// immediately so the id stays stable.
func (st *SettingsStore) Get() (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.loaded {
		return st.settings, nil
	}

	data, err := os.ReadFile(st.path)
	switch {
	case os.IsNotExist(err):
		st.settings = Settings{
			UserID:        "user_" + uuid.New().String(),
			MaxIterations: defaultMaxIterations,
		}
		if err := st.write(); err != nil {
			return Settings{}, err
		}
	case err != nil:
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	default:
		if err := json.Unmarshal(data, &st.settings); err != nil {
			return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
		}
		if st.settings.UserID == "" {
			st.settings.UserID = "user_" + uuid.New().String()
		}
		if st.settings.MaxIterations <= 0 {
			st.settings.MaxIterations = defaultMaxIterations
		}
	}

	st.loaded = true
	return st.settings, nil
}

// Set replaces the settings and writes them back immediately.
func (st *SettingsStore) Set(s Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.settings = s
	st.loaded = true
	return st.write()
}

func (st *SettingsStore) write() error {
	data, err := json.MarshalIndent(st.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if dir := filepath.Dir(st.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(st.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
