package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bgtwallet/bgtwallet/internal/domain"
	"go.uber.org/zap"
)

// Settings is the process-wide withdrawal configuration. Mutated only
// by the operator, read by every withdrawal-method selection.
type Settings struct {
	GlobalLimitMicros domain.Micros            `json:"global_limit_micros"`
	UserLimits        map[string]domain.Micros `json:"user_limits"`
	BotActive         bool                     `json:"bot_active"`
}

// DefaultGlobalLimit is the minimum withdrawal applied when no custom
// or tier rule matches.
const DefaultGlobalLimit domain.Micros = 1_000_000 // 1.00

// SettingsStore keeps Settings in memory and rewrites the backing file
// on every change. A missing file yields the defaults.
type SettingsStore struct {
	mu       sync.Mutex
	path     string
	settings Settings
}

func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{
		path: path,
		settings: Settings{
			GlobalLimitMicros: DefaultGlobalLimit,
			UserLimits:        make(map[string]domain.Micros),
			BotActive:         true,
		},
	}
}

// Load reads the settings file if it exists.
func (s *SettingsStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read withdrawal settings: %w", err)
	}
	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode withdrawal settings: %w", err)
	}
	if loaded.UserLimits == nil {
		loaded.UserLimits = make(map[string]domain.Micros)
	}
	s.mu.Lock()
	s.settings = loaded
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current settings.
func (s *SettingsStore) Snapshot() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := s.settings
	copied.UserLimits = make(map[string]domain.Micros, len(s.settings.UserLimits))
	for id, limit := range s.settings.UserLimits {
		copied.UserLimits[id] = limit
	}
	return copied
}

// GlobalLimit returns the global minimum withdrawal.
func (s *SettingsStore) GlobalLimit() domain.Micros {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.GlobalLimitMicros
}

// UserLimit returns the custom limit for id, if set.
func (s *SettingsStore) UserLimit(id string) (domain.Micros, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit, ok := s.settings.UserLimits[id]
	return limit, ok
}

// BotActive reports whether user workflows are enabled.
func (s *SettingsStore) BotActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.BotActive
}

// SetGlobalLimit updates the global minimum and persists.
func (s *SettingsStore) SetGlobalLimit(limit domain.Micros) {
	s.mu.Lock()
	s.settings.GlobalLimitMicros = limit
	s.mu.Unlock()
	s.save()
}

// SetUserLimit sets a per-account override and persists.
func (s *SettingsStore) SetUserLimit(id string, limit domain.Micros) {
	s.mu.Lock()
	s.settings.UserLimits[id] = limit
	s.mu.Unlock()
	s.save()
}

// RemoveUserLimit deletes a per-account override and persists.
func (s *SettingsStore) RemoveUserLimit(id string) {
	s.mu.Lock()
	delete(s.settings.UserLimits, id)
	s.mu.Unlock()
	s.save()
}

// SetBotActive toggles the user-facing workflows and persists.
func (s *SettingsStore) SetBotActive(active bool) {
	s.mu.Lock()
	s.settings.BotActive = active
	s.mu.Unlock()
	s.save()
}

func (s *SettingsStore) save() {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		zap.L().Error("encode withdrawal settings failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		zap.L().Error("create settings dir failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		zap.L().Error("write withdrawal settings failed", zap.Error(err))
	}
}
