package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const settingsFilename = "settings.yml"

// rawSettings mirrors Settings with pointer fields so that keys missing from
// the file can be told apart from zero values and healed individually.
type rawSettings struct {
	CommandsPrefix        *string   `yaml:"commands_prefix"`
	RefreshInterval       *int      `yaml:"refresh_interval"`
	IntervalJitterPercent *int      `yaml:"interval_jitter_percent"`
	RequestDelayMin       *int      `yaml:"request_delay_min"`
	RequestDelayMax       *int      `yaml:"request_delay_max"`
	MaxRetries            *int      `yaml:"max_retries"`
	RetryBaseDelay        *int      `yaml:"retry_base_delay"`
	UserAgents            *[]string `yaml:"user_agents"`
}

// Store persists runtime settings to a YAML file in the data directory.
// Reads and writes are guarded by a mutex since both the scheduler and the
// command handlers use it.
type Store struct {
	path string

	mu       sync.RWMutex
	settings Settings
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		path:     filepath.Join(dir, settingsFilename),
		settings: Defaults(),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Settings file unreadable, restoring defaults", "path", s.path, "error", err)
		}
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	var raw rawSettings
	if err := yaml.Unmarshal(data, &raw); err != nil {
		slog.Warn("Settings file corrupted, restoring defaults", "path", s.path, "error", err)
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	if healed := s.apply(raw); healed {
		slog.Warn("Settings file missing keys, rewriting with defaults applied", "path", s.path)
		if err := s.save(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// apply copies present keys into the settings and reports whether any key was
// missing and had to fall back to its default.
func (s *Store) apply(raw rawSettings) bool {
	healed := false

	if raw.CommandsPrefix != nil {
		s.settings.CommandsPrefix = *raw.CommandsPrefix
	} else {
		healed = true
	}
	if raw.RefreshInterval != nil {
		s.settings.RefreshInterval = *raw.RefreshInterval
	} else {
		healed = true
	}
	if raw.IntervalJitterPercent != nil {
		s.settings.IntervalJitterPercent = *raw.IntervalJitterPercent
	} else {
		healed = true
	}
	if raw.RequestDelayMin != nil {
		s.settings.RequestDelayMin = *raw.RequestDelayMin
	} else {
		healed = true
	}
	if raw.RequestDelayMax != nil {
		s.settings.RequestDelayMax = *raw.RequestDelayMax
	} else {
		healed = true
	}
	if raw.MaxRetries != nil {
		s.settings.MaxRetries = *raw.MaxRetries
	} else {
		healed = true
	}
	if raw.RetryBaseDelay != nil {
		s.settings.RetryBaseDelay = *raw.RetryBaseDelay
	} else {
		healed = true
	}
	if raw.UserAgents != nil {
		s.settings.UserAgents = *raw.UserAgents
	} else {
		healed = true
	}

	return healed
}

// Get returns a snapshot of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.settings
	snapshot.UserAgents = append([]string(nil), s.settings.UserAgents...)
	return snapshot
}

func (s *Store) SetCommandsPrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.CommandsPrefix = prefix
	return s.save()
}

func (s *Store) SetRefreshInterval(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.RefreshInterval = seconds
	return s.save()
}

// save writes the current settings to disk. Callers must hold the lock, with
// the exception of NewStore before the store is shared.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
