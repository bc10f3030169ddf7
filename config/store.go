package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

var ErrNotFound = errors.New("configuration not found")

// Store is the section/key view of the TOML config file. Viper folds every key to
// lower case, so sections are matched case-insensitively and written back lower-cased.
type Store struct {
	v    *viper.Viper
	path string
}

// Open reads the config file at path. A missing file is an empty configuration.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("can't read config file %s: %w", path, err)
		}
		slog.Debug("config file not found, using defaults.", slog.String("path", path))
	}

	return &Store{v: v, path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load decodes the file on top of Default.
func (s *Store) Load() (*Config, error) {
	cfg := Default()
	if err := s.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return cfg, nil
}

func (s *Store) Get(section, key string) (any, error) {
	section, key = normalize(section, key)
	if !s.v.IsSet(section) {
		return nil, fmt.Errorf("%w: section %s not in config", ErrNotFound, strings.ToUpper(section))
	}
	if !s.v.IsSet(section + "." + key) {
		return nil, fmt.Errorf("%w: section %s doesn't contain %s", ErrNotFound, strings.ToUpper(section), key)
	}

	return s.v.Get(section + "." + key), nil
}

// String returns the value under section/key as text, or fallback when it is unset.
func (s *Store) String(section, key, fallback string) string {
	v, err := s.Get(section, key)
	if err != nil {
		return fallback
	}
	return fmt.Sprint(v)
}

func (s *Store) Set(section, key string, value any) {
	section, key = normalize(section, key)
	slog.Debug("setting config.", slog.String("section", section), slog.String("key", key))
	s.v.Set(section+"."+key, value)
}

// Sections returns a copy of every section with its keys. Top-level keys outside of
// any table are reported under the default section, which is always present even
// when the file holds no keys for it.
func (s *Store) Sections() map[string]map[string]any {
	out := map[string]map[string]any{DefaultSection: {}}
	for name, raw := range s.v.AllSettings() {
		if table, ok := raw.(map[string]any); ok {
			section := strings.ToUpper(name)
			if out[section] == nil {
				out[section] = make(map[string]any, len(table))
			}
			for k, v := range table {
				out[section][k] = v
			}
			continue
		}
		out[DefaultSection][name] = raw
	}

	return out
}

// Save writes the whole configuration back to the file, creating it if needed.
func (s *Store) Save() error {
	settings := s.v.AllSettings()
	if _, ok := settings[strings.ToLower(DefaultSection)]; !ok {
		settings[strings.ToLower(DefaultSection)] = map[string]any{}
	}
	body, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}

	return os.WriteFile(s.path, body, 0o600)
}

func normalize(section, key string) (string, string) {
	if section == "" {
		section = DefaultSection
	}
	return strings.ToLower(section), strings.ToLower(key)
}

// IsSensitive reports whether a value stored under key must be masked when printed.
func IsSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "key") || strings.Contains(k, "password") || strings.Contains(k, "secret")
}
