package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yasskadd/scrabble/internal/appdir"
	"github.com/yasskadd/scrabble/internal/fileutil"

	defaultConfig "github.com/yasskadd/scrabble/config"
)

// ConfigSource indicates where the configuration was loaded from.
type ConfigSource int

const (
	// ConfigSourceNone indicates no configuration was loaded.
	ConfigSourceNone ConfigSource = iota
	// ConfigSourceSettingsFile indicates configuration was loaded from settings.yaml.
	ConfigSourceSettingsFile
	// ConfigSourceEmbeddedDefaults indicates settings.yaml was just created from embedded defaults.
	ConfigSourceEmbeddedDefaults
	// ConfigSourceCustomFile indicates configuration was loaded from a custom file (--config flag).
	ConfigSourceCustomFile
)

// String returns a human readable name for the source.
func (s ConfigSource) String() string {
	switch s {
	case ConfigSourceSettingsFile:
		return "settings file"
	case ConfigSourceEmbeddedDefaults:
		return "embedded defaults"
	case ConfigSourceCustomFile:
		return "custom file"
	default:
		return "none"
	}
}

// LoadResult contains the loaded configuration and metadata about its source.
type LoadResult struct {
	// Config is the loaded configuration.
	Config *Config
	// Source indicates where the configuration was loaded from.
	Source ConfigSource
	// SourcePath is the path to the configuration file.
	SourcePath string
}

// LoadSettings loads settings.yaml from the data directory.
// If the file doesn't exist, it is created from the embedded default config.
func LoadSettings() (*LoadResult, error) {
	path, err := appdir.SettingsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings path: %w", err)
	}

	source := ConfigSourceSettingsFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefaultSettings(path); err != nil {
			return nil, err
		}
		source = ConfigSourceEmbeddedDefaults
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: source, SourcePath: path}, nil
}

// LoadFile loads an explicit configuration file (the --config flag).
func LoadFile(path string) (*LoadResult, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: ConfigSourceCustomFile, SourcePath: path}, nil
}

// createDefaultSettings writes the embedded default configuration to path.
func createDefaultSettings(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := fileutil.WriteAtomic(path, defaultConfig.DefaultConfigYAML, 0600); err != nil {
		return fmt.Errorf("failed to create default settings: %w", err)
	}
	return nil
}

// SaveSessionCookie persists the session cookie in the settings file at path.
// It is the fallback used when the platform has no secret store.
// Environment overrides are not written back.
func SaveSessionCookie(path, cookie string) error {
	var cfg Config
	if err := fileutil.ReadYAML(path, &cfg); err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	cfg.Session.Cookie = cookie
	if err := fileutil.WriteYAMLAtomic(path, &cfg, 0600); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
