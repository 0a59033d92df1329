// Package config handles configuration loading and management for the Scrabble client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yasskadd/scrabble/internal/logging"
)

// Environment variables that override values from the settings file.
const (
	SocketURLEnv     = "SCRABBLE_SOCKET_URL"
	HTTPURLEnv       = "SCRABBLE_HTTP_URL"
	RootCertEnv      = "SCRABBLE_ROOT_CERT"
	SessionCookieEnv = "SCRABBLE_SESSION_COOKIE"
)

// Default window labels.
const (
	DefaultPrimaryWindow   = "main"
	DefaultSecondaryWindow = "chat"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig describes the remote game server.
type ServerConfig struct {
	// SocketURL is the Socket.IO endpoint (http(s) or ws(s) scheme).
	SocketURL string `yaml:"socket_url"`
	// HTTPURL is the base URL used to resolve relative gateway paths.
	// Defaults to SocketURL when empty.
	HTTPURL string `yaml:"http_url,omitempty"`
	// RootCertificate is the path of the pinned root certificate (PEM).
	// Relative paths are resolved against the directory of the settings file.
	RootCertificate string `yaml:"root_certificate"`
}

// SessionConfig holds the optional session cookie.
type SessionConfig struct {
	// Cookie is presented as the Cookie header when opening the socket.
	Cookie string `yaml:"cookie,omitempty"`
}

// WindowsConfig names the window targets inbound events are delivered to.
type WindowsConfig struct {
	Primary   string `yaml:"primary,omitempty"`
	Secondary string `yaml:"secondary,omitempty"`
}

// LogConfig mirrors logging.Config in the settings file.
type LogConfig struct {
	Level      string   `yaml:"level,omitempty"`
	FileLevel  string   `yaml:"file_level,omitempty"`
	File       string   `yaml:"file,omitempty"`
	JSON       bool     `yaml:"json,omitempty"`
	MaxSizeMB  int      `yaml:"max_size_mb,omitempty"`
	MaxBackups int      `yaml:"max_backups,omitempty"`
	Compress   bool     `yaml:"compress,omitempty"`
	Components []string `yaml:"components,omitempty"`
}

// Logging converts the settings into a logging configuration. defaultFile
// is used when no log file is configured; empty keeps console-only output.
func (l LogConfig) Logging(defaultFile string) logging.Config {
	cfg := logging.Config{
		Level:      l.Level,
		FileLevel:  l.FileLevel,
		JSON:       l.JSON,
		Components: l.Components,
	}
	path := l.File
	if path == "" {
		path = defaultFile
	}
	if path != "" {
		fileLog := logging.DefaultFileLogConfig()
		fileLog.Path = path
		if l.MaxSizeMB > 0 {
			fileLog.MaxSizeMB = l.MaxSizeMB
		}
		if l.MaxBackups > 0 {
			fileLog.MaxBackups = l.MaxBackups
		}
		fileLog.Compress = l.Compress
		cfg.FileLog = &fileLog
	}
	return cfg
}

// Config represents the complete client configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session,omitempty"`
	Windows WindowsConfig `yaml:"windows,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`

	// baseDir is the directory relative certificate paths are resolved against.
	baseDir string
}

// Load reads and parses the configuration file from the given path.
// Environment overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.baseDir = filepath.Dir(path)
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse parses YAML configuration data into a Config struct and fills defaults.
// It does not validate; call Validate once overrides have been applied.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Windows.Primary == "" {
		c.Windows.Primary = DefaultPrimaryWindow
	}
	if c.Windows.Secondary == "" {
		c.Windows.Secondary = DefaultSecondaryWindow
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ApplyEnv overrides settings with SCRABBLE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(SocketURLEnv); v != "" {
		c.Server.SocketURL = v
	}
	if v := os.Getenv(HTTPURLEnv); v != "" {
		c.Server.HTTPURL = v
	}
	if v := os.Getenv(RootCertEnv); v != "" {
		c.Server.RootCertificate = v
	}
	if v := os.Getenv(SessionCookieEnv); v != "" {
		c.Session.Cookie = v
	}
}

// Validate checks that the configuration can be used to start the client.
func (c *Config) Validate() error {
	if c.Server.SocketURL == "" {
		return fmt.Errorf("%w: server.socket_url is required", ErrInvalidConfig)
	}
	if err := validateURL(c.Server.SocketURL, "http", "https", "ws", "wss"); err != nil {
		return fmt.Errorf("%w: server.socket_url: %v", ErrInvalidConfig, err)
	}
	if c.Server.HTTPURL != "" {
		if err := validateURL(c.Server.HTTPURL, "http", "https"); err != nil {
			return fmt.Errorf("%w: server.http_url: %v", ErrInvalidConfig, err)
		}
	}
	if c.Server.RootCertificate == "" {
		return fmt.Errorf("%w: server.root_certificate is required", ErrInvalidConfig)
	}
	if c.Windows.Primary == c.Windows.Secondary {
		return fmt.Errorf("%w: windows.primary and windows.secondary must differ", ErrInvalidConfig)
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			if u.Host == "" {
				return fmt.Errorf("missing host in %q", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q", u.Scheme)
}

// RootCertificatePath returns the absolute path of the pinned root certificate.
func (c *Config) RootCertificatePath() string {
	p := c.Server.RootCertificate
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// HTTPBaseURL returns the base URL for relative gateway paths.
func (c *Config) HTTPBaseURL() string {
	if c.Server.HTTPURL != "" {
		return c.Server.HTTPURL
	}
	u, err := url.Parse(c.Server.SocketURL)
	if err != nil {
		return c.Server.SocketURL
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	return u.String()
}
