package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
server:
  socket_url: https://game.example.test:3443
  root_certificate: certs/root.pem
session:
  cookie: session_token=abc
windows:
  primary: main
  secondary: chat
log:
  level: debug
  components: [bridge, router]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.Server.SocketURL != "https://game.example.test:3443" {
		t.Errorf("SocketURL = %q", cfg.Server.SocketURL)
	}
	if cfg.Session.Cookie != "session_token=abc" {
		t.Errorf("Cookie = %q", cfg.Session.Cookie)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if len(cfg.Log.Components) != 2 {
		t.Errorf("Log.Components = %v", cfg.Log.Components)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  socket_url: wss://x.test\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.Windows.Primary != DefaultPrimaryWindow || cfg.Windows.Secondary != DefaultSecondaryWindow {
		t.Errorf("Windows = %+v, want defaults", cfg.Windows)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("server: [")); err == nil {
		t.Error("Parse() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing socket url", func(c *Config) { c.Server.SocketURL = "" }, true},
		{"bad scheme", func(c *Config) { c.Server.SocketURL = "ftp://x.test" }, true},
		{"missing host", func(c *Config) { c.Server.SocketURL = "https://" }, true},
		{"ws scheme", func(c *Config) { c.Server.SocketURL = "wss://x.test/" }, false},
		{"bad http url", func(c *Config) { c.Server.HTTPURL = "ws://x.test" }, true},
		{"missing certificate", func(c *Config) { c.Server.RootCertificate = "" }, true},
		{"same windows", func(c *Config) { c.Windows.Secondary = c.Windows.Primary }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(sampleYAML))
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(SocketURLEnv, "wss://override.test")
	t.Setenv(RootCertEnv, "/abs/root.pem")
	t.Setenv(SessionCookieEnv, "session_token=env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.SocketURL != "wss://override.test" {
		t.Errorf("SocketURL = %q, want env override", cfg.Server.SocketURL)
	}
	if cfg.RootCertificatePath() != "/abs/root.pem" {
		t.Errorf("RootCertificatePath() = %q", cfg.RootCertificatePath())
	}
	if cfg.Session.Cookie != "session_token=env" {
		t.Errorf("Cookie = %q, want env override", cfg.Session.Cookie)
	}
}

func TestLoad_RelativeCertificate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := filepath.Join(dir, "certs", "root.pem")
	if got := cfg.RootCertificatePath(); got != want {
		t.Errorf("RootCertificatePath() = %q, want %q", got, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestHTTPBaseURL(t *testing.T) {
	tests := []struct {
		socket, http, want string
	}{
		{"https://a.test:3443", "", "https://a.test:3443"},
		{"wss://a.test", "", "https://a.test"},
		{"ws://a.test:80", "", "http://a.test:80"},
		{"wss://a.test", "https://api.test", "https://api.test"},
	}
	for _, tt := range tests {
		cfg := &Config{Server: ServerConfig{SocketURL: tt.socket, HTTPURL: tt.http}}
		if got := cfg.HTTPBaseURL(); got != tt.want {
			t.Errorf("HTTPBaseURL(%q, %q) = %q, want %q", tt.socket, tt.http, got, tt.want)
		}
	}
}

func TestLogConfig_Logging(t *testing.T) {
	l := LogConfig{Level: "warn", FileLevel: "debug", MaxBackups: 7}

	console := LogConfig{Level: "info"}.Logging("")
	if console.FileLog != nil {
		t.Errorf("FileLog = %+v, want nil without a file", console.FileLog)
	}

	got := l.Logging("/var/log/scrabble.log")
	if got.Level != "warn" || got.FileLevel != "debug" {
		t.Errorf("levels = %q/%q", got.Level, got.FileLevel)
	}
	if got.FileLog == nil || got.FileLog.Path != "/var/log/scrabble.log" {
		t.Fatalf("FileLog = %+v", got.FileLog)
	}
	if got.FileLog.MaxBackups != 7 || got.FileLog.MaxSizeMB != 10 {
		t.Errorf("rotation = %d backups, %d MB", got.FileLog.MaxBackups, got.FileLog.MaxSizeMB)
	}

	l.File = "/tmp/explicit.log"
	if got := l.Logging("/var/log/scrabble.log"); got.FileLog.Path != "/tmp/explicit.log" {
		t.Errorf("Path = %q, want the configured file", got.FileLog.Path)
	}
}
