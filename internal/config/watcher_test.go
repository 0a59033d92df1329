package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yasskadd/scrabble/internal/fileutil"
)

func writeWatched(t *testing.T, path, cookie string) {
	t.Helper()
	data := []byte(settingsWithCookie(cookie))
	if err := fileutil.WriteAtomic(path, data, 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
}

func settingsWithCookie(cookie string) string {
	return "server:\n  socket_url: https://game.test:3443\n  root_certificate: root.pem\nsession:\n  cookie: \"" + cookie + "\"\n"
}

func startWatcher(t *testing.T, path string) <-chan *Config {
	t.Helper()
	changes := make(chan *Config, 10)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	w.SetDebounceDelay(20 * time.Millisecond)
	w.Start()
	return changes
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeWatched(t, path, "session_token=old")
	changes := startWatcher(t, path)

	writeWatched(t, path, "session_token=new")

	select {
	case c := <-changes:
		if c.Session.Cookie != "session_token=new" {
			t.Errorf("reloaded cookie = %q", c.Session.Cookie)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
}

func TestWatcher_IgnoresOtherFilesAndInvalidEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	writeWatched(t, path, "session_token=old")
	changes := startWatcher(t, path)

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("server: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		t.Errorf("unexpected reload: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeWatched(t, path, "")
	w, err := NewWatcher(path, func(*Config) {}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
