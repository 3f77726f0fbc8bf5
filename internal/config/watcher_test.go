package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watcherInitialYAML = `
server:
  listen_addr: ":9090"
  log_level: info
`

const watcherUpdatedYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
`

func writeTestConfig(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestWatcherLoadsInitialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, path, watcherInitialYAML)

	w, err := NewWatcher(path, nil, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("initial log level = %q, want %q", cfg.Server.LogLevel, LogInfo)
	}
}

func TestWatcherDetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, path, watcherInitialYAML)

	changed := make(chan struct{}, 1)
	var gotOld, gotNew *Config
	w, err := NewWatcher(path, func(old, new *Config) {
		gotOld, gotNew = old, new
		changed <- struct{}{}
	}, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Ensure the new mtime differs from the original even on filesystems
	// with coarse mtime resolution.
	time.Sleep(20 * time.Millisecond)
	writeTestConfig(t, path, watcherUpdatedYAML)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called after the config file changed")
	}

	if gotOld.Server.LogLevel != LogInfo {
		t.Errorf("old log level = %q, want %q", gotOld.Server.LogLevel, LogInfo)
	}
	if gotNew.Server.LogLevel != LogDebug {
		t.Errorf("new log level = %q, want %q", gotNew.Server.LogLevel, LogDebug)
	}
	if w.Current().Server.LogLevel != LogDebug {
		t.Errorf("Current() after reload = %q, want %q", w.Current().Server.LogLevel, LogDebug)
	}
}

func TestWatcherIgnoresTouchWithoutContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, path, watcherInitialYAML)

	called := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(old, new *Config) {
		called <- struct{}{}
	}, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	select {
	case <-called:
		t.Fatal("onChange fired for an mtime-only touch with unchanged content")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherKeepsOldConfigOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, path, watcherInitialYAML)

	w, err := NewWatcher(path, nil, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeTestConfig(t, path, "server:\n  bogus_field: true\n")

	time.Sleep(150 * time.Millisecond)

	if w.Current().Server.LogLevel != LogInfo {
		t.Errorf("Current() after invalid reload = %q, want unchanged %q", w.Current().Server.LogLevel, LogInfo)
	}
}

func TestNewWatcherFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := NewWatcher(filepath.Join(dir, "missing.yaml"), nil)
	if err == nil {
		t.Fatal("expected an error for a nonexistent config file")
	}
}
