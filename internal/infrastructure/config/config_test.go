package config

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/feltworks/rangesync/internal/infrastructure/testutil"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.Interval != DefaultSyncInterval {
		t.Errorf("expected default sync interval, got %v", cfg.Sync.Interval)
	}
	if cfg.Links.MaxLinksPerUser != DefaultMaxLinksPerUser {
		t.Errorf("expected default link cap, got %d", cfg.Links.MaxLinksPerUser)
	}
	if cfg.Identity.UserID != "" {
		t.Error("expected guest identity by default")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	cfg := NewDefaultConfig()
	cfg.Identity.UserID = "user-1"
	cfg.Identity.DisplayName = "Hero"
	cfg.Remote.BaseURL = "https://sync.example.com"
	cfg.Remote.APIKey = "secret"
	cfg.Links.MaxLinksPerUser = 5

	if err := loader.Save(cfg, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Identity.UserID != "user-1" || loaded.Identity.DisplayName != "Hero" {
		t.Errorf("identity not preserved: %+v", loaded.Identity)
	}
	if loaded.Remote.BaseURL != "https://sync.example.com" {
		t.Errorf("remote not preserved: %+v", loaded.Remote)
	}
	if loaded.Links.MaxLinksPerUser != 5 {
		t.Errorf("link cap not preserved: %d", loaded.Links.MaxLinksPerUser)
	}
	// Unset sections keep their defaults.
	if loaded.Sync.Interval != DefaultSyncInterval {
		t.Errorf("expected default sync interval, got %v", loaded.Sync.Interval)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "config.yaml", "identity:\n  user_id: user-1\n")

	loader, _ := NewLoader(dir)
	cfg, err := loader.Load(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.Identity.UserID, "user-1")
	testutil.AssertEqual(t, cfg.Links.VersionCheckTTL, DefaultVersionCheckTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"zero sync interval", func(c *Config) { c.Sync.Interval = 0 }, true},
		{"zero link cap", func(c *Config) { c.Links.MaxLinksPerUser = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"sample rate out of range", func(c *Config) { c.Tracing.SampleRate = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	loader, _ := NewLoader(dir)

	initial := NewDefaultConfig()
	initial.Identity.UserID = "before"
	if err := loader.Save(initial, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var mu sync.Mutex
	var got *Config
	watcher, err := NewWatcher(loader, path, func(cfg *Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	updated := NewDefaultConfig()
	updated.Identity.UserID = "after"
	if err := loader.Save(updated, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := got != nil && got.Identity.UserID == "after"
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("reload callback never fired")
}

func TestWatcher_IgnoresInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	loader, _ := NewLoader(dir)
	if err := loader.Save(NewDefaultConfig(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var reloads sync.Map
	watcher, err := NewWatcher(loader, path, func(cfg *Config) {
		reloads.Store("fired", cfg)
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	testutil.WriteFile(t, dir, "config.yaml", "sync:\n  interval: -1s\n")

	time.Sleep(300 * time.Millisecond)
	if _, fired := reloads.Load("fired"); fired {
		t.Error("invalid config should not trigger reload")
	}
}
