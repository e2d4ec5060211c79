package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir moves into an empty directory so no stray config.yaml is picked up.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000/api" {
		t.Errorf("unexpected base URL %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.AuthToken != "" {
		t.Error("auth token should default to empty")
	}
	if cfg.Console.PollInterval() != 5*time.Second {
		t.Errorf("unexpected poll interval %s", cfg.Console.PollInterval())
	}
	if cfg.Server.Port != 3000 || cfg.Probe.Timeout() != 10*time.Second {
		t.Errorf("unexpected server/probe defaults: %+v %+v", cfg.Server, cfg.Probe)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RAG_CONSOLE_BACKEND_BASEURL", "https://bot.example.com/api/")
	t.Setenv("RAG_CONSOLE_CONSOLE_POLLINTERVALSEC", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://bot.example.com/api" {
		t.Errorf("expected trimmed env base URL, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Console.PollIntervalSec != 2 {
		t.Errorf("expected poll interval 2, got %d", cfg.Console.PollIntervalSec)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := "backend:\n  authToken: secret-token\nconsole:\n  pollIntervalSec: 0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for non-positive poll interval")
	}
}
