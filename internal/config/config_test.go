package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	os.Unsetenv(envConfigPath)
	t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	cfg := Load()
	want := Default()
	if cfg.API.ListenAddr != want.API.ListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.API.ListenAddr, want.API.ListenAddr)
	}
	if cfg.Sequencer.RingCapacity != want.Sequencer.RingCapacity {
		t.Errorf("RingCapacity = %d, want %d", cfg.Sequencer.RingCapacity, want.Sequencer.RingCapacity)
	}
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognitod.yaml")
	contents := "api:\n  listen_addr: \"0.0.0.0:9090\"\nsequencer:\n  ring_capacity: 4096\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envConfigPath, path)

	cfg := Load()
	if cfg.API.ListenAddr != "0.0.0.0:9090" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:9090", cfg.API.ListenAddr)
	}
	if cfg.Sequencer.RingCapacity != 4096 {
		t.Errorf("RingCapacity = %d, want 4096", cfg.Sequencer.RingCapacity)
	}
}

func TestEnvVarsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognitod.yaml")
	if err := os.WriteFile(path, []byte("api:\n  listen_addr: \"0.0.0.0:9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envConfigPath, path)
	t.Setenv(envListenAddr, "10.0.0.1:1234")
	t.Setenv(envAPIToken, "s3cr3t")
	t.Setenv(envRingCapacity, "2048")

	cfg := Load()
	if cfg.API.ListenAddr != "10.0.0.1:1234" {
		t.Errorf("ListenAddr = %q, want env override", cfg.API.ListenAddr)
	}
	if cfg.API.Token != "s3cr3t" {
		t.Errorf("Token = %q, want s3cr3t", cfg.API.Token)
	}
	if cfg.Sequencer.RingCapacity != 2048 {
		t.Errorf("RingCapacity = %d, want 2048", cfg.Sequencer.RingCapacity)
	}
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognitod.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: at: all:\n  -- broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envConfigPath, path)

	cfg := Load()
	if cfg.API.ListenAddr != Default().API.ListenAddr {
		t.Errorf("expected defaults on malformed file, got ListenAddr=%q", cfg.API.ListenAddr)
	}
}
