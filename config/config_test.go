package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults %+v", cfg, Default())
	}
	if !cfg.Cues {
		t.Error("cues should default to on")
	}
	if !strings.HasSuffix(cfg.RecordingsDir, filepath.Join("voxclip", "recordings")) {
		t.Errorf("unexpected default recordings dir %q", cfg.RecordingsDir)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "recordings_dir: /tmp/clips\ndevice: USB Mic\ncues: false\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{RecordingsDir: "/tmp/clips", Device: "USB Mic", Cues: false}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("device: file-device\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOXCLIP_DEVICE", "env-device")
	t.Setenv("VOXCLIP_CUES", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "env-device" {
		t.Errorf("device = %q, want env-device", cfg.Device)
	}
	if cfg.Cues {
		t.Error("cues should be disabled by VOXCLIP_CUES")
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("recordings_dir: ~/clips\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "clips"); cfg.RecordingsDir != want {
		t.Errorf("recordings dir = %q, want %q", cfg.RecordingsDir, want)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("device: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Capture device name", "recordings_dir:", "cues: true"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("template missing %q:\n%s", want, data)
		}
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("loaded template = %+v, want %+v", cfg, Default())
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("device: keep\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := WriteDefault(path)
	if !errors.Is(err, ErrConfigExists) {
		t.Fatalf("err = %v, want ErrConfigExists", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "device: keep\n" {
		t.Errorf("existing file modified: %q", data)
	}
}
