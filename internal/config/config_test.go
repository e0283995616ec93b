package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sigreer/assetpulse/internal/db"
	"github.com/sigreer/assetpulse/internal/device"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
database: /tmp/assets.db
inputs:
  - /data/intune
  - /data/tanium
active_window_days: 30
rules:
  - pattern: device_?id
    field: hostname
  - pattern: agent_version
    field: CrowdstrikeStatus
  - pattern: "patch  level"
    field: os
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "/tmp/assets.db" || len(cfg.Inputs) != 2 || cfg.ActiveWindowDays != 30 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Extensions) != 3 {
		t.Errorf("extensions should default, got %v", cfg.Extensions)
	}

	m, err := cfg.Mapper()
	if err != nil {
		t.Fatalf("Mapper: %v", err)
	}
	if f, ok := m.Match("Device ID"); !ok || f != device.FieldHostname {
		t.Errorf("Device ID mapped to %q, %v", f, ok)
	}
	if f, _ := m.Match("agent_version"); f != device.FieldCrowdstrikeStatus {
		t.Errorf("agent_version mapped to %q", f)
	}
	// whitespace in a rule matches whitespace in a header
	for _, h := range []string{"Patch Level", "patch   level", "PATCH_LEVEL"} {
		if f, ok := m.Match(h); !ok || f != device.FieldOS {
			t.Errorf("%q mapped to %q, %v; want os", h, f, ok)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "inputs: [/data]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != db.DefaultPath || cfg.ActiveWindowDays != 60 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "rules:\n  - pattern: foo\n    field: serial\n"},
		{"bad pattern", "rules:\n  - pattern: \"(\"\n    field: os\n"},
		{"negative window", "active_window_days: -1\n"},
		{"bad yaml", "inputs: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
