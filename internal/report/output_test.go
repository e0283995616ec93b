package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sigreer/assetpulse/internal/device"
)

func TestToolFlags(t *testing.T) {
	r := device.Record{
		CrowdstrikeStatus: device.StrPtr("Running"),
		TaniumStatus:      device.StrPtr("Not Installed"),
		JamfStatus:        device.StrPtr("Managed"),
	}
	if got := toolFlags(&r); got != "C-J" {
		t.Errorf("toolFlags = %q, want C-J", got)
	}
	if got := toolFlags(&device.Record{}); got != "---" {
		t.Errorf("toolFlags(empty) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"workstation-0001", 10, "worksta..."},
		{"abcdef", 3, "abc"},
		{"poste-çédille-01", 10, "poste-ç..."},
		{"端末-東京-0001", 6, "端末-..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}

func TestSummaryPlain(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	if p.color {
		t.Fatal("colour enabled for a buffer")
	}

	p.Summary("2025-11-04", device.Summary{TotalDevices: 12345, ActiveDevices: 10, CompliancePct: 87.5})
	out := buf.String()
	for _, want := range []string{"Run date:     2025-11-04", "12,345", "87.50%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("plain output contains escape codes")
	}
}

func TestDevices(t *testing.T) {
	now := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	seen := now.Add(-72 * time.Hour)

	var buf bytes.Buffer
	p := New(&buf)
	p.now = func() time.Time { return now }

	records := []device.Record{
		{Hostname: "pc-01", LastSeen: &seen, ComplianceStatus: device.StrPtr("compliant")},
		{Hostname: "old-01"},
	}
	p.Devices(records, func(r *device.Record) bool { return r.LastSeen != nil })

	out := buf.String()
	if !strings.Contains(out, "3 days ago") {
		t.Errorf("missing relative last seen:\n%s", out)
	}
	if !strings.Contains(out, "old-01 *") {
		t.Errorf("inactive device not marked:\n%s", out)
	}
	if !strings.Contains(out, "2 devices (* inactive)") {
		t.Errorf("missing footer:\n%s", out)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	seen := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	if err := New(&buf).PrintJSON(device.Record{Hostname: "pc-01", LastSeen: &seen}); err != nil {
		t.Fatalf("PrintJSON: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["hostname"] != "pc-01" {
		t.Errorf("hostname = %v", got["hostname"])
	}
	if _, ok := got["os"]; ok {
		t.Error("absent fields should be omitted")
	}
}
