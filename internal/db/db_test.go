package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sigreer/assetpulse/internal/device"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "sub", "assets.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func testRecords() []device.Record {
	seen := time.Date(2025, 11, 1, 8, 30, 0, 0, time.UTC)
	pct := 92.5
	eol := false
	return []device.Record{
		{
			Hostname:          "pc-01",
			OS:                device.StrPtr("Windows 11"),
			DeviceType:        device.StrPtr("Laptop"),
			ComplianceStatus:  device.StrPtr(device.StatusCompliant),
			LastSeen:          &seen,
			PercentPassing:    &pct,
			EndOfLife:         &eol,
			CrowdstrikeStatus: device.StrPtr("Running"),
			TaniumStatus:      device.StrPtr("Not Installed"),
		},
		{
			Hostname:         "srv-01",
			DeviceType:       device.StrPtr("Server"),
			ComplianceStatus: device.StrPtr(device.StatusNonCompliant),
		},
	}
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.db")
	for i := 0; i < 2; i++ {
		d, err := New(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		var version int
		if err := d.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
			t.Fatalf("schema_version: %v", err)
		}
		if version != 3 {
			t.Errorf("schema version = %d, want 3", version)
		}
		d.Close()
	}
}

func TestWriteRunRoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	s := device.Summary{TotalDevices: 2, ActiveDevices: 1, CompliantDevices: 1, CompliancePct: 100, Workstations: 1, TaniumMissing: 1}
	run := NewRun("2025-11-04")
	run.Files = 2
	run.Events = []RunEvent{NewEvent(EventReadWarning, "bad.xlsx", "zip: not a valid zip file", nil)}
	if err := d.WriteRun(ctx, run, testRecords(), s); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	got, err := d.GetHistory("2025-11-04", HistoryFilter{})
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	r := got[0]
	if r.Hostname != "pc-01" || *r.OS != "Windows 11" || *r.PercentPassing != 92.5 {
		t.Errorf("unexpected row: %+v", r)
	}
	if r.LastSeenISO() != "2025-11-01T08:30:00" {
		t.Errorf("lastSeen = %q", r.LastSeenISO())
	}
	if r.EndOfLife == nil || *r.EndOfLife {
		t.Errorf("endOfLife = %v, want false", r.EndOfLife)
	}
	if got[1].EndOfLife != nil || got[1].LastSeen != nil || got[1].JamfStatus != nil {
		t.Errorf("absent fields should stay absent: %+v", got[1])
	}

	sum, err := d.GetSummary("2025-11-04")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum == nil || sum.Summary != s {
		t.Errorf("summary = %+v, want %+v", sum, s)
	}

	runs, err := d.GetRuns("2025-11-04", 0)
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].Files != 2 {
		t.Errorf("runs = %+v", runs)
	}
	events, err := d.GetRunEvents(run.ID)
	if err != nil {
		t.Fatalf("GetRunEvents: %v", err)
	}
	if len(events) != 1 || events[0].Source != "bad.xlsx" || events[0].EventType != EventReadWarning {
		t.Errorf("events = %+v", events)
	}
}

func TestWriteRunReplacesDate(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	if err := d.WriteRun(ctx, NewRun("2025-11-04"), testRecords(), device.Summary{TotalDevices: 2}); err != nil {
		t.Fatalf("first WriteRun: %v", err)
	}
	if err := d.WriteRun(ctx, NewRun("2025-11-05"), testRecords()[:1], device.Summary{TotalDevices: 1}); err != nil {
		t.Fatalf("other date WriteRun: %v", err)
	}
	// same date again with fewer devices
	if err := d.WriteRun(ctx, NewRun("2025-11-04"), testRecords()[1:], device.Summary{TotalDevices: 1}); err != nil {
		t.Fatalf("second WriteRun: %v", err)
	}

	n, err := d.HistoryCount("2025-11-04")
	if err != nil {
		t.Fatalf("HistoryCount: %v", err)
	}
	if n != 1 {
		t.Errorf("history rows for replaced date = %d, want 1", n)
	}
	if n, _ := d.HistoryCount("2025-11-05"); n != 1 {
		t.Errorf("other date was touched: %d rows", n)
	}

	summaries, err := d.ListSummaries(0)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(summaries) != 2 || summaries[0].RunDate != "2025-11-05" {
		t.Errorf("summaries = %+v", summaries)
	}
	if sum, _ := d.GetSummary("2025-11-04"); sum == nil || sum.TotalDevices != 1 {
		t.Errorf("summary not replaced: %+v", sum)
	}

	// the run log keeps every invocation
	runs, _ := d.GetRuns("2025-11-04", 0)
	if len(runs) != 2 {
		t.Errorf("runs for 2025-11-04 = %d, want 2", len(runs))
	}

	latest, err := d.LatestRunDate()
	if err != nil || latest != "2025-11-05" {
		t.Errorf("LatestRunDate = %q, %v", latest, err)
	}
}

func TestWriteRunRollsBack(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	orig := device.Summary{TotalDevices: 2, CompliantDevices: 1}
	if err := d.WriteRun(ctx, NewRun("2025-11-04"), testRecords(), orig); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	dup := []device.Record{{Hostname: "pc-09"}, {Hostname: "pc-09"}}
	err := d.WriteRun(ctx, NewRun("2025-11-04"), dup, device.Summary{TotalDevices: 99})
	if err == nil {
		t.Fatal("expected error for duplicate hostname")
	}
	if strings.Contains(err.Error(), "attempts") {
		t.Errorf("non-busy error was wrapped by retry: %v", err)
	}

	if n, _ := d.HistoryCount("2025-11-04"); n != 2 {
		t.Errorf("history rows after failed write = %d, want 2", n)
	}
	sum, err := d.GetSummary("2025-11-04")
	if err != nil || sum == nil || sum.Summary != orig {
		t.Errorf("summary after failed write = %+v, %v; want %+v", sum, err, orig)
	}
	if runs, _ := d.GetRuns("2025-11-04", 0); len(runs) != 1 {
		t.Errorf("failed run was logged: %d runs", len(runs))
	}
}

func TestWriteRunCancelled(t *testing.T) {
	d := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.WriteRun(ctx, NewRun("2025-11-04"), testRecords(), device.Summary{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if n, _ := d.HistoryCount("2025-11-04"); n != 0 {
		t.Errorf("cancelled write stored %d rows", n)
	}
}

func TestGetHistoryFilters(t *testing.T) {
	d := openTestDB(t)
	if err := d.WriteRun(context.Background(), NewRun("2025-11-04"), testRecords(), device.Summary{}); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	got, err := d.GetHistory("2025-11-04", HistoryFilter{Status: "NON-COMPLIANT"})
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 1 || got[0].Hostname != "srv-01" {
		t.Errorf("status filter = %+v", got)
	}

	tests := []struct {
		tool device.Field
		want int
	}{
		{device.FieldCrowdstrikeStatus, 1}, // srv-01 has none
		{device.FieldTaniumStatus, 2},      // pc-01 says not installed
		{device.FieldJamfStatus, 2},
	}
	for _, tt := range tests {
		got, err := d.GetHistory("2025-11-04", HistoryFilter{MissingTool: tt.tool})
		if err != nil {
			t.Fatalf("GetHistory(%s): %v", tt.tool, err)
		}
		if len(got) != tt.want {
			t.Errorf("missing %s = %d devices, want %d", tt.tool, len(got), tt.want)
		}
	}

	if _, err := d.GetHistory("2025-11-04", HistoryFilter{MissingTool: device.FieldOS}); err == nil {
		t.Error("expected error for non-tool field")
	}
}

func TestGetHostHistory(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	for _, date := range []string{"2025-11-03", "2025-11-05", "2025-11-04"} {
		if err := d.WriteRun(ctx, NewRun(date), testRecords(), device.Summary{}); err != nil {
			t.Fatalf("WriteRun %s: %v", date, err)
		}
	}

	entries, err := d.GetHostHistory("srv-01")
	if err != nil {
		t.Fatalf("GetHostHistory: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].RunDate != "2025-11-05" || entries[2].RunDate != "2025-11-03" {
		t.Errorf("entries not newest first: %s .. %s", entries[0].RunDate, entries[2].RunDate)
	}

	if entries, _ := d.GetHostHistory("unknown"); len(entries) != 0 {
		t.Errorf("unknown host returned %d entries", len(entries))
	}
}

func TestGetSummaryMissing(t *testing.T) {
	d := openTestDB(t)
	sum, err := d.GetSummary("1999-01-01")
	if err != nil || sum != nil {
		t.Errorf("GetSummary = %+v, %v; want nil, nil", sum, err)
	}
	latest, err := d.LatestRunDate()
	if err != nil || latest != "" {
		t.Errorf("LatestRunDate on empty db = %q, %v", latest, err)
	}
}

func TestRecentEvents(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	run := NewRun("2025-11-04")
	run.Events = []RunEvent{
		NewEvent(EventNoHostname, "a.csv", "3 rows without a hostname", map[string]interface{}{"rows": 3}),
		NewEvent(EventReadWarning, "b.xlsx", "unreadable", nil),
	}
	if err := d.WriteRun(ctx, run, nil, device.Summary{}); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	events, err := d.GetRecentEvents(1)
	if err != nil {
		t.Fatalf("GetRecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	all, _ := d.GetRunEvents(run.ID)
	if len(all) != 2 || all[0].Details != `{"rows":3}` || all[1].Details != "" {
		t.Errorf("events = %+v", all)
	}
}
