package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/sigreer/assetpulse/internal/canon"
	"github.com/sigreer/assetpulse/internal/classify"
	"github.com/sigreer/assetpulse/internal/db"
	"github.com/sigreer/assetpulse/internal/device"
)

// ANSI colours for compliance percentages
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
)

// Printer renders reports; colour is only used on terminals
type Printer struct {
	w     io.Writer
	color bool
	now   func() time.Time
}

// New returns a printer for w. Colour is enabled when w is a terminal.
func New(w io.Writer) *Printer {
	p := &Printer{w: w, now: time.Now}
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		p.color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return p
}

// PrintJSON writes v as indented JSON
func (p *Printer) PrintJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Summary prints one run's summary block
func (p *Printer) Summary(runDate string, s device.Summary) {
	fmt.Fprintf(p.w, "Run date:     %s\n", runDate)
	fmt.Fprintln(p.w, strings.Repeat("-", 40))
	printCount(p.w, "Devices", s.TotalDevices)
	printCount(p.w, "Active", s.ActiveDevices)
	printCount(p.w, "Compliant", s.CompliantDevices)
	printCount(p.w, "Non-compliant", s.NoncompliantDevices)
	printCount(p.w, "Grace period", s.GraceDevices)
	fmt.Fprintf(p.w, "  %-14s %s\n", "Compliance", p.pct(s.CompliancePct))
	fmt.Fprintln(p.w)
	printCount(p.w, "Workstations", s.Workstations)
	printCount(p.w, "Servers", s.Servers)
	printCount(p.w, "End of life", s.EOLDevices)
	fmt.Fprintln(p.w)
	printCount(p.w, "No CrowdStrike", s.CSMissing)
	printCount(p.w, "No Tanium", s.TaniumMissing)
	printCount(p.w, "No Jamf", s.JamfMissing)
}

// History prints one line per stored summary
func (p *Printer) History(rows []*db.SummaryRow) {
	fmt.Fprintf(p.w, "%-12s %8s %8s %8s %8s %8s %9s %6s %6s %6s\n",
		"RUN DATE", "DEVICES", "ACTIVE", "COMPL", "NONCOMP", "GRACE", "PCT", "CS", "TAN", "JAMF")
	fmt.Fprintln(p.w, strings.Repeat("-", 90))
	for _, r := range rows {
		pct := strconv.FormatFloat(r.CompliancePct, 'f', 2, 64) + "%"
		fmt.Fprintf(p.w, "%-12s %8s %8s %8s %8s %8s %s %6d %6d %6d\n",
			r.RunDate, humanize.Comma(int64(r.TotalDevices)), humanize.Comma(int64(r.ActiveDevices)),
			humanize.Comma(int64(r.CompliantDevices)), humanize.Comma(int64(r.NoncompliantDevices)),
			humanize.Comma(int64(r.GraceDevices)), p.colorize(r.CompliancePct, fmt.Sprintf("%9s", pct)),
			r.CSMissing, r.TaniumMissing, r.JamfMissing)
	}
}

// Devices prints a device table. active may be nil when activity is unknown.
func (p *Printer) Devices(records []device.Record, active func(*device.Record) bool) {
	fmt.Fprintf(p.w, "%-24s %-14s %-16s %-14s %-14s %s\n",
		"HOSTNAME", "TYPE", "STATUS", "LAST SEEN", "TOOLS", "OS")
	fmt.Fprintln(p.w, strings.Repeat("-", 100))

	for i := range records {
		r := &records[i]
		host := truncate(r.Hostname, 24)
		if active != nil && !active(r) {
			host = truncate(r.Hostname, 22) + " *"
		}
		fmt.Fprintf(p.w, "%-24s %-14s %-16s %-14s %-14s %s\n",
			host, truncate(orDash(r.DeviceType), 14), truncate(orDash(r.ComplianceStatus), 16),
			p.lastSeen(r), toolFlags(r), orDash(r.OS))
	}

	fmt.Fprintln(p.w, strings.Repeat("-", 100))
	fmt.Fprintf(p.w, "%s devices", humanize.Comma(int64(len(records))))
	if active != nil {
		fmt.Fprint(p.w, " (* inactive)")
	}
	fmt.Fprintln(p.w)
}

// Host prints a device's snapshots across run dates
func (p *Printer) Host(hostname string, entries []db.HostEntry) {
	fmt.Fprintf(p.w, "Device: %s\n", hostname)
	fmt.Fprintln(p.w, strings.Repeat("-", 40))
	if len(entries) == 0 {
		fmt.Fprintln(p.w, "  no snapshots")
		return
	}

	latest := entries[0].Record
	printField(p.w, "OS", orDash(latest.OS))
	printField(p.w, "Type", orDash(latest.DeviceType))
	printField(p.w, "Status", orDash(latest.ComplianceStatus))
	printField(p.w, "Last Seen", p.lastSeen(&latest))
	if latest.PercentPassing != nil {
		printField(p.w, "Passing", strconv.FormatFloat(*latest.PercentPassing, 'f', -1, 64)+"%")
	}
	printField(p.w, "End of Life", strconv.FormatBool(latest.IsEOL()))
	printField(p.w, "CrowdStrike", orDash(latest.CrowdstrikeStatus))
	printField(p.w, "Tanium", orDash(latest.TaniumStatus))
	printField(p.w, "Jamf", orDash(latest.JamfStatus))

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "Snapshots:")
	for _, e := range entries {
		fmt.Fprintf(p.w, "  %-12s  %s\n", e.RunDate, orDash(e.Record.ComplianceStatus))
	}
}

// Rules prints the effective column rule table
func (p *Printer) Rules(rules []canon.Rule) {
	fmt.Fprintf(p.w, "%-4s %-18s %s\n", "#", "FIELD", "PATTERN")
	fmt.Fprintln(p.w, strings.Repeat("-", 70))
	for i, r := range rules {
		fmt.Fprintf(p.w, "%-4d %-18s %s\n", i+1, r.Field, r.Pattern.String())
	}
}

// Runs prints logged ingest runs
func (p *Printer) Runs(runs []*db.Run) {
	fmt.Fprintf(p.w, "%-36s %-12s %-16s %6s %7s %8s %8s %5s\n",
		"ID", "RUN DATE", "STARTED", "FILES", "SHEETS", "ROWS", "DEVICES", "WARN")
	fmt.Fprintln(p.w, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(p.w, "%-36s %-12s %-16s %6d %7d %8s %8s %5d\n",
			r.ID, r.RunDate, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Files, r.Sheets,
			humanize.Comma(int64(r.Rows)), humanize.Comma(int64(r.Devices)), r.Warnings)
	}
}

// Events prints run diagnostics, one per line
func (p *Printer) Events(events []*db.RunEvent) {
	for _, e := range events {
		fmt.Fprintf(p.w, "%s  %-8s  %-14s %s: %s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), truncate(e.RunID, 8),
			e.EventType, e.Source, e.Message)
	}
}

func (p *Printer) pct(v float64) string {
	return p.colorize(v, strconv.FormatFloat(v, 'f', 2, 64)+"%")
}

func (p *Printer) colorize(v float64, s string) string {
	if !p.color {
		return s
	}
	c := colorGreen
	switch {
	case v < 80:
		c = colorRed
	case v < 95:
		c = colorYellow
	}
	return c + s + colorReset
}

func (p *Printer) lastSeen(r *device.Record) string {
	if r.LastSeen == nil {
		return "-"
	}
	return humanize.RelTime(*r.LastSeen, p.now(), "ago", "from now")
}

// toolFlags renders C/T/J for each tool with a non-missing status
func toolFlags(r *device.Record) string {
	flags := []byte("---")
	for i, f := range device.ToolFields {
		if !classify.ToolMissing(r, f) {
			flags[i] = "CTJ"[i]
		}
	}
	return string(flags)
}

func printCount(w io.Writer, label string, n int) {
	fmt.Fprintf(w, "  %-14s %s\n", label, humanize.Comma(int64(n)))
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-13s %s\n", label+":", value)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
