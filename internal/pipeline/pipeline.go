package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sigreer/assetpulse/internal/canon"
	"github.com/sigreer/assetpulse/internal/classify"
	"github.com/sigreer/assetpulse/internal/db"
	"github.com/sigreer/assetpulse/internal/device"
	"github.com/sigreer/assetpulse/internal/merge"
	"github.com/sigreer/assetpulse/internal/sheet"
	"github.com/sigreer/assetpulse/internal/summary"
)

// Sink persists one run's snapshot and summary
type Sink interface {
	WriteRun(ctx context.Context, run db.Run, records []device.Record, s device.Summary) error
}

// Options control one pipeline run
type Options struct {
	RunDate string
	// Reference time for the activity window; zero means time.Now()
	Now time.Time
	// Activity window; zero means classify.DefaultWindow
	Window time.Duration
	Mapper *canon.Mapper
}

// Result is everything a run computed
type Result struct {
	RunDate string
	Sheets  int
	Rows    int
	Devices []classify.Device
	Summary device.Summary
	// Fields that appeared as a column in at least one sheet
	Present map[device.Field]bool
	// Rows dropped for lack of a hostname, summed over sheets
	Unnamed int
	Events  []db.RunEvent
}

// Records returns the merged device records
func (r *Result) Records() []device.Record {
	out := make([]device.Record, len(r.Devices))
	for i, d := range r.Devices {
		out[i] = d.Record
	}
	return out
}

// Process runs raw sheets through canonicalization, dedupe, classification
// and aggregation. Sheets are processed in the order given; that order
// decides ties between equally complete duplicates.
func Process(sheets []sheet.Sheet, opts Options) *Result {
	mapper := opts.Mapper
	if mapper == nil {
		mapper = canon.NewMapper()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	res := &Result{
		RunDate: opts.RunDate,
		Sheets:  len(sheets),
		Present: make(map[device.Field]bool),
	}

	var rows []device.Record
	for _, s := range sheets {
		c := mapper.Sheet(s)
		for f := range c.Present {
			res.Present[f] = true
		}
		rows = append(rows, c.Records...)

		unnamed := 0
		for i := range c.Records {
			if c.Records[i].Hostname == "" {
				unnamed++
			}
		}
		if unnamed > 0 {
			res.Unnamed += unnamed
			res.Events = append(res.Events, db.NewEvent(db.EventNoHostname, s.Source,
				fmt.Sprintf("%d rows without a hostname", unnamed),
				map[string]interface{}{"rows": unnamed, "columns": s.Names()}))
		}
	}
	res.Rows = len(rows)

	merged := merge.Deduplicate(rows)
	res.Devices = classify.Classify(merged, now, opts.Window)
	res.Summary = summary.Compute(res.Devices, res.Present)
	return res
}

// Run processes sheets and writes the outcome to sink under opts.RunDate
func Run(ctx context.Context, sink Sink, sheets []sheet.Sheet, opts Options, run db.Run) (*Result, error) {
	if opts.RunDate == "" {
		return nil, fmt.Errorf("run date is required")
	}
	res := Process(sheets, opts)

	run.RunDate = opts.RunDate
	run.Sheets = res.Sheets
	run.Rows = res.Rows
	run.Devices = len(res.Devices)
	run.Events = append(run.Events, res.Events...)
	run.FinishedAt = time.Now()

	if err := sink.WriteRun(ctx, run, res.Records(), res.Summary); err != nil {
		return nil, err
	}
	return res, nil
}
