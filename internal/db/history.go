package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sigreer/assetpulse/internal/classify"
	"github.com/sigreer/assetpulse/internal/device"
)

// Run describes one ingest invocation
type Run struct {
	ID         string
	RunDate    string
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int
	Sheets     int
	Rows       int
	Devices    int
	Warnings   int
	// Diagnostics stored with the run
	Events []RunEvent
}

// WriteRun replaces the snapshot for run.RunDate: history rows for the date
// are deleted and re-inserted, the summary is replaced and the run is
// logged with its events, all in one transaction.
func (d *DB) WriteRun(ctx context.Context, run Run, records []device.Record, s device.Summary) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM asset_history WHERE run_date = ?`, run.RunDate); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO asset_history (
				run_date, hostname, os, deviceType, complianceStatus, lastSeen,
				percentPassing, endOfLife, crowdstrikeStatus, taniumStatus, jamfStatus
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare history insert: %w", err)
		}
		defer stmt.Close()

		for i := range records {
			r := &records[i]
			lastSeen := sql.NullString{}
			if r.LastSeen != nil {
				lastSeen = sql.NullString{String: r.LastSeenISO(), Valid: true}
			}
			_, err := stmt.ExecContext(ctx,
				run.RunDate, r.Hostname, nullString(r.OS), nullString(r.DeviceType),
				nullString(r.ComplianceStatus), lastSeen, nullFloat(r.PercentPassing),
				nullBool(r.EndOfLife), nullString(r.CrowdstrikeStatus),
				nullString(r.TaniumStatus), nullString(r.JamfStatus),
			)
			if err != nil {
				return fmt.Errorf("failed to insert history for %s: %w", r.Hostname, err)
			}
		}

		if err := replaceSummary(ctx, tx, run.RunDate, s); err != nil {
			return err
		}
		return insertRun(ctx, tx, run)
	})
	if err != nil {
		return fmt.Errorf("failed to write run %s: %w", run.RunDate, err)
	}
	return nil
}

// HistoryFilter narrows a snapshot query
type HistoryFilter struct {
	// Compliance status, matched case-insensitively
	Status string
	// Tool field whose status is empty or says missing / not installed
	MissingTool device.Field
}

const historyColumns = `hostname, os, deviceType, complianceStatus, lastSeen,
	percentPassing, endOfLife, crowdstrikeStatus, taniumStatus, jamfStatus`

// GetHistory returns the device snapshot stored for a run date
func (d *DB) GetHistory(runDate string, filter HistoryFilter) ([]device.Record, error) {
	query := `SELECT ` + historyColumns + ` FROM asset_history WHERE run_date = ?`
	args := []any{runDate}

	if filter.Status != "" {
		query += ` AND LOWER(complianceStatus) = ?`
		args = append(args, strings.ToLower(filter.Status))
	}
	if filter.MissingTool != "" && !isToolField(filter.MissingTool) {
		return nil, fmt.Errorf("not a tool field: %s", filter.MissingTool)
	}
	query += ` ORDER BY hostname`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []device.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if filter.MissingTool != "" && !classify.ToolMissing(&r, filter.MissingTool) {
			continue
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// HostEntry is one device snapshot row with its run date
type HostEntry struct {
	RunDate string
	Record  device.Record
}

// GetHostHistory returns every stored snapshot of a hostname, newest run first
func (d *DB) GetHostHistory(hostname string) ([]HostEntry, error) {
	rows, err := d.conn.Query(`
		SELECT run_date, `+historyColumns+`
		FROM asset_history
		WHERE hostname = ?
		ORDER BY run_date DESC
	`, hostname)
	if err != nil {
		return nil, fmt.Errorf("failed to query host history: %w", err)
	}
	defer rows.Close()

	var entries []HostEntry
	for rows.Next() {
		var e HostEntry
		var runDate string
		r, err := scanRecord(rows, &runDate)
		if err != nil {
			return nil, err
		}
		e.RunDate = runDate
		e.Record = r
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HistoryCount returns the number of device rows stored for a run date
func (d *DB) HistoryCount(runDate string) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM asset_history WHERE run_date = ?`, runDate).Scan(&n)
	return n, err
}

func isToolField(f device.Field) bool {
	for _, t := range device.ToolFields {
		if t == f {
			return true
		}
	}
	return false
}

// scanRecord scans one history row; lead receives any columns selected
// before the record columns.
func scanRecord(rows *sql.Rows, lead ...any) (device.Record, error) {
	var r device.Record
	var osName, deviceType, status, lastSeen, cs, tanium, jamf sql.NullString
	var pct sql.NullFloat64
	var eol sql.NullInt64

	dest := append(lead,
		&r.Hostname, &osName, &deviceType, &status, &lastSeen,
		&pct, &eol, &cs, &tanium, &jamf,
	)
	if err := rows.Scan(dest...); err != nil {
		return r, fmt.Errorf("failed to scan history row: %w", err)
	}

	r.OS = strPtr(osName)
	r.DeviceType = strPtr(deviceType)
	r.ComplianceStatus = strPtr(status)
	r.CrowdstrikeStatus = strPtr(cs)
	r.TaniumStatus = strPtr(tanium)
	r.JamfStatus = strPtr(jamf)
	if lastSeen.Valid {
		if t, err := time.Parse(device.TimeLayout, lastSeen.String); err == nil {
			r.LastSeen = &t
		}
	}
	if pct.Valid {
		f := pct.Float64
		r.PercentPassing = &f
	}
	if eol.Valid {
		b := eol.Int64 != 0
		r.EndOfLife = &b
	}
	return r, nil
}
