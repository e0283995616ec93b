package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sigreer/assetpulse/internal/device"
)

// SummaryRow is a stored summary with its run date
type SummaryRow struct {
	RunDate string `json:"run_date"`
	device.Summary
}

func replaceSummary(ctx context.Context, tx *sql.Tx, runDate string, s device.Summary) error {
	_, err := tx.ExecContext(ctx, `
		REPLACE INTO asset_summary (
			run_date, total_devices, active_devices, compliant_devices, noncompliant_devices,
			grace_devices, compliance_pct, workstations, servers, eol_devices,
			cs_missing, tanium_missing, jamf_missing
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runDate, s.TotalDevices, s.ActiveDevices, s.CompliantDevices, s.NoncompliantDevices,
		s.GraceDevices, s.CompliancePct, s.Workstations, s.Servers, s.EOLDevices,
		s.CSMissing, s.TaniumMissing, s.JamfMissing,
	)
	if err != nil {
		return fmt.Errorf("failed to replace summary: %w", err)
	}
	return nil
}

const summaryColumns = `run_date, total_devices, active_devices, compliant_devices,
	noncompliant_devices, grace_devices, compliance_pct, workstations, servers,
	eol_devices, cs_missing, tanium_missing, jamf_missing`

// GetSummary returns the summary for a run date, or nil if none was stored
func (d *DB) GetSummary(runDate string) (*SummaryRow, error) {
	row := d.conn.QueryRow(`SELECT `+summaryColumns+` FROM asset_summary WHERE run_date = ?`, runDate)
	s, err := scanSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}
	return s, nil
}

// ListSummaries returns stored summaries, newest run date first
func (d *DB) ListSummaries(limit int) ([]*SummaryRow, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.conn.Query(`
		SELECT `+summaryColumns+`
		FROM asset_summary
		ORDER BY run_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []*SummaryRow
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestRunDate returns the most recent run date with a summary, or ""
func (d *DB) LatestRunDate() (string, error) {
	var runDate sql.NullString
	if err := d.conn.QueryRow(`SELECT MAX(run_date) FROM asset_summary`).Scan(&runDate); err != nil {
		return "", fmt.Errorf("failed to query latest run date: %w", err)
	}
	return runDate.String, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*SummaryRow, error) {
	var s SummaryRow
	var pct sql.NullFloat64
	var counts [11]sql.NullInt64
	err := row.Scan(&s.RunDate,
		&counts[0], &counts[1], &counts[2], &counts[3], &counts[4], &pct,
		&counts[5], &counts[6], &counts[7], &counts[8], &counts[9], &counts[10],
	)
	if err != nil {
		return nil, err
	}

	s.TotalDevices = int(counts[0].Int64)
	s.ActiveDevices = int(counts[1].Int64)
	s.CompliantDevices = int(counts[2].Int64)
	s.NoncompliantDevices = int(counts[3].Int64)
	s.GraceDevices = int(counts[4].Int64)
	s.CompliancePct = pct.Float64
	s.Workstations = int(counts[5].Int64)
	s.Servers = int(counts[6].Int64)
	s.EOLDevices = int(counts[7].Int64)
	s.CSMissing = int(counts[8].Int64)
	s.TaniumMissing = int(counts[9].Int64)
	s.JamfMissing = int(counts[10].Int64)
	return &s, nil
}
