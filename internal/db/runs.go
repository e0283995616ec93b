package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRun starts a run record for runDate with a fresh ID
func NewRun(runDate string) Run {
	return Run{
		ID:        uuid.NewString(),
		RunDate:   runDate,
		StartedAt: time.Now(),
	}
}

func insertRun(ctx context.Context, tx *sql.Tx, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ingest_runs (
			id, run_date, started_at, finished_at, file_count, sheet_count,
			row_count, device_count, warning_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.RunDate, run.StartedAt, run.FinishedAt, run.Files, run.Sheets,
		run.Rows, run.Devices, run.Warnings)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return insertEvents(ctx, tx, run.ID, run.Events)
}

// GetRuns returns logged runs, most recent first. An empty runDate lists all.
func (d *DB) GetRuns(runDate string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, run_date, started_at, finished_at, file_count, sheet_count,
			row_count, device_count, warning_count
		FROM ingest_runs`
	args := []any{}
	if runDate != "" {
		query += ` WHERE run_date = ?`
		args = append(args, runDate)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		err := rows.Scan(&r.ID, &r.RunDate, &r.StartedAt, &r.FinishedAt, &r.Files,
			&r.Sheets, &r.Rows, &r.Devices, &r.Warnings)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
