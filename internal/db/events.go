package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types logged against a run
const (
	EventReadWarning = "read_warning"
	EventNoHostname  = "no_hostname"
)

// RunEvent is one diagnostic logged during an ingest run
type RunEvent struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event; details are stored as JSON when non-nil
func NewEvent(eventType, source, message string, details map[string]interface{}) RunEvent {
	e := RunEvent{EventType: eventType, Source: source, Message: message, Timestamp: time.Now()}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			e.Details = string(b)
		}
	}
	return e
}

func insertEvents(ctx context.Context, tx *sql.Tx, runID string, events []RunEvent) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_events (run_id, event_type, source, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		details := sql.NullString{String: e.Details, Valid: e.Details != ""}
		if _, err := stmt.ExecContext(ctx, runID, e.EventType, e.Source, e.Message, details, ts); err != nil {
			return fmt.Errorf("failed to record event: %w", err)
		}
	}
	return nil
}

// GetRunEvents returns the events logged for one run, in logging order
func (d *DB) GetRunEvents(runID string) ([]*RunEvent, error) {
	rows, err := d.conn.Query(`
		SELECT id, run_id, event_type, source, message, details, timestamp
		FROM run_events
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetRecentEvents returns the most recent events across all runs
func (d *DB) GetRecentEvents(limit int) ([]*RunEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.conn.Query(`
		SELECT id, run_id, event_type, source, message, details, timestamp
		FROM run_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*RunEvent, error) {
	var events []*RunEvent
	for rows.Next() {
		var event RunEvent
		var details sql.NullString

		err := rows.Scan(
			&event.ID, &event.RunID, &event.EventType,
			&event.Source, &event.Message, &details, &event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Details = details.String

		events = append(events, &event)
	}

	return events, rows.Err()
}
