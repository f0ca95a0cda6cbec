package usb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteEventHistory implements EventHistory using SQLite.
//
// Events are stored in the usb_events table created by the migrations.
type SQLiteEventHistory struct {
	db *sql.DB
}

// NewSQLiteEventHistory creates a new SQLite event history.
func NewSQLiteEventHistory(db *sql.DB) *SQLiteEventHistory {
	return &SQLiteEventHistory{db: db}
}

// Record inserts one registry event.
func (r *SQLiteEventHistory) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	occurred := event.Time
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usb_events (event_id, event_type, vendor, product, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID,
		string(event.Type),
		int64(event.Identity.Vendor),
		int64(event.Identity.Product),
		occurred.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting usb event: %w", err)
	}
	return nil
}

// Recent returns the most recent events, newest first. Limit defaults to
// 50 and is clamped to 200.
func (r *SQLiteEventHistory) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, event_type, vendor, product, occurred_at
		 FROM usb_events
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying usb events: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var entry HistoryEntry
		var eventType string
		var vendor, product int64
		var occurredAt string

		if err := rows.Scan(&entry.RowID, &entry.Event.ID, &eventType, &vendor, &product, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning usb event: %w", err)
		}

		entry.Event.Type = EventType(eventType)
		entry.Event.Identity = Identity{Vendor: uint16(vendor), Product: uint16(product)}

		timestamp, err := time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing usb event timestamp %q: %w", occurredAt, err)
		}
		entry.Event.Time = timestamp.UTC()

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usb events: %w", err)
	}

	return entries, nil
}

// Prune deletes events older than the cutoff and reports how many rows
// were removed. Used by the retention loop.
func (r *SQLiteEventHistory) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM usb_events WHERE occurred_at < ?`,
		before.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning usb events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned usb events: %w", err)
	}
	return n, nil
}
