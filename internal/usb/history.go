package usb

import (
	"context"
	"time"
)

// History limits for queries.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryEntry is a persisted registry event.
//
// The history provides a local audit trail of hot-plug activity, which
// identities came and went and when, surviving restarts of the daemon.
type HistoryEntry struct {
	// RowID is the auto-incremented primary key for the history row.
	RowID int64 `json:"row_id"`

	// Event is the registry event as it was observed.
	Event Event `json:"event"`
}

// EventHistory stores and retrieves registry events.
//
// Implementations must be thread-safe and use UTC timestamps.
type EventHistory interface {
	// Record persists one registry event.
	Record(ctx context.Context, event Event) error

	// Recent returns the most recent events, newest first. Limit may be
	// clamped by the implementation.
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// historyWriteTimeout bounds a single history insert. The write runs on
// the worker goroutine; a wedged database must not stall callback
// delivery indefinitely.
const historyWriteTimeout = 5 * time.Second

// HistorySink adapts an EventHistory to the EventSink interface, logging
// instead of propagating write failures; history is an observer, not a
// participant, of registry reconciliation.
type HistorySink struct {
	history EventHistory
	logger  Logger
}

// NewHistorySink creates a sink recording events into history.
func NewHistorySink(history EventHistory, logger Logger) *HistorySink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &HistorySink{history: history, logger: logger}
}

// DeviceEvent implements EventSink.
func (s *HistorySink) DeviceEvent(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := s.history.Record(ctx, event); err != nil {
		s.logger.Error("recording device event",
			"event_id", event.ID,
			"identity", event.Identity.String(),
			"error", err,
		)
	}
}
