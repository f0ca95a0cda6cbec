// Package telemetry forwards registry events to InfluxDB.
//
// The writer is an event sink on the host's worker goroutine. The InfluxDB
// client batches and writes asynchronously, so sink invocations return
// immediately.
package telemetry

import (
	"time"

	"github.com/nerrad567/usb-host-core/internal/usb"
)

// Writer is the InfluxDB surface the sink needs.
type Writer interface {
	WriteDeviceEvent(identity, eventType, eventID string, timestamp time.Time)
}

// Sink records one time-series point per registry event.
type Sink struct {
	writer Writer
}

// New creates a telemetry sink over the given writer.
func New(writer Writer) *Sink {
	return &Sink{writer: writer}
}

// DeviceEvent implements usb.EventSink.
func (s *Sink) DeviceEvent(event usb.Event) {
	s.writer.WriteDeviceEvent(
		event.Identity.String(),
		string(event.Type),
		event.ID,
		event.Time,
	)
}
