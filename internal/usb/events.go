package usb

import "time"

// EventType classifies a registry event.
type EventType string

const (
	// EventArrived is recorded when a device is inserted into the registry.
	EventArrived EventType = "arrived"

	// EventRemoved is recorded when a device is erased from the registry.
	EventRemoved EventType = "removed"
)

// Event describes a single registry mutation for observers: the MQTT
// announcer, the telemetry writer, and the persistent event history.
type Event struct {
	// ID is a unique identifier for this event, usable for correlation
	// across sinks.
	ID string `json:"id"`

	// Type is the event classification.
	Type EventType `json:"type"`

	// Identity is the vendor/product identity of the device concerned.
	Identity Identity `json:"identity"`

	// Time is when the host observed the event (UTC).
	Time time.Time `json:"time"`
}

// EventSink consumes registry events.
//
// Sinks are invoked on the host's worker goroutine, one event at a time,
// in registry order, never on the notification goroutine. A sink that
// blocks delays later events and the user callback, so sinks should hand
// slow I/O to their own machinery (the MQTT and InfluxDB clients both
// write asynchronously).
type EventSink interface {
	DeviceEvent(event Event)
}
