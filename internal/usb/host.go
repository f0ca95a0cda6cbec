package usb

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/usb-host-core/internal/worker"
)

// Logger defines the logging interface used by the Host.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Callback is invoked for each newly arrived device. It runs on the
// host's worker goroutine, never on the caller's goroutine and never on
// the device layer's notification goroutine.
type Callback func(*Device)

// Option configures a Host.
type Option func(*Host)

// WithCallback sets the user callback invoked for each fresh arrival.
func WithCallback(cb Callback) Option {
	return func(h *Host) { h.onArrival = cb }
}

// WithLogger sets the logger for the host and its worker.
func WithLogger(logger Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// WithSink registers an event sink. Sinks receive arrival and removal
// events on the worker goroutine, in registry order.
func WithSink(sink EventSink) Option {
	return func(h *Host) {
		if sink != nil {
			h.sinks = append(h.sinks, sink)
		}
	}
}

// Host owns the registry of currently-present devices and reconciles the
// device layer's hot-plug notifications into it.
//
// The registry maps Identity to a shared *Device record. A key is present
// exactly while the device layer most recently reported that identity as
// arrived; re-arrival of a present identity is a no-op (first-arrival-wins,
// no duplicate callback), and removal erases the entry without touching
// the record itself; holders of the record keep a usable reference and
// observe invalidation through Device.Valid, not registry membership.
//
// The registry mutex protects only the map and is never held across a
// device-layer handle operation; the only layer call made under it is the
// read-only identity query performed by the notification bridge.
type Host struct {
	layer  Layer
	worker *worker.Worker
	logger Logger

	onArrival Callback
	sinks     []EventSink
	// dispatch is fixed at construction: with no callback and no sinks
	// the worker never starts and nothing may be queued onto it.
	dispatch bool

	mu      sync.Mutex
	devices map[Identity]*Device

	notifications bool
}

// New creates a Host over the given device layer, subscribes to hot-plug
// notifications and, when the platform cannot deliver them, falls back to
// a one-shot enumeration snapshot fed through the same arrival path.
//
// The degraded snapshot-only condition is reported once here (a warning
// log) and remains observable via NotificationsSupported; it is not an
// operational error.
func New(layer Layer, opts ...Option) (*Host, error) {
	h := &Host{
		layer:   layer,
		worker:  worker.New(),
		logger:  noopLogger{},
		devices: make(map[Identity]*Device),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.dispatch = h.onArrival != nil || len(h.sinks) > 0
	if h.dispatch {
		h.worker.SetLogger(h.logger)
		h.worker.Start(true)
	}

	err := layer.Subscribe(h)
	switch {
	case err == nil:
		h.notifications = true
	case errors.Is(err, ErrNotificationsUnsupported):
		h.logger.Warn("hot-plug notifications unsupported, falling back to snapshot enumeration")
		h.discover()
	default:
		h.worker.Stop()
		return nil, fmt.Errorf("subscribing to hot-plug events: %w", err)
	}

	return h, nil
}

// NotificationsSupported reports whether the device layer delivers
// asynchronous hot-plug events. When false the registry holds only the
// snapshot taken at construction.
func (h *Host) NotificationsSupported() bool {
	return h.notifications
}

// DeviceArrived implements Events. It is called by the device layer on
// its notification goroutine for each arrival, and by the snapshot
// fallback; both paths share this one reconciliation routine.
func (h *Host) DeviceArrived(ref DeviceRef) {
	identity, err := h.layer.Identity(ref)
	if err != nil {
		// A device whose descriptor cannot be read cannot be reported
		// meaningfully; log and drop the event.
		h.logger.Warn("dropping arrival, identity unavailable", "error", err)
		return
	}

	h.mu.Lock()
	if _, exists := h.devices[identity]; exists {
		h.mu.Unlock()
		h.logger.Debug("re-arrival of present identity ignored", "identity", identity.String())
		return
	}
	dev := NewDevice(h.layer, ref, identity)
	h.devices[identity] = dev
	h.mu.Unlock()

	h.logger.Info("device arrived", "identity", identity.String())
	h.publish(EventArrived, identity, dev)
}

// DeviceLeft implements Events. Removal erases the registry entry only;
// a record obtained before removal stays alive and valid for its holders.
func (h *Host) DeviceLeft(ref DeviceRef) {
	identity, err := h.layer.Identity(ref)
	if err != nil {
		h.logger.Warn("dropping removal, identity unavailable", "error", err)
		return
	}

	h.mu.Lock()
	_, present := h.devices[identity]
	if present {
		delete(h.devices, identity)
	}
	h.mu.Unlock()

	if !present {
		return
	}

	h.logger.Info("device removed", "identity", identity.String())
	h.publish(EventRemoved, identity, nil)
}

// publish queues the user callback (arrivals only) and the event sinks
// onto the worker. User code never runs on the notification goroutine.
func (h *Host) publish(typ EventType, identity Identity, dev *Device) {
	if !h.dispatch {
		return
	}

	event := Event{
		ID:       uuid.NewString(),
		Type:     typ,
		Identity: identity,
		Time:     time.Now().UTC(),
	}

	h.worker.Push(func() {
		if typ == EventArrived && h.onArrival != nil && dev != nil {
			h.onArrival(dev)
		}
		for _, sink := range h.sinks {
			sink.DeviceEvent(event)
		}
	})
}

// GetDevice returns the record for the given vendor/product identity, or
// nil when no such device is present. The lookup never blocks on
// device-layer I/O.
func (h *Host) GetDevice(vendor, product uint16) *Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.devices[Identity{Vendor: vendor, Product: product}]
}

// Devices returns snapshots of every present device, ordered by identity.
func (h *Host) Devices() []Snapshot {
	records := h.records()
	snaps := make([]Snapshot, 0, len(records))
	for _, dev := range records {
		snaps = append(snaps, dev.Snapshot())
	}
	return snaps
}

// records returns the present records ordered by identity. The registry
// lock is released before any record is touched.
func (h *Host) records() []*Device {
	h.mu.Lock()
	records := make([]*Device, 0, len(h.devices))
	for _, dev := range h.devices {
		records = append(records, dev)
	}
	h.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].Identity().Less(records[j].Identity())
	})
	return records
}

// CloseAll closes every present record's handle, in identity order. It
// does not remove entries from the registry; it is used at shutdown,
// immediately before the device layer itself is torn down.
func (h *Host) CloseAll() {
	for _, dev := range h.records() {
		dev.Close()
	}
}

// Close shuts the host down: it deregisters the hot-plug subscription so
// no further notifications arrive, stops the worker (discarding queued
// callbacks), and closes every device.
func (h *Host) Close() {
	h.layer.Unsubscribe()
	h.worker.Stop()
	h.CloseAll()
}

// discover feeds every currently present device through the arrival path.
// Used only when the device layer has no asynchronous notifications.
func (h *Host) discover() {
	refs, err := h.layer.Enumerate()
	if err != nil {
		h.logger.Error("snapshot enumeration failed", "error", err)
		return
	}
	for _, ref := range refs {
		h.DeviceArrived(ref)
	}
}

// Stats summarises the registry for monitoring.
type Stats struct {
	Devices       int            `json:"devices"`
	ByState       map[string]int `json:"by_state"`
	Notifications bool           `json:"notifications"`
	Worker        worker.Stats   `json:"worker"`
}

// Stats returns current registry statistics.
func (h *Host) Stats() Stats {
	snaps := h.Devices()

	stats := Stats{
		Devices:       len(snaps),
		ByState:       make(map[string]int),
		Notifications: h.notifications,
		Worker:        h.worker.Stats(),
	}
	for _, snap := range snaps {
		stats.ByState[snap.State]++
	}
	return stats
}
