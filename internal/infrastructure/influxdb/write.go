package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceEvent writes a single hot-plug event to InfluxDB.
//
// This is the primary method for recording hot-plug telemetry. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - identity: Device identity in vvvv:pppp form (e.g., "1d6b:0003")
//   - eventType: "arrived" or "removed"
//   - eventID: Unique event identifier for correlation
//   - timestamp: When the host observed the event
//
// Example:
//
//	client.WriteDeviceEvent("1d6b:0003", "arrived", event.ID, event.Time)
func (c *Client) WriteDeviceEvent(identity, eventType, eventID string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"usb_events",
		map[string]string{
			"identity":   identity,
			"event_type": eventType,
		},
		map[string]interface{}{
			"event_id": eventID,
			"count":    1,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteRegistryGauge writes a snapshot of registry size.
//
// Used for tracking how many devices the host currently knows about,
// broken down by lifecycle state.
//
// Parameters:
//   - total: Total number of registered devices
//   - byState: Device count per lifecycle state name
func (c *Client) WriteRegistryGauge(total int, byState map[string]int) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"total": total,
	}
	for state, count := range byState {
		fields[state] = count
	}

	point := write.NewPoint(
		"usb_registry",
		map[string]string{},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
