// Package announce publishes registry events over MQTT.
//
// The announcer is an event sink on the host's worker goroutine. Publishes
// go through the paho client's own buffering, so a slow broker does not
// stall callback delivery beyond the publish timeout.
package announce

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/usb-host-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/usb-host-core/internal/usb"
)

// Publisher is the MQTT surface the announcer needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the announcer's logging dependency.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// message is the wire format for event announcements.
type message struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Identity string `json:"identity"`
	Vendor   uint16 `json:"vendor"`
	Product  uint16 `json:"product"`
	Time     string `json:"time"`
}

// Announcer publishes each registry event to the per-device event topic
// and the firehose topic, plus a retained presence marker on the
// per-device state topic.
type Announcer struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger
}

// New creates an announcer publishing at the given QoS.
func New(pub Publisher, qos byte, logger Logger) *Announcer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Announcer{pub: pub, qos: qos, logger: logger}
}

// DeviceEvent implements usb.EventSink. Publish failures are logged, not
// propagated: announcements are best-effort.
func (a *Announcer) DeviceEvent(event usb.Event) {
	payload, err := json.Marshal(message{
		ID:       event.ID,
		Type:     string(event.Type),
		Identity: event.Identity.String(),
		Vendor:   event.Identity.Vendor,
		Product:  event.Identity.Product,
		Time:     event.Time.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		a.logger.Warn("encoding device event", "event_id", event.ID, "error", err)
		return
	}

	device := a.topics.DeviceEvent(event.Identity.String())
	if err := a.pub.Publish(device, payload, a.qos, false); err != nil {
		a.logger.Warn("publishing device event",
			"topic", device,
			"event_id", event.ID,
			"error", err,
		)
	}

	firehose := a.topics.Events()
	if err := a.pub.Publish(firehose, payload, a.qos, false); err != nil {
		a.logger.Warn("publishing device event",
			"topic", firehose,
			"event_id", event.ID,
			"error", err,
		)
	}

	// Retained state marker so late joiners see the current presence of
	// each device without replaying the event stream.
	presence := "present"
	if event.Type == usb.EventRemoved {
		presence = "gone"
	}
	state := a.topics.DeviceState(event.Identity.String())
	if err := a.pub.Publish(state, []byte(presence), a.qos, true); err != nil {
		a.logger.Warn("publishing device state",
			"topic", state,
			"event_id", event.ID,
			"error", err,
		)
	}
}
