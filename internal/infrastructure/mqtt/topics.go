package mqtt

import "fmt"

// Topic prefixes for the USB host daemon.
//
// All topics use the flat scheme: usbhost/{category}/{identity_or_id}
const (
	// TopicPrefix is the base for all daemon topics.
	TopicPrefix = "usbhost"

	// TopicPrefixDevice is the base for per-device topics.
	TopicPrefixDevice = "usbhost/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "usbhost/system"
)

// Topics provides builders for USB host MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.DeviceEvent("1d6b:0003")
//	// Returns: "usbhost/device/1d6b:0003/event"
type Topics struct{}

// DeviceEvent returns the topic for hot-plug events of one identity.
//
// Example: usbhost/device/1d6b:0003/event
func (Topics) DeviceEvent(identity string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixDevice, identity)
}

// DeviceState returns the topic for lifecycle state announcements of one
// identity.
//
// Example: usbhost/device/1d6b:0003/state
func (Topics) DeviceState(identity string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDevice, identity)
}

// Events returns the firehose topic carrying every registry event.
//
// Example: usbhost/events
func (Topics) Events() string {
	return fmt.Sprintf("%s/events", TopicPrefix)
}

// SystemStatus returns the daemon status topic.
//
// Example: usbhost/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the remote shutdown command topic. The daemon
// subscribes here and begins a graceful shutdown on any message.
//
// Example: usbhost/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}
