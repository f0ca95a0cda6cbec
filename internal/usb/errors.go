package usb

import "errors"

// Domain errors for the usb package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, usb.ErrDeviceInvalid) {
//	    // record is permanently unusable
//	}
var (
	// ErrInvalidIdentity is returned when an identity string cannot be parsed.
	ErrInvalidIdentity = errors.New("usb: invalid identity")

	// ErrIdentityUnavailable is returned when the device layer cannot read
	// a device's descriptor. Arrival and removal events for such devices
	// are logged and dropped.
	ErrIdentityUnavailable = errors.New("usb: identity unavailable")

	// ErrDeviceInvalid is returned for state-changing operations on a
	// record that has been invalidated by a failed port reset. The state
	// is terminal; no device-layer call is attempted.
	ErrDeviceInvalid = errors.New("usb: device invalidated")

	// ErrNotOpen is returned when an operation requires an open handle
	// and the device has none.
	ErrNotOpen = errors.New("usb: device not open")

	// ErrAlreadyOpen is returned when opening a device that already has
	// an open handle.
	ErrAlreadyOpen = errors.New("usb: device already open")

	// ErrNoConfiguration is returned when claiming an interface before a
	// configuration has been selected.
	ErrNoConfiguration = errors.New("usb: no configuration selected")

	// ErrNotificationsUnsupported is returned by a Layer whose platform
	// cannot deliver asynchronous hot-plug events. The host degrades to
	// a one-shot enumeration snapshot at startup.
	ErrNotificationsUnsupported = errors.New("usb: hot-plug notifications unsupported")
)
