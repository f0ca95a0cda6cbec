// Package usb provides the device registry for usb-host-core.
//
// The registry is the authoritative catalogue of USB devices currently
// attached to the host. It reconciles asynchronous hot-plug notifications,
// delivered on a goroutine owned by the device layer (possibly while
// the application is itself mid-call into that layer), into a consistent
// identity-keyed map, and answers thread-safe lookups.
//
// # Key Types
//
//   - Identity: the (vendor, product) registry key
//   - Device: the shared, mutable per-device record (handle, claimed
//     interface, lifecycle state)
//   - Host: the registry plus the notification bridge
//   - Layer: the narrow contract onto the underlying USB subsystem
//     (package libusb in production, a scripted fake in tests)
//
// # Concurrency model
//
// Two goroutines are structurally significant: the device layer's
// notification goroutine, which the application does not control, and the
// single worker goroutine that runs user callbacks and event sinks.
// The rule that keeps them apart is strict: user-supplied code never runs
// on the notification goroutine. The bridge performs only a read-only
// identity query and a short, lock-only map mutation there, then hands
// everything else to the worker.
//
// The registry mutex guards the identity map alone and is never held
// across a device-layer handle operation. Each Device record carries its
// own mutex for open/configure/close/reset, taken only after the registry
// mutex has been released.
//
// # Lifecycle and validity
//
// Records move through created → opened → configured → closed, with one
// terminal exception: a failed port reset moves the record to invalid,
// permanently. Removal from the registry does not invalidate a record
// (holders keep a usable reference), so callers check Device.Valid, before
// and after state-changing calls, rather than registry membership.
//
// # Usage
//
//	host, err := usb.New(layer,
//	    usb.WithLogger(log),
//	    usb.WithCallback(func(dev *usb.Device) {
//	        // runs on the worker goroutine
//	    }),
//	)
//	defer host.Close()
//
//	if dev := host.GetDevice(0x1d6b, 0x0003); dev != nil && dev.Valid() {
//	    _ = dev.Open()
//	}
package usb
