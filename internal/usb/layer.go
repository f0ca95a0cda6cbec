package usb

// DeviceRef is an opaque reference to an attached device as reported by
// the device layer. It identifies a device that exists on the bus whether
// or not it is open; the layer alone knows what is behind it.
type DeviceRef any

// Handle is an opaque token for an open device, obtained from Layer.Open
// and meaningful only to the Layer that issued it.
type Handle any

// Events receives hot-plug notifications from the device layer.
//
// The layer invokes these methods from its own notification goroutine for
// each relevant event. Implementations must be quick and must not call
// back into the layer; the Host satisfies this by making every registry
// mutation a short, lock-only operation and deferring all user code to
// the worker.
type Events interface {
	// DeviceArrived reports that a device has been connected.
	DeviceArrived(ref DeviceRef)

	// DeviceLeft reports that a device has been disconnected.
	DeviceLeft(ref DeviceRef)
}

// Layer is the narrow contract the core requires from the underlying USB
// enumeration and I/O subsystem. The production implementation wraps
// libusb (package libusb); tests substitute a scripted fake.
//
// Identity must be a read-only, non-blocking descriptor query: it is the
// one Layer call the Host makes while holding its registry lock.
type Layer interface {
	// Identity extracts the vendor/product identity from a device
	// reference. It returns ErrIdentityUnavailable (possibly wrapped)
	// when the descriptor cannot be read.
	Identity(ref DeviceRef) (Identity, error)

	// Open acquires a handle for I/O and configuration operations.
	Open(ref DeviceRef) (Handle, error)

	// Close releases a handle. Safe to call with a handle whose device
	// has physically gone.
	Close(h Handle)

	// SetConfiguration activates the numbered configuration.
	SetConfiguration(h Handle, config int) error

	// ClaimInterface claims the numbered interface of the active
	// configuration.
	ClaimInterface(h Handle, number int) error

	// ReleaseInterface releases a previously claimed interface. Errors
	// are not reported; release is best-effort by contract.
	ReleaseInterface(h Handle, number int)

	// ResetPort performs a USB port reset.
	ResetPort(h Handle) error

	// ClearHalt clears a halt/stall condition on the given endpoint
	// address.
	ClearHalt(h Handle, endpoint int) error

	// Enumerate returns references for every device currently present.
	// Used only for the snapshot fallback when Subscribe is unsupported.
	Enumerate() ([]DeviceRef, error)

	// Subscribe registers for hot-plug events, delivered on a goroutine
	// owned by the layer. Returns ErrNotificationsUnsupported when the
	// platform has no asynchronous notification support.
	Subscribe(events Events) error

	// Unsubscribe deregisters the hot-plug subscription. Safe to call
	// when no subscription is active.
	Unsubscribe()
}
