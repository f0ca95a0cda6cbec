package usb

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a Device record.
//
// Illegal transitions are rejected explicitly rather than silently
// tolerated: in particular StateInvalid is terminal: once a failed port
// reset invalidates a record, nothing brings it back.
type State int

const (
	// StateCreated means the identity is known but no handle is held.
	StateCreated State = iota

	// StateOpened means a handle has been acquired.
	StateOpened

	// StateConfigured means a configuration is active and an interface
	// is claimed.
	StateConfigured

	// StateClosed means the handle has been released; the device may be
	// reopened.
	StateClosed

	// StateInvalid means the device must be treated as gone. Terminal.
	StateInvalid
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpened:
		return "opened"
	case StateConfigured:
		return "configured"
	case StateClosed:
		return "closed"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// noClaim marks the claimed-interface field as empty.
const noClaim = -1

// Device is the mutable, shared state holder for one physical device:
// its identity, its current handle and lifecycle state, and the interface
// it has claimed.
//
// Records are shared by pointer between the Host's registry and any
// caller that obtained one; a caller may keep using a record after the
// registry has evicted it on removal. Removal from the registry and
// invalidation are independent; callers must check Valid rather than
// relying on registry membership, and must re-check it after any
// state-changing call, since a reset on another goroutine holding the
// same record can invalidate it at any time.
//
// All methods are safe for concurrent use; handle operations are
// serialised by the record's own mutex, which is never held together
// with the Host's registry lock.
type Device struct {
	identity Identity
	ref      DeviceRef
	layer    Layer

	mu      sync.Mutex
	state   State
	handle  Handle
	claimed int
	lastErr error
}

// NewDevice creates a record in StateCreated for the given reference.
func NewDevice(layer Layer, ref DeviceRef, identity Identity) *Device {
	return &Device{
		identity: identity,
		ref:      ref,
		layer:    layer,
		state:    StateCreated,
		claimed:  noClaim,
	}
}

// Identity returns the vendor/product identity of the device.
func (d *Device) Identity() Identity {
	return d.identity
}

// State returns the current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Valid reports whether the record is still usable. It becomes false
// permanently after a failed port reset.
func (d *Device) Valid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state != StateInvalid
}

// LastError returns the error recorded by the most recent failed
// device-layer operation on this record, or nil.
func (d *Device) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Handle returns the current native handle, or nil when the device is not
// open. Diagnostics only; the handle stays owned by the record.
func (d *Device) Handle() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle
}

// Ref returns the device-layer reference this record was created from.
func (d *Device) Ref() DeviceRef {
	return d.ref
}

// Open acquires a handle from the device layer.
//
// Opening an already-open device is a no-op. On failure the record stays
// in its previous state and the error is recorded as the last error.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateInvalid:
		return ErrDeviceInvalid
	case StateOpened, StateConfigured:
		return nil
	case StateCreated, StateClosed:
	}

	handle, err := d.layer.Open(d.ref)
	if err != nil {
		d.lastErr = err
		return fmt.Errorf("opening %s: %w", d.identity, err)
	}

	d.handle = handle
	d.state = StateOpened
	return nil
}

// Configure activates the numbered configuration and claims the numbered
// interface, as a unit.
//
// Any previously claimed interface is released first. If the interface
// claim fails after a successful configuration select, the record remains
// opened but unconfigured and the error is recorded.
func (d *Device) Configure(config, number int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateInvalid:
		return ErrDeviceInvalid
	case StateCreated, StateClosed:
		return ErrNotOpen
	case StateOpened, StateConfigured:
	}

	if d.claimed != noClaim {
		d.layer.ReleaseInterface(d.handle, d.claimed)
		d.claimed = noClaim
		d.state = StateOpened
	}

	if err := d.layer.SetConfiguration(d.handle, config); err != nil {
		d.lastErr = err
		return fmt.Errorf("selecting configuration %d on %s: %w", config, d.identity, err)
	}

	if err := d.layer.ClaimInterface(d.handle, number); err != nil {
		d.lastErr = err
		return fmt.Errorf("claiming interface %d on %s: %w", number, d.identity, err)
	}

	d.claimed = number
	d.state = StateConfigured
	return nil
}

// Close releases any claimed interface and then the handle. Idempotent;
// closing an unopened or invalidated record is a no-op.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

// closeLocked releases the claim and handle. Caller holds d.mu.
func (d *Device) closeLocked() {
	if d.handle == nil {
		return
	}

	if d.claimed != noClaim {
		d.layer.ReleaseInterface(d.handle, d.claimed)
		d.claimed = noClaim
	}
	d.layer.Close(d.handle)
	d.handle = nil

	if d.state != StateInvalid {
		d.state = StateClosed
	}
}

// Reset performs a USB port reset.
//
// A failed reset permanently invalidates the record: the claimed
// interface and handle are released best-effort and the state becomes
// StateInvalid, after which every state-changing operation fails fast
// without touching the device layer. Resetting an unopened device is a
// no-op.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateInvalid {
		return ErrDeviceInvalid
	}
	if d.handle == nil {
		return nil
	}

	if err := d.layer.ResetPort(d.handle); err != nil {
		d.lastErr = err
		// The handle may now refer to a device the bus no longer has.
		d.closeLocked()
		d.state = StateInvalid
		return fmt.Errorf("resetting %s: %w", d.identity, err)
	}
	return nil
}

// ClearHalt clears the halt/stall condition on the given endpoint
// address. It does not change the lifecycle state; it shares the record
// mutex with open/close/reset so it cannot race a concurrent close.
// Clearing a halt on an unopened device is a no-op.
func (d *Device) ClearHalt(endpoint int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateInvalid {
		return ErrDeviceInvalid
	}
	if d.handle == nil {
		return nil
	}

	if err := d.layer.ClearHalt(d.handle, endpoint); err != nil {
		d.lastErr = err
		return fmt.Errorf("clearing halt on endpoint %#02x of %s: %w", endpoint, d.identity, err)
	}
	return nil
}

// Snapshot is a point-in-time, copyable view of a record for reporting.
type Snapshot struct {
	Identity  Identity `json:"identity"`
	State     string   `json:"state"`
	Valid     bool     `json:"valid"`
	Claimed   *int     `json:"claimed_interface,omitempty"`
	LastError string   `json:"last_error,omitempty"`
}

// Snapshot returns a copy of the record's observable state.
func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{
		Identity: d.identity,
		State:    d.state.String(),
		Valid:    d.state != StateInvalid,
	}
	if d.claimed != noClaim {
		claimed := d.claimed
		snap.Claimed = &claimed
	}
	if d.lastErr != nil {
		snap.LastError = d.lastErr.Error()
	}
	return snap
}
