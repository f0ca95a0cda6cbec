package libusb

import (
	"fmt"

	"github.com/google/gousb"

	"github.com/nerrad567/usb-host-core/internal/usb"
)

// Ref identifies a physical device slot as seen during enumeration.
//
// Bus and address pin the ref to one physical unit: vendor/product alone
// cannot distinguish two identical devices plugged in side by side.
type Ref struct {
	Vendor  uint16
	Product uint16
	Bus     int
	Address int
}

func (r *Ref) String() string {
	return fmt.Sprintf("%04x:%04x bus %d addr %d", r.Vendor, r.Product, r.Bus, r.Address)
}

// handle bundles an open device with its active configuration and claimed
// interface, so release and close can tear down in the right order.
type handle struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
}

// Logger is the layer's logging dependency.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures the layer.
type Options struct {
	// Debug sets the libusb debug level (0..4).
	Debug int

	Logger Logger
}

// Layer is the gousb-backed implementation of usb.Layer.
//
// libusb's hot-plug callbacks are not exposed through gousb, so Subscribe
// reports usb.ErrNotificationsUnsupported and the host falls back to a
// startup enumeration snapshot.
type Layer struct {
	ctx    *gousb.Context
	logger Logger
}

// New opens a libusb context.
func New(opts Options) (*Layer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx := gousb.NewContext()
	if opts.Debug > 0 {
		ctx.Debug(opts.Debug)
	}

	return &Layer{ctx: ctx, logger: logger}, nil
}

// Shutdown releases the libusb context. All handles must be closed first.
func (l *Layer) Shutdown() error {
	return l.ctx.Close()
}

// Identity implements usb.Layer.
func (l *Layer) Identity(ref usb.DeviceRef) (usb.Identity, error) {
	r, ok := ref.(*Ref)
	if !ok {
		return usb.Identity{}, fmt.Errorf("%w: unexpected ref type %T", usb.ErrIdentityUnavailable, ref)
	}
	return usb.Identity{Vendor: r.Vendor, Product: r.Product}, nil
}

// Open implements usb.Layer. It reopens the device slot the ref was
// enumerated at; if the unit has since moved or left, Open fails.
func (l *Layer) Open(ref usb.DeviceRef) (usb.Handle, error) {
	r, ok := ref.(*Ref)
	if !ok {
		return nil, fmt.Errorf("unexpected ref type %T", ref)
	}

	devs, err := l.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return uint16(desc.Vendor) == r.Vendor &&
			uint16(desc.Product) == r.Product &&
			desc.Bus == r.Bus &&
			desc.Address == r.Address
	})
	// OpenDevices can return partial results alongside an error; close
	// everything we will not keep.
	var dev *gousb.Device
	for _, d := range devs {
		if dev == nil {
			dev = d
			continue
		}
		d.Close()
	}
	if dev == nil {
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", r, err)
		}
		return nil, fmt.Errorf("opening %s: device not found", r)
	}

	l.logger.Debug("opened device", "device", r.String())
	return &handle{dev: dev}, nil
}

// Close implements usb.Layer. It releases any claimed interface and
// active configuration before closing the device handle.
func (l *Layer) Close(h usb.Handle) {
	hd, ok := h.(*handle)
	if !ok {
		return
	}
	if hd.intf != nil {
		hd.intf.Close()
		hd.intf = nil
	}
	if hd.cfg != nil {
		if err := hd.cfg.Close(); err != nil {
			l.logger.Warn("closing configuration", "error", err)
		}
		hd.cfg = nil
	}
	if err := hd.dev.Close(); err != nil {
		l.logger.Warn("closing device", "error", err)
	}
}

// SetConfiguration implements usb.Layer.
func (l *Layer) SetConfiguration(h usb.Handle, config int) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("unexpected handle type %T", h)
	}
	if hd.intf != nil {
		hd.intf.Close()
		hd.intf = nil
	}
	if hd.cfg != nil {
		if err := hd.cfg.Close(); err != nil {
			return fmt.Errorf("releasing configuration: %w", err)
		}
		hd.cfg = nil
	}

	cfg, err := hd.dev.Config(config)
	if err != nil {
		return fmt.Errorf("selecting configuration %d: %w", config, err)
	}
	hd.cfg = cfg
	return nil
}

// ClaimInterface implements usb.Layer. A configuration must be selected
// first.
func (l *Layer) ClaimInterface(h usb.Handle, number int) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("unexpected handle type %T", h)
	}
	if hd.cfg == nil {
		return usb.ErrNoConfiguration
	}

	intf, err := hd.cfg.Interface(number, 0)
	if err != nil {
		return fmt.Errorf("claiming interface %d: %w", number, err)
	}
	hd.intf = intf
	return nil
}

// ReleaseInterface implements usb.Layer.
func (l *Layer) ReleaseInterface(h usb.Handle, number int) {
	hd, ok := h.(*handle)
	if !ok || hd.intf == nil {
		return
	}
	hd.intf.Close()
	hd.intf = nil
}

// ResetPort implements usb.Layer.
func (l *Layer) ResetPort(h usb.Handle) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("unexpected handle type %T", h)
	}
	if err := hd.dev.Reset(); err != nil {
		return fmt.Errorf("resetting device: %w", err)
	}
	return nil
}

// Standard request constants for ClearHalt, per the USB 2.0 spec.
const (
	requestTypeEndpointOut = 0x02 // host to device, standard, endpoint recipient
	requestClearFeature    = 0x01
	featureEndpointHalt    = 0x00
)

// ClearHalt implements usb.Layer. gousb does not surface
// libusb_clear_halt directly, so the layer issues the equivalent
// CLEAR_FEATURE(ENDPOINT_HALT) control request.
func (l *Layer) ClearHalt(h usb.Handle, endpoint int) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("unexpected handle type %T", h)
	}
	_, err := hd.dev.Control(requestTypeEndpointOut, requestClearFeature,
		featureEndpointHalt, uint16(endpoint), nil)
	if err != nil {
		return fmt.Errorf("clearing halt on endpoint %#02x: %w", endpoint, err)
	}
	return nil
}

// Enumerate implements usb.Layer. It lists present devices without
// opening them: the predicate records descriptors and rejects every
// device, so OpenDevices opens nothing.
func (l *Layer) Enumerate() ([]usb.DeviceRef, error) {
	var refs []usb.DeviceRef
	_, err := l.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		refs = append(refs, &Ref{
			Vendor:  uint16(desc.Vendor),
			Product: uint16(desc.Product),
			Bus:     desc.Bus,
			Address: desc.Address,
		})
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	l.logger.Debug("enumerated devices", "count", len(refs))
	return refs, nil
}

// Subscribe implements usb.Layer.
func (l *Layer) Subscribe(usb.Events) error {
	return usb.ErrNotificationsUnsupported
}

// Unsubscribe implements usb.Layer.
func (l *Layer) Unsubscribe() {}
