// Package libusb provides the gousb-backed production implementation of
// the usb.Layer interface.
//
// The layer identifies device slots by bus and address in addition to
// vendor/product, opens devices on demand, and maps configuration and
// interface selection onto gousb's Config and Interface lifetimes.
// Hot-plug callbacks are not available through gousb, so the layer
// reports notifications as unsupported and the host degrades to a
// startup snapshot.
package libusb
