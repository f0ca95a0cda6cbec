package usb

import (
	"fmt"
	"strconv"
	"strings"
)

// Identity identifies a device by its vendor and product IDs.
//
// It is the registry key: two devices with the same identity occupy the
// same logical slot even if the underlying physical units differ. This is
// a deliberate simplification: the registry prefers at-most-one-live-
// record-per-identity over per-physical-unit tracking, because a hot-plug
// event carries no way to tell "the same unit reappeared" from "a second
// unit with the same IDs appeared".
type Identity struct {
	Vendor  uint16 `json:"vendor"`
	Product uint16 `json:"product"`
}

// String returns the identity in the conventional vvvv:pppp hex form,
// e.g. "1d6b:0003".
func (id Identity) String() string {
	return fmt.Sprintf("%04x:%04x", id.Vendor, id.Product)
}

// Less orders identities vendor-major, product-minor.
func (id Identity) Less(other Identity) bool {
	if id.Vendor != other.Vendor {
		return id.Vendor < other.Vendor
	}
	return id.Product < other.Product
}

// ParseIdentity parses the vvvv:pppp hex form produced by String.
func ParseIdentity(s string) (Identity, error) {
	vendorStr, productStr, ok := strings.Cut(s, ":")
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}

	vendor, err := strconv.ParseUint(vendorStr, 16, 16)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: vendor %q", ErrInvalidIdentity, vendorStr)
	}
	product, err := strconv.ParseUint(productStr, 16, 16)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: product %q", ErrInvalidIdentity, productStr)
	}

	return Identity{Vendor: uint16(vendor), Product: uint16(product)}, nil
}
