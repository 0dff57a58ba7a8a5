package hid

import (
	"fmt"

	"github.com/karalabe/usb"
)

// ListRaw enumerates raw USB devices matching vendorID/productID, where zero
// matches any. Devices whose HID driver has been replaced (e.g. by WinUSB)
// never show up in HID enumeration but do appear here, which makes this the
// fallback listing when List comes back empty for hardware known to be
// plugged in.
func ListRaw(vendorID, productID uint16) ([]Info, error) {
	if !usb.Supported() {
		return nil, fmt.Errorf("raw USB enumeration is not supported on this platform")
	}
	infos, err := usb.Enumerate(vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("usb enumerate: %w", err)
	}

	out := make([]Info, 0, len(infos))
	for _, d := range infos {
		out = append(out, Info{
			Path:         d.Path,
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Product:      d.Product,
			Manufacturer: d.Manufacturer,
		})
	}
	return out, nil
}
