// Package hid enumerates USB HID devices and opens them for report I/O.
package hid

import "errors"

// ErrDeviceNotFound is returned when no attached device matches the
// requested identity.
var ErrDeviceNotFound = errors.New("hid: device not found")

// Info describes an enumerated HID device.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Product      string
	Manufacturer string
}

// Capabilities carries a device's report byte lengths, report ID included.
// A length of zero means the device does not expose that report type, or its
// capability reporting is degraded.
type Capabilities struct {
	InputReportLength   int
	OutputReportLength  int
	FeatureReportLength int
}

// Device represents an opened HID device capable of report I/O.
type Device interface {
	Write([]byte) (int, error) // send output report, report ID at byte 0
	Read([]byte) (int, error)  // read input report
	Capabilities() Capabilities
	Close() error
}

// Manager enumerates and opens HID devices.
type Manager interface {
	List() ([]Info, error)
	Open(info Info) (Device, error)
	OpenVIDPID(vendorID, productID uint16) (Device, error)
}

// NewManager returns the OS-specific HID manager.
func NewManager() (Manager, error) {
	return newManager()
}
