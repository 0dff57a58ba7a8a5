//go:build !windows

package hid

import (
	"errors"
	"fmt"

	usbhid "rafaelmartins.com/p/usbhid"
)

type usbManager struct{}

func newManager() (Manager, error) { return &usbManager{}, nil }

func (m *usbManager) List() ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
		})
	}
	return out, nil
}

func (m *usbManager) Open(info Info) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	}, true, false)
	if err != nil {
		return nil, wrapNotFound(err, info.VendorID, info.ProductID)
	}
	return &usbDevice{d}, nil
}

func (m *usbManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.VendorId() == vendorID && dev.ProductId() == productID
	}, true, false)
	if err != nil {
		return nil, wrapNotFound(err, vendorID, productID)
	}
	return &usbDevice{d}, nil
}

func wrapNotFound(err error, vendorID, productID uint16) error {
	if errors.Is(err, usbhid.ErrNoDeviceFound) {
		return fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, vendorID, productID)
	}
	return err
}

type usbDevice struct{ d *usbhid.Device }

func (d *usbDevice) Write(p []byte) (int, error) {
	// report ID at p[0]
	if len(p) == 0 {
		return 0, nil
	}
	if err := d.d.SetOutputReport(p[0], p[1:]); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (d *usbDevice) Read(p []byte) (int, error) {
	_, buf, err := d.d.GetInputReport()
	if err != nil {
		return 0, err
	}
	return copy(p, buf), nil
}

func (d *usbDevice) Capabilities() Capabilities {
	return Capabilities{
		InputReportLength:   int(d.d.GetInputReportLength()),
		OutputReportLength:  int(d.d.GetOutputReportLength()),
		FeatureReportLength: int(d.d.GetFeatureReportLength()),
	}
}

func (d *usbDevice) Close() error { return d.d.Close() }
