package hid

import "fmt"

// MockManager is a Manager serving canned devices, for tests of code that
// consumes this package.
type MockManager struct {
	Devices []Info
}

func (m *MockManager) List() ([]Info, error) {
	return m.Devices, nil
}

func (m *MockManager) Open(info Info) (Device, error) {
	for _, d := range m.Devices {
		if d.Path == info.Path {
			return NewMockDevice(d), nil
		}
	}
	return nil, fmt.Errorf("%w (path %q)", ErrDeviceNotFound, info.Path)
}

func (m *MockManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	for _, d := range m.Devices {
		if d.VendorID == vendorID && d.ProductID == productID {
			return NewMockDevice(d), nil
		}
	}
	return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, vendorID, productID)
}

// MockDevice records written reports and replays queued input reports.
type MockDevice struct {
	Info    Info
	Caps    Capabilities
	Written [][]byte
	Reports [][]byte
	Closed  bool
}

func NewMockDevice(info Info) *MockDevice {
	return &MockDevice{
		Info: info,
		Caps: Capabilities{InputReportLength: 64, OutputReportLength: 64},
	}
}

func (d *MockDevice) Write(p []byte) (int, error) {
	report := make([]byte, len(p))
	copy(report, p)
	d.Written = append(d.Written, report)
	return len(p), nil
}

func (d *MockDevice) Read(p []byte) (int, error) {
	if len(d.Reports) == 0 {
		return 0, fmt.Errorf("no queued input reports")
	}
	report := d.Reports[0]
	d.Reports = d.Reports[1:]
	return copy(p, report), nil
}

func (d *MockDevice) Capabilities() Capabilities { return d.Caps }

func (d *MockDevice) Close() error {
	d.Closed = true
	return nil
}
