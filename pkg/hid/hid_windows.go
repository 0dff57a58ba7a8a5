//go:build windows

package hid

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows"

	"github.com/seagrayinc/hidlink/internal/discover"
)

type winManager struct {
	binder *discover.Binder
}

func newManager() (Manager, error) {
	return &winManager{binder: discover.NewBinder()}, nil
}

func (m *winManager) List() ([]Info, error) {
	paths, err := m.binder.Enumerator.Enumerate()
	if errors.Is(err, discover.ErrNoDevices) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	io := m.binder.IO
	var devices []Info
	for _, path := range paths {
		h, err := io.OpenQuery(path)
		if err != nil {
			slog.Debug("skipping device interface", slog.String("path", path), slog.Any("error", err))
			continue
		}
		id, err := io.Attributes(h)
		if err != nil {
			io.Close(h)
			continue
		}
		manufacturer, product, _ := io.Strings(h)
		io.Close(h)

		devices = append(devices, Info{
			Path:         path,
			VendorID:     id.VendorID,
			ProductID:    id.ProductID,
			Product:      product,
			Manufacturer: manufacturer,
		})
	}
	return devices, nil
}

// Open opens the exact interface path in info, without re-matching by
// identity. Use OpenVIDPID when the path is not known yet.
func (m *winManager) Open(info Info) (Device, error) {
	io := m.binder.IO

	var caps Capabilities
	if h, err := io.OpenQuery(info.Path); err == nil {
		caps = queryCapabilities(io, h)
		io.Close(h)
	}

	rd, err := io.OpenRead(info.Path)
	if err != nil {
		return nil, fmt.Errorf("open read handle: %w", err)
	}
	wr, err := io.OpenWrite(info.Path)
	if err != nil {
		io.Close(rd)
		return nil, fmt.Errorf("open write handle: %w", err)
	}

	return &winDevice{
		read:  windows.Handle(rd),
		write: windows.Handle(wr),
		path:  info.Path,
		caps:  caps,
	}, nil
}

// queryCapabilities mirrors the binder's soft-failure capability policy:
// the blob is freed exactly once and decode failures leave caps zero.
func queryCapabilities(io discover.DeviceIO, h discover.Handle) Capabilities {
	blob, err := io.Preparsed(h)
	if err != nil {
		return Capabilities{}
	}
	defer io.FreePreparsed(blob)

	c, err := io.Caps(blob)
	if err != nil {
		return Capabilities{}
	}
	return Capabilities{
		InputReportLength:   int(c.InputReportLength),
		OutputReportLength:  int(c.OutputReportLength),
		FeatureReportLength: int(c.FeatureReportLength),
	}
}

func (m *winManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	binding, err := m.binder.Bind(discover.Identity{VendorID: vendorID, ProductID: productID})
	if errors.Is(err, discover.ErrNotFound) || errors.Is(err, discover.ErrNoDevices) {
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, vendorID, productID)
	}
	if err != nil {
		return nil, err
	}
	return &winDevice{
		read:  windows.Handle(binding.ReadHandle),
		write: windows.Handle(binding.WriteHandle),
		path:  binding.Path,
		caps: Capabilities{
			InputReportLength:   int(binding.Capabilities.InputReportLength),
			OutputReportLength:  int(binding.Capabilities.OutputReportLength),
			FeatureReportLength: int(binding.Capabilities.FeatureReportLength),
		},
	}, nil
}

// winDevice performs report I/O on the handles a successful bind produced.
// The read handle is overlapped; each Read drives one overlapped transfer to
// completion, so the device stays a plain blocking io.Reader to callers.
type winDevice struct {
	read  windows.Handle
	write windows.Handle
	path  string
	caps  Capabilities
}

func (d *winDevice) Read(p []byte) (int, error) {
	// ReadFile on a HID device needs a buffer of exactly the input report
	// length; fall back to the caller's buffer when capability reporting
	// was degraded.
	size := d.caps.InputReportLength
	if size == 0 {
		size = len(p)
	}
	buf := make([]byte, size)

	event, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return 0, fmt.Errorf("CreateEvent: %w", err)
	}
	defer windows.CloseHandle(event)

	ov := windows.Overlapped{HEvent: event}
	var n uint32
	err = windows.ReadFile(d.read, buf, &n, &ov)
	if err == windows.ERROR_IO_PENDING {
		err = windows.GetOverlappedResult(d.read, &ov, &n, true)
	}
	if err != nil {
		return 0, fmt.Errorf("ReadFile: %w", err)
	}
	return copy(p, buf[:n]), nil
}

func (d *winDevice) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// HID output reports must span the full report length; pad with zeros
	// when the caller's frame is shorter.
	report := p
	if size := d.caps.OutputReportLength; size > len(p) {
		report = make([]byte, size)
		copy(report, p)
	}

	var written uint32
	if err := windows.WriteFile(d.write, report, &written, nil); err != nil {
		return 0, fmt.Errorf("WriteFile: %w", err)
	}
	return len(p), nil
}

func (d *winDevice) Capabilities() Capabilities { return d.caps }

func (d *winDevice) Close() error {
	readErr := windows.CloseHandle(d.read)
	writeErr := windows.CloseHandle(d.write)
	if readErr != nil {
		return readErr
	}
	return writeErr
}
