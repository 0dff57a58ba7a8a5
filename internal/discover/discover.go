// Package discover locates USB HID devices by vendor/product identity and
// opens the communication handles higher layers need for report I/O.
//
// The package is split into a portable core (Enumerator, Binder) and a set of
// small port interfaces (Session, InterfaceSet, DeviceIO) that model the OS
// services the core talks to. The live Windows implementation of the ports is
// in setupapi_windows.go; tests drive the core with fakes.
package discover

import "errors"

// Errors returned from this package may be tested with errors.Is.
var (
	// ErrNoDevices means enumeration succeeded but found zero device
	// interfaces in the class.
	ErrNoDevices = errors.New("no device interfaces present")

	// ErrNotFound means enumeration produced candidates but none matched
	// the requested identity.
	ErrNotFound = errors.New("no matching device found")
)

// ClassID identifies a device interface class to the OS. The layout matches
// a Windows GUID; other platforms treat it as opaque.
type ClassID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Handle is an opaque OS device handle issued by a DeviceIO.
type Handle uintptr

// Blob is an opaque driver-produced preparsed capability record. It must be
// released through DeviceIO.FreePreparsed exactly once.
type Blob uintptr

// Identity is the vendor/product pair a device reports. Matching is exact
// equality on both fields; there is no wildcard.
type Identity struct {
	VendorID  uint16
	ProductID uint16
}

// Capabilities carries a device's report byte lengths (report ID included).
// All fields are zero until a capability query succeeds; devices with
// degraded capability reporting keep them zero.
type Capabilities struct {
	InputReportLength   uint16
	OutputReportLength  uint16
	FeatureReportLength uint16
}

// Binding is the outcome of a successful Bind: the matched interface path,
// its identity and capabilities, and dedicated read and write handles whose
// ownership passes to the caller the moment Attached is true.
type Binding struct {
	Path         string
	Attached     bool
	Identity     Identity
	Capabilities Capabilities
	ReadHandle   Handle
	WriteHandle  Handle
}

// Session is the device-class enumeration service.
type Session interface {
	// HIDClass returns the class identifier grouping all HID interfaces.
	HIDClass() (ClassID, error)

	// Interfaces opens a point-in-time snapshot of the device interfaces
	// currently present in class. The caller must Close it.
	Interfaces(class ClassID) (InterfaceSet, error)
}

// InterfaceSet is a snapshot of one class's device interfaces, addressed by
// a dense index starting at zero.
type InterfaceSet interface {
	// Enum reports whether an interface exists at index.
	Enum(index uint32) bool

	// DetailSize returns the exact byte size of the detail record for the
	// interface at index. This is the first half of the two-call
	// size-discovery protocol.
	DetailSize(index uint32) (uint32, error)

	// Detail fills buf (which must be exactly the size DetailSize
	// reported) with the detail record at index and returns the decoded
	// interface path name.
	Detail(index uint32, buf []byte) (string, error)

	// Close destroys the snapshot. Paths obtained from the set stay valid
	// until the device is unplugged.
	Close() error
}

// DeviceIO is the handle and attribute service for one device path.
type DeviceIO interface {
	// OpenQuery opens path with no access rights and shared read/write,
	// suitable only for attribute and capability inspection.
	OpenQuery(path string) (Handle, error)

	// OpenRead opens path for asynchronous-capable reading.
	OpenRead(path string) (Handle, error)

	// OpenWrite opens path for writing.
	OpenWrite(path string) (Handle, error)

	// Close releases a handle obtained from any of the Open calls.
	Close(h Handle) error

	// Attributes reports the vendor/product identity behind h.
	Attributes(h Handle) (Identity, error)

	// Strings reports the manufacturer and product string descriptors
	// behind h. Missing descriptors come back empty, not as an error.
	Strings(h Handle) (manufacturer, product string, err error)

	// Preparsed fetches the driver's capability blob for h.
	Preparsed(h Handle) (Blob, error)

	// FreePreparsed releases a blob obtained from Preparsed.
	FreePreparsed(b Blob)

	// Caps decodes a capability blob into report lengths.
	Caps(b Blob) (Capabilities, error)
}
