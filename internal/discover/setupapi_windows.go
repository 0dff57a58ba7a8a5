//go:build windows

package discover

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Live Windows ports over SetupAPI and the HID class driver, pure Go
// syscalls (no CGO).

var (
	hid      = windows.NewLazySystemDLL("hid.dll")
	setupapi = windows.NewLazySystemDLL("setupapi.dll")

	procHidD_GetHidGuid            = hid.NewProc("HidD_GetHidGuid")
	procHidD_GetAttributes         = hid.NewProc("HidD_GetAttributes")
	procHidD_GetManufacturerString = hid.NewProc("HidD_GetManufacturerString")
	procHidD_GetProductString      = hid.NewProc("HidD_GetProductString")
	procHidD_GetPreparsedData      = hid.NewProc("HidD_GetPreparsedData")
	procHidD_FreePreparsedData     = hid.NewProc("HidD_FreePreparsedData")
	procHidP_GetCaps               = hid.NewProc("HidP_GetCaps")

	procSetupDiGetClassDevsW             = setupapi.NewProc("SetupDiGetClassDevsW")
	procSetupDiEnumDeviceInterfaces      = setupapi.NewProc("SetupDiEnumDeviceInterfaces")
	procSetupDiGetDeviceInterfaceDetailW = setupapi.NewProc("SetupDiGetDeviceInterfaceDetailW")
	procSetupDiDestroyDeviceInfoList     = setupapi.NewProc("SetupDiDestroyDeviceInfoList")
)

const (
	digcfPresent         = 0x00000002
	digcfDeviceInterface = 0x00000010
	invalidHandleValue   = ^uintptr(0)
	hidpStatusSuccess    = 0x00110000
)

type hiddAttributes struct {
	Size          uint32
	VendorID      uint16
	ProductID     uint16
	VersionNumber uint16
}

type spDeviceInterfaceData struct {
	CbSize             uint32
	InterfaceClassGuid ClassID
	Flags              uint32
	Reserved           uintptr
}

type spDeviceInterfaceDetailData struct {
	CbSize     uint32
	DevicePath [1]uint16 // variable length
}

type hidpCaps struct {
	Usage                     uint16
	UsagePage                 uint16
	InputReportByteLength     uint16
	OutputReportByteLength    uint16
	FeatureReportByteLength   uint16
	Reserved                  [17]uint16
	NumberLinkCollectionNodes uint16
	NumberInputButtonCaps     uint16
	NumberInputValueCaps      uint16
	NumberInputDataIndices    uint16
	NumberOutputButtonCaps    uint16
	NumberOutputValueCaps     uint16
	NumberOutputDataIndices   uint16
	NumberFeatureButtonCaps   uint16
	NumberFeatureValueCaps    uint16
	NumberFeatureDataIndices  uint16
}

// NewBinder returns a Binder wired to the live Windows HID stack.
func NewBinder() *Binder {
	return &Binder{
		Enumerator: &Enumerator{Session: NewSession()},
		IO:         NewDeviceIO(),
	}
}

// NewSession returns the SetupAPI-backed enumeration service.
func NewSession() Session { return winSession{} }

// NewDeviceIO returns the CreateFile/hid.dll-backed handle service.
func NewDeviceIO() DeviceIO { return winDeviceIO{} }

type winSession struct{}

func (winSession) HIDClass() (ClassID, error) {
	var class ClassID
	procHidD_GetHidGuid.Call(uintptr(unsafe.Pointer(&class)))
	if class == (ClassID{}) {
		return ClassID{}, errors.New("HidD_GetHidGuid returned a zero GUID")
	}
	return class, nil
}

func (winSession) Interfaces(class ClassID) (InterfaceSet, error) {
	devInfo, _, err := procSetupDiGetClassDevsW.Call(
		uintptr(unsafe.Pointer(&class)),
		0,
		0,
		digcfPresent|digcfDeviceInterface,
	)
	if devInfo == 0 || devInfo == invalidHandleValue {
		return nil, fmt.Errorf("SetupDiGetClassDevsW: %v", err)
	}
	return &winInterfaceSet{devInfo: devInfo, class: class, lastIndex: ^uint32(0)}, nil
}

// winInterfaceSet wraps a SetupAPI device information set. The interface
// data for the most recently enumerated index is cached so DetailSize and
// Detail do not have to re-enumerate it.
type winInterfaceSet struct {
	devInfo   uintptr
	class     ClassID
	lastIndex uint32
	lastOK    bool
	data      spDeviceInterfaceData
}

func (s *winInterfaceSet) Enum(index uint32) bool {
	if s.lastIndex == index {
		return s.lastOK
	}
	s.data = spDeviceInterfaceData{}
	s.data.CbSize = uint32(unsafe.Sizeof(s.data))
	r, _, _ := procSetupDiEnumDeviceInterfaces.Call(
		s.devInfo,
		0,
		uintptr(unsafe.Pointer(&s.class)),
		uintptr(index),
		uintptr(unsafe.Pointer(&s.data)),
	)
	s.lastIndex = index
	s.lastOK = r != 0
	return s.lastOK
}

func (s *winInterfaceSet) DetailSize(index uint32) (uint32, error) {
	if !s.Enum(index) {
		return 0, fmt.Errorf("no device interface at index %d", index)
	}
	var required uint32
	procSetupDiGetDeviceInterfaceDetailW.Call(
		s.devInfo,
		uintptr(unsafe.Pointer(&s.data)),
		0,
		0,
		uintptr(unsafe.Pointer(&required)),
		0,
	)
	if required == 0 {
		return 0, errors.New("SetupDiGetDeviceInterfaceDetailW reported no required size")
	}
	return required, nil
}

func (s *winInterfaceSet) Detail(index uint32, buf []byte) (string, error) {
	if !s.Enum(index) {
		return "", fmt.Errorf("no device interface at index %d", index)
	}

	detail := (*spDeviceInterfaceDetailData)(unsafe.Pointer(&buf[0]))
	// CbSize is sizeof(SP_DEVICE_INTERFACE_DETAIL_DATA_W): 8 on 64-bit
	// (DWORD + padding), 6 on 32-bit (DWORD + one WCHAR).
	if unsafe.Sizeof(uintptr(0)) == 8 {
		detail.CbSize = 8
	} else {
		detail.CbSize = 6
	}

	r, _, err := procSetupDiGetDeviceInterfaceDetailW.Call(
		s.devInfo,
		uintptr(unsafe.Pointer(&s.data)),
		uintptr(unsafe.Pointer(detail)),
		uintptr(len(buf)),
		0,
		0,
	)
	if r == 0 {
		return "", fmt.Errorf("SetupDiGetDeviceInterfaceDetailW: %v", err)
	}

	// The path name starts at the fixed offset past the CbSize prefix.
	return windows.UTF16PtrToString(&detail.DevicePath[0]), nil
}

func (s *winInterfaceSet) Close() error {
	procSetupDiDestroyDeviceInfoList.Call(s.devInfo)
	return nil
}

type winDeviceIO struct{}

func openHandle(path string, access uint32, flags uint32) (Handle, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateFile(
		pathPtr,
		access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		flags,
		0,
	)
	if err != nil {
		return 0, fmt.Errorf("CreateFile: %w", err)
	}
	return Handle(h), nil
}

func (winDeviceIO) OpenQuery(path string) (Handle, error) {
	// No access rights: enough for attribute and capability queries even
	// on nodes another application holds open.
	return openHandle(path, 0, 0)
}

func (winDeviceIO) OpenRead(path string) (Handle, error) {
	return openHandle(path, windows.GENERIC_READ, windows.FILE_FLAG_OVERLAPPED)
}

func (winDeviceIO) OpenWrite(path string) (Handle, error) {
	return openHandle(path, windows.GENERIC_WRITE, 0)
}

func (winDeviceIO) Close(h Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (winDeviceIO) Attributes(h Handle) (Identity, error) {
	var attrs hiddAttributes
	attrs.Size = uint32(unsafe.Sizeof(attrs))
	r, _, err := procHidD_GetAttributes.Call(uintptr(h), uintptr(unsafe.Pointer(&attrs)))
	if r == 0 {
		return Identity{}, fmt.Errorf("HidD_GetAttributes: %v", err)
	}
	return Identity{VendorID: attrs.VendorID, ProductID: attrs.ProductID}, nil
}

func (winDeviceIO) Strings(h Handle) (string, string, error) {
	mfr := make([]uint16, 256)
	procHidD_GetManufacturerString.Call(uintptr(h), uintptr(unsafe.Pointer(&mfr[0])), uintptr(len(mfr)*2))

	prod := make([]uint16, 256)
	procHidD_GetProductString.Call(uintptr(h), uintptr(unsafe.Pointer(&prod[0])), uintptr(len(prod)*2))

	return windows.UTF16ToString(mfr), windows.UTF16ToString(prod), nil
}

func (winDeviceIO) Preparsed(h Handle) (Blob, error) {
	var blob uintptr
	r, _, _ := procHidD_GetPreparsedData.Call(uintptr(h), uintptr(unsafe.Pointer(&blob)))
	if r == 0 || blob == 0 {
		return 0, errors.New("HidD_GetPreparsedData failed")
	}
	return Blob(blob), nil
}

func (winDeviceIO) FreePreparsed(b Blob) {
	procHidD_FreePreparsedData.Call(uintptr(b))
}

func (winDeviceIO) Caps(b Blob) (Capabilities, error) {
	var caps hidpCaps
	r, _, _ := procHidP_GetCaps.Call(uintptr(b), uintptr(unsafe.Pointer(&caps)))
	if r != hidpStatusSuccess {
		return Capabilities{}, fmt.Errorf("HidP_GetCaps: 0x%X", r)
	}
	return Capabilities{
		InputReportLength:   caps.InputReportByteLength,
		OutputReportLength:  caps.OutputReportByteLength,
		FeatureReportLength: caps.FeatureReportByteLength,
	}, nil
}
