package discover

import (
	"errors"
	"fmt"
)

// DefaultMaxInterfaces bounds a single enumeration pass. Real hosts top out
// far below this; hitting the limit indicates a runaway enumeration service
// rather than hardware.
const DefaultMaxInterfaces = 128

// Enumerator lists the path names of every device interface currently
// present in one class.
type Enumerator struct {
	Session       Session
	MaxInterfaces int // safety limit per pass; 0 means DefaultMaxInterfaces
}

// Enumerate returns the interface path names of the HID class in OS-reported
// order. Zero interfaces is a failure (ErrNoDevices), and any error mid-scan
// discards partial results. The snapshot backing the scan is destroyed before
// returning on every path.
func (e *Enumerator) Enumerate() ([]string, error) {
	limit := e.MaxInterfaces
	if limit <= 0 {
		limit = DefaultMaxInterfaces
	}

	class, err := e.Session.HIDClass()
	if err != nil {
		return nil, fmt.Errorf("device class lookup: %w", err)
	}

	set, err := e.Session.Interfaces(class)
	if err != nil {
		return nil, fmt.Errorf("interface snapshot: %w", err)
	}
	defer set.Close()

	var paths []string
	for i := uint32(0); set.Enum(i); i++ {
		if len(paths) >= limit {
			return nil, fmt.Errorf("more than %d device interfaces reported", limit)
		}

		var path string
		err := fetchSized(
			func() (uint32, error) { return set.DetailSize(i) },
			func(buf []byte) error {
				p, err := set.Detail(i, buf)
				path = p
				return err
			},
		)
		if err != nil {
			return nil, fmt.Errorf("interface %d detail: %w", i, err)
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, ErrNoDevices
	}
	return paths, nil
}

// fetchSized runs the two-call size-discovery protocol: ask for the exact
// required size, allocate, then fill. Guessing a size instead of asking is
// unsafe because detail-record length is device and driver dependent.
func fetchSized(size func() (uint32, error), fill func([]byte) error) error {
	n, err := size()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("zero-length detail record")
	}
	return fill(make([]byte, n))
}
