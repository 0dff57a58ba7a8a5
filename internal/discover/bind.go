package discover

import "fmt"

// Binder scans an Enumerator's candidates for one device identity and opens
// dedicated read and write handles on the first match.
type Binder struct {
	Enumerator *Enumerator
	IO         DeviceIO
}

// Bind scans the HID class for the first device matching target. On success
// the returned Binding is attached and the caller owns both handles. On any
// error every handle acquired during the attempt has already been released;
// a half-bound device is never reported as success.
//
// Candidates that cannot be opened, fail the attribute query, or report a
// different identity are skipped silently. A failed capability decode on the
// matching device is tolerated: capabilities stay zero and the bind proceeds.
func (b *Binder) Bind(target Identity) (Binding, error) {
	var binding Binding // Attached false until fully bound

	paths, err := b.Enumerator.Enumerate()
	if err != nil {
		return binding, err
	}

	for _, path := range paths {
		h, err := b.IO.OpenQuery(path)
		if err != nil {
			// transient or access-restricted node
			continue
		}

		id, err := b.IO.Attributes(h)
		if err != nil || id != target {
			b.IO.Close(h)
			continue
		}

		binding.Path = path
		binding.Identity = id
		b.queryCapabilities(h, &binding.Capabilities)
		b.IO.Close(h)

		rd, err := b.IO.OpenRead(path)
		if err != nil {
			return Binding{}, fmt.Errorf("open read handle: %w", err)
		}
		wr, err := b.IO.OpenWrite(path)
		if err != nil {
			b.IO.Close(rd)
			return Binding{}, fmt.Errorf("open write handle: %w", err)
		}

		binding.ReadHandle = rd
		binding.WriteHandle = wr
		binding.Attached = true
		return binding, nil
	}

	return Binding{}, ErrNotFound
}

// queryCapabilities decodes the driver's preparsed capability blob for h.
// Devices with degraded capability reporting are tolerated: caps stay zero.
// The blob, once allocated, is freed exactly once whether or not decoding
// succeeds.
func (b *Binder) queryCapabilities(h Handle, caps *Capabilities) {
	blob, err := b.IO.Preparsed(h)
	if err != nil {
		return
	}
	defer b.IO.FreePreparsed(blob)

	c, err := b.IO.Caps(blob)
	if err != nil {
		return
	}
	*caps = c
}
