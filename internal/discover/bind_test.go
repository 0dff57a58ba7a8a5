package discover

import (
	"errors"
	"testing"
)

// fakeDev describes one device behind a path in a fakeIO, including which of
// its operations should fail.
type fakeDev struct {
	id           Identity
	caps         Capabilities
	queryOpenErr bool
	attrErr      bool
	preparsedErr bool
	capsErr      bool
	readOpenErr  bool
	writeOpenErr bool
}

// fakeIO implements DeviceIO over a map of fake devices and accounts for
// every handle and blob so tests can prove nothing leaks.
type fakeIO struct {
	devs map[string]*fakeDev

	nextHandle Handle
	open       map[Handle]string // open handles -> path
	nextBlob   Blob
	blobs      map[Blob]string // allocated blobs -> path
}

func newFakeIO() *fakeIO {
	return &fakeIO{
		devs:  make(map[string]*fakeDev),
		open:  make(map[Handle]string),
		blobs: make(map[Blob]string),
	}
}

func (f *fakeIO) add(path string, dev fakeDev) {
	f.devs[path] = &dev
}

func (f *fakeIO) openHandles() int { return len(f.open) }
func (f *fakeIO) liveBlobs() int   { return len(f.blobs) }

func (f *fakeIO) alloc(path string) Handle {
	f.nextHandle++
	f.open[f.nextHandle] = path
	return f.nextHandle
}

func (f *fakeIO) OpenQuery(path string) (Handle, error) {
	if f.devs[path].queryOpenErr {
		return 0, errors.New("query open failed")
	}
	return f.alloc(path), nil
}

func (f *fakeIO) OpenRead(path string) (Handle, error) {
	if f.devs[path].readOpenErr {
		return 0, errors.New("read open failed")
	}
	return f.alloc(path), nil
}

func (f *fakeIO) OpenWrite(path string) (Handle, error) {
	if f.devs[path].writeOpenErr {
		return 0, errors.New("write open failed")
	}
	return f.alloc(path), nil
}

func (f *fakeIO) Close(h Handle) error {
	if _, ok := f.open[h]; !ok {
		return errors.New("close of handle that is not open")
	}
	delete(f.open, h)
	return nil
}

func (f *fakeIO) dev(h Handle) *fakeDev { return f.devs[f.open[h]] }

func (f *fakeIO) Attributes(h Handle) (Identity, error) {
	if f.dev(h).attrErr {
		return Identity{}, errors.New("attribute query failed")
	}
	return f.dev(h).id, nil
}

func (f *fakeIO) Strings(h Handle) (string, string, error) {
	return "", "", nil
}

func (f *fakeIO) Preparsed(h Handle) (Blob, error) {
	if f.dev(h).preparsedErr {
		return 0, errors.New("preparsed query failed")
	}
	f.nextBlob++
	f.blobs[f.nextBlob] = f.open[h]
	return f.nextBlob, nil
}

func (f *fakeIO) FreePreparsed(b Blob) {
	delete(f.blobs, b)
}

func (f *fakeIO) Caps(b Blob) (Capabilities, error) {
	dev := f.devs[f.blobs[b]]
	if dev.capsErr {
		return Capabilities{}, errors.New("caps decode failed")
	}
	return dev.caps, nil
}

func newBinder(io *fakeIO, paths ...string) *Binder {
	return &Binder{
		Enumerator: &Enumerator{Session: &fakeSession{set: newFakeSet(paths...)}},
		IO:         io,
	}
}

var target = Identity{VendorID: 0x17A4, ProductID: 0x001E}

func TestBindFirstMatchWins(t *testing.T) {
	io := newFakeIO()
	io.add("other", fakeDev{id: Identity{VendorID: 0x046D, ProductID: 0xC077}})
	io.add("match", fakeDev{id: target, caps: Capabilities{InputReportLength: 64, OutputReportLength: 65}})
	io.add("dup", fakeDev{id: target})
	b := newBinder(io, "other", "match", "dup")

	binding, err := b.Bind(target)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if !binding.Attached {
		t.Fatal("binding not attached")
	}
	if binding.Path != "match" {
		t.Fatalf("bound path %q, want %q", binding.Path, "match")
	}
	if binding.Identity != target {
		t.Fatalf("bound identity %+v, want %+v", binding.Identity, target)
	}
	if binding.Capabilities.InputReportLength != 64 || binding.Capabilities.OutputReportLength != 65 {
		t.Fatalf("unexpected capabilities %+v", binding.Capabilities)
	}
	if binding.ReadHandle == 0 || binding.WriteHandle == 0 {
		t.Fatal("invalid read/write handle")
	}
	// Only the transferred read and write handles stay open; every
	// query-only handle was closed.
	if io.openHandles() != 2 {
		t.Fatalf("%d handles open after bind, want 2", io.openHandles())
	}
	if io.open[binding.ReadHandle] != "match" || io.open[binding.WriteHandle] != "match" {
		t.Fatal("surviving handles do not belong to the matched path")
	}
	if io.liveBlobs() != 0 {
		t.Fatalf("%d capability blobs leaked", io.liveBlobs())
	}
}

func TestBindNoMatchIsIdempotent(t *testing.T) {
	io := newFakeIO()
	io.add("a", fakeDev{id: Identity{VendorID: 1, ProductID: 2}})
	b := newBinder(io, "a")

	for i := 0; i < 2; i++ {
		binding, err := b.Bind(target)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("attempt %d: expected ErrNotFound, got %v", i, err)
		}
		if binding.Attached {
			t.Fatalf("attempt %d: binding reported attached on failure", i)
		}
		if io.openHandles() != 0 {
			t.Fatalf("attempt %d: %d handles leaked", i, io.openHandles())
		}
	}
}

func TestBindEnumerationFailurePropagates(t *testing.T) {
	b := &Binder{
		Enumerator: &Enumerator{Session: &fakeSession{setErr: errors.New("snapshot failed")}},
		IO:         newFakeIO(),
	}
	if _, err := b.Bind(target); err == nil {
		t.Fatal("expected error")
	}
}

func TestBindNoDevicesPropagates(t *testing.T) {
	b := &Binder{
		Enumerator: &Enumerator{Session: &fakeSession{set: newFakeSet()}},
		IO:         newFakeIO(),
	}
	if _, err := b.Bind(target); !errors.Is(err, ErrNoDevices) {
		t.Fatalf("expected ErrNoDevices, got %v", err)
	}
}

func TestBindSkipsUnopenableCandidates(t *testing.T) {
	io := newFakeIO()
	io.add("locked", fakeDev{id: target, queryOpenErr: true})
	io.add("match", fakeDev{id: target})
	b := newBinder(io, "locked", "match")

	binding, err := b.Bind(target)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if binding.Path != "match" {
		t.Fatalf("bound path %q, want %q", binding.Path, "match")
	}
}

func TestBindSkipsFailedAttributeQuery(t *testing.T) {
	io := newFakeIO()
	io.add("broken", fakeDev{id: target, attrErr: true})
	io.add("match", fakeDev{id: target})
	b := newBinder(io, "broken", "match")

	binding, err := b.Bind(target)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if binding.Path != "match" {
		t.Fatalf("bound path %q, want %q", binding.Path, "match")
	}
	if io.openHandles() != 2 {
		t.Fatalf("%d handles open, want 2 (broken candidate's handle must be closed)", io.openHandles())
	}
}

func TestBindToleratesCapabilityDecodeFailure(t *testing.T) {
	io := newFakeIO()
	io.add("match", fakeDev{id: target, caps: Capabilities{InputReportLength: 64}, capsErr: true})
	b := newBinder(io, "match")

	binding, err := b.Bind(target)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if binding.Capabilities != (Capabilities{}) {
		t.Fatalf("capabilities %+v, want zero value after decode failure", binding.Capabilities)
	}
	if io.liveBlobs() != 0 {
		t.Fatal("capability blob leaked after decode failure")
	}
}

func TestBindToleratesPreparsedFailure(t *testing.T) {
	io := newFakeIO()
	io.add("match", fakeDev{id: target, preparsedErr: true})
	b := newBinder(io, "match")

	binding, err := b.Bind(target)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if !binding.Attached {
		t.Fatal("binding not attached")
	}
	if binding.Capabilities != (Capabilities{}) {
		t.Fatalf("capabilities %+v, want zero value", binding.Capabilities)
	}
}

func TestBindReadOpenFailureIsFatal(t *testing.T) {
	io := newFakeIO()
	io.add("match", fakeDev{id: target, readOpenErr: true})
	b := newBinder(io, "match")

	binding, err := b.Bind(target)
	if err == nil {
		t.Fatal("expected error")
	}
	if binding.Attached {
		t.Fatal("binding reported attached on failure")
	}
	if io.openHandles() != 0 {
		t.Fatalf("%d handles leaked", io.openHandles())
	}
}

func TestBindWriteOpenFailureReleasesReadHandle(t *testing.T) {
	io := newFakeIO()
	io.add("match", fakeDev{id: target, writeOpenErr: true})
	b := newBinder(io, "match")

	binding, err := b.Bind(target)
	if err == nil {
		t.Fatal("expected error")
	}
	if binding.Attached {
		t.Fatal("binding reported attached on failure")
	}
	if io.openHandles() != 0 {
		t.Fatalf("%d handles leaked (read handle not released)", io.openHandles())
	}
}
