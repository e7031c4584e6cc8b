// Package ring implements the mmap-backed, lock-free ring buffer that
// stores nanotrace records: a process-wide shared region, created once
// by Init and torn down by Close, written by any number of producer
// goroutines via a single atomic slot-reservation counter.
//
// The mmap and anonymous/file-backed mapping strategy follows
// aleph-tx's shm.RingBuffer and shm.Matrix (syscall.Mmap over an
// /dev/shm-style file, MAP_SHARED); the page pre-population flag
// follows ehrlich-b-go-ublk's mmapQueues, which passes MAP_POPULATE to
// avoid first-touch page faults on the hot path.
package ring

import (
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/nanotrace/nanotrace/nterr"
	"github.com/nanotrace/nanotrace/record"
)

// Option configures a Buffer at Init time.
type Option func(*options)

type options struct {
	singleThreaded bool
}

// WithSingleThreaded switches slot reservation to a non-atomic
// increment, per spec §4.3's documented single-thread fast path. The
// on-disk format is unaffected; the decoder needs no knowledge of
// which mode produced the file.
func WithSingleThreaded() Option {
	return func(o *options) { o.singleThreaded = true }
}

// Buffer is a mapped, file- or anonymously-backed ring of records.
type Buffer struct {
	file           *os.File
	data           []byte
	capacity       uint16
	singleThreaded bool
	localIdx       uint64 // used only when singleThreaded
}

// Init allocates (or re-creates) the shared ring buffer. If path is
// empty, the region is anonymous and dies with the process; otherwise
// it is backed by the file at path, surviving process death.
func Init(path string, capacity uint16, fbase uint64, platform record.Platform, locType record.LocType, opts ...Option) (*Buffer, error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: capacity must be a power of two, got %d", capacity)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	size := record.HeaderSize + int(capacity)*record.Size

	var (
		data []byte
		f    *os.File
		err  error
	)
	if path != "" {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o660)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", nterr.ErrIO, path, err)
		}
		if _, err := f.Seek(int64(size)-1, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: seek %s: %v", nterr.ErrIO, path, err)
		}
		if _, err := f.Write([]byte{0}); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: extend %s: %v", nterr.ErrIO, path, err)
		}
		data, err = mmapFile(f, size)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %v", nterr.ErrMap, err)
		}
	} else {
		data, err = mmapAnonymous(size)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", nterr.ErrMap, err)
		}
	}

	hdr := record.Header{Idx: 0, FBase: fbase, Capacity: capacity, Platform: platform, LocType: locType}
	buf := record.MarshalHeader(hdr)
	copy(data[:record.HeaderSize], buf[:])

	return &Buffer{file: f, data: data, capacity: capacity, singleThreaded: o.singleThreaded}, nil
}

func (b *Buffer) idxPtr() *uint64 {
	return (*uint64)(unsafe.Pointer(&b.data[0]))
}

// Reserve atomically (or, in single-threaded mode, plainly) reserves
// the next slot index and returns it.
func (b *Buffer) Reserve() uint64 {
	if b.singleThreaded {
		n := b.localIdx
		b.localIdx++
		*b.idxPtr() = b.localIdx
		return n
	}
	return atomic.AddUint64(b.idxPtr(), 1) - 1
}

// WriteAt writes r into the slot reserved by a prior Reserve call.
func (b *Buffer) WriteAt(slot uint64, r record.Record) {
	idx := int(slot % uint64(b.capacity))
	off := record.HeaderSize + idx*record.Size
	buf := record.MarshalRecord(r)
	copy(b.data[off:off+record.Size], buf[:])
}

// Emit reserves a slot and writes r into it — the combined operation
// used by the producer's hot path.
func (b *Buffer) Emit(r record.Record) {
	b.WriteAt(b.Reserve(), r)
}

// Idx returns the current value of the header's monotonic counter.
func (b *Buffer) Idx() uint64 {
	return atomic.LoadUint64(b.idxPtr())
}

// Capacity returns the ring's slot count.
func (b *Buffer) Capacity() uint16 {
	return b.capacity
}

// Stats returns (idx, capacity) as a convenience for diagnostics.
func (b *Buffer) Stats() (idx uint64, capacity uint16) {
	return b.Idx(), b.capacity
}

// RecordAt returns the raw bytes of physical slot i (0 <= i < capacity);
// callers walking the live window add its start and wrap modulo capacity.
func (b *Buffer) RecordAt(i int) []byte {
	off := record.HeaderSize + i*record.Size
	return b.data[off : off+record.Size]
}

// Close unmaps the region. Flushing file-backed data to disk is
// delegated to the OS; nanotrace never calls msync explicitly, so the
// durability guarantee on abnormal termination is whatever the
// platform gives a dirty mmap'd page (documented per-OS in DESIGN.md).
func (b *Buffer) Close() error {
	if err := syscall.Munmap(b.data); err != nil {
		return fmt.Errorf("%w: munmap: %v", nterr.ErrIO, err)
	}
	if b.file != nil {
		return b.file.Close()
	}
	return nil
}
