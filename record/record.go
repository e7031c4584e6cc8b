// Package record defines the on-wire layout of a nanotrace buffer: its
// 32-byte header and 32-byte records. The sizes are load-bearing — the
// decoder hard-codes them — so they are pinned by init-time assertions
// the way ehrlich-b-go-ublk pins its UAPI struct sizes and aleph-tx's
// shm package pins ShmBboMessage to 64 bytes.
package record

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// Size is the fixed on-wire size of one Record, in bytes.
const Size = 32

// HeaderSize is the fixed on-wire size of a Header, in bytes.
const HeaderSize = 32

// Platform identifies the producer's binary format, steering the
// decoder's string-resolution strategy.
type Platform uint8

const (
	PlatformUnknown Platform = 0
	PlatformELF     Platform = 1
	PlatformMachO   Platform = 2
)

func (p Platform) String() string {
	switch p {
	case PlatformELF:
		return "elf"
	case PlatformMachO:
		return "macho"
	default:
		return "unknown"
	}
}

// LocType identifies how the code-location oracle is realized.
type LocType uint8

const (
	LocNone    LocType = 0
	LocTable   LocType = 1
	LocSection LocType = 2
)

func (t LocType) String() string {
	switch t {
	case LocTable:
		return "table"
	case LocSection:
		return "section"
	default:
		return "none"
	}
}

// Record is one 32-byte logged event.
type Record struct {
	TID  uint32 // OS thread id of the producer
	Loc  uint32 // code-location id, 0 = unused
	Msg  uint64 // address of a constant string in the producer's rodata
	Arg1 int64
	Arg2 int64
}

// Header is the fixed 32-byte buffer header, followed by Capacity records.
type Header struct {
	Idx      uint64 // monotonic slot counter, never reset
	FBase    uint64 // producer load base of the string-literal region
	pad1     uint32
	Capacity uint16
	Platform Platform
	LocType  LocType
	pad2     uint64
}

func init() {
	if unsafe.Sizeof(Record{}) != Size {
		panic(fmt.Sprintf("record: Record size is %d, expected %d", unsafe.Sizeof(Record{}), Size))
	}
	if unsafe.Sizeof(Header{}) != HeaderSize {
		panic(fmt.Sprintf("record: Header size is %d, expected %d", unsafe.Sizeof(Header{}), HeaderSize))
	}
}

// MarshalRecord encodes r into exactly Size bytes, native byte order.
func MarshalRecord(r Record) [Size]byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint32(buf[0:4], r.TID)
	binary.LittleEndian.PutUint32(buf[4:8], r.Loc)
	binary.LittleEndian.PutUint64(buf[8:16], r.Msg)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(r.Arg1))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(r.Arg2))
	return buf
}

// UnmarshalRecord decodes exactly Size bytes into a Record.
func UnmarshalRecord(b []byte) (Record, error) {
	if len(b) < Size {
		return Record{}, fmt.Errorf("record: short buffer: got %d bytes, want %d", len(b), Size)
	}
	return Record{
		TID:  binary.LittleEndian.Uint32(b[0:4]),
		Loc:  binary.LittleEndian.Uint32(b[4:8]),
		Msg:  binary.LittleEndian.Uint64(b[8:16]),
		Arg1: int64(binary.LittleEndian.Uint64(b[16:24])),
		Arg2: int64(binary.LittleEndian.Uint64(b[24:32])),
	}, nil
}

// MarshalHeader encodes h into exactly HeaderSize bytes, native byte order.
func MarshalHeader(h Header) [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], h.Idx)
	binary.LittleEndian.PutUint64(buf[8:16], h.FBase)
	binary.LittleEndian.PutUint32(buf[16:20], 0)
	binary.LittleEndian.PutUint16(buf[20:22], h.Capacity)
	buf[22] = byte(h.Platform)
	buf[23] = byte(h.LocType)
	binary.LittleEndian.PutUint64(buf[24:32], 0)
	return buf
}

// UnmarshalHeader decodes exactly HeaderSize bytes into a Header.
func UnmarshalHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("record: short buffer: got %d bytes, want %d", len(b), HeaderSize)
	}
	return Header{
		Idx:      binary.LittleEndian.Uint64(b[0:8]),
		FBase:    binary.LittleEndian.Uint64(b[8:16]),
		Capacity: binary.LittleEndian.Uint16(b[20:22]),
		Platform: Platform(b[22]),
		LocType:  LocType(b[23]),
	}, nil
}

// LiveWindow computes the logical, oldest-first window of live records
// given the header's idx and capacity: if idx < capacity, slots
// 0..idx are live; otherwise all capacity slots are live, starting at
// idx mod capacity. Shared between the producer's diagnostics and the
// decoder so the wrap arithmetic lives in exactly one place.
func LiveWindow(idx uint64, capacity uint16) (start int, count int) {
	cap64 := uint64(capacity)
	if cap64 == 0 {
		return 0, 0
	}
	if idx < cap64 {
		return 0, int(idx)
	}
	return int(idx % cap64), int(cap64)
}
