package decoder

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/nanotrace/nanotrace/nterr"
)

const maxStringLen = 4096

// elfResolver reads producer-binary string literals for ELF-like
// platforms by a single subtraction: offset_in_file = msg_ptr - fbase.
// This holds because fbase, captured from /proc/self/maps, is the
// runtime load address of the producer's lowest PT_LOAD segment, whose
// file offset is conventionally 0 — so any address within that
// segment maps directly to a file offset via the same subtraction.
type elfResolver struct {
	f      *os.File
	fbase  uint64
	ranges []addrRange
}

type addrRange struct {
	start, end uint64 // [start, end) virtual addresses, SHF_ALLOC sections
}

func newELFResolver(binaryPath string, fbase uint64) (*elfResolver, error) {
	ef, err := elf.Open(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open ELF %s: %v", nterr.ErrMissingProducerBinary, binaryPath, err)
	}
	defer ef.Close()

	var ranges []addrRange
	for _, sec := range ef.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Addr == 0 || sec.Size == 0 {
			continue
		}
		ranges = append(ranges, addrRange{start: sec.Addr, end: sec.Addr + sec.Size})
	}

	f, err := os.Open(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", nterr.ErrMissingProducerBinary, binaryPath, err)
	}
	return &elfResolver{f: f, fbase: fbase, ranges: ranges}, nil
}

func (r *elfResolver) Close() error { return r.f.Close() }

func (r *elfResolver) inRange(vaddr uint64) bool {
	for _, rg := range r.ranges {
		if vaddr >= rg.start && vaddr < rg.end {
			return true
		}
	}
	return len(r.ranges) == 0 // unknown section table: don't reject, best effort
}

func (r *elfResolver) Resolve(msgPtr uint64) (string, error) {
	if msgPtr < r.fbase {
		return "", nterr.ErrUnresolvedString
	}
	vaddr := msgPtr - r.fbase
	if !r.inRange(msgPtr) && !r.inRange(vaddr) {
		return "", nterr.ErrUnresolvedString
	}

	buf := make([]byte, maxStringLen)
	n, err := r.f.ReadAt(buf, int64(vaddr))
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("%w: %v", nterr.ErrUnresolvedString, err)
	}
	buf = buf[:n]

	end := bytes.IndexByte(buf, 0)
	if end < 0 {
		return "", nterr.ErrUnresolvedString
	}
	return string(buf[:end]), nil
}
