package decoder

import (
	"bytes"
	"debug/macho"
	"fmt"
	"io"
	"os"

	"github.com/nanotrace/nanotrace/nterr"
)

// machoResolver reads producer-binary string literals for Mach-O
// targets by locating the __TEXT,__cstring section directly via
// debug/macho, replacing the spec's "external tool" fallback with a
// direct header parse (explicitly permitted by the spec's design
// notes). fbase, when known, compensates for ASLR slide; when unknown
// (the common case on Darwin, where nanotrace has no /proc-equivalent
// to capture it at runtime) a zero slide is assumed — a documented
// limitation for PIE producers, see DESIGN.md.
type machoResolver struct {
	f             *os.File
	fbase         uint64
	sectionAddr   uint64
	sectionOffset uint64
	sectionSize   uint64
}

func newMachOResolver(binaryPath string, fbase uint64) (*machoResolver, error) {
	mf, err := macho.Open(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open Mach-O %s: %v", nterr.ErrMissingProducerBinary, binaryPath, err)
	}
	defer mf.Close()

	sec := mf.Section("__cstring")
	if sec == nil {
		return nil, fmt.Errorf("%w: no __cstring section in %s", nterr.ErrMissingProducerBinary, binaryPath)
	}

	f, err := os.Open(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", nterr.ErrMissingProducerBinary, binaryPath, err)
	}
	return &machoResolver{
		f:             f,
		fbase:         fbase,
		sectionAddr:   sec.Addr,
		sectionOffset: uint64(sec.Offset),
		sectionSize:   sec.Size,
	}, nil
}

func (r *machoResolver) Close() error { return r.f.Close() }

func (r *machoResolver) Resolve(msgPtr uint64) (string, error) {
	vaddr := msgPtr
	if r.fbase != 0 {
		if msgPtr < r.fbase {
			return "", nterr.ErrUnresolvedString
		}
		vaddr = msgPtr - r.fbase
	}
	if vaddr < r.sectionAddr || vaddr >= r.sectionAddr+r.sectionSize {
		return "", nterr.ErrUnresolvedString
	}
	fileOffset := r.sectionOffset + (vaddr - r.sectionAddr)

	buf := make([]byte, maxStringLen)
	n, err := r.f.ReadAt(buf, int64(fileOffset))
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
