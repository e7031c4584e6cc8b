package decoder

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Minimal ELF64 writer used only by this package's tests, to produce a
// fixture "producer binary" carrying known string literals and loc
// sections at known virtual addresses, without needing a real
// toolchain. Grounded in the ELF layout logic from the flapc reference
// repo's ExecutableBuilder (section header table, sh_addr/sh_offset
// bookkeeping), simplified to section-header-only output since the
// decoder never consults program headers.

type elfSection struct {
	name  string
	typ   uint32
	flags uint64
	addr  uint64
	data  []byte
}

const (
	shtNull    = 0
	shtProgbits = 1
	shtStrtab  = 3
	shfAlloc   = 2
)

func writeMinimalELF(t *testing.T, sections []elfSection) string {
	t.Helper()

	// Build the section name string table.
	var shstrtab []byte
	shstrtab = append(shstrtab, 0)
	nameOffsets := make([]uint32, len(sections))
	for i, s := range sections {
		nameOffsets[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, []byte(s.name)...)
		shstrtab = append(shstrtab, 0)
	}
	shstrtabNameOffset := uint32(len(shstrtab))
	shstrtab = append(shstrtab, []byte(".shstrtab")...)
	shstrtab = append(shstrtab, 0)

	const ehsize = 64
	const shentsize = 64

	// Lay out section data right after the ELF header.
	offset := uint64(ehsize)
	dataOffsets := make([]uint64, len(sections))
	for i, s := range sections {
		dataOffsets[i] = offset
		offset += uint64(len(s.data))
	}
	shstrtabOffset := offset
	offset += uint64(len(shstrtab))

	// Section header table follows all data, 8-byte aligned.
	if rem := offset % 8; rem != 0 {
		offset += 8 - rem
	}
	shoff := offset

	numSections := 1 + len(sections) + 1 // NULL + given + .shstrtab
	shstrndx := uint16(numSections - 1)

	buf := make([]byte, shoff+uint64(numSections)*shentsize)

	// e_ident
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT

	le := binary.LittleEndian
	le.PutUint16(buf[16:18], 2)      // e_type = ET_EXEC
	le.PutUint16(buf[18:20], 0x3e)   // e_machine = x86-64
	le.PutUint32(buf[20:24], 1)      // e_version
	le.PutUint64(buf[32:40], shoff)  // e_shoff
	le.PutUint16(buf[52:54], ehsize) // e_ehsize
	le.PutUint16(buf[58:60], shentsize)
	le.PutUint16(buf[60:62], uint16(numSections))
	le.PutUint16(buf[62:64], shstrndx)

	for i, s := range sections {
		copy(buf[dataOffsets[i]:], s.data)
	}
	copy(buf[shstrtabOffset:], shstrtab)

	writeShdr := func(idx int, nameOff uint32, typ uint32, flags, addr, off, size uint64) {
		base := shoff + uint64(idx)*shentsize
		le.PutUint32(buf[base:base+4], nameOff)
		le.PutUint32(buf[base+4:base+8], typ)
		le.PutUint64(buf[base+8:base+16], flags)
		le.PutUint64(buf[base+16:base+24], addr)
		le.PutUint64(buf[base+24:base+32], off)
		le.PutUint64(buf[base+32:base+40], size)
	}

	writeShdr(0, 0, shtNull, 0, 0, 0, 0) // NULL section
	for i, s := range sections {
		writeShdr(1+i, nameOffsets[i], s.typ, s.flags, s.addr, dataOffsets[i], uint64(len(s.data)))
	}
	writeShdr(1+len(sections), shstrtabNameOffset, shtStrtab, 0, 0, shstrtabOffset, uint64(len(shstrtab)))

	path := filepath.Join(t.TempDir(), "producer.elf")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}
