package locoracle

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"fmt"

	"github.com/nanotrace/nanotrace/nterr"
	"github.com/nanotrace/nanotrace/record"
)

// ELFSectionName is the ELF section name carrying the named-section loc
// table. Mach-O section names are limited to 16 characters, so the
// same logical table uses MachOSegmentName,MachOSectionName there instead.
const (
	ELFSectionName   = ".nanotrace_loc"
	MachOSegmentName = "__DATA"
	MachOSectionName = "__ntloc"
)

// SectionOracle realizes the spec's "named-section variant": the
// producer binary carries a dedicated read-only section whose records
// are (id, file, line, function) tuples, parsed directly by the
// decoder with no sibling process required.
type SectionOracle struct {
	entries map[uint32]Location
}

// NewSectionOracle opens producerBinaryPath, locates the loc section
// for the given platform, and decodes it eagerly.
func NewSectionOracle(producerBinaryPath string, platform record.Platform) (*SectionOracle, error) {
	var raw []byte
	var err error
	switch platform {
	case record.PlatformELF:
		raw, err = readELFSection(producerBinaryPath, ELFSectionName)
	case record.PlatformMachO:
		raw, err = readMachOSection(producerBinaryPath, MachOSegmentName, MachOSectionName)
	default:
		return nil, fmt.Errorf("%w: unknown platform %v", nterr.ErrMissingLocDecoder, platform)
	}
	if err != nil {
		return nil, err
	}

	entries, err := DecodeTable(raw)
	if err != nil {
		return nil, err
	}
	return &SectionOracle{entries: entries}, nil
}

func (o *SectionOracle) Lookup(locID uint32) (Location, error) {
	loc, ok := o.entries[locID]
	if !ok {
		return Location{}, ErrNotFound
	}
	return loc, nil
}

func readELFSection(path, name string) ([]byte, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open ELF %s: %v", nterr.ErrMissingLocDecoder, path, err)
	}
	defer f.Close()

	sec := f.Section(name)
	if sec == nil {
		return nil, fmt.Errorf("%w: no %s section in %s", nterr.ErrMissingLocDecoder, name, path)
	}
	return sec.Data()
}

func readMachOSection(path, segment, section string) ([]byte, error) {
	f, err := macho.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open Mach-O %s: %v", nterr.ErrMissingLocDecoder, path, err)
	}
	defer f.Close()

	sec := f.Section(section)
	if sec == nil {
		return nil, fmt.Errorf("%w: no %s,%s section in %s", nterr.ErrMissingLocDecoder, segment, section, path)
	}
	return sec.Data()
}

// EncodeTable serializes entries into the wire format a LOC-assigning
// build pass would emit: a flat sequence of
// (id uint32, line uint32, fileLen uint16, file bytes, funcLen uint16,
// func bytes) tuples, little-endian byte order. Exported so tests (and any
// real LOC pass) can produce fixtures without hand-rolling the layout.
func EncodeTable(entries map[uint32]Location) []byte {
	var buf bytes.Buffer
	for id, loc := range entries {
		var hdr [8]byte
		binary.LittleEndian.PutUint32(hdr[0:4], id)
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(loc.Line))
		buf.Write(hdr[:])

		var fileLen [2]byte
		binary.LittleEndian.PutUint16(fileLen[:], uint16(len(loc.File)))
		buf.Write(fileLen[:])
		buf.WriteString(loc.File)

		var funcLen [2]byte
		binary.LittleEndian.PutUint16(funcLen[:], uint16(len(loc.Func)))
		buf.Write(funcLen[:])
		buf.WriteString(loc.Func)
	}
	return buf.Bytes()
}

// DecodeTable parses the wire format written by EncodeTable.
func DecodeTable(raw []byte) (map[uint32]Location, error) {
	entries := make(map[uint32]Location)
	for len(raw) > 0 {
		if len(raw) < 8 {
			return nil, fmt.Errorf("%w: truncated loc table entry header", nterr.ErrHeaderInvalid)
		}
		id := binary.LittleEndian.Uint32(raw[0:4])
		line := binary.LittleEndian.Uint32(raw[4:8])
		raw = raw[8:]

		if len(raw) < 2 {
			return nil, fmt.Errorf("%w: truncated loc table file length", nterr.ErrHeaderInvalid)
		}
		fileLen := int(binary.LittleEndian.Uint16(raw[0:2]))
		raw = raw[2:]
		if len(raw) < fileLen {
			return nil, fmt.Errorf("%w: truncated loc table file name", nterr.ErrHeaderInvalid)
		}
		file := string(raw[:fileLen])
		raw = raw[fileLen:]

		if len(raw) < 2 {
			return nil, fmt.Errorf("%w: truncated loc table func length", nterr.ErrHeaderInvalid)
		}
		funcLen := int(binary.LittleEndian.Uint16(raw[0:2]))
		raw = raw[2:]
		if len(raw) < funcLen {
			return nil, fmt.Errorf("%w: truncated loc table func name", nterr.ErrHeaderInvalid)
		}
		fn := string(raw[:funcLen])
		raw = raw[funcLen:]

		entries[id] = Location{File: file, Line: int(line), Func: fn}
	}
	return entries, nil
}
