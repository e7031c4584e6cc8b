// Package decoder implements the offline reconstruction side of
// nanotrace: it opens a buffer file and the producer binary that wrote
// it, and reconstructs a human-readable trace by translating each
// record's stored message pointer back into a string and its loc id
// back into a (file, line) pair.
package decoder

import (
	"fmt"
	"os"

	"github.com/nanotrace/nanotrace/nterr"
	"github.com/nanotrace/nanotrace/record"
)

// openedBuffer holds a validated buffer file's header and raw record bytes.
type openedBuffer struct {
	header  record.Header
	records [][]byte
}

func openBuffer(path string) (*openedBuffer, error) {
	if path == "" {
		return nil, nterr.ErrMissingBuffer
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", nterr.ErrMissingBuffer, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", nterr.ErrIO, path, err)
	}
	return parseBuffer(data)
}

func parseBuffer(data []byte) (*openedBuffer, error) {
	if len(data) < record.HeaderSize {
		return nil, fmt.Errorf("%w: file smaller than header (%d bytes)", nterr.ErrHeaderInvalid, len(data))
	}
	hdr, err := record.UnmarshalHeader(data[:record.HeaderSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nterr.ErrHeaderInvalid, err)
	}
	if hdr.Platform != record.PlatformELF && hdr.Platform != record.PlatformMachO {
		return nil, fmt.Errorf("%w: unknown platform %d", nterr.ErrHeaderInvalid, hdr.Platform)
	}
	if hdr.Capacity == 0 {
		return nil, fmt.Errorf("%w: capacity is zero", nterr.ErrHeaderInvalid)
	}

	wantSize := record.HeaderSize + int(hdr.Capacity)*record.Size
	body := data[record.HeaderSize:]

	var truncatedErr error
	available := len(body) / record.Size
	if len(data) < wantSize {
		truncatedErr = fmt.Errorf("%w: have %d bytes, want %d", nterr.ErrTruncatedBuffer, len(data), wantSize)
		if available > int(hdr.Capacity) {
			available = int(hdr.Capacity)
		}
	} else {
		available = int(hdr.Capacity)
	}

	recs := make([][]byte, available)
	for i := 0; i < available; i++ {
		off := i * record.Size
		recs[i] = body[off : off+record.Size]
	}

	return &openedBuffer{header: hdr, records: recs}, truncatedErr
}
