package decoder

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanotrace/nanotrace/locoracle"
	"github.com/nanotrace/nanotrace/nterr"
	"github.com/nanotrace/nanotrace/record"
	"github.com/nanotrace/nanotrace/ring"
)

// buildFixture lays out a rodata blob (matching the real layout
// writeMinimalELF will use: ELF header is 64 bytes, then section data
// in order) so the test can compute each string's eventual file offset
// — which, with fbase=0, is also its "virtual address" per the
// decoder's single-subtraction ELF resolution strategy — before the
// ELF file itself is built.
func buildFixture(t *testing.T, rodata []byte, locSection []byte) (path string, rodataAddr uint64) {
	t.Helper()
	const ehsize = 64
	rodataAddr = ehsize

	sections := []elfSection{
		{name: ".rodata", typ: shtProgbits, flags: shfAlloc, addr: rodataAddr, data: rodata},
	}
	if locSection != nil {
		sections = append(sections, elfSection{name: locoracle.ELFSectionName, typ: shtProgbits, flags: 0, data: locSection})
	}
	return writeMinimalELF(t, sections), rodataAddr
}

func TestDecodeS1ThreeRecordTrace(t *testing.T) {
	helloStr := []byte("hello\x00")
	binPath, rodataAddr := buildFixture(t, helloStr, nil)

	bufPath := filepath.Join(t.TempDir(), "buf.bin")
	rb, err := ring.Init(bufPath, 16, 0, record.PlatformELF, record.LocNone)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		rb.Emit(record.Record{TID: 42, Msg: rodataAddr, Arg1: 0, Arg2: 0})
	}
	require.NoError(t, rb.Close())

	var out bytes.Buffer
	require.NoError(t, Decode(&out, Options{BufferPath: bufPath, BinaryPath: binPath}))

	lines := splitLines(out.String())
	require.Len(t, lines, 3)
	for _, l := range lines {
		require.Contains(t, l, "tid=42")
		require.Contains(t, l, "'hello'")
		require.Contains(t, l, "arg1=0 arg2=0")
	}
}

func TestDecodeS2ArgumentFidelity(t *testing.T) {
	msg := []byte("memwrite(addr=%x,size=%d)\x00")
	binPath, rodataAddr := buildFixture(t, msg, nil)

	bufPath := filepath.Join(t.TempDir(), "buf.bin")
	rb, err := ring.Init(bufPath, 16, 0, record.PlatformELF, record.LocNone)
	require.NoError(t, err)
	rb.Emit(record.Record{TID: 1, Msg: rodataAddr, Arg1: 0xDEADBABE, Arg2: 1024})
	require.NoError(t, rb.Close())

	var out bytes.Buffer
	require.NoError(t, Decode(&out, Options{BufferPath: bufPath, BinaryPath: binPath}))
	require.Contains(t, out.String(), "'memwrite(addr=%x,size=%d)' arg1=3735927486 arg2=1024")
}

func TestDecodeWrongBinaryReportsUnresolved(t *testing.T) {
	_, rodataAddr := buildFixture(t, []byte("hello\x00"), nil)
	wrongBinPath, _ := buildFixture(t, []byte("unrelated\x00"), nil)

	bufPath := filepath.Join(t.TempDir(), "buf.bin")
	rb, err := ring.Init(bufPath, 16, 0, record.PlatformELF, record.LocNone)
	require.NoError(t, err)
	// Point far outside the wrong binary's only section so it can't resolve.
	rb.Emit(record.Record{TID: 1, Msg: rodataAddr + 0x10000, Arg1: 1, Arg2: 2})
	require.NoError(t, rb.Close())

	var out bytes.Buffer
	require.NoError(t, Decode(&out, Options{BufferPath: bufPath, BinaryPath: wrongBinPath}))
	require.Contains(t, out.String(), "unresolved")
}

func TestDecodeS5LocationRoundTrip(t *testing.T) {
	msg := []byte("x\x00")
	entries := map[uint32]locoracle.Location{
		7: {File: "producer.src", Line: 42},
	}
	locTable := locoracle.EncodeTable(entries)

	const ehsize = 64
	rodataAddr := uint64(ehsize)
	sections := []elfSection{
		{name: ".rodata", typ: shtProgbits, flags: shfAlloc, addr: rodataAddr, data: msg},
		{name: locoracle.ELFSectionName, typ: shtProgbits, flags: 0, data: locTable},
	}
	binPath := writeMinimalELF(t, sections)

	bufPath := filepath.Join(t.TempDir(), "buf.bin")
	rb, err := ring.Init(bufPath, 16, 0, record.PlatformELF, record.LocSection)
	require.NoError(t, err)
	rb.Emit(record.Record{TID: 1, Loc: 7, Msg: rodataAddr, Arg1: 1, Arg2: 2})
	require.NoError(t, rb.Close())

	var out bytes.Buffer
	require.NoError(t, Decode(&out, Options{BufferPath: bufPath, BinaryPath: binPath, DecodeLoc: true}))
	require.Contains(t, out.String(), "producer.src:42")
	require.Contains(t, out.String(), "'x' arg1=1 arg2=2")
}

func TestDecodeS6MissingLocDecoder(t *testing.T) {
	msg := []byte("x\x00")
	binPath, rodataAddr := buildFixture(t, msg, nil)

	bufPath := filepath.Join(t.TempDir(), "buf.bin")
	rb, err := ring.Init(bufPath, 16, 0, record.PlatformELF, record.LocTable)
	require.NoError(t, err)
	rb.Emit(record.Record{TID: 1, Loc: 7, Msg: rodataAddr, Arg1: 1, Arg2: 2})
	require.NoError(t, rb.Close())

	var out bytes.Buffer
	err = Decode(&out, Options{BufferPath: bufPath, BinaryPath: binPath, DecodeLoc: true})
	require.Error(t, err)
	require.ErrorContains(t, err, "missing location decoder")
}

func TestDecodeNoLocGracefulFallback(t *testing.T) {
	msg := []byte("x\x00")
	binPath, rodataAddr := buildFixture(t, msg, nil)

	bufPath := filepath.Join(t.TempDir(), "buf.bin")
	rb, err := ring.Init(bufPath, 16, 0, record.PlatformELF, record.LocNone)
	require.NoError(t, err)
	rb.Emit(record.Record{TID: 1, Msg: rodataAddr, Arg1: 1, Arg2: 2})
	require.NoError(t, rb.Close())

	var out bytes.Buffer
	require.NoError(t, Decode(&out, Options{BufferPath: bufPath, BinaryPath: binPath}))
	require.Contains(t, out.String(), "'x' arg1=1 arg2=2")
}

func TestDecodeMissingBuffer(t *testing.T) {
	err := Decode(&bytes.Buffer{}, Options{BufferPath: "", BinaryPath: "whatever"})
	require.ErrorIs(t, err, nterr.ErrMissingBuffer)
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range bytes.Split([]byte(s), []byte("\n")) {
		if len(l) > 0 {
			lines = append(lines, string(l))
		}
	}
	return lines
}
