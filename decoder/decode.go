package decoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/nanotrace/nanotrace/internal/logging"
	"github.com/nanotrace/nanotrace/locoracle"
	"github.com/nanotrace/nanotrace/nterr"
	"github.com/nanotrace/nanotrace/record"
)

// Options configures one Decode run, mirroring the decoder's
// command-line contract (spec §6): required buffer and binary paths,
// an optional explicit sibling loc-decoder path, and a mode flag
// opting into location decoding.
type Options struct {
	BufferPath     string
	BinaryPath     string
	LocDecoderPath string // overrides the conventional "<binary>_loc" sibling path
	DecodeLoc      bool   // opt into location resolution when the header's LocType demands it
}

type stringResolver interface {
	Resolve(msgPtr uint64) (string, error)
	Close() error
}

// Decode reads the buffer at opts.BufferPath and the producer binary
// at opts.BinaryPath, and writes one formatted line per live record to
// w, oldest first. Fatal input errors (MissingBuffer,
// MissingProducerBinary, MissingLocDecoder, HeaderInvalid) abort the
// whole run; per-record UnresolvedString issues are written inline and
// do not abort.
func Decode(w io.Writer, opts Options) error {
	ob, err := openBuffer(opts.BufferPath)
	if err != nil && !errors.Is(err, nterr.ErrTruncatedBuffer) {
		return err
	}
	if err != nil {
		logging.Default().Warn(err.Error())
	}

	resolver, err := newStringResolver(opts.BinaryPath, ob.header)
	if err != nil {
		return err
	}
	defer resolver.Close()

	oracle, err := newOracle(opts, ob.header)
	if err != nil {
		return err
	}

	start, count := record.LiveWindow(ob.header.Idx, ob.header.Capacity)
	cap := int(ob.header.Capacity)
	if count > len(ob.records) {
		count = len(ob.records)
	}

	for i := 0; i < count; i++ {
		slotIdx := (start + i) % cap
		if slotIdx >= len(ob.records) {
			continue
		}
		rec, err := record.UnmarshalRecord(ob.records[slotIdx])
		if err != nil {
			logging.Default().Warn("skipping malformed record", "slot", slotIdx, "err", err)
			continue
		}
		writeRecord(w, rec, resolver, oracle)
	}
	return nil
}

func newStringResolver(binaryPath string, hdr record.Header) (stringResolver, error) {
	if binaryPath == "" {
		return nil, nterr.ErrMissingProducerBinary
	}
	switch hdr.Platform {
	case record.PlatformELF:
		return newELFResolver(binaryPath, hdr.FBase)
	case record.PlatformMachO:
		return newMachOResolver(binaryPath, hdr.FBase)
	default:
		return nil, fmt.Errorf("%w: unknown platform %v", nterr.ErrHeaderInvalid, hdr.Platform)
	}
}

func newOracle(opts Options, hdr record.Header) (locoracle.Oracle, error) {
	if hdr.LocType == record.LocNone || !opts.DecodeLoc {
		return nil, nil
	}
	switch hdr.LocType {
	case record.LocTable:
		sibling := opts.LocDecoderPath
		if sibling == "" {
			sibling = locoracle.SiblingPath(opts.BinaryPath)
		}
		return locoracle.NewTableOracle(sibling)
	case record.LocSection:
		return locoracle.NewSectionOracle(opts.BinaryPath, hdr.Platform)
	default:
		return nil, fmt.Errorf("%w: unknown loc_type %v", nterr.ErrHeaderInvalid, hdr.LocType)
	}
}

func writeRecord(w io.Writer, rec record.Record, resolver stringResolver, oracle locoracle.Oracle) {
	loc := formatLoc(rec.Loc, oracle)
	msg, err := resolver.Resolve(rec.Msg)
	if err != nil {
		fmt.Fprintf(w, "tid=%d %s '<unresolved 0x%x>' arg1=%d arg2=%d\n", rec.TID, loc, rec.Msg, rec.Arg1, rec.Arg2)
		return
	}
	fmt.Fprintf(w, "tid=%d %s '%s' arg1=%d arg2=%d\n", rec.TID, loc, msg, rec.Arg1, rec.Arg2)
}

func formatLoc(locID uint32, oracle locoracle.Oracle) string {
	if oracle == nil {
		if locID == 0 {
			return ""
		}
		return fmt.Sprintf("[loc=%d]", locID)
	}
	resolved, err := oracle.Lookup(locID)
	if err != nil {
		return fmt.Sprintf("[loc=%d]", locID)
	}
	if resolved.Func != "" {
		return fmt.Sprintf("[%s:%d %s]", resolved.File, resolved.Line, resolved.Func)
	}
	return fmt.Sprintf("[%s:%d]", resolved.File, resolved.Line)
}
