// Package producer is the public logging API: Init, Emit, EmitNoArgs,
// and EmitAt. Per the spec's design notes on a "global mutable buffer
// pointer," the ring buffer is a lazily-initialized, process-wide
// handle set exactly once by Init; every Emit call only ever reads it.
package producer

import (
	"os"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/nanotrace/nanotrace/internal/logging"
	"github.com/nanotrace/nanotrace/loadbase"
	"github.com/nanotrace/nanotrace/record"
	"github.com/nanotrace/nanotrace/ring"
	"github.com/nanotrace/nanotrace/tid"
)

var active atomic.Pointer[ring.Buffer]

// LocEnvVar is the environment variable that selects the LOC encoding
// mode for the build pipeline ("" or "0" = none, "1" = table, "2" =
// named-section), echoed into the header's LocType. The decoder honors
// the same variable to opt into location decoding.
const LocEnvVar = "NANOTRACE_LOC"

// LocTypeFromEnv reads LocEnvVar and returns the corresponding record.LocType.
func LocTypeFromEnv() record.LocType {
	switch os.Getenv(LocEnvVar) {
	case "1":
		return record.LocTable
	case "2":
		return record.LocSection
	default:
		return record.LocNone
	}
}

// Option configures Init.
type Option = ring.Option

// WithSingleThreaded is re-exported from ring for callers that only
// import producer.
var WithSingleThreaded = ring.WithSingleThreaded

// Init allocates the process-wide buffer. If path is non-empty, the
// buffer is backed by that file and survives process death; a fresh
// call to Init replaces the active buffer (the previous one, if any,
// is left mapped and leaked unless the caller held onto it via Close,
// per spec §9's documented "second init supersedes the first").
func Init(path string, capacity uint16, locType record.LocType, opts ...Option) error {
	platform := currentPlatform()

	fbase, err := loadbase.Capture()
	if err != nil {
		if platform == record.PlatformELF {
			return err
		}
		logging.Default().Warn("load base unknown, decoder will rely on binary parsing", "platform", platform.String())
		fbase = 0
	}

	buf, err := ring.Init(path, capacity, fbase, platform, locType, opts...)
	if err != nil {
		return err
	}

	active.Store(buf)
	logging.Default().Info("nanotrace buffer initialized", "path", path, "capacity", capacity, "platform", platform.String())
	return nil
}

// Deinit unmaps the active buffer. Further emits after Deinit are
// silently discarded (per spec §4.1's "undefined result" clause,
// resolved here as a safe no-op rather than a crash).
func Deinit() error {
	buf := active.Swap(nil)
	if buf == nil {
		return nil
	}
	return buf.Close()
}

// Emit records msg (the address of a read-only string constant), and
// two opaque integer arguments. Wait-free, no allocation, no error
// return: once Init has succeeded, emits always succeed. msg must point
// at a package-level var initialized directly from a string literal;
// only the address is stored and it is not checked, so passing any
// other string is undefined.
func Emit(msg *string, arg1, arg2 int64) {
	emit(0, msg, arg1, arg2)
}

// EmitNoArgs is a specialization of Emit for messages with no
// arguments; both argument fields are stored as zero.
func EmitNoArgs(msg *string) {
	emit(0, msg, 0, 0)
}

// EmitAt is the LOC-aware entry point: locID is a compact identifier a
// (non-core, external) compile-time pass has assigned to this call
// site, stored verbatim in the record's Loc field.
func EmitAt(locID uint32, msg *string, arg1, arg2 int64) {
	emit(locID, msg, arg1, arg2)
}

func emit(locID uint32, msg *string, arg1, arg2 int64) {
	buf := active.Load()
	if buf == nil {
		return
	}
	buf.Emit(record.Record{
		TID:  tid.Default().Current(),
		Loc:  locID,
		Msg:  msgAddr(msg),
		Arg1: arg1,
		Arg2: arg2,
	})
}

// msgAddr returns the address of msg's backing data as a uint64,
// meaningful relative to the header's FBase once the decoder
// retranslates it. msg must point at a package-level string constant
// or var initialized directly from a literal; see Emit's doc comment
// and contract_test.go for the caller discipline
// this depends on.
func msgAddr(msg *string) uint64 {
	return uint64(uintptr(unsafe.Pointer(unsafe.StringData(*msg))))
}

func currentPlatform() record.Platform {
	switch runtime.GOOS {
	case "linux", "android":
		return record.PlatformELF
	case "darwin", "ios":
		return record.PlatformMachO
	default:
		return record.PlatformUnknown
	}
}

// PinWorker pins the calling goroutine to its current OS thread and
// returns an attached tid.Handle, the pattern the demo producer and
// any latency-sensitive caller should use: runtime.LockOSThread keeps
// the cached thread id meaningful for the handle's whole lifetime.
func PinWorker() *tid.Handle {
	runtime.LockOSThread()
	return tid.Attach()
}

// EmitAs is like Emit but records the thread id cached on h instead of
// the package-wide default handle — used by pinned workers.
func EmitAs(h *tid.Handle, locID uint32, msg *string, arg1, arg2 int64) {
	buf := active.Load()
	if buf == nil {
		return
	}
	buf.Emit(record.Record{
		TID:  h.Current(),
		Loc:  locID,
		Msg:  msgAddr(msg),
		Arg1: arg1,
		Arg2: arg2,
	})
}

// bufSnapshot is exposed only to tests in this package, to validate
// lifecycle behavior without reaching into the ring package directly.
func bufSnapshot() *ring.Buffer { return active.Load() }
