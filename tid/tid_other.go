//go:build !linux

package tid

import "sync/atomic"

// nextFallbackID hands out a monotonic pseudo-thread-id on platforms
// where the stdlib doesn't expose a portable gettid(2) equivalent
// (true thread ids there require cgo's pthread_threadid_np, which
// nanotrace avoids to stay cgo-free). Documented as an open-question
// resolution in DESIGN.md: these ids are process-unique but are not
// the OS's own thread identifiers.
var nextFallbackID uint32

func currentThreadID() uint32 {
	return atomic.AddUint32(&nextFallbackID, 1)
}
