// Package loadbase captures the virtual address at which the
// producer's own binary image was loaded, so the decoder can later
// translate a stored message pointer into a file offset by subtracting
// this base (spec §4.5). The mechanism is inherently platform-specific:
// on Linux it's read out of /proc/self/maps; on platforms where that's
// unavailable, Capture reports nterr.ErrLoadBaseUnknown and the
// header's Platform field steers the decoder to a binary-parsing
// fallback instead (see decoder.newMachOResolver).
package loadbase

// Capture returns the producer's load base, or an error wrapping
// nterr.ErrLoadBaseUnknown if it cannot be determined on this platform.
func Capture() (uint64, error) {
	return captureImpl()
}
