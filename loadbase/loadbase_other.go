//go:build !linux

package loadbase

import "github.com/nanotrace/nanotrace/nterr"

// captureImpl has no portable implementation outside Linux's
// /proc/self/maps. On Mach-O targets the decoder falls back to
// parsing the producer binary's own load commands directly instead of
// trusting fbase (see decoder.newMachOResolver), per spec §4.5 and §9.
func captureImpl() (uint64, error) {
	return 0, nterr.ErrLoadBaseUnknown
}
