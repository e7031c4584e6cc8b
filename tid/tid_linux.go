//go:build linux

package tid

import "syscall"

// currentThreadID queries the Linux gettid(2) syscall, exposed
// directly by the stdlib syscall package on this platform.
func currentThreadID() uint32 {
	return uint32(syscall.Gettid())
}
