//go:build linux

package ring

import "syscall"

// mmapFile maps a file-backed, shared region and asks the kernel to
// pre-populate its page tables (MAP_POPULATE) so the first hot-path
// write doesn't take a page fault, mirroring the flag used by
// ehrlich-b-go-ublk's mmapQueues for the same reason.
func mmapFile(f interface{ Fd() uintptr }, size int) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
}

// mmapAnonymous maps an anonymous, process-private region of the given size.
func mmapAnonymous(size int) ([]byte, error) {
	return syscall.Mmap(-1, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANONYMOUS|syscall.MAP_POPULATE)
}
