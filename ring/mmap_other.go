//go:build !linux

package ring

import "syscall"

// mmapFile maps a file-backed, shared region. Non-Linux unix targets
// lack MAP_POPULATE, so the first hot-path write may take a page
// fault; this is a documented platform divergence, not a correctness
// issue (see DESIGN.md).
func mmapFile(f interface{ Fd() uintptr }, size int) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
}

// mmapAnonymous maps an anonymous, process-private region of the given size.
func mmapAnonymous(size int) ([]byte, error) {
	return syscall.Mmap(-1, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
}
