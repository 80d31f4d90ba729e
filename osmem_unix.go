//go:build unix

package malloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// unixProvider backs the OS Memory Provider with real mmap/munmap syscalls,
// grounded on the build-tag-gated platform-file convention used throughout
// internal/runtime/asyncio in the teacher repository (e.g.
// zerocopy_unix_file.go, kqueue_poller_bsd.go), each importing
// golang.org/x/sys/unix directly rather than going through cgo.
type unixProvider struct {
	pageSize uintptr
}

func newPlatformProvider() osMemoryProvider {
	return &unixProvider{pageSize: uintptr(unix.Getpagesize())}
}

func (p *unixProvider) PageSize() uintptr {
	return p.pageSize
}

// Map requests an anonymous, private mapping. The kernel zero-fills fresh
// anonymous pages, satisfying §4.1's zero-initialized contract without an
// extra pass over the memory.
func (p *unixProvider) Map(pages uintptr) ([]byte, error) {
	if pages == 0 {
		return nil, fmt.Errorf("%w: zero-page mapping requested", ErrOutOfMemory)
	}

	length := int(pages * p.pageSize)

	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, length, err)
	}

	return mem, nil
}

func (p *unixProvider) Unmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}

	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("malloc: munmap %d bytes: %w", len(mem), err)
	}

	return nil
}
