//go:build windows

package malloc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsProvider backs the OS Memory Provider with VirtualAlloc/VirtualFree,
// grounded on the teacher's internal/runtime/asyncio Windows platform files
// (iocp_poller_windows.go, zerocopy_windows_file.go), which import
// golang.org/x/sys/windows directly for the same reason: the stdlib doesn't
// expose these primitives.
type windowsProvider struct {
	pageSize uintptr
}

func newPlatformProvider() osMemoryProvider {
	var info windows.SystemInfo

	windows.GetSystemInfo(&info)

	return &windowsProvider{pageSize: uintptr(info.PageSize)}
}

func (p *windowsProvider) PageSize() uintptr {
	return p.pageSize
}

// Map reserves and commits a fresh region with VirtualAlloc. Windows
// zero-fills newly committed pages, satisfying §4.1's zero-initialized
// contract.
func (p *windowsProvider) Map(pages uintptr) ([]byte, error) {
	if pages == 0 {
		return nil, fmt.Errorf("%w: zero-page mapping requested", ErrOutOfMemory)
	}

	length := pages * p.pageSize

	addr, err := windows.VirtualAlloc(0, length, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("%w: VirtualAlloc %d bytes: %v", ErrOutOfMemory, length, err)
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length)), nil
}

func (p *windowsProvider) Unmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&mem[0]))

	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("malloc: VirtualFree %d bytes: %w", len(mem), err)
	}

	return nil
}
