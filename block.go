package malloc

import "unsafe"

// blockState is the free/in-use flag carried by every header (§3).
type blockState uint8

const (
	blockFree blockState = iota
	blockInUse
)

// blockKind distinguishes an arena-subdivided block from the sole block of
// a dedicated large region (§3).
type blockKind uint8

const (
	blockArena blockKind = iota
	blockLarge
)

// blockHeader is the in-band metadata record placed immediately before
// every payload (§4.3, Design Notes §9 "in-band headers via pointer
// arithmetic"). It lives inside OS-mapped memory the Go runtime does not
// own, so every field is a plain integer: none of them may hold a Go
// pointer, or the garbage collector would have no way to know the object on
// the other end is still reachable.
//
// The next physical neighbor is never stored — it is always recovered by
// adding size to this header's own address (§4.3 "given a block header,
// the next-physical block's header is reached by adding its total size").
// The previous physical neighbor is a genuine back-link, since no
// arithmetic recovers it.
type blockHeader struct {
	size     uintptr // total size: header + payload + padding
	payload  uintptr // user-addressable bytes
	prevPhys uintptr // address of the previous physical block's header, 0 at region start
	freePrev uintptr // free-list linkage; meaningful only while state == blockFree
	freeNext uintptr
	regionID uint64
	bucket   int32 // free-list bucket index; meaningful only while state == blockFree
	state    blockState
	kind     blockKind
}

// rawHeaderSize is the compiler-determined size of blockHeader before any
// alignment padding a particular heap's WordAlign might add.
var rawHeaderSize = unsafe.Sizeof(blockHeader{})

// unsafeWordAlign is the platform's natural pointer size, the floor every
// Config.WordAlign is measured against (spec §4.5: "every returned pointer
// is aligned to at least word size").
const unsafeWordAlign = unsafe.Sizeof(uintptr(0))

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

func headerAt(addr uintptr) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(addr)) //nolint:govet // in-band header over unmanaged memory
}

func (h *blockHeader) addr() uintptr {
	return uintptr(unsafe.Pointer(h))
}

// end returns the address one past this block's total extent — exactly the
// address of the next physical block's header, if one exists within the
// owning region.
func (h *blockHeader) end() uintptr {
	return h.addr() + h.size
}

func headerFromUserPointer(p unsafe.Pointer, headerSize uintptr) *blockHeader {
	return headerAt(uintptr(p) - headerSize)
}

func (h *blockHeader) userPointer(headerSize uintptr) unsafe.Pointer {
	return unsafe.Pointer(h.addr() + headerSize)
}

func (h *blockHeader) payloadBytes(headerSize uintptr) []byte {
	if h.payload == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(h.userPointer(headerSize)), int(h.payload))
}
