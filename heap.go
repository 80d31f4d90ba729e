package malloc

import (
	"fmt"
	"log"
	"sync"
	"unsafe"
)

// Stats is a read-only snapshot of heap-wide bookkeeping. It mirrors the
// shape of internal/allocator.AllocatorStats in the teacher repository but
// is never consulted by the allocate/free fast path itself — Non-goals
// exclude allocator-level observability beyond the leak enumerator, so
// nothing here is load-bearing for correctness.
type Stats struct {
	TotalAllocated    uint64
	TotalFreed        uint64
	ActiveAllocations int
	ArenaRegions      int
	LargeRegions      int
}

// Heap is the top-level handle (§3): it owns the Region Registry, the
// Free-List Index, and its resolved configuration. A destroyed Heap
// invalidates every pointer it previously vended.
//
// Heap embeds sync.Mutex but never locks it itself (§5: single-threaded
// ownership, no internal synchronization). A caller that needs to serialize
// concurrent access may call heap.Lock()/heap.Unlock() directly instead of
// maintaining a side table.
type Heap struct {
	sync.Mutex

	cfg        Config
	headerSize uintptr
	minPayload uintptr
	provider   osMemoryProvider
	regions    *registry
	freeIndex  *freeList
	destroyed  bool
	stats      Stats
}

// Init returns a heap handle with an empty Region Registry and empty
// Free-List Index (§4.8). Page size is discovered once here and
// snapshotted on the handle — never held in process-wide state (Design
// Notes §9).
//
// No region is mapped eagerly: the Registry starts empty per §4.8, and the
// first Alloc call triggers the first region acquisition. A failure there
// surfaces as ErrOutOfMemory from that call, which is observationally
// equivalent to failing inside Init since nothing could have been
// allocated from an empty heap anyway.
func Init(opts ...Option) (*Heap, error) {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	provider := newOSMemoryProvider()

	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = provider.PageSize()
	}

	resolved := resolveConfig(cfg, pageSize)
	headerSize := alignUp(rawHeaderSize, resolved.WordAlign)

	h := &Heap{
		cfg:        resolved,
		headerSize: headerSize,
		minPayload: resolved.WordAlign,
		provider:   provider,
		regions:    newRegistry(provider),
		freeIndex:  newFreeList(),
	}

	if resolved.Verbose {
		log.Printf("malloc: heap initialized, page size %d bytes, arena threshold %d bytes", pageSize, resolved.ArenaThreshold)
	}

	return h, nil
}

// Destroy releases every region still owned by h and marks it destroyed.
// It returns nil even when in-use blocks remain (§4.8, §9 Open Questions),
// and nil again on a second call; the only error it returns is an OS
// failure to unmap a region, in which case h is not marked destroyed. Call
// CheckLeaks beforehand to detect outstanding allocations; Destroy itself is
// silent about them.
func (h *Heap) Destroy() error {
	if h.destroyed {
		return nil
	}

	for _, r := range h.regions.enumerate() {
		if err := h.regions.release(r); err != nil {
			return fmt.Errorf("malloc: destroy: %w", err)
		}
	}

	h.destroyed = true

	if h.cfg.Verbose {
		log.Printf("malloc: heap destroyed")
	}

	return nil
}

// Stats returns a snapshot of heap-wide allocation bookkeeping.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.ActiveAllocations = 0

	for _, r := range h.regions.enumerate() {
		switch r.kind {
		case regionArena:
			s.ArenaRegions++

			h.walkArena(r, func(blk *blockHeader) {
				if blk.state == blockInUse {
					s.ActiveAllocations++
				}
			})
		case regionLarge:
			s.LargeRegions++
			s.ActiveAllocations++
		}
	}

	return s
}

// walkArena visits every physical block header in region r, base to end, in
// address order.
func (h *Heap) walkArena(r *region, visit func(*blockHeader)) {
	for addr := r.base; addr < r.end(); {
		blk := headerAt(addr)
		visit(blk)
		addr = blk.end()
	}
}

// nextPhys returns blk's next physical neighbor within its owning region,
// recovered by address arithmetic (§4.3), or nil if blk is the region's
// last block or a large (single-block) region.
func (h *Heap) nextPhys(blk *blockHeader) *blockHeader {
	if blk.kind == blockLarge {
		return nil
	}

	r, err := h.regions.byID(blk.regionID)
	if err != nil {
		return nil
	}

	end := blk.end()
	if end >= r.end() {
		return nil
	}

	return headerAt(end)
}

// relinkNextPrev fixes blk's next physical neighbor's back-link to point at
// blk, needed after any split or merge that moves or resizes blk.
func (h *Heap) relinkNextPrev(blk *blockHeader) {
	if next := h.nextPhys(blk); next != nil {
		next.prevPhys = blk.addr()
	}
}

// blockOf recovers the header and owning region for a user pointer and
// performs the best-effort validation §7 allows for InvalidArgument: the
// header's address must lie inside a region this heap still owns (checked
// before the header is read, so a pointer into a released region is never
// dereferenced), the header's regionID must name a region this heap still
// owns, that region must actually contain the header's address, the header's
// kind must match the region's, and the block must currently be in-use. None
// of this is a guarantee — a sufficiently adversarial foreign pointer can
// still pass every check — but it catches the common cases (a pointer from a
// destroyed or unrelated heap, a double-free) cheaply, scanning only the
// region list and never the blocks.
func (h *Heap) blockOf(ptr unsafe.Pointer) (*blockHeader, *region, error) {
	hdr := uintptr(ptr) - h.headerSize
	mapped := false

	for _, cand := range h.regions.regions {
		if cand.contains(hdr) {
			mapped = true

			break
		}
	}

	if !mapped {
		return nil, nil, ErrInvalidPointer
	}

	blk := headerFromUserPointer(ptr, h.headerSize)

	r, err := h.regions.byID(blk.regionID)
	if err != nil {
		return nil, nil, ErrInvalidPointer
	}

	if !r.contains(blk.addr()) {
		return nil, nil, ErrInvalidPointer
	}

	switch {
	case blk.kind == blockArena && r.kind != regionArena:
		return nil, nil, ErrInvalidPointer
	case blk.kind == blockLarge && r.kind != regionLarge:
		return nil, nil, ErrInvalidPointer
	}

	if blk.state != blockInUse {
		return nil, nil, ErrInvalidPointer
	}

	return blk, r, nil
}

// effectiveSize computes B from §4.5: round_up(header + max(n, min_payload), word_align).
func (h *Heap) effectiveSize(n uintptr) uintptr {
	payload := n
	if payload < h.minPayload {
		payload = h.minPayload
	}

	return alignUp(h.headerSize+payload, h.cfg.WordAlign)
}

// Alloc is the null-returning facade over TryAlloc (Design Notes §9: "a port
// may surface a richer result type... but must still provide a
// null-returning facade").
func (h *Heap) Alloc(size uintptr) unsafe.Pointer {
	ptr, _ := h.TryAlloc(size)

	return ptr
}

// Free is the void-returning facade over TryFree, matching the external
// deallocate operation's "-- " output column (§6): errors on a foreign or
// double-freed pointer are undefined behavior per spec, not a reported
// condition.
func (h *Heap) Free(ptr unsafe.Pointer) {
	_ = h.TryFree(ptr)
}

// Realloc is the null-returning facade over TryRealloc.
func (h *Heap) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	newPtr, _ := h.TryRealloc(ptr, size)

	return newPtr
}
