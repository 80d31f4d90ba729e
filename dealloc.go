package malloc

import "unsafe"

// TryFree is the Deallocation & Coalescer (§4.6). ptr must have been vended
// by this Heap, or be nil, which is a no-op. A foreign or already-freed
// pointer is undefined behavior per §7; blockOf's validation catches it on a
// best-effort basis and returns ErrInvalidPointer; it is not guaranteed to.
func (h *Heap) TryFree(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}

	if h.destroyed {
		return ErrHeapDestroyed
	}

	blk, r, err := h.blockOf(ptr)
	if err != nil {
		return err
	}

	h.stats.TotalFreed += uint64(blk.payload)

	if blk.kind == blockLarge {
		return h.regions.release(r)
	}

	return h.freeArena(blk, r)
}

// freeArena marks blk free, coalesces it with each free physical neighbor,
// reinserts the merged span into the Free-List Index, and releases the
// owning region to the OS if it coalesced back into a single free block and
// policy elects to shrink (§4.6).
func (h *Heap) freeArena(blk *blockHeader, r *region) error {
	blk.state = blockFree

	if blk.prevPhys != 0 {
		prev := headerAt(blk.prevPhys)
		if prev.state == blockFree {
			h.freeIndex.remove(prev)
			prev.size += blk.size
			blk = prev
		}
	}

	if next := h.nextPhys(blk); next != nil && next.state == blockFree {
		h.freeIndex.remove(next)
		blk.size += next.size
	}

	h.relinkNextPrev(blk)

	if blk.addr() == r.base && blk.size == r.size && h.cfg.ReleaseEmptyArenas {
		return h.regions.release(r)
	}

	blk.payload = blk.size - h.headerSize
	h.freeIndex.insert(blk)

	return nil
}
