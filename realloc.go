package malloc

import "unsafe"

// TryRealloc is the Realloc Policy (§4.7). A null ptr behaves like
// TryAlloc(n); n == 0 behaves like TryFree(ptr) and returns nil. Otherwise
// it prefers shrinking or growing the existing block in place, falling back
// to allocate-copy-free. The original block is left untouched on failure
// (§7). ptr is validated on a best-effort basis by blockOf, same as TryFree.
func (h *Heap) TryRealloc(ptr unsafe.Pointer, n uintptr) (unsafe.Pointer, error) {
	if ptr == nil {
		return h.TryAlloc(n)
	}

	if h.destroyed {
		return nil, ErrHeapDestroyed
	}

	if n == 0 {
		return nil, h.TryFree(ptr)
	}

	blk, _, err := h.blockOf(ptr)
	if err != nil {
		return nil, err
	}

	bNew := h.effectiveSize(n)
	bOld := blk.size

	if blk.kind == blockLarge {
		if bNew <= bOld {
			blk.payload = bNew - h.headerSize

			return ptr, nil
		}
		// The source does not extend large regions via the OS (§4.7);
		// growth always falls back to allocate-copy-free.
		return h.reallocFallback(ptr, blk, n)
	}

	if bNew <= bOld {
		if bOld-bNew >= h.cfg.MinSplitResidual {
			h.shrinkInPlace(blk, bNew)
		} else {
			blk.payload = bNew - h.headerSize
		}

		return ptr, nil
	}

	if h.tryGrowInPlace(blk, bNew) {
		return ptr, nil
	}

	return h.reallocFallback(ptr, blk, n)
}

// shrinkInPlace splits off blk's trailing bNew..end bytes as a new free
// block, coalescing it with the next-physical neighbor if that neighbor is
// also free (§4.7).
func (h *Heap) shrinkInPlace(blk *blockHeader, bNew uintptr) {
	residual := blk.size - bNew

	tail := headerAt(blk.addr() + bNew)
	*tail = blockHeader{
		size:     residual,
		payload:  residual - h.headerSize,
		prevPhys: blk.addr(),
		regionID: blk.regionID,
		bucket:   -1,
		state:    blockFree,
		kind:     blockArena,
	}

	h.relinkNextPrev(tail)

	blk.size = bNew
	blk.payload = bNew - h.headerSize

	if next := h.nextPhys(tail); next != nil && next.state == blockFree {
		h.freeIndex.remove(next)
		tail.size += next.size
		h.relinkNextPrev(tail)
	}

	h.freeIndex.insert(tail)
}

// tryGrowInPlace absorbs the needed prefix of a free next-physical neighbor
// when it exists and is large enough (§4.7), splitting its residual back
// into the index if that residual is still worth keeping separate.
func (h *Heap) tryGrowInPlace(blk *blockHeader, bNew uintptr) bool {
	next := h.nextPhys(blk)
	if next == nil || next.state != blockFree {
		return false
	}

	combined := blk.size + next.size
	if combined < bNew {
		return false
	}

	h.freeIndex.remove(next)

	residual := combined - bNew
	if residual >= h.cfg.MinSplitResidual {
		blk.size = bNew

		tail := headerAt(blk.addr() + bNew)
		*tail = blockHeader{
			size:     residual,
			payload:  residual - h.headerSize,
			prevPhys: blk.addr(),
			regionID: blk.regionID,
			bucket:   -1,
			state:    blockFree,
			kind:     blockArena,
		}

		h.relinkNextPrev(tail)
		h.freeIndex.insert(tail)
	} else {
		blk.size = combined
		h.relinkNextPrev(blk)
	}

	blk.payload = blk.size - h.headerSize

	return true
}

// reallocFallback allocates a fresh block of size n, copies
// min(old payload, n) bytes, frees the old block, and returns the new
// pointer (§4.7, Testable Property 5).
func (h *Heap) reallocFallback(ptr unsafe.Pointer, oldBlk *blockHeader, n uintptr) (unsafe.Pointer, error) {
	newPtr, err := h.TryAlloc(n)
	if err != nil {
		return nil, err
	}

	copySize := oldBlk.payload
	if n < copySize {
		copySize = n
	}

	if copySize > 0 {
		dst := unsafe.Slice((*byte)(newPtr), int(copySize))
		src := unsafe.Slice((*byte)(ptr), int(copySize))
		copy(dst, src)
	}

	_ = h.TryFree(ptr)

	return newPtr, nil
}
