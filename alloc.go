package malloc

import "unsafe"

// TryAlloc is the Allocation Policy (§4.5). It dispatches by effective block
// size B to the arena path (small/medium) or the dedicated large-region
// path, and returns ErrOutOfMemory if the OS refuses a needed mapping and no
// existing free block fits. Heap state is unchanged on failure (§7).
func (h *Heap) TryAlloc(n uintptr) (unsafe.Pointer, error) {
	if h.destroyed {
		return nil, ErrHeapDestroyed
	}

	b := h.effectiveSize(n)

	var (
		ptr unsafe.Pointer
		err error
	)

	if b > h.cfg.ArenaThreshold {
		ptr, err = h.allocLarge(n)
	} else {
		ptr, err = h.allocArena(b)
	}

	if err != nil {
		return nil, err
	}

	h.stats.TotalAllocated += uint64(n)

	return ptr, nil
}

// allocArena services a request through the Free-List Index, splitting or
// handing out whole blocks, and falls back to a fresh arena region when the
// index has nothing admissible (§4.5).
func (h *Heap) allocArena(b uintptr) (unsafe.Pointer, error) {
	blk := h.freeIndex.find(b)
	if blk == nil {
		_, fresh, err := h.regions.acquireArena(b, h.headerSize, &h.cfg)
		if err != nil {
			return nil, err
		}

		blk = fresh
	}

	h.splitIfWorthwhile(blk, b)

	blk.state = blockInUse
	blk.payload = blk.size - h.headerSize

	return blk.userPointer(h.headerSize), nil
}

// splitIfWorthwhile carves a trailing free block off blk when the residual
// after taking b bytes is at least the configured minimum splittable
// residual (§4.5), re-inserting the tail into the Free-List Index and
// fixing up the physical back-link chain.
func (h *Heap) splitIfWorthwhile(blk *blockHeader, b uintptr) {
	residual := blk.size - b
	if residual < h.cfg.MinSplitResidual {
		return
	}

	tail := headerAt(blk.addr() + b)
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

	blk.size = b

	h.freeIndex.insert(tail)
}

// allocLarge acquires a dedicated region sized to header + payload rounded
// to a page multiple, per §4.5's large path.
func (h *Heap) allocLarge(n uintptr) (unsafe.Pointer, error) {
	payload := n
	if payload < h.minPayload {
		payload = h.minPayload
	}

	_, blk, err := h.regions.acquireLarge(payload, h.headerSize)
	if err != nil {
		return nil, err
	}

	return blk.userPointer(h.headerSize), nil
}
