package malloc

import "unsafe"

// LeakDescriptor describes one in-use block found by a LeakCursor.
type LeakDescriptor struct {
	Pointer unsafe.Pointer
	Size    uintptr // payload size
}

// LeakCursor is a restartable lazy sequence over every in-use block in a
// heap (§4.8, Design Notes §9: "model this as a restartable lazy sequence of
// block descriptors"), in place of the source's stateful walker. The list of
// regions is a snapshot taken when CheckLeaks is called; each block header
// is read when the cursor reaches it, so only blocks still in-use at that
// moment are reported. Regions acquired after the snapshot are not visited.
type LeakCursor struct {
	h       *Heap
	regions []*region
	ridx    int
	addr    uintptr // next candidate address within the current arena region; 0 before the region has started
	done    bool
}

// CheckLeaks returns a cursor over every block currently in-use (§6). The
// cursor is empty (Next's first call returns ok == false) iff every
// allocation has been freed, satisfying Testable Property 2.
func (h *Heap) CheckLeaks() *LeakCursor {
	return &LeakCursor{
		h:       h,
		regions: h.regions.enumerate(),
	}
}

// Next advances the cursor and returns the next in-use block, or ok == false
// once every region has been exhausted (the terminal marker of §6's
// check_leaks). Calling Next again after a terminal result keeps returning
// ok == false.
func (c *LeakCursor) Next() (desc LeakDescriptor, ok bool) {
	for !c.done && c.ridx < len(c.regions) {
		r := c.regions[c.ridx]

		switch r.kind {
		case regionLarge:
			c.ridx++

			blk := headerAt(r.base)
			if blk.state == blockInUse {
				return LeakDescriptor{Pointer: blk.userPointer(c.h.headerSize), Size: blk.payload}, true
			}

		case regionArena:
			if c.addr == 0 {
				c.addr = r.base
			}

			for c.addr < r.end() {
				blk := headerAt(c.addr)
				c.addr = blk.end()

				if blk.state == blockInUse {
					return LeakDescriptor{Pointer: blk.userPointer(c.h.headerSize), Size: blk.payload}, true
				}
			}

			c.ridx++
			c.addr = 0
		}
	}

	c.done = true

	return LeakDescriptor{}, false
}

// Reset rewinds the cursor to the start of its original region snapshot,
// making it restartable without a fresh CheckLeaks call.
func (c *LeakCursor) Reset() {
	c.ridx = 0
	c.addr = 0
	c.done = false
}
