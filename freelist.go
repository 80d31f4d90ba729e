package malloc

import "math/bits"

// numSizeClasses covers every representable block size; unused high buckets
// simply never receive members. 64 uintptr-sized head pointers is a
// negligible fixed cost per Heap.
const numSizeClasses = 64

// freeList is the segregated Free-List Index (§4.4): a mapping from size
// class to a singly-rooted, doubly-linked chain of free arena blocks of
// that class, threaded entirely through freePrev/freeNext fields embedded
// in each block's own in-band header — insertion and removal are O(1), and
// the index itself holds nothing but bucket head addresses.
type freeList struct {
	buckets [numSizeClasses]uintptr
}

func newFreeList() *freeList {
	return &freeList{}
}

// classFloor returns floor(log2(size)) for size >= 1: the bucket a free
// block of this size is inserted into. Every member of bucket k therefore
// has size in [2^k, 2^(k+1)).
func classFloor(size uintptr) int {
	idx := bits.Len64(uint64(size)) - 1
	if idx < 0 {
		idx = 0
	}

	if idx >= numSizeClasses {
		idx = numSizeClasses - 1
	}

	return idx
}

// classCeil returns ceil(log2(size)): the smallest bucket guaranteed to
// only contain blocks big enough to satisfy a request of this size (§4.4
// invariant (i)).
func classCeil(size uintptr) int {
	if size <= 1 {
		return 0
	}

	idx := bits.Len64(uint64(size - 1))
	if idx >= numSizeClasses {
		idx = numSizeClasses - 1
	}

	return idx
}

// insert adds blk to its size class, in O(1).
func (fl *freeList) insert(blk *blockHeader) {
	idx := classFloor(blk.size)
	blk.bucket = int32(idx)
	blk.freePrev = 0
	blk.freeNext = fl.buckets[idx]

	if blk.freeNext != 0 {
		headerAt(blk.freeNext).freePrev = blk.addr()
	}

	fl.buckets[idx] = blk.addr()
}

// remove unlinks blk from its size class, in O(1), using its own embedded
// linkage — blk need not be at the head of its bucket.
func (fl *freeList) remove(blk *blockHeader) {
	idx := int(blk.bucket)

	if blk.freePrev != 0 {
		headerAt(blk.freePrev).freeNext = blk.freeNext
	} else if idx >= 0 {
		fl.buckets[idx] = blk.freeNext
	}

	if blk.freeNext != 0 {
		headerAt(blk.freeNext).freePrev = blk.freePrev
	}

	blk.freePrev = 0
	blk.freeNext = 0
	blk.bucket = -1
}

// find locates the first admissible free block for a request needing at
// least minSize total bytes: first-fit within the smallest bucket that
// could satisfy it, escalating to larger buckets if empty (§4.4). The
// returned block, if any, is already removed from the index.
func (fl *freeList) find(minSize uintptr) *blockHeader {
	// The floor bucket may hold members smaller than minSize, so it is
	// scanned member by member; every member of a later bucket is big enough.
	for a := fl.buckets[classFloor(minSize)]; a != 0; a = headerAt(a).freeNext {
		if blk := headerAt(a); blk.size >= minSize {
			fl.remove(blk)

			return blk
		}
	}

	start := classCeil(minSize)

	for idx := start; idx < numSizeClasses; idx++ {
		if fl.buckets[idx] == 0 {
			continue
		}

		blk := headerAt(fl.buckets[idx])
		fl.remove(blk)

		return blk
	}

	return nil
}
