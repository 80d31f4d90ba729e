package malloc

import (
	"testing"
	"unsafe"
)

// mkBlock carves a standalone header at the start of a fresh byte slice,
// simulating a free arena block for free-list tests without going through a
// real Heap/registry.
func mkBlock(t *testing.T, size uintptr) *blockHeader {
	t.Helper()

	buf := make([]byte, size)
	t.Cleanup(func() { _ = buf }) // keep buf reachable for the life of the test

	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))

	h := headerAt(base)
	*h = blockHeader{size: size, payload: size, bucket: -1, state: blockFree, kind: blockArena}

	return h
}

func TestClassFloorCeil(t *testing.T) {
	cases := []struct {
		size             uintptr
		wantFloor, wantCeil int
	}{
		{1, 0, 0},
		{2, 1, 1},
		{3, 1, 2},
		{64, 6, 6},
		{65, 6, 7},
		{4096, 12, 12},
	}

	for _, c := range cases {
		if got := classFloor(c.size); got != c.wantFloor {
			t.Errorf("classFloor(%d) = %d, want %d", c.size, got, c.wantFloor)
		}

		if got := classCeil(c.size); got != c.wantCeil {
			t.Errorf("classCeil(%d) = %d, want %d", c.size, got, c.wantCeil)
		}
	}
}

func TestFreeListInsertFindRemove(t *testing.T) {
	fl := newFreeList()

	small := mkBlock(t, 64)
	mid := mkBlock(t, 256)
	big := mkBlock(t, 4096)

	fl.insert(small)
	fl.insert(mid)
	fl.insert(big)

	got := fl.find(200)
	if got == nil || got.addr() != mid.addr() {
		t.Fatalf("find(200) did not return the 256-byte block")
	}

	// mid was popped by find; a second request for the same size should
	// escalate straight to the 4096 block.
	got = fl.find(200)
	if got == nil || got.addr() != big.addr() {
		t.Fatalf("find(200) after mid consumed did not escalate to the 4096-byte block")
	}

	if got := fl.find(1); got == nil || got.addr() != small.addr() {
		t.Fatalf("find(1) did not return the remaining 64-byte block")
	}

	if got := fl.find(1); got != nil {
		t.Fatalf("find on an empty index returned %v, want nil", got)
	}
}

func TestFreeListRemoveMidChain(t *testing.T) {
	fl := newFreeList()

	a := mkBlock(t, 128)
	b := mkBlock(t, 128)
	c := mkBlock(t, 128)

	fl.insert(a)
	fl.insert(b)
	fl.insert(c)

	fl.remove(b)

	first := fl.find(1)
	second := fl.find(1)
	third := fl.find(1)

	if first == nil || second == nil || third != nil {
		t.Fatalf("expected exactly two blocks left after removing b")
	}

	for _, blk := range []*blockHeader{first, second} {
		if blk.addr() == b.addr() {
			t.Fatalf("removed block b was still reachable from the index")
		}
	}
}
