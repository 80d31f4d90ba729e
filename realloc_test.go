package malloc

import (
	"testing"
	"unsafe"
)

// S5: init; allocate 128 -> d; reallocate d to 256; write 256 bytes; free;
// destroy. Reallocate must return d unchanged since the surrounding arena
// region has ample room to grow in place.
func TestScenarioS5GrowInPlace(t *testing.T) {
	h := newTestHeap(t, WithArenaGranularity(4096))

	d, err := h.TryAlloc(128)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}

	grown, err := h.TryRealloc(d, 256)
	if err != nil {
		t.Fatalf("TryRealloc: %v", err)
	}

	if grown != d {
		t.Fatalf("TryRealloc moved the block: got %p, want %p", grown, d)
	}

	fillAndVerify(t, grown, 256)

	if err := h.TryFree(grown); err != nil {
		t.Fatalf("TryFree: %v", err)
	}
}

// S6: init; allocate P -> d; reallocate d to 128; allocate 128 -> next; free
// both. Reallocate must shrink in place (same pointer) and the subsequent
// allocation must land inside the residual tail split off from d.
func TestScenarioS6ShrinkInPlace(t *testing.T) {
	h := newTestHeap(t)

	p := h.provider.PageSize()

	d, err := h.TryAlloc(p)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}

	shrunk, err := h.TryRealloc(d, 128)
	if err != nil {
		t.Fatalf("TryRealloc: %v", err)
	}

	if shrunk != d {
		t.Fatalf("TryRealloc moved the block on shrink: got %p, want %p", shrunk, d)
	}

	next, err := h.TryAlloc(128)
	if err != nil {
		t.Fatalf("TryAlloc next: %v", err)
	}

	lo := uintptr(d)
	hi := lo + p

	if uintptr(next) < lo || uintptr(next) >= hi {
		t.Fatalf("next = %p, want an address within [%#x, %#x)", next, lo, hi)
	}

	if err := h.TryFree(shrunk); err != nil {
		t.Fatalf("TryFree shrunk: %v", err)
	}

	if err := h.TryFree(next); err != nil {
		t.Fatalf("TryFree next: %v", err)
	}
}

// S7: allocate d1, fill with i&0xFF; allocate d2 so d1 cannot grow in place;
// reallocate d1 to 256. Must return a new address with the first 128 bytes
// preserved.
func TestScenarioS7FallbackPreservesData(t *testing.T) {
	h := newTestHeap(t, WithArenaGranularity(4096))

	d1, err := h.TryAlloc(128)
	if err != nil {
		t.Fatalf("TryAlloc d1: %v", err)
	}

	b := unsafe.Slice((*byte)(d1), 128)
	for i := range b {
		b[i] = byte(i & 0xFF)
	}

	d2, err := h.TryAlloc(128)
	if err != nil {
		t.Fatalf("TryAlloc d2: %v", err)
	}

	moved, err := h.TryRealloc(d1, 256)
	if err != nil {
		t.Fatalf("TryRealloc: %v", err)
	}

	if moved == d1 {
		t.Fatalf("expected TryRealloc to move the block, it did not")
	}

	newBytes := unsafe.Slice((*byte)(moved), 256)
	for i := 0; i < 128; i++ {
		if newBytes[i] != byte(i&0xFF) {
			t.Fatalf("byte %d = %d, want %d", i, newBytes[i], byte(i&0xFF))
		}
	}

	if err := h.TryFree(moved); err != nil {
		t.Fatalf("TryFree moved: %v", err)
	}

	if err := h.TryFree(d2); err != nil {
		t.Fatalf("TryFree d2: %v", err)
	}
}

func TestReallocNilActsLikeAlloc(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.TryRealloc(nil, 64)
	if err != nil || ptr == nil {
		t.Fatalf("TryRealloc(nil, 64) = %v, %v", ptr, err)
	}

	if err := h.TryFree(ptr); err != nil {
		t.Fatalf("TryFree: %v", err)
	}
}

func TestReallocZeroActsLikeFree(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.TryAlloc(64)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}

	out, err := h.TryRealloc(ptr, 0)
	if err != nil {
		t.Fatalf("TryRealloc(ptr, 0): %v", err)
	}

	if out != nil {
		t.Fatalf("TryRealloc(ptr, 0) = %p, want nil", out)
	}
}

func TestReallocLargeShrinkInPlace(t *testing.T) {
	h := newTestHeap(t)

	n := 8 * h.provider.PageSize()

	ptr, err := h.TryAlloc(n)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}

	shrunk, err := h.TryRealloc(ptr, n/2)
	if err != nil {
		t.Fatalf("TryRealloc: %v", err)
	}

	if shrunk != ptr {
		t.Fatalf("large in-place shrink moved the pointer: got %p, want %p", shrunk, ptr)
	}

	if err := h.TryFree(shrunk); err != nil {
		t.Fatalf("TryFree: %v", err)
	}
}
