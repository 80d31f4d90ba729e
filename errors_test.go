package malloc

import (
	"errors"
	"testing"
	"unsafe"
)

func TestDoubleFreeReturnsErrInvalidPointer(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.TryAlloc(64)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}

	if err := h.TryFree(ptr); err != nil {
		t.Fatalf("first TryFree: %v", err)
	}

	if err := h.TryFree(ptr); !errors.Is(err, ErrInvalidPointer) {
		t.Fatalf("second TryFree = %v, want ErrInvalidPointer", err)
	}
}

func TestFreeForeignPointerReturnsErrInvalidPointer(t *testing.T) {
	h := newTestHeap(t)

	buf := make([]byte, 256)
	foreign := unsafe.Pointer(&buf[h.headerSize])

	if err := h.TryFree(foreign); !errors.Is(err, ErrInvalidPointer) {
		t.Fatalf("TryFree(foreign) = %v, want ErrInvalidPointer", err)
	}
}

func TestReallocOfFreedPointerReturnsErrInvalidPointer(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.TryAlloc(64)
	if err != nil {
		t.Fatalf("TryAlloc: %v", err)
	}

	if err := h.TryFree(ptr); err != nil {
		t.Fatalf("TryFree: %v", err)
	}

	if _, err := h.TryRealloc(ptr, 128); !errors.Is(err, ErrInvalidPointer) {
		t.Fatalf("TryRealloc(freed ptr) = %v, want ErrInvalidPointer", err)
	}
}
