package malloc

import "errors"

// Error taxonomy (spec §7). OutOfMemory is surfaced through
// TryAlloc/TryRealloc and InvalidArgument through TryFree/TryRealloc; the
// null-returning facades (Alloc/Realloc)
// collapse any error to nil, per the Design Notes §9 null-returning-facade
// requirement.
var (
	// ErrOutOfMemory means the OS refused a needed mapping and no existing
	// free block could satisfy the request. Heap state is unchanged.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrInvalidPointer means deallocate or reallocate was called with a
	// pointer this heap never vended or has already freed. Detection is
	// best-effort (§7): a pointer whose header fails blockOf's checks is
	// rejected, but one that happens to pass them is not caught.
	ErrInvalidPointer = errors.New("malloc: invalid or foreign pointer")

	// ErrHeapDestroyed means an operation was attempted on a Heap after
	// Destroy returned.
	ErrHeapDestroyed = errors.New("malloc: heap already destroyed")
)
