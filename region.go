package malloc

import (
	"fmt"
	"unsafe"
)

// regionKind distinguishes an arena region, subdivided into coalescable
// blocks, from a large-block region holding exactly one allocation (§3).
type regionKind uint8

const (
	regionArena regionKind = iota
	regionLarge
)

// region is a contiguous range of OS pages owned by exactly one Heap (§3).
// It is a plain Go-heap object: only the mem slice's backing array lives in
// OS-mapped memory, never the region struct itself, so it's free to hold
// ordinary Go values.
type region struct {
	id   uint64
	kind regionKind
	base uintptr
	size uintptr
	mem  []byte // the exact slice Map returned; Unmap needs it verbatim
}

func (r *region) end() uintptr {
	return r.base + r.size
}

func (r *region) contains(addr uintptr) bool {
	return addr >= r.base && addr < r.end()
}

// registry is the Region Registry (§4.2): it tracks every region a Heap
// currently owns and hands back page-aligned mappings from the OS Memory
// Provider, initialized as a single free (arena) or in-use (large) block.
type registry struct {
	provider osMemoryProvider
	regions  map[uint64]*region
	order    []uint64 // insertion order, for deterministic leak-check walks
	nextID   uint64
}

func newRegistry(provider osMemoryProvider) *registry {
	return &registry{
		provider: provider,
		regions:  make(map[uint64]*region),
	}
}

// acquireArena secures an arena region sized to at least minBytes rounded up
// to the configured arena granularity and a whole page multiple, and
// initializes it as a single free block spanning the region.
func (reg *registry) acquireArena(minBytes, headerSize uintptr, cfg *Config) (*region, *blockHeader, error) {
	want := minBytes
	if cfg.ArenaGranularity > want {
		want = cfg.ArenaGranularity
	}

	pageSize := reg.provider.PageSize()
	pages := alignUp(want, pageSize) / pageSize

	mem, err := reg.provider.Map(pages)
	if err != nil {
		return nil, nil, err
	}

	r := reg.register(regionArena, mem)

	h := headerAt(r.base)
	*h = blockHeader{
		size:     r.size,
		payload:  r.size - headerSize,
		prevPhys: 0,
		regionID: r.id,
		bucket:   -1,
		state:    blockFree,
		kind:     blockArena,
	}

	return r, h, nil
}

// acquireLarge secures a dedicated region sized to header + payload rounded
// up to a page multiple, and initializes it as a single in-use large block.
func (reg *registry) acquireLarge(payloadBytes, headerSize uintptr) (*region, *blockHeader, error) {
	pageSize := reg.provider.PageSize()
	pages := alignUp(headerSize+payloadBytes, pageSize) / pageSize

	mem, err := reg.provider.Map(pages)
	if err != nil {
		return nil, nil, err
	}

	r := reg.register(regionLarge, mem)

	h := headerAt(r.base)
	*h = blockHeader{
		size:     r.size,
		payload:  payloadBytes,
		prevPhys: 0,
		regionID: r.id,
		bucket:   -1,
		state:    blockInUse,
		kind:     blockLarge,
	}

	return r, h, nil
}

func (reg *registry) register(kind regionKind, mem []byte) *region {
	reg.nextID++

	r := &region{
		id:   reg.nextID,
		kind: kind,
		base: uintptr(unsafe.Pointer(unsafe.SliceData(mem))),
		size: uintptr(len(mem)),
		mem:  mem,
	}

	reg.regions[r.id] = r
	reg.order = append(reg.order, r.id)

	return r
}

// release hands a region back to the OS Memory Provider and forgets it.
func (reg *registry) release(r *region) error {
	if err := reg.provider.Unmap(r.mem); err != nil {
		return err
	}

	delete(reg.regions, r.id)

	for i, id := range reg.order {
		if id == r.id {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}

	return nil
}

func (reg *registry) byID(id uint64) (*region, error) {
	r, ok := reg.regions[id]
	if !ok {
		return nil, fmt.Errorf("malloc: unknown region %d", id)
	}

	return r, nil
}

// enumerate returns every region this registry owns, in stable insertion
// order (§4.2: "a stable iteration order simplifies leak reporting").
func (reg *registry) enumerate() []*region {
	out := make([]*region, 0, len(reg.order))
	for _, id := range reg.order {
		out = append(out, reg.regions[id])
	}

	return out
}
