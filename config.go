// Package malloc implements gorilla-malloc, a general-purpose heap
// allocator that services dynamic allocation requests for a single process
// by managing its own pool of virtual memory regions obtained directly from
// the operating system.
package malloc

// Config holds the tunable policy knobs for a Heap. Zero-valued fields are
// resolved against the host's real page size inside Init, matching Design
// Notes §9: page size is a per-heap snapshot, never process-wide state.
type Config struct {
	// PageSize replaces the discovered page size when resolving the fields
	// below (ArenaThreshold's default, ArenaGranularity's rounding). Regions
	// are still mapped in multiples of the OS Memory Provider's page size.
	// Zero means "ask the OS Memory Provider".
	PageSize uintptr

	// ArenaGranularity is the minimum size of a freshly mapped arena
	// region, rounded up to a page multiple. Small requests share a region
	// instead of round-tripping to the OS on every allocation. Zero means
	// 4MiB.
	ArenaGranularity uintptr

	// ArenaThreshold is the largest effective block size still served from
	// an arena region; anything larger takes the dedicated large-region
	// path (§4.5). Zero means four pages.
	ArenaThreshold uintptr

	// WordAlign is the minimum alignment guaranteed to every user pointer.
	// Must be a power of two no smaller than the platform's natural word
	// size; zero means the natural word size.
	WordAlign uintptr

	// MinSplitResidual is the smallest residual, after a split, worth
	// carving into its own free block (§4.5); below this the whole block
	// is handed out unsplit. Zero means header size plus one word.
	MinSplitResidual uintptr

	// ReleaseEmptyArenas controls whether an arena region that coalesces
	// back into a single free block spanning the whole region is returned
	// to the OS immediately (§4.6 bullet 5) or retained for reuse. Defaults
	// to true.
	ReleaseEmptyArenas bool

	// releaseArenasSet records that ReleaseEmptyArenas was explicitly
	// set to false via WithReleaseEmptyArenas, so resolveConfig doesn't
	// stomp it back to the true default.
	releaseArenasSet bool

	// Verbose enables heap-lifecycle logging (heap initialized/destroyed) on
	// the standard logger. Never consulted on the allocate/free fast path.
	Verbose bool
}

// Option mutates a Config during Init.
type Option func(*Config)

// WithPageSize overrides the discovered OS page size. Intended for tests
// that want deterministic arena/large thresholds independent of the host.
func WithPageSize(size uintptr) Option {
	return func(c *Config) { c.PageSize = size }
}

// WithArenaGranularity sets the minimum size of a freshly acquired arena
// region, in bytes; it is rounded up to a page multiple internally.
func WithArenaGranularity(size uintptr) Option {
	return func(c *Config) { c.ArenaGranularity = size }
}

// WithArenaThreshold sets the largest effective block size still eligible
// for the arena path; bigger requests always take the dedicated-region path.
func WithArenaThreshold(size uintptr) Option {
	return func(c *Config) { c.ArenaThreshold = size }
}

// WithMinSplitResidual sets the minimum residual worth splitting off during
// an allocation or an in-place shrink.
func WithMinSplitResidual(size uintptr) Option {
	return func(c *Config) { c.MinSplitResidual = size }
}

// WithReleaseEmptyArenas toggles whether fully-coalesced arena regions are
// returned to the OS (true) or retained for reuse (false).
func WithReleaseEmptyArenas(release bool) Option {
	return func(c *Config) { c.ReleaseEmptyArenas = release; c.releaseArenasSet = true }
}

// WithVerbose enables heap-lifecycle logging.
func WithVerbose(verbose bool) Option {
	return func(c *Config) { c.Verbose = verbose }
}

// resolveConfig fills every zero-valued field against the discovered page
// size, returning a fully-populated copy. The caller's Config is left
// untouched.
func resolveConfig(cfg Config, pageSize uintptr) Config {
	if cfg.WordAlign == 0 {
		cfg.WordAlign = unsafeWordAlign
	}

	if cfg.ArenaThreshold == 0 {
		cfg.ArenaThreshold = 4 * pageSize
	}

	if cfg.ArenaGranularity == 0 {
		cfg.ArenaGranularity = 4 * 1024 * 1024
	}

	cfg.ArenaGranularity = alignUp(cfg.ArenaGranularity, pageSize)

	if cfg.MinSplitResidual == 0 {
		cfg.MinSplitResidual = alignUp(rawHeaderSize, cfg.WordAlign) + cfg.WordAlign
	}

	if !cfg.releaseArenasSet {
		cfg.ReleaseEmptyArenas = true
	}

	return cfg
}
