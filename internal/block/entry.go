package block

// EntryState describes who owns a BlockEntry's content and whether it can be read.
type EntryState uint8

const (
	// EntryIdle means the entry holds unfilled storage that has not been
	// requested yet. Only freshly allocated heaps have idle entries.
	EntryIdle EntryState = iota

	// EntryInFlight means the block is with the worker awaiting a disk read.
	EntryInFlight

	// EntryUseCache means the entry is empty but can be satisfied by copying
	// from the seek cache named by UseCache. The entry keeps unfilled spare
	// storage that is never exposed to a reader.
	EntryUseCache

	// EntryReady means the entry holds a fully filled block.
	EntryReady
)

// String returns a short name for logs and test failures.
func (s EntryState) String() string {
	switch s {
	case EntryIdle:
		return "idle"
	case EntryInFlight:
		return "in-flight"
	case EntryUseCache:
		return "use-cache"
	case EntryReady:
		return "ready"
	default:
		return "unknown"
	}
}

// BlockEntry is one prefetch slot: a block that is not necessarily ready yet.
type BlockEntry struct {
	// UseCache is the index into Heap.Caches backing this entry, or NoCache.
	UseCache int

	// WantedStart is the playback frame the reader expects this entry to serve.
	WantedStart int

	state EntryState
	block *Block
}

// State reports the entry state.
func (e *BlockEntry) State() EntryState {
	return e.state
}

// Ready reports whether the entry holds a filled block.
func (e *BlockEntry) Ready() bool {
	return e.state == EntryReady
}

// Block returns the filled block, or nil unless the entry is ready.
// Spare storage held by a cache-backed entry is deliberately not returned.
func (e *BlockEntry) Block() *Block {
	if e.state != EntryReady {
		return nil
	}
	return e.block
}

// storage returns whatever block the entry currently holds, filled or not.
func (e *BlockEntry) storage() *Block {
	return e.block
}

func (e *BlockEntry) setReady(b *Block) {
	e.state = EntryReady
	e.block = b
}

// setInFlight hands the storage to the worker. cacheHint names a cache the
// worker may copy from instead of decoding, or NoCache.
func (e *BlockEntry) setInFlight(wanted, cacheHint int) {
	e.state = EntryInFlight
	e.block = nil
	e.UseCache = cacheHint
	e.WantedStart = wanted
}

func (e *BlockEntry) setUseCache(cacheIndex, wanted int, spare *Block) {
	e.state = EntryUseCache
	e.block = spare
	e.UseCache = cacheIndex
	e.WantedStart = wanted
}

// CacheEntry is one registered jump point.
type CacheEntry struct {
	// Window holds the filled cache, or nil while the worker is filling it.
	Window *Window

	// WantedStart is the jump point this cache is anchored to.
	WantedStart int
}

// Ready reports whether the cache window is filled and anchored where
// the entry expects.
func (c *CacheEntry) Ready() bool {
	return c.Window != nil && c.Window.WantedStart == c.WantedStart
}
