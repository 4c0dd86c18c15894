package block

import "fmt"

// Fill asks the worker to write a block for a prefetch slot.
type Fill struct {
	// Slot is the physical ring index the filled block must be delivered to.
	Slot int

	// Block is the storage being handed over. The heap no longer references it.
	Block *Block

	// WantedStart is the playback frame the block must hold.
	WantedStart int

	// UseCache names a cache the worker may copy from instead of decoding,
	// or NoCache.
	UseCache int
}

// Rotation describes the outcome of a successful Heap.Rotate.
type Rotation struct {
	// Fill refills the slot vacated by the promoted block, now the ring tail.
	Fill Fill

	// FromCache is true when the promoted content was copied out of a seek cache.
	FromCache bool
}

// Heap is the single allocation shared by the reader and the worker: the
// active output block, the prefetch ring and the seek caches.
//
// The heap itself belongs to the reader goroutine. The worker only ever sees
// blocks and windows the heap has handed out through Fill values or cache
// requests, and hands them back whole.
type Heap struct {
	// ReadBuffer is the active output block.
	ReadBuffer *Block

	// Caches holds one entry per registered jump point. Indices are stable;
	// entries are never removed.
	Caches []CacheEntry

	prefetch    []BlockEntry
	head        int // physical index of logical slot 0
	anchor      int // wanted start of logical slot 0
	frames      int
	numChannels int
}

// NewHeap allocates the read buffer and depth prefetch blocks. Every prefetch
// entry starts idle; call Reanchor to produce the initial fill requests.
func NewHeap(numChannels, frames, depth int) *Heap {
	if depth < 1 {
		panic(fmt.Sprintf("block: invalid lookahead depth %d", depth))
	}

	h := &Heap{
		ReadBuffer:  New(numChannels, frames),
		prefetch:    make([]BlockEntry, depth),
		frames:      frames,
		numChannels: numChannels,
	}
	for i := range h.prefetch {
		h.prefetch[i] = BlockEntry{
			UseCache: NoCache,
			state:    EntryIdle,
			block:    New(numChannels, frames),
		}
	}
	return h
}

// Depth returns the lookahead depth.
func (h *Heap) Depth() int {
	return len(h.prefetch)
}

// Frames returns the per-block frame count.
func (h *Heap) Frames() int {
	return h.frames
}

// NumChannels returns the channel count of every block.
func (h *Heap) NumChannels() int {
	return h.numChannels
}

// Anchor returns the wanted start of the prefetch window.
func (h *Heap) Anchor() int {
	return h.anchor
}

// Entry returns logical prefetch slot i (0 is the next block to be promoted).
func (h *Heap) Entry(i int) *BlockEntry {
	return &h.prefetch[h.physical(i)]
}

// Slot returns the entry at physical ring index slot, as named by Fill.Slot.
func (h *Heap) Slot(slot int) *BlockEntry {
	return &h.prefetch[slot]
}

func (h *Heap) physical(i int) int {
	return (h.head + i) % len(h.prefetch)
}

// HeadReady reports whether Rotate would succeed right now.
func (h *Heap) HeadReady() bool {
	e := &h.prefetch[h.head]
	switch e.state {
	case EntryReady:
		return true
	case EntryUseCache:
		_, err := h.ResolveCache(e.UseCache, e.WantedStart)
		return err == nil
	default:
		return false
	}
}

// Rotate promotes logical slot 0 into ReadBuffer, advances the ring by one
// block and returns the fill request for the new tail.
//
// It never blocks and never allocates. When slot 0 is not filled it returns
// ErrNotReady; when slot 0 is cache-backed but the cache cannot serve it, it
// returns ErrDanglingCache and the caller should fall back with DetachDangling.
// In both cases the heap is left unchanged.
func (h *Heap) Rotate() (Rotation, error) {
	e := &h.prefetch[h.head]

	var (
		recycled  *Block
		fromCache bool
	)
	switch e.state {
	case EntryReady:
		recycled = h.ReadBuffer
		h.ReadBuffer = e.block

	case EntryUseCache:
		src, err := h.ResolveCache(e.UseCache, e.WantedStart)
		if err != nil {
			return Rotation{}, err
		}
		h.ReadBuffer.CopyFrom(src)
		recycled = e.block
		fromCache = true

	default:
		return Rotation{}, ErrNotReady
	}

	slot := h.head
	tail := h.anchor + len(h.prefetch)*h.frames
	e.setInFlight(tail, NoCache)

	h.head = (h.head + 1) % len(h.prefetch)
	h.anchor += h.frames

	return Rotation{
		Fill: Fill{
			Slot:        slot,
			Block:       recycled,
			WantedStart: tail,
			UseCache:    NoCache,
		},
		FromCache: fromCache,
	}, nil
}

// DetachDangling converts every cache-backed slot whose cache can no longer
// serve it into a plain disk read, appending the requests to fills.
func (h *Heap) DetachDangling(fills []Fill) []Fill {
	for i := range h.prefetch {
		phys := h.physical(i)
		e := &h.prefetch[phys]
		if e.state != EntryUseCache {
			continue
		}
		if _, err := h.ResolveCache(e.UseCache, e.WantedStart); err == nil {
			continue
		}

		spare := e.block
		wanted := e.WantedStart
		e.setInFlight(wanted, NoCache)
		fills = append(fills, Fill{
			Slot:        phys,
			Block:       spare,
			WantedStart: wanted,
			UseCache:    NoCache,
		})
	}
	return fills
}

// Reanchor retargets the prefetch window to start after a seek and appends
// the disk reads it needs to fills, which should have capacity Depth() so
// the call does not allocate.
//
// Slots that the cache at cacheIndex can serve become cache-backed. Ready
// slots already holding the right frames are kept. Slots still in flight are
// retargeted in place; their old content is discarded when it arrives.
func (h *Heap) Reanchor(start, cacheIndex int, fills []Fill) []Fill {
	// A forward jump by whole blocks inside the window just advances the ring.
	if off := start - h.anchor; off > 0 && off%h.frames == 0 && off/h.frames < len(h.prefetch) {
		h.head = h.physical(off / h.frames)
	}
	h.anchor = start

	for i := range h.prefetch {
		phys := h.physical(i)
		wanted := start + i*h.frames
		e := &h.prefetch[phys]

		hint := NoCache
		if h.cacheSpans(cacheIndex, wanted) {
			hint = cacheIndex
		}

		if e.state == EntryInFlight {
			e.WantedStart = wanted
			e.UseCache = hint
			continue
		}

		if e.state == EntryReady && e.block.WantedStart == wanted {
			e.UseCache = NoCache
			e.WantedStart = wanted
			continue
		}

		storage := e.storage()
		if hint != NoCache && h.Caches[hint].Ready() {
			e.setUseCache(hint, wanted, storage)
			continue
		}

		e.setInFlight(wanted, hint)
		fills = append(fills, Fill{
			Slot:        phys,
			Block:       storage,
			WantedStart: wanted,
			UseCache:    hint,
		})
	}

	return fills
}

// Deliver accepts a block filled by the worker for physical slot.
//
// When the block matches what the slot wants it becomes ready. Otherwise the
// content is stale: the block is kept as spare storage if the slot is now
// cache-backed, or returned as a new fill request (refill is true). Stale
// deliveries report ErrStaleEntry.
func (h *Heap) Deliver(slot int, b *Block) (fill Fill, refill bool, err error) {
	e := &h.prefetch[slot]
	if e.state != EntryInFlight {
		panic(fmt.Sprintf("block: delivery to slot %d in state %s", slot, e.state))
	}

	if b.WantedStart == e.WantedStart {
		e.setReady(b)
		return Fill{}, false, nil
	}

	if e.UseCache != NoCache && h.Caches[e.UseCache].Ready() {
		e.setUseCache(e.UseCache, e.WantedStart, b)
		return Fill{}, false, ErrStaleEntry
	}

	return Fill{
		Slot:        slot,
		Block:       b,
		WantedStart: e.WantedStart,
		UseCache:    e.UseCache,
	}, true, ErrStaleEntry
}

// AddCache registers a jump point at start and returns its index together
// with a freshly allocated window to be filled by the worker. The entry stays
// empty until DeliverCache. Allocates; not for the real-time path.
func (h *Heap) AddCache(start int) (int, *Window) {
	win := NewWindow(h.numChannels, h.frames, len(h.prefetch))
	win.Anchor(start)

	h.Caches = append(h.Caches, CacheEntry{WantedStart: start})
	return len(h.Caches) - 1, win
}

// RetargetCache moves the jump point at index to start. If the cache is
// currently held by the heap its window is returned for refilling; if it is
// with the worker the stale result is handled by DeliverCache.
func (h *Heap) RetargetCache(index, start int) (*Window, error) {
	if index < 0 || index >= len(h.Caches) {
		return nil, ErrCacheIndex
	}

	c := &h.Caches[index]
	c.WantedStart = start
	if c.Window == nil {
		return nil, nil
	}

	win := c.Window
	c.Window = nil
	win.Anchor(start)
	return win, nil
}

// DeliverCache accepts a window filled by the worker. A window filled for an
// old anchor is re-anchored and returned for another fill.
func (h *Heap) DeliverCache(index int, win *Window) (*Window, error) {
	if index < 0 || index >= len(h.Caches) {
		return nil, ErrCacheIndex
	}

	c := &h.Caches[index]
	if win.WantedStart != c.WantedStart {
		win.Anchor(c.WantedStart)
		return win, ErrStaleEntry
	}

	c.Window = win
	return nil, nil
}

// ResolveCache returns the cache block that holds wanted, without copying.
// It fails with ErrDanglingCache when the cache is empty or anchored so that
// wanted does not fall on one of its slots.
func (h *Heap) ResolveCache(index, wanted int) (*Block, error) {
	if index < 0 || index >= len(h.Caches) {
		return nil, ErrCacheIndex
	}

	c := &h.Caches[index]
	if !c.Ready() {
		return nil, ErrDanglingCache
	}

	slot, ok := c.Window.Slot(wanted)
	if !ok {
		return nil, ErrDanglingCache
	}
	return c.Window.Blocks[slot], nil
}

// FindCache returns the index of the jump point anchored at frame.
func (h *Heap) FindCache(frame int) (int, bool) {
	for i := range h.Caches {
		if h.Caches[i].WantedStart == frame {
			return i, true
		}
	}
	return NoCache, false
}

// cacheSpans reports whether wanted lands on a slot of the cache at index,
// judged by its anchor alone (the cache may still be filling).
func (h *Heap) cacheSpans(index, wanted int) bool {
	if index < 0 || index >= len(h.Caches) {
		return false
	}
	off := wanted - h.Caches[index].WantedStart
	return off >= 0 && off%h.frames == 0 && off/h.frames < len(h.prefetch)
}

// SizeBytes reports the sample memory owned by the heap, including blocks
// currently lent to the worker.
func (h *Heap) SizeBytes() int64 {
	perBlock := h.ReadBuffer.SizeBytes()
	n := perBlock * int64(1+len(h.prefetch))
	n += perBlock * int64(len(h.prefetch)*len(h.Caches))
	return n
}
