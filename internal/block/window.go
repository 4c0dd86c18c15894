package block

import "fmt"

// Window is a fixed run of consecutive blocks anchored at a playback frame.
// Slot i covers [WantedStart + i*frames, WantedStart + (i+1)*frames).
//
// The same type backs both the prefetch lookahead and the seek caches.
type Window struct {
	Blocks      []*Block
	WantedStart int
}

// NewWindow allocates depth blocks of the given shape, anchored at frame 0.
func NewWindow(numChannels, frames, depth int) *Window {
	if depth < 1 {
		panic(fmt.Sprintf("block: invalid window depth %d", depth))
	}

	blocks := make([]*Block, 0, depth)
	for range depth {
		blocks = append(blocks, New(numChannels, frames))
	}

	return &Window{Blocks: blocks}
}

// Depth returns the number of slots.
func (w *Window) Depth() int {
	return len(w.Blocks)
}

// Frames returns the per-block frame count.
func (w *Window) Frames() int {
	return w.Blocks[0].Frames()
}

// End returns the first frame past the window.
func (w *Window) End() int {
	return w.WantedStart + w.Depth()*w.Frames()
}

// Slot maps a wanted frame to the slot that starts exactly there.
func (w *Window) Slot(wanted int) (int, bool) {
	off := wanted - w.WantedStart
	frames := w.Frames()
	if off < 0 || off%frames != 0 {
		return 0, false
	}
	slot := off / frames
	if slot >= w.Depth() {
		return 0, false
	}
	return slot, true
}

// Anchor moves the window to start and stamps each block with the frame it
// is expected to hold. Content is left untouched.
func (w *Window) Anchor(start int) {
	w.WantedStart = start
	frames := w.Frames()
	for i, b := range w.Blocks {
		b.WantedStart = start + i*frames
	}
}

// SizeBytes reports the sample memory held by the window.
func (w *Window) SizeBytes() int64 {
	var n int64
	for _, b := range w.Blocks {
		n += b.SizeBytes()
	}
	return n
}
