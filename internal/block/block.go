// Package block implements the shared data model of the disk stream: fixed
// size sample blocks, prefetch windows, the transfer entries that move them
// between the disk worker and the real-time reader, and the heap that owns
// them for the lifetime of a stream.
//
// Nothing in this package synchronizes. Ownership of a *Block or *Window is
// transferred by handing the pointer to the other goroutine over a channel
// and dropping the local reference; the sender must not touch the value
// again until it is handed back.
package block

import (
	"fmt"
)

// Block holds one fixed-length buffer per channel plus positional metadata.
//
// All channel buffers are cut from a single contiguous slab so a block is one
// allocation regardless of channel count. The slab is allocated (and zeroed)
// once when the stream is opened; afterwards only its content changes.
type Block struct {
	// Data holds one slice per channel, each exactly Frames() long.
	Data [][]float32

	// StartFrameInFile is the absolute file frame of the first sample.
	StartFrameInFile int

	// WantedStart is the logical playback frame this block was prepared for.
	WantedStart int

	slab   []float32
	frames int
}

// New allocates a block of numChannels buffers, each frames long.
func New(numChannels, frames int) *Block {
	if numChannels < 1 {
		panic(fmt.Sprintf("block: invalid channel count %d", numChannels))
	}
	if frames < 1 {
		panic(fmt.Sprintf("block: invalid frame count %d", frames))
	}

	slab := make([]float32, numChannels*frames)
	data := make([][]float32, numChannels)
	for ch := range numChannels {
		// Full slice expression caps each channel so an append can never
		// spill into the neighbouring channel.
		data[ch] = slab[ch*frames : (ch+1)*frames : (ch+1)*frames]
	}

	return &Block{
		Data:   data,
		slab:   slab,
		frames: frames,
	}
}

// NumChannels returns the number of channel buffers.
func (b *Block) NumChannels() int {
	return len(b.Data)
}

// Frames returns the fixed per-channel length.
func (b *Block) Frames() int {
	return b.frames
}

// CopyFrom overwrites b with the samples and metadata of src.
// Both blocks must share the same shape. It never allocates.
func (b *Block) CopyFrom(src *Block) {
	if src.frames != b.frames || len(src.Data) != len(b.Data) {
		panic(fmt.Sprintf("block: shape mismatch %dx%d <- %dx%d",
			len(b.Data), b.frames, len(src.Data), src.frames))
	}
	copy(b.slab, src.slab)
	b.StartFrameInFile = src.StartFrameInFile
	b.WantedStart = src.WantedStart
}

// CopySamples overwrites the samples of b with those of src and leaves the
// metadata of both blocks alone. It reads nothing but src's sample data, so
// another goroutine may read or restamp src's metadata meanwhile.
func (b *Block) CopySamples(src *Block) {
	if src.frames != b.frames || len(src.Data) != len(b.Data) {
		panic(fmt.Sprintf("block: shape mismatch %dx%d <- %dx%d",
			len(b.Data), b.frames, len(src.Data), src.frames))
	}
	copy(b.slab, src.slab)
}

// ZeroFrom clears every channel from frame offset to the end of the block.
// Producers use it to pad the trailing block of a file.
func (b *Block) ZeroFrom(offset int) {
	if offset < 0 {
		offset = 0
	}
	for _, ch := range b.Data {
		if offset >= len(ch) {
			return
		}
		clear(ch[offset:])
	}
}

// SizeBytes reports the sample memory held by the block.
func (b *Block) SizeBytes() int64 {
	return int64(len(b.slab)) * bytesPerSample
}
