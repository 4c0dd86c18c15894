package block

import (
	"fmt"

	"github.com/tphakala/go-audio-diskstream/internal/simdops"
)

// stereoChannels selects the SIMD interleave fast path.
const stereoChannels = 2

// View is a borrowed, read-only handle over the first Len frames of a block.
// It owns nothing and is valid only until the next call on the stream that
// produced it.
type View struct {
	block *Block
	n     int
}

// NewView returns a view over the first n frames of b.
// n must not exceed the block's frame count.
func NewView(b *Block, n int) View {
	if n < 0 || n > b.Frames() {
		panic(fmt.Sprintf("block: view length %d outside block of %d frames", n, b.Frames()))
	}
	return View{block: b, n: n}
}

// ReadChannel returns the first BufferLen() samples of channel ch.
// The slice aliases the block; callers must not modify it.
func (v View) ReadChannel(ch int) ([]float32, error) {
	if v.block == nil || ch < 0 || ch >= len(v.block.Data) {
		return nil, ErrChannelOutOfRange
	}
	return v.block.Data[ch][:v.n], nil
}

// NumChannels returns the number of channels in the view.
func (v View) NumChannels() int {
	if v.block == nil {
		return 0
	}
	return len(v.block.Data)
}

// BufferLen returns the number of valid frames in the view.
func (v View) BufferLen() int {
	return v.n
}

// Interleave writes the view as interleaved frames into dst and returns the
// number of frames written, which is limited by the capacity of dst.
func (v View) Interleave(dst []float32) int {
	channels := v.NumChannels()
	if channels == 0 {
		return 0
	}

	frames := min(v.n, len(dst)/channels)
	if frames == 0 {
		return 0
	}

	if channels == stereoChannels {
		simdops.Float32().Interleave2(dst[:frames*2], v.block.Data[0][:frames], v.block.Data[1][:frames])
		return frames
	}

	for ch, data := range v.block.Data {
		for i, s := range data[:frames] {
			dst[i*channels+ch] = s
		}
	}
	return frames
}
