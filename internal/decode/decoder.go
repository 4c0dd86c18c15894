// Package decode provides the sample sources a disk stream reads from.
//
// A Decoder produces planar float32 samples in [-1, 1) into block.Block
// storage and can be positioned at any frame. Decoders are used from the
// stream's worker goroutine only and need not be safe for concurrent use.
package decode

import (
	"github.com/tphakala/go-audio-diskstream/internal/block"
)

// UnknownLength is reported by FileInfo.NumFrames when a source cannot
// determine its length up front.
const UnknownLength = -1

// FileInfo describes an opened source.
type FileInfo struct {
	// Channels is the number of channels Decode writes.
	Channels int

	// SampleRate is the source sample rate in Hz.
	SampleRate int

	// NumFrames is the total length in frames, or UnknownLength.
	NumFrames int

	// BitDepth is the source sample width; 32 for float sources.
	BitDepth int

	// Format names the container, e.g. "wav".
	Format string
}

// Decoder is a positionable source of planar float32 samples.
type Decoder interface {
	// Info returns the source description. It is fixed after opening.
	Info() FileInfo

	// Seek positions the decoder so the next Decode starts at frame.
	Seek(frame int) error

	// Decode writes up to dst.Frames() frames from the current position into
	// dst.Data, starting at index 0, and returns the number of frames written.
	// It returns fewer than dst.Frames() only when input ends inside the
	// block. At end of input it returns 0, io.EOF. The caller owns the tail of dst
	// past the returned count.
	Decode(dst *block.Block) (int, error)

	// Close releases the underlying file.
	Close() error
}
