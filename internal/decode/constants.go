package decode

import "errors"

// Sample format constants
const (
	bitsPerSample8  = 8
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Normalisation divisors for signed PCM.
	scale8  = 128.0
	scale16 = 32768.0
	scale24 = 8388608.0
	scale32 = 2147483648.0

	// 8-bit WAV PCM is unsigned with 128 as the zero level.
	unsigned8Offset = 128

	// WAVE_FORMAT_PCM
	wavFormatPCM = 1
)

// go-mp3 always produces 16-bit little endian stereo.
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
)

// Container names reported in FileInfo.Format.
const (
	formatWAV    = "wav"
	formatMP3    = "mp3"
	formatMemory = "memory"
)

// Errors
var (
	// ErrInvalidFile means the input is not a readable file of the expected format.
	ErrInvalidFile = errors.New("invalid audio file")

	// ErrUnsupportedFormat means the file is valid but uses an encoding this
	// package cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrSeekOutOfRange means a seek target lies outside the source.
	ErrSeekOutOfRange = errors.New("seek position out of range")

	// ErrShapeMismatch means a destination block does not have the source's
	// channel count.
	ErrShapeMismatch = errors.New("block channel count does not match source")

	// ErrClosed means the decoder has been closed.
	ErrClosed = errors.New("decoder closed")
)

// pcmScale returns the divisor that maps signed integer PCM of the given
// width into [-1, 1).
func pcmScale(bitDepth int) (float32, error) {
	switch bitDepth {
	case bitsPerSample8:
		return scale8, nil
	case bitsPerSample16:
		return scale16, nil
	case bitsPerSample24:
		return scale24, nil
	case bitsPerSample32:
		return scale32, nil
	default:
		return 0, ErrUnsupportedFormat
	}
}
