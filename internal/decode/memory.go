package decode

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/tphakala/go-audio-diskstream/internal/block"
)

// Memory serves planar samples held in memory. It backs synthetic signals
// and tests, and counts the I/O it is asked to do.
type Memory struct {
	data [][]float32
	rate int
	pos  int

	decodes atomic.Int64
	seeks   atomic.Int64
	fail    atomic.Pointer[error]
}

// NewMemory wraps channels, which must all have the same length.
// The slices are referenced, not copied.
func NewMemory(rate int, channels [][]float32) (*Memory, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidFile)
	}
	for ch := range channels {
		if len(channels[ch]) != len(channels[0]) {
			return nil, fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidFile, ch, len(channels[ch]), len(channels[0]))
		}
	}
	return &Memory{data: channels, rate: rate}, nil
}

// Info implements Decoder.
func (m *Memory) Info() FileInfo {
	return FileInfo{
		Channels:   len(m.data),
		SampleRate: m.rate,
		NumFrames:  len(m.data[0]),
		BitDepth:   bitsPerSample32,
		Format:     formatMemory,
	}
}

// Decode implements Decoder.
func (m *Memory) Decode(dst *block.Block) (int, error) {
	if errp := m.fail.Load(); errp != nil {
		return 0, *errp
	}
	if dst.NumChannels() != len(m.data) {
		return 0, ErrShapeMismatch
	}
	m.decodes.Add(1)

	n := min(dst.Frames(), len(m.data[0])-m.pos)
	if n <= 0 {
		return 0, io.EOF
	}
	for ch, src := range m.data {
		copy(dst.Data[ch], src[m.pos:m.pos+n])
	}
	m.pos += n
	return n, nil
}

// Seek implements Decoder.
func (m *Memory) Seek(frame int) error {
	if frame < 0 || frame > len(m.data[0]) {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, len(m.data[0]))
	}
	m.seeks.Add(1)
	m.pos = frame
	return nil
}

// Close implements Decoder.
func (m *Memory) Close() error {
	return nil
}

// Decodes returns how many Decode calls reached the sample data.
func (m *Memory) Decodes() int64 {
	return m.decodes.Load()
}

// Seeks returns how many Seek calls succeeded.
func (m *Memory) Seeks() int64 {
	return m.seeks.Load()
}

// FailWith makes every following Decode return err. A nil err clears it.
// Safe to call while another goroutine decodes.
func (m *Memory) FailWith(err error) {
	if err == nil {
		m.fail.Store(nil)
		return
	}
	m.fail.Store(&err)
}
