package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/tphakala/go-audio-diskstream/internal/block"
	"github.com/tphakala/go-audio-diskstream/internal/simdops"
)

// MP3 decodes MPEG-1/2 Layer III files through hajimehoshi/go-mp3.
// Output is always stereo; mono sources are duplicated by the library.
type MP3 struct {
	file *os.File
	dec  *mp3.Decoder
	info FileInfo

	raw    []byte
	pos    int
	closed bool
}

// OpenMP3 opens an MP3 file and positions it at frame 0.
func OpenMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	d, err := mp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalidFile, err)
	}

	frames := UnknownLength
	if n := d.Length(); n >= 0 {
		frames = int(n / mp3BytesPerFrame)
	}

	return &MP3{
		file: f,
		dec:  d,
		info: FileInfo{
			Channels:   mp3Channels,
			SampleRate: d.SampleRate(),
			NumFrames:  frames,
			BitDepth:   bitsPerSample16,
			Format:     formatMP3,
		},
	}, nil
}

// Info implements Decoder.
func (m *MP3) Info() FileInfo {
	return m.info
}

// Decode implements Decoder.
func (m *MP3) Decode(dst *block.Block) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if dst.NumChannels() != mp3Channels {
		return 0, ErrShapeMismatch
	}
	if m.atEnd() {
		return 0, io.EOF
	}

	need := dst.Frames() * mp3BytesPerFrame
	if cap(m.raw) < need {
		m.raw = make([]byte, need)
	}
	raw := m.raw[:need]

	n, err := io.ReadFull(m.dec, raw)
	frames := n / mp3BytesPerFrame
	if frames == 0 {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("failed to decode mp3: %w", err)
	}

	left := dst.Data[0][:frames]
	right := dst.Data[1][:frames]
	for i := range frames {
		off := i * mp3BytesPerFrame
		left[i] = float32(int16(binary.LittleEndian.Uint16(raw[off:])))
		right[i] = float32(int16(binary.LittleEndian.Uint16(raw[off+2:])))
	}

	ops := simdops.Float32()
	ops.Scale(left, left, 1/scale16)
	ops.Scale(right, right, 1/scale16)

	m.pos += frames
	return frames, nil
}

// Seek implements Decoder.
func (m *MP3) Seek(frame int) error {
	if m.closed {
		return ErrClosed
	}
	if frame < 0 || (m.info.NumFrames != UnknownLength && frame > m.info.NumFrames) {
		return fmt.Errorf("%w: frame %d", ErrSeekOutOfRange, frame)
	}
	if frame == m.pos {
		return nil
	}
	// go-mp3 decodes the MPEG frame holding the target while seeking and
	// there is none at the end. Decode reports EOF from the position alone.
	if frame == m.info.NumFrames {
		m.pos = frame
		return nil
	}

	if _, err := m.dec.Seek(int64(frame)*mp3BytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek mp3 to frame %d: %w", frame, err)
	}
	m.pos = frame
	return nil
}

func (m *MP3) atEnd() bool {
	return m.info.NumFrames != UnknownLength && m.pos >= m.info.NumFrames
}

// Close implements Decoder.
func (m *MP3) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.file.Close()
}
