package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-audio-diskstream/internal/block"
	"github.com/tphakala/go-audio-diskstream/internal/simdops"
)

// WAV decodes integer PCM WAV files through go-audio/wav.
type WAV struct {
	file *os.File
	dec  *wav.Decoder
	info FileInfo

	// buf is reused across Decode calls and only grows.
	buf *audio.IntBuffer

	invScale      float32
	unsigned      bool
	bytesPerFrame int64
	dataStart     int64 // file offset of frame 0
	pos           int
	closed        bool
}

// OpenWAV opens and validates a PCM WAV file and positions it at frame 0.
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	w, err := newWAV(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func newWAV(f *os.File) (*WAV, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	bitDepth := int(d.BitDepth)
	scale, err := pcmScale(bitDepth)
	if err != nil {
		return nil, fmt.Errorf("%w: %d-bit PCM", err, bitDepth)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFile, channels)
	}

	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	// riff reads the file unbuffered, so the cursor sits on the first sample.
	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to locate PCM data: %w", err)
	}

	bytesPerFrame := int64(channels * ((bitDepth-1)/bitsPerSample8 + 1))
	format := &audio.Format{NumChannels: channels, SampleRate: int(d.SampleRate)}

	return &WAV{
		file: f,
		dec:  d,
		info: FileInfo{
			Channels:   channels,
			SampleRate: int(d.SampleRate),
			NumFrames:  int(d.PCMLen() / bytesPerFrame),
			BitDepth:   bitDepth,
			Format:     formatWAV,
		},
		buf:           &audio.IntBuffer{Format: format, SourceBitDepth: bitDepth},
		invScale:      1 / scale,
		unsigned:      bitDepth == bitsPerSample8,
		bytesPerFrame: bytesPerFrame,
		dataStart:     dataStart,
	}, nil
}

// Info implements Decoder.
func (w *WAV) Info() FileInfo {
	return w.info
}

// Decode implements Decoder.
func (w *WAV) Decode(dst *block.Block) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	channels := w.info.Channels
	if dst.NumChannels() != channels {
		return 0, ErrShapeMismatch
	}

	want := min(dst.Frames(), w.info.NumFrames-w.pos)
	if want <= 0 {
		return 0, io.EOF
	}

	need := want * channels
	if cap(w.buf.Data) < need {
		w.buf.Data = make([]int, need)
	}
	w.buf.Data = w.buf.Data[:need]

	// PCMBuffer reports the number of samples, not frames.
	n, err := w.dec.PCMBuffer(w.buf)
	frames := n / channels
	if frames == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("failed to read audio data: %w", err)
	}

	w.deinterleave(dst, frames)
	w.pos += frames
	return frames, nil
}

// deinterleave converts the first frames interleaved ints in w.buf into
// normalised planar samples.
func (w *WAV) deinterleave(dst *block.Block, frames int) {
	channels := w.info.Channels
	data := w.buf.Data
	ops := simdops.Float32()

	for ch, out := range dst.Data {
		out = out[:frames]
		if w.unsigned {
			for i := range out {
				out[i] = float32(data[i*channels+ch] - unsigned8Offset)
			}
		} else {
			for i := range out {
				out[i] = float32(data[i*channels+ch])
			}
		}
		ops.Scale(out, out, w.invScale)
	}
}

// Seek implements Decoder. It moves the file cursor straight to the frame
// and limits the PCM chunk reader to the remaining frames.
func (w *WAV) Seek(frame int) error {
	if w.closed {
		return ErrClosed
	}
	if frame < 0 || frame > w.info.NumFrames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, w.info.NumFrames)
	}
	if frame == w.pos {
		return nil
	}

	offset := int64(frame) * w.bytesPerFrame
	if _, err := w.file.Seek(w.dataStart+offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to frame %d: %w", frame, err)
	}
	remaining := int64(w.info.NumFrames-frame) * w.bytesPerFrame
	w.dec.PCMChunk.R = io.LimitReader(w.file, remaining)
	w.pos = frame
	return nil
}

// Close implements Decoder.
func (w *WAV) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
