package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format constants
const (
	wavFormatPCM    = 1
	bitsPerSample16 = 16
	bitsPerSample24 = 24

	// Full-scale divisors, matching the decoder's normalisation.
	scale16 = 32768.0
	scale24 = 8388608.0
)

// wavOutputWriter wraps the output file and a go-audio/wav encoder.
type wavOutputWriter struct {
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
	channels int
	scale    float64
}

// createWAVOutput creates the output file and encoder.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutputWriter, error) {
	var scale float64
	switch bitDepth {
	case bitsPerSample16:
		scale = scale16
	case bitsPerSample24:
		scale = scale24
	default:
		return nil, fmt.Errorf("unsupported output bit depth %d", bitDepth)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutputWriter{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		channels: channels,
		scale:    scale,
	}, nil
}

// WriteInterleaved quantises interleaved float samples and writes them.
func (w *wavOutputWriter) WriteInterleaved(samples []float32) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]

	for i, s := range samples {
		v := math.Round(float64(s) * w.scale)
		w.buf.Data[i] = int(max(-w.scale, min(w.scale-1, v)))
	}
	return w.encoder.Write(w.buf)
}

// Close finalises the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to finalise WAV: %w", err)
	}
	return w.file.Close()
}
