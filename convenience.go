package diskstream

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/go-audio-diskstream/internal/decode"
	promstream "github.com/tphakala/go-audio-diskstream/internal/metrics/prometheus"
)

// Common sample rates.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000
)

// OpenFile opens path with the decoder matching its extension (.wav or
// .mp3) and starts streaming it.
func OpenFile(path string, cfg *Config) (*ReadStream, error) {
	dec, err := decode.Open(path)
	if err != nil {
		return nil, err
	}
	return openOrClose(dec, cfg)
}

// OpenWAV streams a PCM WAV file.
func OpenWAV(path string, cfg *Config) (*ReadStream, error) {
	dec, err := decode.OpenWAV(path)
	if err != nil {
		return nil, err
	}
	return openOrClose(dec, cfg)
}

// OpenMP3 streams an MP3 file. MP3 streams are always stereo.
func OpenMP3(path string, cfg *Config) (*ReadStream, error) {
	dec, err := decode.OpenMP3(path)
	if err != nil {
		return nil, err
	}
	return openOrClose(dec, cfg)
}

// NewMemoryDecoder returns a Decoder serving planar samples from memory.
// All channels must have the same length.
func NewMemoryDecoder(sampleRate int, channels [][]float32) (Decoder, error) {
	m, err := decode.NewMemory(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewPrometheusMetrics registers stream collectors with reg. The result can
// be shared by several streams: counters and the heap gauge then report the
// sum over every open stream.
func NewPrometheusMetrics(reg prometheus.Registerer) StreamMetrics {
	return promstream.New(reg)
}

func openOrClose(dec Decoder, cfg *Config) (*ReadStream, error) {
	s, err := Open(dec, cfg)
	if err != nil {
		_ = dec.Close()
		return nil, err
	}
	return s, nil
}
