package main

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// levelMeter accumulates per-channel peak and RMS levels.
type levelMeter struct {
	peak   []float64
	sumSq  []float64
	frames int
	buf    []float64
}

func newLevelMeter(channels, maxFrames int) *levelMeter {
	return &levelMeter{
		peak:  make([]float64, channels),
		sumSq: make([]float64, channels),
		buf:   make([]float64, maxFrames),
	}
}

// add accounts one block of channel 'ch'. Every channel of a block must be
// added before commit.
func (m *levelMeter) add(ch int, samples []float32) {
	x := m.buf[:len(samples)]
	for i, s := range samples {
		x[i] = float64(s)
	}
	if len(x) == 0 {
		return
	}
	m.peak[ch] = max(m.peak[ch], math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
	m.sumSq[ch] += floats.Dot(x, x)
}

// commit counts frames toward the RMS denominator.
func (m *levelMeter) commit(frames int) {
	m.frames += frames
}

// Peak returns the absolute peak of channel ch.
func (m *levelMeter) Peak(ch int) float64 {
	return m.peak[ch]
}

// RMS returns the root mean square of channel ch.
func (m *levelMeter) RMS(ch int) float64 {
	if m.frames == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq[ch] / float64(m.frames))
}

// dBFS converts a linear level to decibels relative to full scale.
func dBFS(level float64) float64 {
	if level <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(level)
}
