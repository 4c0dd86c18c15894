// Package testutil provides reusable test helpers for the disk stream tests.
//
// Test signals are ramps: sample value encodes the channel and the absolute
// file frame, so any block can be checked for position as well as content.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/go-audio-diskstream/internal/block"
)

// channelOffset separates channels in ramp values. float32 represents every
// integer below 2^24 exactly, which bounds usable ramp lengths.
const channelOffset = 1 << 20

// RampValue is the sample a ramp signal holds for channel ch at frame.
func RampValue(ch, frame int) float32 {
	return float32(frame + ch*channelOffset)
}

// Ramp builds a planar ramp signal.
func Ramp(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range channels {
		out[ch] = make([]float32, frames)
		for i := range frames {
			out[ch][i] = RampValue(ch, i)
		}
	}
	return out
}

// FillRamp writes ramp samples for file frames [start, start+Frames()) into b
// and stamps its metadata the way a producer does.
func FillRamp(b *block.Block, start int) {
	for ch, data := range b.Data {
		for i := range data {
			data[i] = RampValue(ch, start+i)
		}
	}
	b.StartFrameInFile = start
	b.WantedStart = start
}

// AssertChannelLengths verifies every channel of b holds exactly frames samples.
func AssertChannelLengths(t *testing.T, b *block.Block, frames int) bool {
	t.Helper()
	ok := true
	for ch, data := range b.Data {
		ok = assert.Len(t, data, frames, "channel %d", ch) && ok
	}
	return ok
}

// AssertRamp verifies that samples hold ramp values for file frames
// [start, start+len(samples)) on channel ch.
func AssertRamp(t *testing.T, samples []float32, ch, start int, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range samples {
		want := RampValue(ch, start+i)
		if v != want {
			return assert.Fail(t, "ramp mismatch",
				"channel %d sample %d (frame %d): got %v, want %v", ch, i, start+i, v, want)
		}
	}
	return true
}

// AssertBlockRamp verifies the whole block holds ramp data starting at start.
func AssertBlockRamp(t *testing.T, b *block.Block, start int) bool {
	t.Helper()
	ok := assert.Equal(t, start, b.StartFrameInFile, "StartFrameInFile")
	for ch, data := range b.Data {
		ok = AssertRamp(t, data, ch, start) && ok
	}
	return ok
}

// AssertSilent verifies every sample is zero.
func AssertSilent(t *testing.T, samples []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range samples {
		if v != 0 {
			return assert.Fail(t, "expected silence", "sample %d = %v", i, v)
		}
	}
	return true
}
