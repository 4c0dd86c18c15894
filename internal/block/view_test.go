package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-diskstream/internal/block"
	"github.com/tphakala/go-audio-diskstream/internal/testutil"
)

func TestView_Accessors(t *testing.T) {
	b := block.New(2, 512)
	testutil.FillRamp(b, 4096)

	v := block.NewView(b, 512)
	assert.Equal(t, 2, v.NumChannels())
	assert.Equal(t, 512, v.BufferLen())

	for ch := range 2 {
		samples, err := v.ReadChannel(ch)
		require.NoError(t, err)
		require.Len(t, samples, 512)
		testutil.AssertRamp(t, samples, ch, 4096)
	}
}

// A trailing end-of-file block exposes exactly its valid length.
func TestView_TruncatedTail(t *testing.T) {
	b := block.New(2, 512)
	testutil.FillRamp(b, 0)

	v := block.NewView(b, 100)
	assert.Equal(t, 100, v.BufferLen())

	for ch := range 2 {
		samples, err := v.ReadChannel(ch)
		require.NoError(t, err)
		assert.Len(t, samples, 100)
	}
}

func TestView_ChannelOutOfRange(t *testing.T) {
	v := block.NewView(block.New(2, 64), 64)

	for _, ch := range []int{2, 3, -1} {
		samples, err := v.ReadChannel(ch)
		require.ErrorIs(t, err, block.ErrChannelOutOfRange, "channel %d", ch)
		assert.Nil(t, samples)
	}
}

func TestView_LengthBeyondBlockPanics(t *testing.T) {
	b := block.New(1, 64)
	assert.Panics(t, func() { block.NewView(b, 65) })
	assert.Panics(t, func() { block.NewView(b, -1) })
	assert.NotPanics(t, func() { block.NewView(b, 0) })
}

func TestView_ZeroValue(t *testing.T) {
	var v block.View
	assert.Equal(t, 0, v.NumChannels())
	assert.Equal(t, 0, v.BufferLen())
	assert.Equal(t, 0, v.Interleave(make([]float32, 8)))

	_, err := v.ReadChannel(0)
	require.ErrorIs(t, err, block.ErrChannelOutOfRange)
}

// Reading the same unchanged block twice yields identical data.
func TestView_Idempotent(t *testing.T) {
	b := block.New(3, 256)
	testutil.FillRamp(b, 777)

	first := block.NewView(b, 200)
	second := block.NewView(b, 200)

	for ch := range 3 {
		a, err := first.ReadChannel(ch)
		require.NoError(t, err)
		snapshot := append([]float32(nil), a...)

		c, err := second.ReadChannel(ch)
		require.NoError(t, err)
		assert.Equal(t, snapshot, c)

		again, err := first.ReadChannel(ch)
		require.NoError(t, err)
		assert.Equal(t, snapshot, again)
	}
}

func TestView_Interleave(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		length   int
		dstLen   int
		want     int
	}{
		{"Stereo_Full", 2, 64, 128, 64},
		{"Stereo_ShortDst", 2, 64, 50, 25},
		{"Mono", 1, 32, 32, 32},
		{"Three_Channels", 3, 16, 48, 16},
		{"Truncated_View", 2, 10, 128, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := block.New(tt.channels, 64)
			testutil.FillRamp(b, 0)
			v := block.NewView(b, tt.length)

			dst := make([]float32, tt.dstLen)
			n := v.Interleave(dst)
			require.Equal(t, tt.want, n)

			for i := range n {
				for ch := range tt.channels {
					assert.Equal(t, testutil.RampValue(ch, i), dst[i*tt.channels+ch],
						"frame %d channel %d", i, ch)
				}
			}
		})
	}
}
