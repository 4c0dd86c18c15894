package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-diskstream/internal/block"
	"github.com/tphakala/go-audio-diskstream/internal/decode"
	"github.com/tphakala/go-audio-diskstream/internal/logger"
	"github.com/tphakala/go-audio-diskstream/internal/metrics"
	"github.com/tphakala/go-audio-diskstream/internal/testutil"
)

const (
	testChannels = 2
	testFrames   = 256
	testLength   = 4000
)

func newTestWorker(t *testing.T) (*Worker, *decode.Memory) {
	t.Helper()
	dec, err := decode.NewMemory(48000, testutil.Ramp(testChannels, testLength))
	require.NoError(t, err)
	return New(dec, testFrames, nil, nil, Options{Logger: logger.Discard()}), dec
}

func fillReq(start, useCache int) Request {
	return Request{
		Kind: KindFillBlock,
		Fill: block.Fill{
			Slot:        1,
			Block:       block.New(testChannels, testFrames),
			WantedStart: start,
			UseCache:    useCache,
		},
	}
}

func cacheReq(index, start int) Request {
	win := block.NewWindow(testChannels, testFrames, 3)
	win.Anchor(start)
	return Request{Kind: KindFillCache, CacheIndex: index, Window: win}
}

func TestWorker_FillBlock(t *testing.T) {
	w, _ := newTestWorker(t)

	resp := w.Handle(fillReq(512, block.NoCache))
	require.NoError(t, resp.Err)
	assert.Equal(t, KindFillBlock, resp.Kind)
	assert.Equal(t, metrics.SourceDecoder, resp.Source)
	assert.Equal(t, 1, resp.Fill.Slot)

	b := resp.Fill.Block
	assert.Equal(t, 512, b.WantedStart)
	testutil.AssertBlockRamp(t, b, 512)
}

func TestWorker_TailIsZeroPadded(t *testing.T) {
	w, _ := newTestWorker(t)

	// 4000 = 15*256 + 160
	resp := w.Handle(fillReq(15*testFrames, block.NoCache))
	require.NoError(t, resp.Err)

	b := resp.Fill.Block
	for ch := range testChannels {
		testutil.AssertRamp(t, b.Data[ch][:160], ch, 15*testFrames)
		testutil.AssertSilent(t, b.Data[ch][160:])
	}
}

func TestWorker_PastEndIsSilentWithoutIO(t *testing.T) {
	w, dec := newTestWorker(t)

	b := block.New(testChannels, testFrames)
	testutil.FillRamp(b, 0)
	req := fillReq(testLength+testFrames, block.NoCache)
	req.Fill.Block = b

	resp := w.Handle(req)
	require.NoError(t, resp.Err)
	assert.Equal(t, metrics.SourceSilence, resp.Source)
	for ch := range testChannels {
		testutil.AssertSilent(t, b.Data[ch])
	}
	assert.Zero(t, dec.Decodes())
	assert.Zero(t, dec.Seeks())
}

// Consecutive blocks are decoded without repositioning the decoder.
func TestWorker_SequentialFillsDoNotSeek(t *testing.T) {
	w, dec := newTestWorker(t)

	for i := range 4 {
		resp := w.Handle(fillReq(i*testFrames, block.NoCache))
		require.NoError(t, resp.Err)
		testutil.AssertBlockRamp(t, resp.Fill.Block, i*testFrames)
	}
	assert.Zero(t, dec.Seeks())

	resp := w.Handle(fillReq(10*testFrames, block.NoCache))
	require.NoError(t, resp.Err)
	testutil.AssertBlockRamp(t, resp.Fill.Block, 10*testFrames)
	assert.Equal(t, int64(1), dec.Seeks())
}

func TestWorker_FillCache(t *testing.T) {
	w, _ := newTestWorker(t)

	resp := w.Handle(cacheReq(0, 1000))
	require.NoError(t, resp.Err)
	assert.Equal(t, KindFillCache, resp.Kind)
	assert.Equal(t, 0, resp.CacheIndex)

	for i, b := range resp.Window.Blocks {
		testutil.AssertBlockRamp(t, b, 1000+i*testFrames)
	}
}

// Cache fills are logged at debug level with their duration.
func TestWorker_FillCacheLogsDuration(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(&buf, logger.Config{Level: "DEBUG", Format: "json"})
	require.NoError(t, err)

	dec, err := decode.NewMemory(48000, testutil.Ramp(testChannels, testLength))
	require.NoError(t, err)
	w := New(dec, testFrames, nil, nil, Options{Logger: l})

	resp := w.Handle(cacheReq(0, 1024))
	require.NoError(t, resp.Err)

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec["msg"] != "cache filled" {
			continue
		}
		found = true
		assert.Equal(t, "diskstream-worker", rec["component"])
		assert.InDelta(t, 1024, rec["wanted_start"], 0)
		ms, ok := rec["duration_ms"].(float64)
		require.True(t, ok, "duration_ms = %#v", rec["duration_ms"])
		assert.GreaterOrEqual(t, ms, 0.0)
	}
	assert.True(t, found, "no cache filled record in %s", buf.String())
}

func TestWorker_CacheHintServedFromMirror(t *testing.T) {
	w, dec := newTestWorker(t)

	resp := w.Handle(cacheReq(0, 1000))
	require.NoError(t, resp.Err)
	decodes := dec.Decodes()

	// The reader may restamp window metadata concurrently; the mirror must
	// not depend on it.
	resp.Window.Anchor(3000)

	got := w.Handle(fillReq(1000+testFrames, 0))
	require.NoError(t, got.Err)
	assert.Equal(t, metrics.SourceCache, got.Source)
	testutil.AssertBlockRamp(t, got.Fill.Block, 1000+testFrames)
	assert.Equal(t, decodes, dec.Decodes(), "cache hit must not decode")
}

func TestWorker_DanglingHintFallsBackToDecoder(t *testing.T) {
	tests := []struct {
		name  string
		cache int
		start int
	}{
		{"Unknown_Cache", 3, 512},
		{"Outside_Window", 0, 1000 + 3*testFrames},
		{"Off_Grid", 0, 1100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorker(t)
			require.NoError(t, w.Handle(cacheReq(0, 1000)).Err)

			resp := w.Handle(fillReq(tt.start, tt.cache))
			require.NoError(t, resp.Err)
			assert.Equal(t, metrics.SourceDecoder, resp.Source)
			testutil.AssertBlockRamp(t, resp.Fill.Block, tt.start)
		})
	}
}

// Refilling a cache drops the mirror until the new content is complete.
func TestWorker_RefillMovesMirror(t *testing.T) {
	w, _ := newTestWorker(t)
	require.NoError(t, w.Handle(cacheReq(0, 1000)).Err)
	require.NoError(t, w.Handle(cacheReq(0, 2000)).Err)

	resp := w.Handle(fillReq(1000, 0))
	assert.Equal(t, metrics.SourceDecoder, resp.Source)

	resp = w.Handle(fillReq(2000, 0))
	assert.Equal(t, metrics.SourceCache, resp.Source)
	testutil.AssertBlockRamp(t, resp.Fill.Block, 2000)
}

func TestWorker_DecodeErrorYieldsSilence(t *testing.T) {
	w, dec := newTestWorker(t)
	boom := errors.New("read error")
	dec.FailWith(boom)

	b := block.New(testChannels, testFrames)
	testutil.FillRamp(b, 0)
	req := fillReq(0, block.NoCache)
	req.Fill.Block = b

	resp := w.Handle(req)
	require.ErrorIs(t, resp.Err, boom)
	assert.Equal(t, metrics.SourceSilence, resp.Source)
	for ch := range testChannels {
		testutil.AssertSilent(t, b.Data[ch])
	}

	// Recovery repositions the decoder.
	dec.FailWith(nil)
	resp = w.Handle(fillReq(0, block.NoCache))
	require.NoError(t, resp.Err)
	testutil.AssertBlockRamp(t, resp.Fill.Block, 0)
}

func TestWorker_Run(t *testing.T) {
	dec, err := decode.NewMemory(48000, testutil.Ramp(testChannels, testLength))
	require.NoError(t, err)

	requests := make(chan Request, 4)
	responses := make(chan Response, 4)
	w := New(dec, testFrames, requests, responses, Options{Logger: logger.Discard()})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := range 3 {
		requests <- fillReq(i*testFrames, block.NoCache)
	}
	for i := range 3 {
		select {
		case resp := <-responses:
			testutil.AssertBlockRamp(t, resp.Fill.Block, i*testFrames)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "timed out waiting for response")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "worker did not stop")
	}
}

func TestWorker_RunStopsOnClose(t *testing.T) {
	w, _ := newTestWorker(t)
	requests := make(chan Request)
	w.requests = requests
	close(requests)

	assert.NoError(t, w.Run(t.Context()))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "fill-block", KindFillBlock.String())
	assert.Equal(t, "fill-cache", KindFillCache.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
