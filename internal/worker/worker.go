// Package worker implements the disk side of a stream: a single goroutine
// that decodes blocks and seek cache windows on request.
//
// The worker never shares mutable state with the reader. Each Request moves
// exactly one block or window to the worker; the matching Response moves it
// back, filled.
package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tphakala/go-audio-diskstream/internal/block"
	"github.com/tphakala/go-audio-diskstream/internal/decode"
	"github.com/tphakala/go-audio-diskstream/internal/logger"
	"github.com/tphakala/go-audio-diskstream/internal/metrics"
)

// Kind selects what a Request asks for.
type Kind int

const (
	// KindFillBlock fills one prefetch block.
	KindFillBlock Kind = iota

	// KindFillCache fills every block of a seek cache window.
	KindFillCache
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFillBlock:
		return "fill-block"
	case KindFillCache:
		return "fill-cache"
	default:
		return "unknown"
	}
}

// Request is sent by the reader. Fill is used by KindFillBlock; CacheIndex
// and Window by KindFillCache.
type Request struct {
	Kind       Kind
	Fill       block.Fill
	CacheIndex int
	Window     *block.Window
}

// Response returns the storage of a Request, filled.
type Response struct {
	Kind       Kind
	Fill       block.Fill
	CacheIndex int
	Window     *block.Window

	// Source tells where the samples came from. For a cache window it is
	// the source of the last block.
	Source metrics.FillSource

	// Err is a decoder failure. The affected blocks hold silence.
	Err error
}

// unknownPosition forces a seek before the next decode.
const unknownPosition = -1

// mirror is the worker's read-only record of a cache window it filled.
// start is the anchor the window was filled for; the window's own metadata
// may be restamped by the reader at any time and is never read here.
type mirror struct {
	window *block.Window
	start  int
}

// Options configures a Worker.
type Options struct {
	Logger  *slog.Logger
	Metrics metrics.StreamMetrics
}

// Worker owns the decoder. It is driven by Run and must not be used from
// any other goroutine.
type Worker struct {
	dec       decode.Decoder
	requests  <-chan Request
	responses chan<- Response

	numFrames int
	frames    int
	pos       int
	mirrors   []mirror

	logger  *slog.Logger
	metrics metrics.StreamMetrics
}

// New creates a worker reading requests and writing responses. frames is
// the stream's block length. The decoder is assumed to be at frame 0.
func New(dec decode.Decoder, frames int, requests <-chan Request, responses chan<- Response, opts Options) *Worker {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	return &Worker{
		dec:       dec,
		requests:  requests,
		responses: responses,
		numFrames: dec.Info().NumFrames,
		frames:    frames,
		logger:    l.With("component", "diskstream-worker"),
		metrics:   opts.Metrics,
	}
}

// Run serves requests until ctx is cancelled or the request channel is
// closed. It returns ctx.Err() on cancellation and nil on close.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Debug("worker started",
		"frames", w.frames,
		"file_frames", w.numFrames)
	defer w.logger.Debug("worker stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req, ok := <-w.requests:
			if !ok {
				return nil
			}

			resp := w.Handle(req)

			select {
			case w.responses <- resp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Handle serves a single request synchronously.
func (w *Worker) Handle(req Request) Response {
	start := time.Now()

	switch req.Kind {
	case KindFillBlock:
		source, err := w.fillBlock(req.Fill)
		metrics.ObserveFill(w.metrics, metrics.FillBlock, source, start)
		return Response{Kind: req.Kind, Fill: req.Fill, Source: source, Err: err}

	case KindFillCache:
		source, err := w.fillCache(req.CacheIndex, req.Window)
		metrics.ObserveFill(w.metrics, metrics.FillCache, source, start)
		w.logger.Debug("cache filled",
			"cache", req.CacheIndex,
			"wanted_start", req.Window.WantedStart,
			"duration_ms", logger.Duration(start))
		return Response{Kind: req.Kind, CacheIndex: req.CacheIndex, Window: req.Window, Source: source, Err: err}

	default:
		w.logger.Error("unknown request kind", "kind", int(req.Kind))
		return Response{Kind: req.Kind, Fill: req.Fill, CacheIndex: req.CacheIndex, Window: req.Window}
	}
}

func (w *Worker) fillBlock(f block.Fill) (metrics.FillSource, error) {
	b := f.Block
	b.WantedStart = f.WantedStart
	b.StartFrameInFile = f.WantedStart

	if f.UseCache != block.NoCache {
		if src, ok := w.cached(f.UseCache, f.WantedStart); ok {
			b.CopySamples(src)
			return metrics.SourceCache, nil
		}
		w.logger.Debug("cache hint not usable, decoding",
			"cache", f.UseCache,
			"wanted_start", f.WantedStart)
	}

	return w.decodeInto(b, f.WantedStart)
}

func (w *Worker) fillCache(index int, win *block.Window) (metrics.FillSource, error) {
	// The window is about to be overwritten.
	w.forget(index)

	var (
		source   metrics.FillSource
		firstErr error
	)
	for i, b := range win.Blocks {
		start := win.WantedStart + i*w.frames
		b.WantedStart = start
		b.StartFrameInFile = start

		var err error
		source, err = w.decodeInto(b, start)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	w.remember(index, win, win.WantedStart)
	return source, firstErr
}

// decodeInto fills b with the frames starting at start, zero-padding past end
// of file. On decoder failure b is silent and the error is returned.
func (w *Worker) decodeInto(b *block.Block, start int) (metrics.FillSource, error) {
	if w.numFrames != decode.UnknownLength && start >= w.numFrames {
		b.ZeroFrom(0)
		return metrics.SourceSilence, nil
	}

	if start != w.pos {
		if err := w.dec.Seek(start); err != nil {
			return w.fail(b, start, err)
		}
		w.pos = start
	}

	n, err := w.dec.Decode(b)
	if err != nil && !errors.Is(err, io.EOF) {
		return w.fail(b, start, err)
	}

	w.pos = start + n
	b.ZeroFrom(n)
	if n == 0 {
		return metrics.SourceSilence, nil
	}
	return metrics.SourceDecoder, nil
}

func (w *Worker) fail(b *block.Block, start int, err error) (metrics.FillSource, error) {
	w.pos = unknownPosition
	b.ZeroFrom(0)
	metrics.RecordDecodeError(w.metrics)
	w.logger.Warn("decode failed, substituting silence",
		"wanted_start", start,
		"error", err)
	return metrics.SourceSilence, err
}

// cached returns the block of a filled cache window holding wanted.
func (w *Worker) cached(index, wanted int) (*block.Block, bool) {
	if index < 0 || index >= len(w.mirrors) {
		return nil, false
	}
	m := w.mirrors[index]
	if m.window == nil {
		return nil, false
	}

	off := wanted - m.start
	if off < 0 || off%w.frames != 0 || off/w.frames >= len(m.window.Blocks) {
		return nil, false
	}
	return m.window.Blocks[off/w.frames], true
}

func (w *Worker) remember(index int, win *block.Window, start int) {
	for len(w.mirrors) <= index {
		w.mirrors = append(w.mirrors, mirror{})
	}
	w.mirrors[index] = mirror{window: win, start: start}
}

func (w *Worker) forget(index int) {
	if index >= 0 && index < len(w.mirrors) {
		w.mirrors[index] = mirror{}
	}
}
