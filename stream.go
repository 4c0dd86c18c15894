package diskstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tphakala/go-audio-diskstream/internal/block"
	"github.com/tphakala/go-audio-diskstream/internal/metrics"
	"github.com/tphakala/go-audio-diskstream/internal/queue"
	"github.com/tphakala/go-audio-diskstream/internal/worker"
)

// ReadStream plays a file from disk into fixed-size views without blocking.
//
// Read, Seek, IsReady, Position and Info are real-time safe: they never
// block, never allocate and never log. CacheJumpPoint, SetJumpPoint,
// BlockUntilReady, Open and Close are not.
//
// A ReadStream is not safe for concurrent use. All calls must come from one
// goroutine, typically the audio callback.
type ReadStream struct {
	heap *block.Heap
	out  *block.Block
	info FileInfo
	cfg  Config

	requests  chan worker.Request
	responses chan worker.Response
	backlog   *queue.Ring[worker.Request]
	fills     []block.Fill

	pos       int
	active    bool  // heap.ReadBuffer holds frames for the current position
	heapBytes int64 // sample memory last reported to metrics
	err       error
	closed    bool

	dec    Decoder
	cancel context.CancelFunc
	done   chan struct{}

	logger  *slog.Logger
	metrics metrics.StreamMetrics
}

// Open starts streaming dec from frame 0. It allocates every block the
// stream will ever use and starts the disk worker. A nil cfg uses
// DefaultConfig. The stream takes ownership of dec and closes it on Close.
func Open(dec Decoder, cfg *Config) (*ReadStream, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := cfg.resolved()

	info := dec.Info()
	if info.Channels < 1 {
		return nil, fmt.Errorf("%w: decoder reports %d channels", ErrInvalidConfig, info.Channels)
	}

	// Every block and window is in flight at most once, so this bounds the
	// number of outstanding requests.
	capacity := c.LookaheadBlocks + c.MaxJumpPoints

	s := &ReadStream{
		heap:      block.NewHeap(info.Channels, c.BlockFrames, c.LookaheadBlocks),
		out:       block.New(info.Channels, c.BlockFrames),
		info:      info,
		cfg:       c,
		requests:  make(chan worker.Request, capacity),
		responses: make(chan worker.Response, capacity),
		backlog:   queue.NewRing[worker.Request](capacity),
		fills:     make([]block.Fill, 0, c.LookaheadBlocks),
		dec:       dec,
		done:      make(chan struct{}),
		logger:    c.Logger,
		metrics:   c.Metrics,
	}

	w := worker.New(dec, c.BlockFrames, s.requests, s.responses, worker.Options{
		Logger:  c.Logger,
		Metrics: c.Metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("disk worker stopped", "error", err)
		}
	}()

	s.sendFills(s.heap.Reanchor(0, block.NoCache, s.fills[:0]))

	s.reportHeapBytes()
	s.logger.Info("stream opened",
		"format", info.Format,
		"channels", info.Channels,
		"sample_rate", info.SampleRate,
		"frames", info.NumFrames,
		"preset", c.Preset.String(),
		"block_frames", c.BlockFrames,
		"lookahead_blocks", c.LookaheadBlocks)

	return s, nil
}

// Read returns up to frames frames from the current position and advances
// it. frames must be between 1 and BlockFrames.
//
// When the data has not arrived from disk yet, Read returns ErrNotReady and
// leaves the position unchanged; the caller decides whether to output
// silence or repeat. At the end of the file the view is short, and once the
// position reaches the end Read returns io.EOF.
//
// The view is valid until the next call on the stream.
func (s *ReadStream) Read(frames int) (ReadView, error) {
	if s.closed {
		return ReadView{}, ErrClosed
	}
	if frames < 1 || frames > s.cfg.BlockFrames {
		return ReadView{}, ErrReadSize
	}

	s.poll()

	if s.info.NumFrames != UnknownLength {
		remaining := s.info.NumFrames - s.pos
		if remaining <= 0 {
			return ReadView{}, io.EOF
		}
		frames = min(frames, remaining)
	}

	// Frames still available in the active block.
	avail := 0
	if s.active {
		avail = s.activeEnd() - s.pos
	}

	if frames > avail && !s.heap.HeadReady() {
		s.detachDangling()
		metrics.RecordUnderrun(s.metrics)
		return ReadView{}, ErrNotReady
	}

	n := 0
	if avail > 0 {
		n = min(frames, avail)
		copyFrames(s.out, 0, s.heap.ReadBuffer, s.pos-s.heap.ReadBuffer.WantedStart, n)
	}

	if n < frames {
		rot, err := s.heap.Rotate()
		if err != nil {
			// HeadReady said otherwise; nothing has been consumed yet.
			metrics.RecordUnderrun(s.metrics)
			return ReadView{}, ErrNotReady
		}
		s.active = true
		s.send(worker.Request{Kind: worker.KindFillBlock, Fill: rot.Fill})

		copyFrames(s.out, n, s.heap.ReadBuffer, 0, frames-n)
	}

	s.out.StartFrameInFile = s.pos
	s.out.WantedStart = s.pos
	s.pos += frames

	return block.NewView(s.out, frames), nil
}

// Seek moves the play position to frame. It reports whether a seek cache
// already holds the data, in which case the next Read succeeds without
// waiting for the disk.
//
// Seek never blocks. Blocks that are already buffered for the new position
// are kept; everything else is requested from the worker.
func (s *ReadStream) Seek(frame int) (cached bool, err error) {
	if s.closed {
		return false, ErrClosed
	}
	if !s.inRange(frame) {
		return false, ErrSeekOutOfRange
	}

	s.poll()

	cacheIndex, _ := s.heap.FindCache(frame)
	s.sendFills(s.heap.Reanchor(frame, cacheIndex, s.fills[:0]))

	s.pos = frame
	s.active = false

	cached = cacheIndex != block.NoCache && s.heap.HeadReady()
	metrics.RecordSeek(s.metrics, cached)
	return cached, nil
}

// CacheJumpPoint registers a seek cache at frame and starts filling it. A
// later Seek to exactly frame is served from memory. If a jump point is
// already registered at frame its index is returned.
//
// CacheJumpPoint allocates a whole lookahead window. Call it from a
// non-real-time thread, ahead of time.
func (s *ReadStream) CacheJumpPoint(frame int) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if !s.inRange(frame) {
		return 0, ErrSeekOutOfRange
	}

	if index, ok := s.heap.FindCache(frame); ok {
		return index, nil
	}
	if len(s.heap.Caches) >= s.cfg.MaxJumpPoints {
		return 0, fmt.Errorf("%w: limit is %d", ErrTooManyJumpPoints, s.cfg.MaxJumpPoints)
	}

	index, win := s.heap.AddCache(frame)
	s.send(worker.Request{Kind: worker.KindFillCache, CacheIndex: index, Window: win})

	s.reportHeapBytes()
	s.logger.Debug("jump point registered", "index", index, "frame", frame)
	return index, nil
}

// SetJumpPoint moves an existing jump point to frame and refills it.
// Blocks currently borrowed from the old cache content are read from disk.
func (s *ReadStream) SetJumpPoint(index, frame int) error {
	if s.closed {
		return ErrClosed
	}
	if !s.inRange(frame) {
		return ErrSeekOutOfRange
	}

	win, err := s.heap.RetargetCache(index, frame)
	if err != nil {
		return fmt.Errorf("%w: %d", err, index)
	}
	if win != nil {
		s.send(worker.Request{Kind: worker.KindFillCache, CacheIndex: index, Window: win})
	}

	s.detachDangling()
	s.logger.Debug("jump point moved", "index", index, "frame", frame)
	return nil
}

// JumpPoints returns the number of registered jump points.
func (s *ReadStream) JumpPoints() int {
	return len(s.heap.Caches)
}

// IsReady reports whether a Read of BlockFrames frames would return data now.
// At end of file it reports true.
func (s *ReadStream) IsReady() bool {
	if s.closed {
		return false
	}
	s.poll()
	return s.ready()
}

// BlockUntilReady waits until IsReady would return true, ctx is done or the
// worker stops. It is meant for offline rendering and for priming a stream
// before playback starts, never for the real-time thread.
func (s *ReadStream) BlockUntilReady(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}

	for {
		s.poll()
		s.detachDangling()
		if s.ready() {
			return nil
		}

		select {
		case resp := <-s.responses:
			s.handle(resp)
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		}
	}
}

// Position returns the frame the next Read starts at.
func (s *ReadStream) Position() int {
	return s.pos
}

// BlockFrames returns the resolved block length, the largest frame count a
// single Read accepts.
func (s *ReadStream) BlockFrames() int {
	return s.cfg.BlockFrames
}

// Info returns the description of the streamed file.
func (s *ReadStream) Info() FileInfo {
	return s.info
}

// Err returns the last decoder error reported by the worker, or nil. Blocks
// affected by a decoder error are played as silence.
func (s *ReadStream) Err() error {
	return s.err
}

// Close stops the worker, waits for it to exit and closes the decoder.
func (s *ReadStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.cancel()
	<-s.done
	s.backlog.Clear()

	metrics.AddHeapBytes(s.metrics, -s.heapBytes)
	s.heapBytes = 0

	s.logger.Info("stream closed", "position", s.pos)
	return s.dec.Close()
}

// reportHeapBytes publishes the change in sample memory since the last call.
func (s *ReadStream) reportHeapBytes() {
	size := s.heap.SizeBytes() + s.out.SizeBytes()
	metrics.AddHeapBytes(s.metrics, size-s.heapBytes)
	s.heapBytes = size
}

func (s *ReadStream) activeEnd() int {
	return s.heap.ReadBuffer.WantedStart + s.cfg.BlockFrames
}

func (s *ReadStream) inRange(frame int) bool {
	if frame < 0 {
		return false
	}
	return s.info.NumFrames == UnknownLength || frame <= s.info.NumFrames
}

func (s *ReadStream) ready() bool {
	want := s.cfg.BlockFrames
	if s.info.NumFrames != UnknownLength {
		want = min(want, s.info.NumFrames-s.pos)
		if want <= 0 {
			return true
		}
	}
	if s.active && s.activeEnd()-s.pos >= want {
		return true
	}
	return s.heap.HeadReady()
}

// poll drains worker responses without blocking and resubmits any requests
// that did not fit into the request channel.
func (s *ReadStream) poll() {
	for {
		select {
		case resp := <-s.responses:
			s.handle(resp)
		default:
			s.flush()
			return
		}
	}
}

func (s *ReadStream) handle(resp worker.Response) {
	if resp.Err != nil {
		s.err = resp.Err
	}

	switch resp.Kind {
	case worker.KindFillBlock:
		fill, refill, err := s.heap.Deliver(resp.Fill.Slot, resp.Fill.Block)
		if errors.Is(err, block.ErrStaleEntry) {
			metrics.RecordStaleDiscard(s.metrics)
		}
		if refill {
			s.send(worker.Request{Kind: worker.KindFillBlock, Fill: fill})
		}

	case worker.KindFillCache:
		win, err := s.heap.DeliverCache(resp.CacheIndex, resp.Window)
		if errors.Is(err, block.ErrStaleEntry) {
			metrics.RecordStaleDiscard(s.metrics)
		}
		if win != nil {
			s.send(worker.Request{Kind: worker.KindFillCache, CacheIndex: resp.CacheIndex, Window: win})
		}
	}
}

// detachDangling turns cache-backed slots whose cache moved or is still
// filling into disk reads.
func (s *ReadStream) detachDangling() {
	fills := s.heap.DetachDangling(s.fills[:0])
	if len(fills) == 0 {
		return
	}
	metrics.RecordCacheFallback(s.metrics, len(fills))
	s.sendFills(fills)
}

func (s *ReadStream) sendFills(fills []block.Fill) {
	for _, f := range fills {
		s.send(worker.Request{Kind: worker.KindFillBlock, Fill: f})
	}
}

// send queues req for the worker without blocking. Requests keep their
// order: nothing bypasses the backlog.
func (s *ReadStream) send(req worker.Request) {
	s.flush()
	if s.backlog.Len() == 0 {
		select {
		case s.requests <- req:
			return
		default:
		}
	}
	if !s.backlog.Push(req) {
		panic("diskstream: request backlog overflow")
	}
}

func (s *ReadStream) flush() {
	for {
		req, ok := s.backlog.Peek()
		if !ok {
			return
		}
		select {
		case s.requests <- req:
			s.backlog.Pop()
		default:
			return
		}
	}
}

// copyFrames copies n frames of every channel from src at srcOff to dst at dstOff.
func copyFrames(dst *block.Block, dstOff int, src *block.Block, srcOff, n int) {
	for ch := range dst.Data {
		copy(dst.Data[ch][dstOff:dstOff+n], src.Data[ch][srcOff:srcOff+n])
	}
}
