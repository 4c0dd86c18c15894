// Package diskstream streams audio files from disk to a real-time consumer
// without ever blocking it.
//
// A background worker goroutine decodes fixed-size blocks ahead of the play
// position. The consumer, typically an audio callback, reads from blocks
// that are already in memory; when the disk falls behind it gets
// [ErrNotReady] instead of a stall.
//
// # Features
//
//   - Non-blocking, allocation-free Read and Seek
//   - Configurable lookahead via presets ([PresetLowLatency], [PresetBalanced],
//     [PresetSafe]) or custom geometry
//   - Seek caches ("jump points") that make seeks to known positions instant,
//     for loops and cue points
//   - WAV (8/16/24/32-bit PCM) and MP3 decoding, or any custom [Decoder]
//   - Optional Prometheus metrics and structured logging via log/slog
//
// # Quick Start
//
//	s, err := diskstream.OpenFile("take1.wav", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	// Before playback, from a normal goroutine
//	if err := s.BlockUntilReady(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// In the audio callback
//	view, err := s.Read(framesPerCallback)
//	switch {
//	case errors.Is(err, diskstream.ErrNotReady):
//	    // output silence, try again next cycle
//	case errors.Is(err, io.EOF):
//	    // playback finished
//	case err == nil:
//	    left, _ := view.ReadChannel(0)
//	    // ...
//	}
//
// # Jump Points
//
// A jump point is a seek cache: a full lookahead window decoded at a fixed
// position and kept in memory. Register them ahead of time with
// [ReadStream.CacheJumpPoint]; a later [ReadStream.Seek] to exactly that
// frame reports cached=true and the next Read succeeds immediately.
//
//	loopStart, _ := s.CacheJumpPoint(48000 * 4)
//	// ...
//	s.Seek(48000 * 4) // served from memory
//	_ = loopStart
//
// # Memory
//
// All sample memory is allocated when the stream is opened:
// (1 + LookaheadBlocks) blocks for playback, one output block, and
// LookaheadBlocks blocks per jump point. Blocks move between the consumer
// and the worker by ownership transfer over channels; nothing is copied
// except into the output block and out of seek caches.
//
// # Thread Safety
//
// A [ReadStream] must be used from a single goroutine. The worker is
// internal and never touches memory the consumer currently owns.
package diskstream
