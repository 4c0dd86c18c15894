// Package metrics defines the observability hooks of a disk stream.
//
// Every helper accepts a nil StreamMetrics and does nothing, so streams
// opened without metrics pay a single nil check per event.
package metrics

import "time"

// FillKind labels what a worker fill produced.
type FillKind string

const (
	// FillBlock is a single prefetch block.
	FillBlock FillKind = "block"

	// FillCache is a whole seek cache window.
	FillCache FillKind = "cache"
)

// FillSource labels where a fill's samples came from.
type FillSource string

const (
	// SourceDecoder means the samples were decoded from the file.
	SourceDecoder FillSource = "decoder"

	// SourceCache means the samples were copied from a seek cache.
	SourceCache FillSource = "cache"

	// SourceSilence means the request lay past end of file or the decoder
	// failed, and the block was zero-filled.
	SourceSilence FillSource = "silence"
)

// StreamMetrics receives stream events. Implementations must be safe for
// concurrent use: the reader and the worker report from different goroutines.
//
// The Record methods are called on the real-time read path and must not
// block or allocate.
type StreamMetrics interface {
	// RecordUnderrun is called when Read finds its block not yet filled.
	RecordUnderrun()

	// RecordStaleDiscard is called when a filled block or window no longer
	// matches what its entry wants and is refilled.
	RecordStaleDiscard()

	// RecordCacheFallback is called when a cache-backed entry has to be read
	// from disk because its cache moved or is still empty.
	RecordCacheFallback()

	// RecordSeek is called for every seek; cached is true when the target
	// was served from a seek cache without I/O.
	RecordSeek(cached bool)

	// ObserveFill records one completed worker fill.
	ObserveFill(kind FillKind, source FillSource, duration time.Duration)

	// RecordDecodeError is called by the worker when the decoder fails.
	RecordDecodeError()

	// AddHeapBytes adjusts the sample memory held by all streams sharing
	// the sink. Streams add on open and when they grow, and subtract on close.
	AddHeapBytes(delta int64)
}

// RecordUnderrun reports a read that found no data.
func RecordUnderrun(m StreamMetrics) {
	if m != nil {
		m.RecordUnderrun()
	}
}

// RecordStaleDiscard reports a stale delivery.
func RecordStaleDiscard(m StreamMetrics) {
	if m != nil {
		m.RecordStaleDiscard()
	}
}

// RecordCacheFallback reports a dangling cache reference read from disk.
func RecordCacheFallback(m StreamMetrics, n int) {
	if m != nil {
		for range n {
			m.RecordCacheFallback()
		}
	}
}

// RecordSeek reports a seek.
func RecordSeek(m StreamMetrics, cached bool) {
	if m != nil {
		m.RecordSeek(cached)
	}
}

// ObserveFill reports a completed worker fill that started at start.
//
// Example usage:
//
//	start := time.Now()
//	source := w.fillBlock(req)
//	metrics.ObserveFill(w.metrics, metrics.FillBlock, source, start)
func ObserveFill(m StreamMetrics, kind FillKind, source FillSource, start time.Time) {
	if m != nil {
		m.ObserveFill(kind, source, time.Since(start))
	}
}

// RecordDecodeError reports a decoder failure.
func RecordDecodeError(m StreamMetrics) {
	if m != nil {
		m.RecordDecodeError()
	}
}

// AddHeapBytes reports a change in a stream's sample memory.
func AddHeapBytes(m StreamMetrics, delta int64) {
	if m != nil && delta != 0 {
		m.AddHeapBytes(delta)
	}
}
