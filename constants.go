package diskstream

import "github.com/tphakala/go-audio-diskstream/internal/decode"

// Preset geometry
const (
	lowLatencyBlockFrames = 4096
	lowLatencyLookahead   = 8

	balancedBlockFrames = 16384
	balancedLookahead   = 8

	safeBlockFrames = 32768
	safeLookahead   = 16
)

// Config limits
const (
	minBlockFrames     = 64
	maxBlockFrames     = 1 << 20
	maxLookaheadBlocks = 256
	maxJumpPoints      = 64

	// DefaultMaxJumpPoints is used when Config.MaxJumpPoints is zero.
	DefaultMaxJumpPoints = 4
)

// UnknownLength is reported by FileInfo.NumFrames when a source cannot
// determine its length up front. Streams over such sources never report
// io.EOF.
const UnknownLength = decode.UnknownLength
