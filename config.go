package diskstream

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tphakala/go-audio-diskstream/internal/block"
	"github.com/tphakala/go-audio-diskstream/internal/decode"
	"github.com/tphakala/go-audio-diskstream/internal/metrics"
)

// Config holds stream configuration.
type Config struct {
	// Preset selects block size and lookahead depth. Fields below that are
	// left at zero take the preset's value; PresetCustom requires them.
	Preset Preset

	// BlockFrames is the length of every block in frames, and the largest
	// Read a stream accepts.
	BlockFrames int

	// LookaheadBlocks is the number of prefetched blocks ahead of the
	// active block. It is also the depth of every seek cache.
	LookaheadBlocks int

	// MaxJumpPoints bounds the number of seek caches. Zero means
	// DefaultMaxJumpPoints.
	MaxJumpPoints int

	// Metrics receives stream events. May be nil.
	Metrics StreamMetrics

	// Logger is used by the worker and for lifecycle events. The real-time
	// calls never log. Nil means slog.Default().
	Logger *slog.Logger
}

// Preset enumerates predefined buffering levels, trading memory and seek
// latency against tolerance to slow storage.
type Preset int

const (
	// PresetBalanced buffers 16384 frames x 8 blocks, about 2.7 seconds at
	// 48 kHz. Suitable for local disks. This is the default.
	PresetBalanced Preset = iota

	// PresetLowLatency buffers 4096 frames x 8 blocks. Seeks and jump point
	// caches are cheap, but the stream tolerates only short I/O stalls.
	PresetLowLatency

	// PresetSafe buffers 32768 frames x 16 blocks, about 11 seconds at
	// 48 kHz. For network mounts and spinning disks.
	PresetSafe

	// PresetCustom indicates manual configuration of BlockFrames and
	// LookaheadBlocks.
	PresetCustom
)

// String returns the preset name.
func (p Preset) String() string {
	switch p {
	case PresetBalanced:
		return "balanced"
	case PresetLowLatency:
		return "low-latency"
	case PresetSafe:
		return "safe"
	case PresetCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ParsePreset converts a preset name as returned by Preset.String.
func ParsePreset(name string) (Preset, error) {
	for _, p := range []Preset{PresetBalanced, PresetLowLatency, PresetSafe, PresetCustom} {
		if p.String() == name {
			return p, nil
		}
	}
	return PresetBalanced, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
}

// PresetSpec is the buffering geometry of a preset.
type PresetSpec struct {
	BlockFrames     int
	LookaheadBlocks int
}

// GetPresetSpec returns the buffering geometry for a preset.
// PresetCustom and unknown presets return the zero spec.
func GetPresetSpec(preset Preset) PresetSpec {
	switch preset {
	case PresetBalanced:
		return PresetSpec{BlockFrames: balancedBlockFrames, LookaheadBlocks: balancedLookahead}
	case PresetLowLatency:
		return PresetSpec{BlockFrames: lowLatencyBlockFrames, LookaheadBlocks: lowLatencyLookahead}
	case PresetSafe:
		return PresetSpec{BlockFrames: safeBlockFrames, LookaheadBlocks: safeLookahead}
	default:
		return PresetSpec{}
	}
}

// Common errors returned by streams.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid stream configuration")

	// ErrNotReady means the data for the current position has not been read
	// from disk yet. The position is unchanged; retry on a later cycle.
	ErrNotReady = block.ErrNotReady

	// ErrClosed indicates the stream has been closed.
	ErrClosed = errors.New("stream closed")

	// ErrSeekOutOfRange indicates a seek or jump point target outside the file.
	ErrSeekOutOfRange = errors.New("position out of range")

	// ErrReadSize indicates a Read of zero frames or more than BlockFrames.
	ErrReadSize = errors.New("read size out of range")

	// ErrTooManyJumpPoints indicates MaxJumpPoints caches are registered.
	ErrTooManyJumpPoints = errors.New("too many jump points")

	// ErrJumpPointIndex indicates an index that names no jump point.
	ErrJumpPointIndex = block.ErrCacheIndex

	// ErrChannelOutOfRange is returned by ReadView.ReadChannel.
	ErrChannelOutOfRange = block.ErrChannelOutOfRange
)

// DefaultConfig returns the configuration used when Open is given nil.
func DefaultConfig() *Config {
	spec := GetPresetSpec(PresetBalanced)
	return &Config{
		Preset:          PresetBalanced,
		BlockFrames:     spec.BlockFrames,
		LookaheadBlocks: spec.LookaheadBlocks,
		MaxJumpPoints:   DefaultMaxJumpPoints,
	}
}

// resolved returns a copy of c with preset and default values filled in.
func (c *Config) resolved() Config {
	out := *c
	if out.Preset != PresetCustom {
		spec := GetPresetSpec(out.Preset)
		if out.BlockFrames == 0 {
			out.BlockFrames = spec.BlockFrames
		}
		if out.LookaheadBlocks == 0 {
			out.LookaheadBlocks = spec.LookaheadBlocks
		}
	}
	if out.MaxJumpPoints == 0 {
		out.MaxJumpPoints = DefaultMaxJumpPoints
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Validate checks if the configuration is valid once preset values are
// applied.
func (c *Config) Validate() error {
	r := c.resolved()

	if r.Preset < PresetBalanced || r.Preset > PresetCustom {
		return fmt.Errorf("%w: unknown preset %d", ErrInvalidConfig, int(r.Preset))
	}

	if r.BlockFrames < minBlockFrames || r.BlockFrames > maxBlockFrames {
		return fmt.Errorf("%w: block frames must be %d-%d", ErrInvalidConfig, minBlockFrames, maxBlockFrames)
	}

	if r.LookaheadBlocks < 1 || r.LookaheadBlocks > maxLookaheadBlocks {
		return fmt.Errorf("%w: lookahead blocks must be 1-%d", ErrInvalidConfig, maxLookaheadBlocks)
	}

	if r.MaxJumpPoints < 0 || r.MaxJumpPoints > maxJumpPoints {
		return fmt.Errorf("%w: max jump points must be 0-%d", ErrInvalidConfig, maxJumpPoints)
	}

	return nil
}

// Type aliases so callers outside this module can implement decoders and
// metrics sinks.
type (
	// Decoder is a positionable source of planar float32 samples.
	Decoder = decode.Decoder

	// FileInfo describes an opened source.
	FileInfo = decode.FileInfo

	// Block is the storage a Decoder writes into.
	Block = block.Block

	// ReadView is the borrowed result of a Read.
	ReadView = block.View

	// StreamMetrics receives stream events.
	StreamMetrics = metrics.StreamMetrics

	// FillKind labels what a worker fill produced.
	FillKind = metrics.FillKind

	// FillSource labels where a fill's samples came from.
	FillSource = metrics.FillSource
)
