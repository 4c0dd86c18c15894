package block

import "errors"

// Memory accounting
const (
	bytesPerSample = 4 // float32
)

// NoCache marks a BlockEntry that is not backed by a seek cache.
const NoCache = -1

// Errors reported by the data model. None of them is fatal to a stream.
var (
	// ErrNotReady means the entry needed by the reader has not been filled yet.
	ErrNotReady = errors.New("block not ready")

	// ErrDanglingCache means a cache-backed entry references an empty cache
	// or a cache anchored somewhere else. The entry must be read from disk.
	ErrDanglingCache = errors.New("cache reference is dangling")

	// ErrStaleEntry means a filled block no longer matches the position its
	// entry expects. The content must be discarded and refilled.
	ErrStaleEntry = errors.New("stale block entry")

	// ErrChannelOutOfRange is a contract violation on ReadView access.
	ErrChannelOutOfRange = errors.New("channel index out of range")

	// ErrCacheIndex means a cache index does not name a registered cache.
	ErrCacheIndex = errors.New("invalid cache index")
)
