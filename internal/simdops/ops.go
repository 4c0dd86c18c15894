// Package simdops exposes the SIMD-accelerated float32 kernels used on the
// streaming paths: PCM normalisation in the decoders and interleaving in the
// read view.
//
// With Profile-Guided Optimization (Go 1.22+), function pointer calls in hot
// paths can be devirtualized and inlined, achieving near-zero overhead.
package simdops

import (
	"github.com/tphakala/simd/f32"
)

// Ops provides SIMD-accelerated float32 operations.
type Ops struct {
	// Scale multiplies each element by scalar s: dst[i] = a[i] * s
	Scale func(dst, a []float32, s float32)

	// Interleave2 interleaves two slices: dst[0]=a[0], dst[1]=b[0], dst[2]=a[1], ...
	// dst must hold at least 2*len(a) elements.
	Interleave2 func(dst, a, b []float32)
}

// Pre-instantiated operations, shared by every stream.
var ops32 = Ops{
	Scale:       f32.Scale,
	Interleave2: f32.Interleave2,
}

// Float32 returns the float32 SIMD operations.
func Float32() *Ops {
	return &ops32
}
