package memcodec

import "math"

// Canonical NaN bit patterns: both load and lift must canonicalize
// non-canonical NaN patterns to these exact constants, never via
// arithmetic equality.
const (
	CanonicalNaN32Bits uint32 = 0x7fc00000
	CanonicalNaN64Bits uint64 = 0x7ff8000000000000
)

// CanonicalizeF32 normalizes any NaN bit pattern to the canonical one and
// passes non-NaN values through unchanged.
func CanonicalizeF32(f float32) float32 {
	if math.IsNaN(float64(f)) {
		return math.Float32frombits(CanonicalNaN32Bits)
	}
	return f
}

// CanonicalizeF64 is CanonicalizeF32 for 64-bit floats.
func CanonicalizeF64(f float64) float64 {
	if math.IsNaN(f) {
		return math.Float64frombits(CanonicalNaN64Bits)
	}
	return f
}
