package capability

import "golang.org/x/exp/constraints"

// Clamp restricts v to the inclusive range [lo, hi]. Used throughout the
// profile translator and target encoders to keep normalized axis/trigger
// values within the wire range a target's report encoder expects.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize maps v, known to lie within [lo, hi], onto [-1.0, 1.0].
func Normalize[T constraints.Integer](v, lo, hi T) float64 {
	if hi == lo {
		return 0
	}
	span := float64(hi) - float64(lo)
	mid := (float64(hi) + float64(lo)) / 2
	return Clamp((float64(v)-mid)/(span/2), -1.0, 1.0)
}

// NormalizeUnsigned maps v, known to lie within [0, max], onto [0.0, 1.0].
func NormalizeUnsigned[T constraints.Integer](v, max T) float64 {
	if max == 0 {
		return 0
	}
	return Clamp(float64(v)/float64(max), 0.0, 1.0)
}
