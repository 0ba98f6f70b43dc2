package shard

import "math"

// AbsenceMask marks the slots of a sequence reference column (for example
// track pt) that hold no object: value <= 0 or NaN, which covers the zero
// padding of narrow columns.
func AbsenceMask(ref []float32) []bool {
	mask := make([]bool, len(ref))
	MarkAbsent(mask, ref)
	return mask
}

// MarkAbsent is AbsenceMask writing into a caller-owned mask of len(ref).
func MarkAbsent(mask []bool, ref []float32) {
	for i, v := range ref {
		mask[i] = !(v > 0)
	}
}

// MaskNaN sets every masked slot of values to NaN. values and mask share
// the same row-major [rows, width] layout.
func MaskNaN(values []float32, mask []bool) {
	nan := float32(math.NaN())
	for i := range values {
		if i < len(mask) && mask[i] {
			values[i] = nan
		}
	}
}
