// Package fixedpoint provides saturating arithmetic on int64 fixed-point
// amounts (token smallest units). Redemption computation and the face-value
// cap must never wrap: a silent overflow could defeat the invariant that
// cumulative repayment stays bounded by face value, so every operation here
// clamps at the int64 extremes instead.
package fixedpoint

import "math"

// BasisPointsDenominator is the divisor for basis-point shares;
// 10000 bps = 100%.
const BasisPointsDenominator = 10_000

// Add returns a+b, clamped at the int64 extremes.
func Add(a, b int64) int64 {
	sum := a + b
	// Overflow only occurs when both operands share a sign and the result
	// flips it.
	if a > 0 && b > 0 && sum < 0 {
		return math.MaxInt64
	}
	if a < 0 && b < 0 && sum >= 0 {
		return math.MinInt64
	}
	return sum
}

// Mul returns a*b, clamped at the int64 extremes.
func Mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	product := a * b
	if product/b != a {
		if (a > 0) == (b > 0) {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return product
}

// Share returns value*bps/10000 with truncating integer division and
// saturating multiplication. No rounding adjustment is applied.
func Share(value int64, bps uint32) int64 {
	return Mul(value, int64(bps)) / BasisPointsDenominator
}

// Clamp bounds v to [lo, hi]. Callers guarantee lo <= hi.
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min returns the smaller of a and b.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
