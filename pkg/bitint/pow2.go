// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used when sizing FFT
frames. The FFT kernels accept any frame length, but radix-2 lengths are
the fast path, so the analyzer uses these helpers to warn about odd sizes
and to suggest the nearest fast size.

	size := bitint.NextPowerOfTwo(1000) // 1024
	fast := bitint.IsPowerOfTwo(size)   // true

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two are preserved: for 8, bits.Len(7) is 3 and 1<<3 is 8, while
bits.Len(8) would give 4 and double the input.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
// Zero and negative sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of two <= size, or 0 when size
// is not positive.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
