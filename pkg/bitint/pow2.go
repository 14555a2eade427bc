// SPDX-License-Identifier: MIT

/*
Package bitint provides power-of-two helpers for buffer and chunk sizing.

	chunk := bitint.NextPowerOfTwo(sampleRate / 100) // 441 -> 512
	ok := bitint.IsPowerOfTwo(framesPerBuffer)

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map to themselves: 8-1 = 0b0111 has length 3, and 1<<3 = 8.
Without the subtraction 8 would become 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Values below 1
// return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two has
// exactly one bit set, so clearing its lowest set bit with n&(n-1) leaves 0.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
