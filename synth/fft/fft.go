// Package fft implements an in-place radix-2 Cooley-Tukey transform.
//
// The impulse-response synthesis path depends on the exact numeric
// behavior of this algorithm, so it is kept as a small pure function
// rather than delegating to an external plan. Tests cross-check it
// against github.com/MeKo-Christian/algo-fft.
package fft

import (
	"errors"
	"math"
)

// ErrNotPowerOfTwo reports a transform length that is not a power of two.
var ErrNotPowerOfTwo = errors.New("fft: length must be a power of two")

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Transform computes the DFT of data in place.
//
// With inverse=false it computes the forward transform; with inverse=true
// the inverse transform including the 1/N scaling, so a forward/inverse
// round trip reproduces the input. The length of data must be a power of
// two.
func Transform(data []complex128, inverse bool) error {
	n := len(data)
	if !IsPowerOfTwo(n) {
		return ErrNotPowerOfTwo
	}
	if n == 1 {
		return nil
	}

	// Bit-reversal permutation.
	for i, j := 0, 0; i < n; i++ {
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
		mask := n >> 1
		for ; j&mask != 0; mask >>= 1 {
			j &^= mask
		}
		j |= mask
	}

	sign := -1.0
	if inverse {
		sign = 1.0
	}

	// Butterfly stages, doubling the sub-transform size each pass.
	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := sign * 2 * math.Pi / float64(size)
		wStep := complex(math.Cos(step), math.Sin(step))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				a := data[start+k]
				b := data[start+k+half] * w
				data[start+k] = a + b
				data[start+k+half] = a - b
				w *= wStep
			}
		}
	}

	if inverse {
		scale := complex(1/float64(n), 0)
		for i := range data {
			data[i] *= scale
		}
	}
	return nil
}
