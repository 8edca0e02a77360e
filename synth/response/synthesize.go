package response

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/fft"
)

// minFFTSize is the smallest usable impulse length; anything shorter
// cannot hold a meaningful windowed response.
const minFFTSize = 8

// ImpulseResponse is a stereo convolution kernel derived from a curve.
// It is immutable; the convolution stage owns it until replaced.
type ImpulseResponse struct {
	Left       []float64
	Right      []float64
	SampleRate float64
}

// Len returns the kernel length in samples.
func (ir *ImpulseResponse) Len() int { return len(ir.Left) }

// Synthesize converts a frequency-response curve into a linear-phase
// impulse response of fftSize samples.
//
// The curve is sampled at fftSize/2+1 linearly spaced bins up to
// Nyquist, expanded into a conjugate-symmetric spectrum, and inverse
// transformed. The two halves of the real result are swapped so the
// impulse centers in the buffer, then a Hann window suppresses edge
// discontinuities.
//
// fftSize must be a power of two >= 8; this is a caller contract, not a
// recoverable condition.
func Synthesize(curve *Curve, fftSize int, opts ...core.Option) (*ImpulseResponse, error) {
	if curve == nil {
		return nil, ErrEmptyCurve
	}
	if !fft.IsPowerOfTwo(fftSize) || fftSize < minFFTSize {
		return nil, fmt.Errorf("synthesize size %d: %w", fftSize, fft.ErrNotPowerOfTwo)
	}
	cfg := core.ApplyOptions(opts...)

	// Sample the curve at linearly spaced bins up to Nyquist and build
	// a conjugate-symmetric spectrum so the time-domain result is real.
	spectrum := make([]complex128, fftSize)
	binWidth := cfg.SampleRate / float64(fftSize)
	for k := 0; k <= fftSize/2; k++ {
		mag := curve.Gain(float64(k) * binWidth)
		spectrum[k] = complex(mag, 0)
		if k > 0 && k < fftSize/2 {
			spectrum[fftSize-k] = complex(mag, 0)
		}
	}

	if err := fft.Transform(spectrum, true); err != nil {
		return nil, err
	}

	// Swap halves so the acausal ringing folds around a centered
	// impulse suitable for convolution.
	half := fftSize / 2
	data := make([]float64, fftSize)
	for i := 0; i < half; i++ {
		data[i] = real(spectrum[half+i])
		data[half+i] = real(spectrum[i])
	}

	vecmath.MulBlockInPlace(data, hannWindow(fftSize))

	right := make([]float64, fftSize)
	copy(right, data)

	return &ImpulseResponse{
		Left:       data,
		Right:      right,
		SampleRate: cfg.SampleRate,
	}, nil
}

// hannWindow returns symmetric Hann coefficients of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
