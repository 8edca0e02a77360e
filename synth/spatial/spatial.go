// Package spatial maps normalized grid coordinates to frequency and
// stereo pan.
//
// All mappings are pure, stateless, and deterministic: frequency is
// log-scaled over the vertical axis (top = high frequency) and pan is
// linear over the columns.
package spatial

import (
	"math"

	"github.com/cwbudde/algo-synth/synth/core"
)

// FrequencyFromNormalizedY maps a normalized vertical position y in
// [0, 1] to a frequency between minFreq and maxFreq, log-scaled with
// y=0 at the top (maxFreq).
func FrequencyFromNormalizedY(y, minFreq, maxFreq float64) float64 {
	if minFreq <= 0 || maxFreq <= minFreq {
		return minFreq
	}
	y = core.Clamp(y, 0, 1)
	lo := math.Log2(minFreq)
	hi := math.Log2(maxFreq)
	return math.Pow(2, lo+(1-y)*(hi-lo))
}

// NormalizedYFromFrequency is the inverse of FrequencyFromNormalizedY,
// used by the calibration UI for hit-testing.
func NormalizedYFromFrequency(freq, minFreq, maxFreq float64) float64 {
	if minFreq <= 0 || maxFreq <= minFreq || freq <= 0 {
		return 1
	}
	lo := math.Log2(minFreq)
	hi := math.Log2(maxFreq)
	y := 1 - (math.Log2(freq)-lo)/(hi-lo)
	return core.Clamp(y, 0, 1)
}

// PanFromColumn maps column i of totalColumns to a stereo pan position
// in [-1, 1]. A single column centers at 0.
func PanFromColumn(i, totalColumns int) float64 {
	if totalColumns <= 1 {
		return 0
	}
	pan := 2*float64(i)/float64(totalColumns-1) - 1
	return core.Clamp(pan, -1, 1)
}
