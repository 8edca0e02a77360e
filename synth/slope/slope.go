// Package slope reshapes a noise source to an arbitrary target spectral
// slope using a bank of parallel band filters.
package slope

import (
	"math"

	"github.com/cwbudde/algo-synth/synth/core"
)

// Profile describes a target spectral slope relative to the inherent
// slope of the source material.
type Profile struct {
	TargetDBPerOct   float64
	InherentDBPerOct float64
	RefFreq          float64
}

// NewProfile returns a profile for reshaping pink noise to the given
// target slope. Gain at the reference frequency (800 Hz) stays 0 dB.
func NewProfile(targetDBPerOct float64) Profile {
	return Profile{
		TargetDBPerOct:   targetDBPerOct,
		InherentDBPerOct: core.PinkSlopeDBPerOct,
		RefFreq:          core.RefFreq,
	}
}

// GainDB returns the correction gain in dB required at freq so the
// overall output follows the target slope.
func (p Profile) GainDB(freq float64) float64 {
	if freq <= 0 || p.RefFreq <= 0 {
		return 0
	}
	return (p.TargetDBPerOct - p.InherentDBPerOct) * math.Log2(freq/p.RefFreq)
}

// Gain returns the linear correction gain at freq.
func (p Profile) Gain(freq float64) float64 {
	return math.Pow(10, p.GainDB(freq)/20)
}
