package sched

import (
	"math"
	"time"
)

// envelopeFloor is the near-silence level exponential segments start
// from and decay to. A true zero would make the exponential undefined.
const envelopeFloor = 1e-4

// EnvelopeGain evaluates a trigger envelope at time t past the trigger:
// rise to peak 1.0 over attack, then decay toward silence over release.
// With exponential=true both segments are exponential, otherwise linear.
func EnvelopeGain(t, attack, release time.Duration, exponential bool) float64 {
	if t < 0 {
		return 0
	}
	if attack <= 0 {
		attack = time.Millisecond
	}
	if release <= 0 {
		release = time.Millisecond
	}

	if t < attack {
		frac := float64(t) / float64(attack)
		if exponential {
			return envelopeFloor * math.Pow(1/envelopeFloor, frac)
		}
		return frac
	}

	t -= attack
	if t >= release {
		return 0
	}
	frac := float64(t) / float64(release)
	if exponential {
		return math.Pow(envelopeFloor, frac)
	}
	return 1 - frac
}

// ReleaseForFrequency interpolates the release time for a voice
// frequency, linearly in log-frequency space: low voices get the long
// release, high voices the short one, so bass is not cut short while
// high bands stay click-free.
func ReleaseForFrequency(freq, minFreq, maxFreq float64, atLow, atHigh time.Duration) time.Duration {
	if atLow <= 0 || atHigh <= 0 {
		if atLow > 0 {
			return atLow
		}
		return atHigh
	}
	if minFreq <= 0 || maxFreq <= minFreq || freq <= 0 {
		return atLow
	}
	if freq <= minFreq {
		return atLow
	}
	if freq >= maxFreq {
		return atHigh
	}
	frac := (math.Log2(freq) - math.Log2(minFreq)) / (math.Log2(maxFreq) - math.Log2(minFreq))
	return atLow + time.Duration(frac*float64(atHigh-atLow))
}
