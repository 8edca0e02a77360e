package sched

import (
	"math"
	"time"
)

// SweepShape selects the waveform driving continuous sweep modulation.
type SweepShape int

const (
	SweepTriangle SweepShape = iota
	SweepSquare
)

// SweepValue evaluates a sweep waveform at time t, returning a value in
// [0, 1]. rateHz is the sweep speed in cycles per second; non-positive
// rates hold the sweep at its starting point.
func SweepValue(shape SweepShape, rateHz float64, t time.Duration) float64 {
	if rateHz <= 0 || t < 0 {
		return 0
	}
	phase := math.Mod(rateHz*t.Seconds(), 1)

	switch shape {
	case SweepSquare:
		if phase < 0.5 {
			return 0
		}
		return 1
	default:
		// Triangle: up for the first half cycle, back down the second.
		if phase < 0.5 {
			return 2 * phase
		}
		return 2 - 2*phase
	}
}

// FlickerGain evaluates the square-wave on/off gate at time t.
// rateHz is the flicker speed; non-positive rates leave the gate open.
func FlickerGain(rateHz float64, t time.Duration) float64 {
	if rateHz <= 0 || t < 0 {
		return 1
	}
	if math.Mod(rateHz*t.Seconds(), 1) < 0.5 {
		return 1
	}
	return 0
}
