package design

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-synth/internal/testutil"
)

const sampleRate = 48000.0

func TestBandpassUnityAtCenter(t *testing.T) {
	// Constant-peak-gain design: 0 dB at the center for any Q.
	for _, q := range []float64{0.5, 1.5, 10, 30} {
		for _, fc := range []float64{50, 800, 1000, 8000} {
			c := Bandpass(fc, q, sampleRate)
			testutil.RequireNear(t, c.MagnitudeDB(fc, sampleRate), 0, 1e-6)
		}
	}
}

func TestLowpassHighpassEdges(t *testing.T) {
	lp := Lowpass(1000, 1/math.Sqrt2, sampleRate)
	if db := lp.MagnitudeDB(100, sampleRate); math.Abs(db) > 0.1 {
		t.Fatalf("lowpass passband at 100 Hz: %v dB", db)
	}
	if db := lp.MagnitudeDB(10000, sampleRate); db > -20 {
		t.Fatalf("lowpass stopband at 10 kHz: %v dB", db)
	}

	hp := Highpass(1000, 1/math.Sqrt2, sampleRate)
	if db := hp.MagnitudeDB(10000, sampleRate); math.Abs(db) > 0.3 {
		t.Fatalf("highpass passband at 10 kHz: %v dB", db)
	}
	if db := hp.MagnitudeDB(100, sampleRate); db > -20 {
		t.Fatalf("highpass stopband at 100 Hz: %v dB", db)
	}
}

func TestInvalidInputDegradesToPassthrough(t *testing.T) {
	cases := []struct {
		name string
		freq float64
		sr   float64
	}{
		{"zero freq", 0, sampleRate},
		{"negative freq", -10, sampleRate},
		{"above nyquist", 30000, sampleRate},
		{"zero sample rate", 1000, 0},
		{"nan freq", math.NaN(), sampleRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Lowpass(tc.freq, 1, tc.sr)
			if c.B0 != 1 || c.B1 != 0 || c.A1 != 0 {
				t.Fatalf("expected passthrough, got %+v", c)
			}
		})
	}
}

func TestInvalidQFallsBack(t *testing.T) {
	want := Lowpass(1000, 1/math.Sqrt2, sampleRate)
	for _, q := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		got := Lowpass(1000, q, sampleRate)
		if got != want {
			t.Fatalf("q=%v: expected default-Q design", q)
		}
	}
}
