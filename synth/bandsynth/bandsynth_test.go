package bandsynth

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-synth/internal/testutil"
	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/noise"
	"github.com/cwbudde/algo-synth/synth/slope"
)

func newTestSynth() *Synthesizer {
	shaper := slope.NewShaper(slope.NewProfile(-3), nil)
	return New(shaper)
}

func TestEdgeQMonotonicallyDecreasing(t *testing.T) {
	widths := []float64{0.1, 0.5, 1, 2, 4, 6, 8, 10}
	prev := math.Inf(1)
	for _, bw := range widths {
		q := EdgeQForBandwidth(bw)
		if q >= prev {
			t.Fatalf("bw=%v: Q %v not below previous %v", bw, q, prev)
		}
		prev = q
	}
}

func TestEdgeQClamped(t *testing.T) {
	for _, bw := range []float64{-5, 0, 0.01, 0.1, 10, 50} {
		q := EdgeQForBandwidth(bw)
		if q < 0.1 || q > 30 {
			t.Fatalf("bw=%v: Q %v outside [0.1, 30]", bw, q)
		}
	}
}

func TestEdgesSixOctavesAroundOneKilohertz(t *testing.T) {
	s := newTestSynth()
	s.SetCenterFrequency(1000)
	s.SetBandwidthOctaves(6)

	lower, upper := s.Edges()
	testutil.RequireNear(t, lower, 125, 1e-6)
	testutil.RequireNear(t, upper, 8000, 1e-6)

	topo := s.Topology()
	if !topo.HighpassActive || !topo.LowpassActive {
		t.Fatalf("both stages should be active: %+v", topo)
	}
}

func TestEdgesClampedIntoAudibleRange(t *testing.T) {
	s := newTestSynth()
	cases := []struct{ fc, bw float64 }{
		{30, 10}, {20, 0.1}, {20000, 10}, {1000, 10}, {18000, 6}, {25, 4},
	}
	for _, tc := range cases {
		s.SetCenterFrequency(tc.fc)
		s.SetBandwidthOctaves(tc.bw)
		lower, upper := s.Edges()
		if lower < 20 || lower > 20000 || upper < 20 || upper > 20000 {
			t.Fatalf("fc=%v bw=%v: edges %v/%v outside [20, 20000]", tc.fc, tc.bw, lower, upper)
		}
	}
}

func TestStageBypassOutsideAudibleRange(t *testing.T) {
	s := newTestSynth()

	// Wide band around a low center pushes the lower edge below 20 Hz:
	// the highpass stage drops out of the chain.
	s.SetCenterFrequency(100)
	s.SetBandwidthOctaves(8)
	if topo := s.Topology(); topo.HighpassActive {
		t.Fatalf("highpass should bypass: %+v", topo)
	}

	// And a high center pushes the upper edge past 20 kHz.
	s.SetCenterFrequency(15000)
	if topo := s.Topology(); topo.LowpassActive {
		t.Fatalf("lowpass should bypass: %+v", topo)
	}
}

func TestSetterIdempotenceDoesNotRewire(t *testing.T) {
	s := newTestSynth()
	s.SetCenterFrequency(1000)
	s.SetBandwidthOctaves(2)
	rewires := s.Rewires()

	for i := 0; i < 5; i++ {
		s.SetCenterFrequency(1000)
		s.SetBandwidthOctaves(2)
	}
	if s.Rewires() != rewires {
		t.Fatalf("repeated equal setters rewired the chain: %d -> %d", rewires, s.Rewires())
	}
}

func TestRetuneWithoutTopologyChangeDoesNotRewire(t *testing.T) {
	s := newTestSynth()
	s.SetCenterFrequency(1000)
	s.SetBandwidthOctaves(2)
	rewires := s.Rewires()

	// Both edges stay in range: coefficients change, topology does not.
	s.SetCenterFrequency(2000)
	if s.Rewires() != rewires {
		t.Fatal("in-range retune must not rebuild the chain")
	}
}

func TestProcessBandLimitsSpectrum(t *testing.T) {
	gen := noise.NewGenerator(nil, noise.WithSeed(9))
	buf, err := gen.GenerateN(4096)
	if err != nil {
		t.Fatal(err)
	}

	s := newTestSynth()
	s.SetCenterFrequency(1000)
	s.SetBandwidthOctaves(1)

	dst := make([]float64, len(buf.Data))
	s.Process(dst, buf.Data)
	testutil.RequireFinite(t, dst)
	if testutil.PeakAbs(dst) == 0 {
		t.Fatal("band output is silent")
	}
}

func TestCenterFrequencyClamped(t *testing.T) {
	s := newTestSynth()
	s.SetCenterFrequency(5)
	if s.CenterFrequency() != 20 {
		t.Fatalf("center %v, want clamp to 20", s.CenterFrequency())
	}
	s.SetCenterFrequency(99999)
	if s.CenterFrequency() != 20000 {
		t.Fatalf("center %v, want clamp to 20000", s.CenterFrequency())
	}
}

func TestBandwidthClamped(t *testing.T) {
	s := newTestSynth()
	s.SetBandwidthOctaves(0.001)
	if s.BandwidthOctaves() != 0.1 {
		t.Fatalf("bandwidth %v, want 0.1", s.BandwidthOctaves())
	}
	s.SetBandwidthOctaves(64)
	if s.BandwidthOctaves() != 10 {
		t.Fatalf("bandwidth %v, want 10", s.BandwidthOctaves())
	}
}

func TestCustomFrequencyRange(t *testing.T) {
	shaper := slope.NewShaper(slope.NewProfile(-3), []core.Option{
		core.WithFrequencyRange(100, 10000),
	})
	s := New(shaper, core.WithFrequencyRange(100, 10000))
	s.SetCenterFrequency(500)
	s.SetBandwidthOctaves(8)
	lower, upper := s.Edges()
	if lower < 100 || upper > 10000 {
		t.Fatalf("edges %v/%v outside configured range", lower, upper)
	}
}
