// Package bandsynth realizes a narrow noise band around a center
// frequency by combining a spectral shaper with a retunable
// highpass/lowpass edge pair.
package bandsynth

import (
	"math"

	"github.com/cwbudde/algo-synth/synth/biquad"
	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/design"
	"github.com/cwbudde/algo-synth/synth/slope"
)

const (
	minBandwidthOct = 0.1
	maxBandwidthOct = 10.0
	minEdgeQ        = 0.1
	maxEdgeQ        = 30.0

	defaultCenterFreq   = 1000.0
	defaultBandwidthOct = 1.0
)

// Topology reports which edge stages are currently wired into the chain.
type Topology struct {
	HighpassActive bool
	LowpassActive  bool
}

// Synthesizer shapes a source signal into a band around a center
// frequency. The chain order is fixed: shaper, then highpass, then
// lowpass; edge stages whose cutoff falls outside the audible range are
// bypassed entirely rather than parked at the range limit, so a fully
// open band costs no redundant filtering.
type Synthesizer struct {
	cfg    core.Config
	shaper *slope.Shaper

	centerFreq   float64
	bandwidthOct float64
	lowerEdge    float64
	upperEdge    float64
	edgeQ        float64

	hp       *biquad.Chain
	lp       *biquad.Chain
	topo     Topology
	rewires  int
	lastFreq float64
	lastBW   float64
}

// New creates a band synthesizer around the given shaper.
// The shaper may be shared with other consumers but its Process output
// feeds this synthesizer's edge chain.
func New(shaper *slope.Shaper, coreOpts ...core.Option) *Synthesizer {
	s := &Synthesizer{
		cfg:          core.ApplyOptions(coreOpts...),
		shaper:       shaper,
		centerFreq:   defaultCenterFreq,
		bandwidthOct: defaultBandwidthOct,
		hp:           biquad.NewChain(nil),
		lp:           biquad.NewChain(nil),
		lastFreq:     math.NaN(),
		lastBW:       math.NaN(),
	}
	s.retune()
	return s
}

// SetCenterFrequency moves the band center. Out-of-range values are
// clamped to the audible range. Calling with an unchanged value is a
// no-op: no retune and no rewire.
func (s *Synthesizer) SetCenterFrequency(fc float64) {
	fc = core.Clamp(fc, s.cfg.MinFreq, s.cfg.MaxFreq)
	if fc == s.lastFreq {
		return
	}
	s.centerFreq = fc
	s.retune()
}

// SetBandwidthOctaves changes the band width, clamped to [0.1, 10]
// octaves. Calling with an unchanged value is a no-op.
func (s *Synthesizer) SetBandwidthOctaves(bw float64) {
	bw = core.Clamp(bw, minBandwidthOct, maxBandwidthOct)
	if bw == s.lastBW {
		return
	}
	s.bandwidthOct = bw
	s.retune()
}

// Shaper returns the spectral shaper feeding the edge chain.
func (s *Synthesizer) Shaper() *slope.Shaper { return s.shaper }

// CenterFrequency returns the current band center in Hz.
func (s *Synthesizer) CenterFrequency() float64 { return s.centerFreq }

// BandwidthOctaves returns the current bandwidth in octaves.
func (s *Synthesizer) BandwidthOctaves() float64 { return s.bandwidthOct }

// Edges returns the derived lower and upper edge frequencies after
// clamping into the audible range.
func (s *Synthesizer) Edges() (lower, upper float64) {
	return s.lowerEdge, s.upperEdge
}

// EdgeQ returns the quality factor applied to both edge filters.
func (s *Synthesizer) EdgeQ() float64 { return s.edgeQ }

// Topology returns the currently active stage set.
func (s *Synthesizer) Topology() Topology { return s.topo }

// Rewires returns how many times the chain topology has been rebuilt.
// Retunes that only update coefficients do not count.
func (s *Synthesizer) Rewires() int { return s.rewires }

// EdgeQForBandwidth returns the edge filter Q for a bandwidth in
// octaves, clamped to [0.1, 30]. Q decreases monotonically as the band
// widens: a wide band wants gentle edges.
func EdgeQForBandwidth(bw float64) float64 {
	bw = core.Clamp(bw, minBandwidthOct, maxBandwidthOct)
	half := math.Pow(2, bw/2)
	q := math.Sqrt2 / (half - 1/half)
	return core.Clamp(q, minEdgeQ, maxEdgeQ)
}

// retune recomputes edges, Q, and stage activation from the current
// center/bandwidth, updating filter coefficients in place so delay-line
// state survives. The chain is rebuilt only when a stage's inclusion
// changes.
func (s *Synthesizer) retune() {
	s.lastFreq = s.centerFreq
	s.lastBW = s.bandwidthOct

	half := math.Pow(2, s.bandwidthOct/2)
	rawLower := s.centerFreq / half
	rawUpper := s.centerFreq * half

	s.lowerEdge = core.Clamp(rawLower, s.cfg.MinFreq, s.cfg.MaxFreq)
	s.upperEdge = core.Clamp(rawUpper, s.cfg.MinFreq, s.cfg.MaxFreq)
	s.edgeQ = EdgeQForBandwidth(s.bandwidthOct)

	next := Topology{
		HighpassActive: rawLower >= s.cfg.MinFreq,
		LowpassActive:  rawUpper <= s.cfg.MaxFreq,
	}
	if next != s.topo {
		s.rebuild(next)
	}

	if s.topo.HighpassActive {
		s.hp.UpdateCoefficients([]biquad.Coefficients{
			design.Highpass(s.lowerEdge, s.edgeQ, s.cfg.SampleRate),
		})
	}
	if s.topo.LowpassActive {
		s.lp.UpdateCoefficients([]biquad.Coefficients{
			design.Lowpass(s.upperEdge, s.edgeQ, s.cfg.SampleRate),
		})
	}
}

// rebuild tears down and reconstructs the edge chain for a new stage
// set, preserving the fixed stage order.
func (s *Synthesizer) rebuild(next Topology) {
	s.topo = next
	s.rewires++

	if next.HighpassActive {
		s.hp = biquad.NewChain([]biquad.Coefficients{
			design.Highpass(s.lowerEdge, s.edgeQ, s.cfg.SampleRate),
		})
	} else {
		s.hp = biquad.NewChain(nil)
	}
	if next.LowpassActive {
		s.lp = biquad.NewChain([]biquad.Coefficients{
			design.Lowpass(s.upperEdge, s.edgeQ, s.cfg.SampleRate),
		})
	} else {
		s.lp = biquad.NewChain(nil)
	}
}

// Process runs src through the shaper and the active edge stages into
// dst. dst and src must have the same length.
func (s *Synthesizer) Process(dst, src []float64) {
	if s.shaper != nil {
		s.shaper.Process(dst, src)
	} else {
		copy(dst, src)
	}
	if s.topo.HighpassActive {
		s.hp.ProcessBlock(dst)
	}
	if s.topo.LowpassActive {
		s.lp.ProcessBlock(dst)
	}
}

// Reset clears all filter state in the shaper and edge stages.
func (s *Synthesizer) Reset() {
	if s.shaper != nil {
		s.shaper.Reset()
	}
	s.hp.Reset()
	s.lp.Reset()
}
