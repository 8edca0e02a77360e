package slope

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/biquad"
	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/design"
)

const (
	defaultBandCount = 20
	bandQ            = 1.5
)

// BandInfo describes one shaper band for inspection.
type BandInfo struct {
	CenterFreq float64
	GainDB     float64
}

type band struct {
	centerFreq float64
	filter     *biquad.Section
	gain       float64
}

// Shaper reshapes a signal to a target spectral slope using parallel
// constant-peak-gain bandpass branches at log-spaced center frequencies,
// each followed by a gain stage, summed into the output.
type Shaper struct {
	cfg     core.Config
	profile Profile
	bands   []band
	scratch []float64
}

// Option configures a Shaper.
type Option func(*shaperConfig)

type shaperConfig struct {
	bandCount int
}

// WithBandCount sets the number of parallel bands. Values < 2 are ignored.
func WithBandCount(n int) Option {
	return func(cfg *shaperConfig) {
		if n >= 2 {
			cfg.bandCount = n
		}
	}
}

// NewShaper creates a shaper for the given profile.
//
// Band centers are log-spaced across the configured frequency range.
// SetSlope later changes only the per-band gains; the filters and the
// topology are fixed for the life of the shaper.
func NewShaper(profile Profile, coreOpts []core.Option, opts ...Option) *Shaper {
	sc := shaperConfig{bandCount: defaultBandCount}
	for _, opt := range opts {
		if opt != nil {
			opt(&sc)
		}
	}

	cfg := core.ApplyOptions(coreOpts...)
	s := &Shaper{
		cfg:     cfg,
		profile: profile,
		bands:   make([]band, 0, sc.bandCount),
	}

	ratio := math.Log2(cfg.MaxFreq / cfg.MinFreq)
	for i := 0; i < sc.bandCount; i++ {
		t := float64(i) / float64(sc.bandCount-1)
		fc := cfg.MinFreq * math.Pow(2, t*ratio)
		s.bands = append(s.bands, band{
			centerFreq: fc,
			filter:     biquad.NewSection(design.Bandpass(fc, bandQ, cfg.SampleRate)),
			gain:       profile.Gain(fc),
		})
	}

	return s
}

// SetSlope retargets the shaper to a new slope. Only the band gains are
// recomputed; filter state and topology are untouched.
func (s *Shaper) SetSlope(targetDBPerOct float64) {
	s.profile.TargetDBPerOct = targetDBPerOct
	for i := range s.bands {
		s.bands[i].gain = s.profile.Gain(s.bands[i].centerFreq)
	}
}

// Profile returns the current slope profile.
func (s *Shaper) Profile() Profile { return s.profile }

// NumBands returns the number of parallel bands.
func (s *Shaper) NumBands() int { return len(s.bands) }

// Bands returns center frequency and gain for every band, ordered low
// to high.
func (s *Shaper) Bands() []BandInfo {
	out := make([]BandInfo, len(s.bands))
	for i, b := range s.bands {
		out[i] = BandInfo{
			CenterFreq: b.centerFreq,
			GainDB:     20 * math.Log10(b.gain),
		}
	}
	return out
}

// BandGain returns the linear gain applied at the given band index.
func (s *Shaper) BandGain(i int) float64 {
	return s.bands[i].gain
}

// Process filters src through all bands in parallel and sums the scaled
// branch outputs into dst. dst and src must have the same length; dst is
// overwritten.
func (s *Shaper) Process(dst, src []float64) {
	n := len(src)
	if cap(s.scratch) < n {
		s.scratch = make([]float64, n)
	}
	scratch := s.scratch[:n]

	for i := range dst {
		dst[i] = 0
	}
	for i := range s.bands {
		copy(scratch, src)
		s.bands[i].filter.ProcessBlock(scratch)
		vecmath.ScaleBlock(scratch, scratch, s.bands[i].gain)
		vecmath.AddBlockInPlace(dst, scratch)
	}
}

// Reset clears all band filter states.
func (s *Shaper) Reset() {
	for i := range s.bands {
		s.bands[i].filter.Reset()
	}
}
