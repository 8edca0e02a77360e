// Package noise generates pink noise buffers for the synthesis chain.
package noise

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/core"
)

// defaultOutputGain is the legacy output scalar applied to the pole sum.
const defaultOutputGain = 0.11

// targetPeak is the normalization ceiling: buffers are scaled down so the
// peak magnitude never exceeds this value.
const targetPeak = 0.8

// Pole feedback and injection coefficients of the 7-pole pink
// approximation. Pole i is updated as b_i = fb_i*b_i + white*in_i; the
// last pole has no feedback and carries the previous white sample.
var (
	poleFeedback = [6]float64{0.99886, 0.99332, 0.96900, 0.86650, 0.55000, -0.7616}
	poleInject   = [6]float64{0.0555179, 0.0750759, 0.1538520, 0.3104856, 0.5329522, -0.0168980}
	directWeight = 0.5362
	lastPoleGain = 0.115926
)

// Buffer is a fixed-length block of samples at a sample rate.
// It is immutable once generated; callers may share it read-only.
type Buffer struct {
	Data       []float64
	SampleRate float64
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Data)) / b.SampleRate
}

// Generator creates pink noise buffers from a shared configuration.
type Generator struct {
	cfg        core.Config
	seed       int64
	outputGain float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets a deterministic random seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithOutputGain overrides the legacy output scalar applied to the pole
// sum. Values <= 0 are ignored.
func WithOutputGain(gain float64) Option {
	return func(g *Generator) {
		if gain > 0 {
			g.outputGain = gain
		}
	}
}

// NewGenerator creates a configured pink noise generator.
func NewGenerator(coreOpts []core.Option, opts ...Option) *Generator {
	g := &Generator{
		cfg:        core.ApplyOptions(coreOpts...),
		seed:       1,
		outputGain: defaultOutputGain,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator configuration.
func (g *Generator) Config() core.Config {
	return g.cfg
}

// Generate produces a pink noise buffer of the given duration.
func (g *Generator) Generate(durationSeconds float64) (*Buffer, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("noise duration must be > 0: %f", durationSeconds)
	}
	samples := int(durationSeconds * g.cfg.SampleRate)
	if samples < 1 {
		samples = 1
	}
	return g.GenerateN(samples)
}

// GenerateN produces a pink noise buffer with an exact sample count.
//
// The samples come from a 7-pole recursive approximation driven by
// uniform white noise in [-1, 1]. After generation the buffer is scaled
// so its peak magnitude does not exceed 0.8.
func (g *Generator) GenerateN(samples int) (*Buffer, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("noise sample rate must be > 0: %f", g.cfg.SampleRate)
	}

	rng := rand.New(rand.NewSource(g.seed))
	data := make([]float64, samples)

	var b [7]float64
	for i := range data {
		white := rng.Float64()*2 - 1
		sum := white * directWeight
		for p := 0; p < 6; p++ {
			b[p] = poleFeedback[p]*b[p] + white*poleInject[p]
			sum += b[p]
		}
		sum += b[6]
		b[6] = white * lastPoleGain
		data[i] = sum * g.outputGain
	}

	normalizePeak(data)

	return &Buffer{Data: data, SampleRate: g.cfg.SampleRate}, nil
}

// normalizePeak scales data in place so its peak magnitude is at most
// targetPeak. Buffers already below the ceiling are left untouched.
func normalizePeak(data []float64) {
	peak := 0.0
	for _, v := range data {
		av := math.Abs(v)
		if av > peak {
			peak = av
		}
	}
	if peak <= targetPeak {
		return
	}
	vecmath.ScaleBlock(data, data, targetPeak/peak)
}
