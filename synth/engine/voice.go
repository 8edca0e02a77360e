package engine

import (
	"time"

	"github.com/cwbudde/algo-synth/synth/bandsynth"
	"github.com/cwbudde/algo-synth/synth/noise"
	"github.com/cwbudde/algo-synth/synth/sched"
)

// segment is one scheduled envelope activation, resolved to absolute
// sample positions on the render timeline. Segments are immutable once
// scheduled; parameter changes only affect future triggers.
type segment struct {
	startSample int64
	gain        float64
	pan         float64
	attack      time.Duration
	release     time.Duration
	linear      bool
}

func (s *segment) endSample(sampleRate float64) int64 {
	return s.startSample + int64((s.attack + s.release).Seconds()*sampleRate)
}

// voice is one independently scheduled sound generator: a noise buffer
// looped through a band synthesizer, gated by scheduled envelopes and
// panned into the stereo bus. Each voice owns its generator stack and
// releases it on deactivation.
type voice struct {
	position sched.Position
	buffer   *noise.Buffer
	band     *bandsynth.Synthesizer
	readIdx  int
	segments []segment
	scratch  []float64
	shaped   []float64
}

// fillShaped pulls n samples from the looped noise buffer and runs them
// through the band synthesizer into v.shaped.
func (v *voice) fillShaped(n int) {
	if cap(v.scratch) < n {
		v.scratch = make([]float64, n)
		v.shaped = make([]float64, n)
	}
	v.scratch = v.scratch[:n]
	v.shaped = v.shaped[:n]

	src := v.buffer.Data
	for i := 0; i < n; i++ {
		v.scratch[i] = src[v.readIdx]
		v.readIdx++
		if v.readIdx >= len(src) {
			v.readIdx = 0
		}
	}
	v.band.Process(v.shaped, v.scratch)
}

// envelopeAt evaluates the summed envelope of all scheduled segments at
// an absolute sample position, together with the pan of the most recent
// active segment. Expired segments are pruned.
func (v *voice) envelopeAt(sample int64, sampleRate float64) (gain, pan float64) {
	pan = v.position.Pan
	write := 0
	for i := range v.segments {
		seg := v.segments[i]
		if seg.endSample(sampleRate) <= sample {
			continue
		}
		v.segments[write] = seg
		write++
		if sample < seg.startSample {
			continue
		}
		t := time.Duration(float64(sample-seg.startSample) / sampleRate * float64(time.Second))
		gain += seg.gain * sched.EnvelopeGain(t, seg.attack, seg.release, !seg.linear)
		pan = seg.pan
	}
	v.segments = v.segments[:write]
	return gain, pan
}

// release drops the voice's generator stack. Safe to call repeatedly.
func (v *voice) release() {
	v.buffer = nil
	v.band = nil
	v.segments = nil
	v.scratch = nil
	v.shaped = nil
}
