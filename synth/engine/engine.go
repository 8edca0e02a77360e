// Package engine ties the synthesis and scheduling components into a
// single context object with explicit construction and teardown.
//
// The engine replaces the legacy module-level player singletons: callers
// construct one, pass it by reference, and close it when done. Control
// mutations (setters, Tick) belong to one goroutine; Render only reads
// immutable buffers and previously scheduled envelope segments.
package engine

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/cwbudde/algo-synth/synth/bandsynth"
	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/noise"
	"github.com/cwbudde/algo-synth/synth/response"
	"github.com/cwbudde/algo-synth/synth/sched"
	"github.com/cwbudde/algo-synth/synth/slope"
	"github.com/cwbudde/algo-synth/synth/spatial"
)

// ErrSuspended reports that the render path is suspended. The condition
// is retryable: call Resume and schedule again.
var ErrSuspended = errors.New("engine: render path suspended, resume before scheduling")

// Position addresses one grid point supplied by the UI layer.
type Position struct {
	Row  int
	Col  int
	Rows int
	Cols int
}

// Engine owns the voice set, the scheduler, and the output bus.
type Engine struct {
	mu sync.Mutex

	cfg   core.Config
	clock sched.Clock
	sched *sched.Scheduler

	voices     []*voice
	bandwidth  float64
	slopeDB    float64
	seedBase   int64
	masterGain float64

	ir        *response.ImpulseResponse
	tap       func(block []float64)
	renderPos int64
	suspended bool
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the control-loop clock; tests pass a VirtualClock.
func WithClock(c sched.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithSeed sets the base random seed for voice noise generators.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seedBase = seed
	}
}

// New creates an engine. The engine starts suspended, mirroring the
// autoplay-restricted state of the underlying render path; callers must
// Resume before scheduling.
func New(coreOpts []core.Option, opts ...Option) *Engine {
	e := &Engine{
		cfg:        core.ApplyOptions(coreOpts...),
		clock:      sched.NewWallClock(),
		bandwidth:  1,
		seedBase:   1,
		masterGain: 0.75,
		suspended:  true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.sched = sched.New(e.clock, e.onTrigger,
		core.WithSampleRate(e.cfg.SampleRate),
		core.WithBlockSize(e.cfg.BlockSize),
		core.WithFrequencyRange(e.cfg.MinFreq, e.cfg.MaxFreq))
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() core.Config { return e.cfg }

// Resume marks the render path active and anchors the render timeline
// to the control clock, so segments scheduled against clock time line up
// with Render's sample positions even when rendering starts late.
// Idempotent: only the suspended-to-active transition re-anchors.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suspended {
		e.renderPos = int64(e.clock.Now().Seconds() * e.cfg.SampleRate)
	}
	e.suspended = false
}

// Suspend marks the render path inactive; Render produces silence and
// scheduling calls fail with ErrSuspended until Resume. Idempotent.
func (e *Engine) Suspend() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suspended = true
}

// Suspended reports the render-path state.
func (e *Engine) Suspended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suspended
}

// SetParams forwards scheduling parameters; values are clamped, never
// rejected.
func (e *Engine) SetParams(p sched.Params) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched.SetParams(p)
}

// SetSlope retargets every voice's spectral shaper. Future output picks
// up the new slope; scheduled envelopes are untouched.
func (e *Engine) SetSlope(targetDBPerOct float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slopeDB = targetDBPerOct
	for _, v := range e.voices {
		if v.band != nil {
			v.band.Shaper().SetSlope(targetDBPerOct)
		}
	}
}

// SetBandwidthOctaves retunes every voice's band synthesizer.
func (e *Engine) SetBandwidthOctaves(bw float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bandwidth = core.Clamp(bw, 0.1, 10)
	for _, v := range e.voices {
		if v.band != nil {
			v.band.SetBandwidthOctaves(e.bandwidth)
		}
	}
}

// SetMasterGain sets the output bus gain, clamped to [0, 1].
func (e *Engine) SetMasterGain(g float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.masterGain = core.Clamp(g, 0, 1)
}

// SetAnalysisTap installs an optional per-block analysis callback fed
// with the mono downmix of each rendered block. A nil tap disconnects.
func (e *Engine) SetAnalysisTap(tap func(block []float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tap = tap
}

// SetResponseCurve synthesizes a new convolution impulse response from
// curve control points and replaces the previous one. The old response
// remains in use by the convolution stage until this call returns.
func (e *Engine) SetResponseCurve(points []response.Point, fftSize int, opts ...response.CurveOption) error {
	curve, err := response.NewCurve(points, opts...)
	if err != nil {
		return err
	}
	ir, err := response.Synthesize(curve, fftSize, core.WithSampleRate(e.cfg.SampleRate))
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ir = ir
	return nil
}

// ImpulseResponse returns the current convolution impulse response for
// the downstream EQ stage, or nil when no curve has been applied.
func (e *Engine) ImpulseResponse() *response.ImpulseResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ir
}

// SetActivePositions rebuilds the voice set for the given grid points.
// Voices for dropped positions release their generator stacks; new
// positions get a fresh noise buffer and band synthesizer.
func (e *Engine) SetActivePositions(positions []Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	for _, v := range e.voices {
		v.release()
	}
	e.voices = e.voices[:0]

	for i, p := range positions {
		v, err := e.buildVoice(i, p)
		if err != nil {
			return err
		}
		e.voices = append(e.voices, v)
	}
	return nil
}

// Start begins scheduling the active positions. It fails with
// ErrSuspended while the render path is suspended; Resume and retry.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suspended {
		return ErrSuspended
	}
	if e.closed || len(e.voices) == 0 {
		return nil
	}

	positions := make([]sched.Position, len(e.voices))
	for i, v := range e.voices {
		positions[i] = v.position
	}
	e.sched.Start(positions, nil)
	return nil
}

// Stop cancels all pending triggers, discards scheduled-but-unrendered
// envelope segments, and releases every active voice. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched.Stop()
	for _, v := range e.voices {
		v.release()
	}
	e.voices = e.voices[:0]
}

// Tick runs one control-loop step: scheduled triggers within the
// lookahead horizon become envelope segments, and sweep mode updates the
// continuous frequency/pan modulation.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.suspended {
		return
	}
	now := e.clock.Now()
	if e.sched.Params().Mode == sched.ModeSweep {
		e.tickSweep(now)
		return
	}
	e.sched.Tick(now)
}

// Render fills dst with interleaved stereo samples in [-1, 1]. A
// suspended or closed engine renders silence. Render reads only
// previously scheduled segments; it never blocks on the control loop.
func (e *Engine) Render(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	frames := len(dst) / 2
	for i := range dst {
		dst[i] = 0
	}
	if e.suspended || e.closed || frames == 0 {
		return
	}

	mono := make([]float64, frames)
	sweep := e.sched.Params().Mode == sched.ModeSweep && e.sched.Running()

	for _, v := range e.voices {
		if v.band == nil {
			continue
		}
		v.fillShaped(frames)
		for i := 0; i < frames; i++ {
			samplePos := e.renderPos + int64(i)
			t := time.Duration(float64(samplePos) / e.cfg.SampleRate * float64(time.Second))

			var gain, pan float64
			if sweep {
				gain, pan = 1, v.position.Pan
			} else {
				gain, pan = v.envelopeAt(samplePos, e.cfg.SampleRate)
				if gain == 0 {
					continue
				}
			}
			gain *= e.sched.Flicker(t) * e.masterGain

			x := v.shaped[i] * gain
			l := x * (1 - pan) / 2
			r := x * (1 + pan) / 2
			dst[2*i] += float32(core.Clamp(l, -1, 1))
			dst[2*i+1] += float32(core.Clamp(r, -1, 1))
			mono[i] += x
		}
	}
	e.renderPos += int64(frames)

	if e.tap != nil {
		e.tap(mono)
	}
}

// Close stops playback and releases all resources. Idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	alreadyClosed := e.closed
	e.closed = true
	e.mu.Unlock()
	if alreadyClosed {
		return
	}
	e.Stop()
}

// NumVoices returns the number of active voices.
func (e *Engine) NumVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// buildVoice assembles the generator stack for one grid position.
func (e *Engine) buildVoice(index int, p Position) (*voice, error) {
	y := 0.0
	if p.Rows > 1 {
		y = float64(p.Row) / float64(p.Rows-1)
	}
	freq := spatial.FrequencyFromNormalizedY(y, e.cfg.MinFreq, e.cfg.MaxFreq)
	pan := spatial.PanFromColumn(p.Col, p.Cols)

	gen := noise.NewGenerator(
		[]core.Option{
			core.WithSampleRate(e.cfg.SampleRate),
			core.WithFrequencyRange(e.cfg.MinFreq, e.cfg.MaxFreq),
		},
		noise.WithSeed(e.seedBase+int64(index)),
	)
	buf, err := gen.Generate(1.0)
	if err != nil {
		return nil, err
	}

	shaper := slope.NewShaper(slope.NewProfile(e.slopeDB), []core.Option{
		core.WithSampleRate(e.cfg.SampleRate),
		core.WithFrequencyRange(e.cfg.MinFreq, e.cfg.MaxFreq),
	})
	band := bandsynth.New(shaper,
		core.WithSampleRate(e.cfg.SampleRate),
		core.WithFrequencyRange(e.cfg.MinFreq, e.cfg.MaxFreq))
	band.SetCenterFrequency(freq)
	band.SetBandwidthOctaves(e.bandwidth)

	return &voice{
		position: sched.Position{Freq: freq, Pan: pan, Column: p.Col},
		buffer:   buf,
		band:     band,
	}, nil
}

// onTrigger converts a scheduler trigger into an envelope segment on the
// owning voice. Runs on the control-loop goroutine under the engine lock.
func (e *Engine) onTrigger(t sched.Trigger) {
	if t.Voice < 0 || t.Voice >= len(e.voices) {
		return
	}
	v := e.voices[t.Voice]
	v.segments = append(v.segments, segment{
		startSample: int64(t.At.Seconds() * e.cfg.SampleRate),
		gain:        t.Gain,
		pan:         t.Pan,
		attack:      t.Attack,
		release:     t.Release,
		linear:      t.Linear,
	})
}

// tickSweep drives frequency and pan of every voice from the continuous
// sweep waveform.
func (e *Engine) tickSweep(now time.Duration) {
	sv := e.sched.SweepValue(now)
	freq := spatial.FrequencyFromNormalizedY(1-sv, e.cfg.MinFreq, e.cfg.MaxFreq)
	pan := 2*sv - 1
	for _, v := range e.voices {
		if v.band == nil {
			continue
		}
		v.band.SetCenterFrequency(freq)
		v.position.Pan = math.Max(-1, math.Min(1, pan))
	}
}
