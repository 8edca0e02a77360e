// Package sched schedules voice activations with sample-accurate
// timestamps, repeats, decay, holds, staggering, and cyclic sequencing.
//
// The scheduler is a control-loop state machine: Tick compares the
// injected clock against each voice's next activation and emits Trigger
// events ahead of time to a sink. It never renders audio itself.
package sched

import (
	"math"
	"time"

	"github.com/cwbudde/algo-synth/synth/core"
)

// Mode governs how voice timestamps are initialized and advanced.
type Mode int

const (
	// ModeSequential advances a single shared position pointer on a
	// fixed delay.
	ModeSequential Mode = iota
	// ModeStaggered starts every voice with its own rhythm pattern and
	// stagger offset; voices are decoupled once started.
	ModeStaggered
	// ModeSweep replaces discrete triggers with continuous
	// frequency/pan modulation.
	ModeSweep
)

// State is the lifecycle state of one voice group.
type State int

const (
	StateIdle State = iota
	StateScheduled
	StateSounding
)

// Position is one schedulable location: a frequency, a pan position,
// and the column it came from (used for stagger offsets).
type Position struct {
	Freq   float64
	Pan    float64
	Column int
}

// Trigger is one scheduled envelope activation. Within a voice,
// triggers are strictly ordered by increasing At.
type Trigger struct {
	Voice   int
	At      time.Duration
	Gain    float64
	Freq    float64
	Pan     float64
	Attack  time.Duration
	Release time.Duration
	Linear  bool
}

// Params are the scheduling controls. All values are sanitized on set;
// out-of-domain values clamp and never error.
type Params struct {
	RepeatCount         int           // triggers per position block, >= 1
	DBDecreasePerRepeat float64       // gain decay per repeat in dB, >= 0
	HoldCount           int           // re-triggers per repeat, >= 1
	StaggerDelay        time.Duration // per-column start offset
	Attack              time.Duration
	ReleaseAtLow        time.Duration // release at the low end of the range
	ReleaseAtHigh       time.Duration // release at the high end of the range
	Interval            time.Duration // base inter-trigger interval
	Speed               float64       // interval divisor, > 0
	Mode                Mode
	LinearEnvelope      bool // linear rise/decay instead of exponential

	SweepShape    SweepShape
	SweepRateHz   float64
	FlickerOn     bool
	FlickerRateHz float64

	Lookahead time.Duration // how far ahead Tick emits triggers
}

// DefaultParams returns the scheduling defaults.
func DefaultParams() Params {
	return Params{
		RepeatCount:   1,
		HoldCount:     1,
		Attack:        20 * time.Millisecond,
		ReleaseAtLow:  400 * time.Millisecond,
		ReleaseAtHigh: 80 * time.Millisecond,
		Interval:      250 * time.Millisecond,
		Speed:         1,
		SweepRateHz:   0.5,
		FlickerRateHz: 4,
		Lookahead:     100 * time.Millisecond,
	}
}

func (p Params) sanitized() Params {
	if p.RepeatCount < 1 {
		p.RepeatCount = 1
	}
	if p.HoldCount < 1 {
		p.HoldCount = 1
	}
	if p.DBDecreasePerRepeat < 0 {
		p.DBDecreasePerRepeat = 0
	}
	if p.StaggerDelay < 0 {
		p.StaggerDelay = 0
	}
	if p.Attack < 0 {
		p.Attack = 0
	}
	if p.ReleaseAtLow < 0 {
		p.ReleaseAtLow = 0
	}
	if p.ReleaseAtHigh < 0 {
		p.ReleaseAtHigh = 0
	}
	if p.Interval <= 0 {
		p.Interval = 250 * time.Millisecond
	}
	if p.Speed <= 0 || math.IsNaN(p.Speed) || math.IsInf(p.Speed, 0) {
		p.Speed = 1
	}
	if p.Lookahead <= 0 {
		p.Lookahead = 100 * time.Millisecond
	}
	return p
}

// RepeatGain returns the linear gain of repeat rep under a dB-per-repeat
// decay.
func RepeatGain(rep int, dbDecreasePerRepeat float64) float64 {
	if rep < 0 || dbDecreasePerRepeat <= 0 {
		return 1
	}
	return math.Pow(10, -float64(rep)*dbDecreasePerRepeat/20)
}

type voiceRunner struct {
	positions  []Position
	posIdx     int
	repeat     int
	hold       int
	blockStart time.Duration
	pattern    []time.Duration
	patIdx     int
	lastEnd    time.Duration // end of the last emitted envelope
	emitted    bool
}

// Scheduler activates and deactivates voices against an injected clock.
type Scheduler struct {
	cfg        core.Config
	clock      Clock
	sink       func(Trigger)
	params     Params
	voices     []*voiceRunner
	running    bool
	sweepStart time.Duration
}

// New creates a scheduler. Triggers are delivered to sink in timestamp
// order per voice; a nil sink discards them.
func New(clock Clock, sink func(Trigger), opts ...core.Option) *Scheduler {
	if sink == nil {
		sink = func(Trigger) {}
	}
	return &Scheduler{
		cfg:    core.ApplyOptions(opts...),
		clock:  clock,
		sink:   sink,
		params: DefaultParams(),
	}
}

// SetParams replaces the scheduling parameters after sanitizing.
// Already-emitted triggers are unaffected; future activations pick up
// the new values.
func (s *Scheduler) SetParams(p Params) {
	s.params = p.sanitized()
}

// Params returns the current (sanitized) parameters.
func (s *Scheduler) Params() Params { return s.params }

// Running reports whether the scheduler has been started.
func (s *Scheduler) Running() bool { return s.running }

// NumVoices returns the number of active voice runners.
func (s *Scheduler) NumVoices() int { return len(s.voices) }

// Start activates the given positions under the current mode.
//
// Sequential mode drives all positions from a single shared pointer.
// Staggered mode creates one decoupled runner per position, offset by
// column*StaggerDelay, each cycling its own rhythm pattern; patterns may
// be nil, in which case every voice falls back to the base interval.
// Sweep mode activates continuous modulation without discrete triggers.
func (s *Scheduler) Start(positions []Position, patterns [][]time.Duration) {
	now := s.clock.Now()
	s.voices = s.voices[:0]
	s.running = true
	s.sweepStart = now

	if s.params.Mode == ModeSweep || len(positions) == 0 {
		return
	}

	if s.params.Mode == ModeSequential {
		s.voices = append(s.voices, &voiceRunner{
			positions:  append([]Position(nil), positions...),
			blockStart: now,
		})
		return
	}

	for i, pos := range positions {
		var pattern []time.Duration
		if i < len(patterns) && len(patterns[i]) > 0 {
			pattern = append([]time.Duration(nil), patterns[i]...)
		}
		s.voices = append(s.voices, &voiceRunner{
			positions:  []Position{pos},
			blockStart: now + time.Duration(pos.Column)*s.params.StaggerDelay,
			pattern:    pattern,
		})
	}
}

// Stop deactivates all voices. Calling Stop on a stopped scheduler is a
// no-op; teardown races during rapid parameter changes are expected.
func (s *Scheduler) Stop() {
	s.voices = s.voices[:0]
	s.running = false
}

// Tick emits every trigger due within the lookahead horizon past now.
// It is the single control-loop suspension point: callers poll it once
// per frame or timer interval.
func (s *Scheduler) Tick(now time.Duration) {
	if !s.running {
		return
	}
	horizon := now + s.params.Lookahead
	for vi, v := range s.voices {
		for {
			next := s.nextTriggerTime(v)
			if next > horizon {
				break
			}
			s.emit(vi, v, next)
			s.advance(v)
		}
	}
}

// VoiceState reports the lifecycle state of voice vi at time now.
func (s *Scheduler) VoiceState(vi int, now time.Duration) State {
	if !s.running || vi < 0 || vi >= len(s.voices) {
		return StateIdle
	}
	v := s.voices[vi]
	if v.emitted && now < v.lastEnd {
		return StateSounding
	}
	return StateScheduled
}

// SweepValue returns the continuous sweep modulation in [0, 1] at time
// now, relative to the last Start.
func (s *Scheduler) SweepValue(now time.Duration) float64 {
	return SweepValue(s.params.SweepShape, s.params.SweepRateHz, now-s.sweepStart)
}

// Flicker returns the on/off gain gate at time now. It is 1 whenever
// flicker is disabled.
func (s *Scheduler) Flicker(now time.Duration) float64 {
	if !s.params.FlickerOn {
		return 1
	}
	return FlickerGain(s.params.FlickerRateHz, now-s.sweepStart)
}

// minStep bounds the effective trigger spacing: Interval and Speed are
// each valid on their own, but their quotient can round below the clock
// resolution, and a zero step would stall every timestamp while Tick
// keeps emitting.
const minStep = time.Millisecond

func (s *Scheduler) step() time.Duration {
	d := time.Duration(float64(s.params.Interval) / s.params.Speed)
	if d < minStep {
		d = minStep
	}
	return d
}

func (s *Scheduler) nextTriggerTime(v *voiceRunner) time.Duration {
	offset := v.repeat*s.params.HoldCount + v.hold
	return v.blockStart + time.Duration(offset)*s.step()
}

func (s *Scheduler) emit(vi int, v *voiceRunner, at time.Duration) {
	pos := v.positions[v.posIdx]
	release := ReleaseForFrequency(pos.Freq, s.cfg.MinFreq, s.cfg.MaxFreq,
		s.params.ReleaseAtLow, s.params.ReleaseAtHigh)

	s.sink(Trigger{
		Voice:   vi,
		At:      at,
		Gain:    RepeatGain(v.repeat, s.params.DBDecreasePerRepeat),
		Freq:    pos.Freq,
		Pan:     pos.Pan,
		Attack:  s.params.Attack,
		Release: release,
		Linear:  s.params.LinearEnvelope,
	})

	v.emitted = true
	if end := at + s.params.Attack + release; end > v.lastEnd {
		v.lastEnd = end
	}
}

// advance moves the runner to its next trigger slot; when the full
// repeat x hold block completes it advances to the next position.
func (s *Scheduler) advance(v *voiceRunner) {
	v.hold++
	if v.hold < s.params.HoldCount {
		return
	}
	v.hold = 0
	v.repeat++
	if v.repeat < s.params.RepeatCount {
		return
	}
	v.repeat = 0

	blockLen := time.Duration(s.params.RepeatCount*s.params.HoldCount) * s.step()
	v.posIdx = (v.posIdx + 1) % len(v.positions)

	if len(v.pattern) > 0 {
		gap := time.Duration(float64(v.pattern[v.patIdx]) / s.params.Speed)
		v.patIdx = (v.patIdx + 1) % len(v.pattern)
		if gap < blockLen {
			gap = blockLen
		}
		v.blockStart += gap
		return
	}
	v.blockStart += blockLen
}
