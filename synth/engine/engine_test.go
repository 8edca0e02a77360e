package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/response"
	"github.com/cwbudde/algo-synth/synth/sched"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *sched.VirtualClock) {
	t.Helper()
	clock := sched.NewVirtualClock()
	opts = append([]Option{WithClock(clock), WithSeed(7)}, opts...)
	e := New(nil, opts...)
	t.Cleanup(e.Close)
	return e, clock
}

func gridPositions(rows, cols int) []Position {
	var out []Position
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, Position{Row: r, Col: c, Rows: rows, Cols: cols})
		}
	}
	return out
}

func TestEngineStartsSuspended(t *testing.T) {
	e, _ := newTestEngine(t)
	if !e.Suspended() {
		t.Fatal("new engine must start suspended")
	}
	if err := e.SetActivePositions(gridPositions(1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); !errors.Is(err, ErrSuspended) {
		t.Fatalf("Start while suspended: %v, want ErrSuspended", err)
	}

	// The condition is retryable: Resume and the same call succeeds.
	e.Resume()
	if err := e.Start(); err != nil {
		t.Fatalf("Start after Resume: %v", err)
	}
}

func TestSuspendResumeIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Resume()
	e.Resume()
	if e.Suspended() {
		t.Fatal("double Resume left engine suspended")
	}
	e.Suspend()
	e.Suspend()
	if !e.Suspended() {
		t.Fatal("double Suspend left engine active")
	}
}

func TestSetActivePositionsBuildsVoices(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.SetActivePositions(gridPositions(3, 2)); err != nil {
		t.Fatal(err)
	}
	if e.NumVoices() != 6 {
		t.Fatalf("voices %d, want 6", e.NumVoices())
	}

	// Replacing the set rebuilds rather than accumulates.
	if err := e.SetActivePositions(gridPositions(1, 2)); err != nil {
		t.Fatal(err)
	}
	if e.NumVoices() != 2 {
		t.Fatalf("voices %d after replace, want 2", e.NumVoices())
	}
}

func TestStopIdempotentAndSilent(t *testing.T) {
	e, clock := newTestEngine(t)
	e.Resume()
	if err := e.SetActivePositions(gridPositions(2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	e.Tick()

	e.Stop()
	e.Stop()
	if e.NumVoices() != 0 {
		t.Fatalf("voices %d after Stop, want 0", e.NumVoices())
	}

	clock.Advance(time.Second)
	dst := make([]float32, 512)
	e.Render(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("sample %d nonzero after Stop: %v", i, v)
		}
	}
}

func TestRenderSilentWhileSuspended(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.SetActivePositions(gridPositions(1, 1)); err != nil {
		t.Fatal(err)
	}
	dst := make([]float32, 256)
	for i := range dst {
		dst[i] = 0.5
	}
	e.Render(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("sample %d: %v, suspended render must zero dst", i, v)
		}
	}
}

func TestRenderProducesAudioAfterTrigger(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Resume()
	p := sched.DefaultParams()
	p.Attack = 5 * time.Millisecond
	p.ReleaseAtLow = 100 * time.Millisecond
	p.ReleaseAtHigh = 100 * time.Millisecond
	p.Lookahead = 50 * time.Millisecond
	e.SetParams(p)

	if err := e.SetActivePositions(gridPositions(2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	e.Tick()

	// Render past the attack so the envelope is audible.
	frames := 2048
	dst := make([]float32, 2*frames)
	e.Render(dst)

	var peak float64
	for _, v := range dst {
		if f := math.Abs(float64(v)); f > peak {
			peak = f
		}
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatal("non-finite render output")
		}
		if f := math.Abs(float64(v)); f > float64(len(gridPositions(2, 2))) {
			t.Fatalf("sample out of range: %v", v)
		}
	}
	if peak == 0 {
		t.Fatal("no audio after a due trigger")
	}
}

func TestRenderAlignedToClockAfterLateResume(t *testing.T) {
	e, clock := newTestEngine(t)

	// The control clock has been running for a while before the render
	// path comes up; Resume must anchor the render timeline so segments
	// scheduled against clock time sound immediately instead of being
	// skewed by the startup offset.
	clock.Advance(time.Second)
	e.Resume()

	p := sched.DefaultParams()
	p.Attack = 5 * time.Millisecond
	p.ReleaseAtLow = 200 * time.Millisecond
	p.ReleaseAtHigh = 200 * time.Millisecond
	e.SetParams(p)

	if err := e.SetActivePositions(gridPositions(1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	e.Tick()

	dst := make([]float32, 4096)
	e.Render(dst)
	var peak float64
	for _, v := range dst {
		if f := math.Abs(float64(v)); f > peak {
			peak = f
		}
	}
	if peak == 0 {
		t.Fatal("trigger scheduled at clock time did not sound after late resume")
	}
}

func TestRenderStereoPanning(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Resume()
	p := sched.DefaultParams()
	p.Mode = sched.ModeStaggered
	p.Attack = time.Millisecond
	p.ReleaseAtLow = 500 * time.Millisecond
	p.ReleaseAtHigh = 500 * time.Millisecond
	e.SetParams(p)

	// One voice hard left: column 0 of 3.
	if err := e.SetActivePositions([]Position{{Row: 1, Col: 0, Rows: 3, Cols: 3}}); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	e.Tick()

	frames := 1024
	dst := make([]float32, 2*frames)
	e.Render(dst)

	var left, right float64
	for i := 0; i < frames; i++ {
		left += math.Abs(float64(dst[2*i]))
		right += math.Abs(float64(dst[2*i+1]))
	}
	if left == 0 {
		t.Fatal("hard-left voice produced no left-channel signal")
	}
	if right != 0 {
		t.Fatalf("hard-left voice leaked %v into the right channel", right)
	}
}

func TestAnalysisTapReceivesMonoBlocks(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Resume()
	if err := e.SetActivePositions(gridPositions(1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	e.Tick()

	var got []int
	e.SetAnalysisTap(func(block []float64) {
		got = append(got, len(block))
	})
	e.Render(make([]float32, 512))
	e.Render(make([]float32, 128))
	if len(got) != 2 || got[0] != 256 || got[1] != 64 {
		t.Fatalf("tap blocks %v, want [256 64]", got)
	}

	e.SetAnalysisTap(nil)
	e.Render(make([]float32, 64))
	if len(got) != 2 {
		t.Fatal("disconnected tap still called")
	}
}

func TestSetResponseCurve(t *testing.T) {
	e, _ := newTestEngine(t)
	if e.ImpulseResponse() != nil {
		t.Fatal("impulse response before any curve")
	}
	err := e.SetResponseCurve([]response.Point{
		{FreqHz: 100, GainDB: -6},
		{FreqHz: 5000, GainDB: 3},
	}, 256)
	if err != nil {
		t.Fatal(err)
	}
	ir := e.ImpulseResponse()
	if ir == nil || ir.Len() != 256 {
		t.Fatalf("impulse response %+v, want 256 taps", ir)
	}

	// Bad input leaves the previous response installed.
	if err := e.SetResponseCurve(nil, 256); err == nil {
		t.Fatal("empty curve accepted")
	}
	if e.ImpulseResponse() != ir {
		t.Fatal("failed update replaced the impulse response")
	}
}

func TestCloseIdempotent(t *testing.T) {
	clock := sched.NewVirtualClock()
	e := New(nil, WithClock(clock))
	e.Resume()
	if err := e.SetActivePositions(gridPositions(1, 1)); err != nil {
		t.Fatal(err)
	}
	e.Close()
	e.Close()

	if err := e.SetActivePositions(gridPositions(1, 1)); err != nil {
		t.Fatal(err)
	}
	if e.NumVoices() != 0 {
		t.Fatal("closed engine accepted new voices")
	}
	dst := make([]float32, 64)
	e.Render(dst)
	for _, v := range dst {
		if v != 0 {
			t.Fatal("closed engine rendered audio")
		}
	}
}

func TestSweepModeRetunesVoices(t *testing.T) {
	e, clock := newTestEngine(t)
	e.Resume()
	p := sched.DefaultParams()
	p.Mode = sched.ModeSweep
	p.SweepShape = sched.SweepTriangle
	p.SweepRateHz = 1
	e.SetParams(p)

	if err := e.SetActivePositions(gridPositions(1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	e.Tick()
	dst := make([]float32, 256)
	e.Render(dst)
	var early float64
	for _, v := range dst {
		if f := math.Abs(float64(v)); f > early {
			early = f
		}
	}
	if early == 0 {
		t.Fatal("sweep mode must sound without discrete triggers")
	}

	// Advancing a quarter cycle moves the sweep and must not panic or
	// silence the output.
	clock.Advance(250 * time.Millisecond)
	e.Tick()
	e.Render(dst)
}

func TestConfigDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	cfg := e.Config()
	if cfg.SampleRate != 48000 || cfg.MinFreq != 20 || cfg.MaxFreq != 20000 {
		t.Fatalf("defaults: %+v", cfg)
	}

	custom := New([]core.Option{core.WithSampleRate(44100)})
	defer custom.Close()
	if custom.Config().SampleRate != 44100 {
		t.Fatalf("sample rate: %v", custom.Config().SampleRate)
	}
}
