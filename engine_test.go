package grainfield

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithLogger(quietLogger()), WithBlockSize(64)}, opts...)
	e, err := NewEngine(48000, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

// unityGrain is a single rectangular grain of length frames over a buffer of
// ones.
func unityGrain(t *testing.T, e *Engine, length int) *Source {
	t.Helper()
	data := make([]float32, 512)
	for i := range data {
		data[i] = 1
	}
	buf, err := NewMonoBuffer(data)
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	src, err := e.NewFixedHopSource(buf, FixedHopParams{
		TimeHop: length, GrainLength: length, Count: 1, Pitch: 1, Gain: 1, Window: Rectangular,
	})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	return src
}

func instant(pan float64, looping bool) VoiceParams {
	return VoiceParams{Envelope: InstantEnvelope(), Gain: 1, Pan: pan, Looping: looping}
}

func render(e *Engine, frames int) ([]float32, []float32) {
	l := make([]float32, frames)
	r := make([]float32, frames)
	e.RenderBlock(l, r)
	return l, r
}

func near(a float32, b float64) bool { return math.Abs(float64(a)-b) < 1e-5 }

func TestSingleGrainEndToEnd(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.ScheduleVoiceStart(unityGrain(t, e, 100), instant(0, false), 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	l, r := render(e, 160)
	for i := 0; i < 100; i++ {
		if !near(l[i], math.Cos(math.Pi/4)) || !near(r[i], math.Sin(math.Pi/4)) {
			t.Fatalf("frame %d = %f/%f", i, l[i], r[i])
		}
	}
	for i := 100; i < 160; i++ {
		if l[i] != 0 || r[i] != 0 {
			t.Fatalf("frame %d after grain = %f/%f", i, l[i], r[i])
		}
	}
	if got := e.CurrentSampleTime(); got != 160 {
		t.Fatalf("sample time = %d, want 160", got)
	}
	if st := e.Stats(); st.Started != 1 || st.ActiveVoices != 0 || st.Pending != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestVoiceStartsOnExactSample(t *testing.T) {
	for _, at := range []int64{0, 37, 63, 64, 100, 255} {
		e := newTestEngine(t)
		if _, err := e.ScheduleVoiceStart(unityGrain(t, e, 50), instant(-1, false), at); err != nil {
			t.Fatalf("schedule: %v", err)
		}
		l, _ := render(e, 400)
		for i := range l {
			on := int64(i) >= at && int64(i) < at+50
			if (l[i] != 0) != on {
				t.Fatalf("at=%d: frame %d = %f", at, i, l[i])
			}
		}
	}
}

func TestScheduleAfterIsRelativeToNow(t *testing.T) {
	e := newTestEngine(t)
	render(e, 256)
	if _, err := e.ScheduleVoiceStartAfter(unityGrain(t, e, 20), instant(-1, false), 10); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	l, _ := render(e, 64)
	if l[9] != 0 || l[10] == 0 || l[29] == 0 || l[30] != 0 {
		t.Fatalf("relative start misplaced: %v", l[:32])
	}
	if _, err := e.ScheduleVoiceStartAfter(unityGrain(t, e, 20), instant(0, false), -1); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("negative delay: %v", err)
	}
}

func TestGateReleasesAtEnd(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.ScheduleVoiceGate(unityGrain(t, e, 40), instant(-1, true), 10, 150); err != nil {
		t.Fatalf("gate: %v", err)
	}
	ch := e.Watch()
	l, _ := render(e, 256)
	for i := range l {
		on := i >= 10 && i < 150
		if (l[i] != 0) != on {
			t.Fatalf("frame %d = %f", i, l[i])
		}
	}
	kinds := drain(ch)
	if len(kinds) != 2 || kinds[0] != EventVoiceStarted || kinds[1] != EventVoiceReleased {
		t.Fatalf("events = %v", kinds)
	}
	if st := e.Stats(); st.ActiveVoices != 0 || st.Pending != 0 {
		t.Fatalf("stats after gate = %+v", st)
	}
}

func drain(ch <-chan Event) []EventKind {
	var kinds []EventKind
	for {
		select {
		case ev := <-ch:
			kinds = append(kinds, ev.Kind)
		default:
			return kinds
		}
	}
}

func TestLatePolicies(t *testing.T) {
	drop := newTestEngine(t)
	ch := drop.Watch()
	render(drop, 512)
	if _, err := drop.ScheduleVoiceStart(unityGrain(t, drop, 20), instant(0, false), 100); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	l, _ := render(drop, 64)
	if l[0] != 0 || drop.Stats().LateDropped != 1 {
		t.Fatalf("late event played: %f, dropped %d", l[0], drop.Stats().LateDropped)
	}
	if kinds := drain(ch); len(kinds) != 1 || kinds[0] != EventLateDropped {
		t.Fatalf("events = %v", kinds)
	}

	clamp := newTestEngine(t, WithLatePolicy(LateClamp))
	render(clamp, 512)
	clamp.ScheduleVoiceStart(unityGrain(t, clamp, 20), instant(-1, false), 100)
	l, _ = render(clamp, 64)
	if l[0] == 0 || l[19] == 0 || l[20] != 0 {
		t.Fatalf("clamped event should play from offset 0: %v", l[:24])
	}
}

func TestLateGateKeepsItsRelease(t *testing.T) {
	e := newTestEngine(t)
	ch := e.Watch()
	render(e, 128)
	if _, err := e.ScheduleVoiceGate(unityGrain(t, e, 40), instant(-1, true), 100, 150); err != nil {
		t.Fatalf("gate: %v", err)
	}
	l, _ := render(e, 64)
	for i := range l {
		if l[i] != 0 {
			t.Fatalf("late gate sounded at %d: %f", i, l[i])
		}
	}
	st := e.Stats()
	if st.LateDropped != 1 || st.Started != 0 || st.Pending != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if kinds := drain(ch); len(kinds) != 1 || kinds[0] != EventLateDropped {
		t.Fatalf("events = %v", kinds)
	}
}

func TestStealingReportsEvictions(t *testing.T) {
	e := newTestEngine(t, WithMaxVoices(2))
	ch := e.Watch()
	src := unityGrain(t, e, 100)
	var tickets []Ticket
	for i := 0; i < 3; i++ {
		tk, err := e.ScheduleVoiceStart(src, instant(0, true), int64(i))
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		tickets = append(tickets, tk)
	}
	render(e, 64)
	st := e.Stats()
	if st.Started != 3 || st.Stolen != 1 || st.ActiveVoices != 2 {
		t.Fatalf("stats = %+v", st)
	}
	var stolen *Event
	for _, ev := range collect(ch) {
		if ev.Kind == EventVoiceStolen {
			stolen = &ev
		}
	}
	if stolen == nil || stolen.Ticket != tickets[2] || stolen.VoiceID != 1 || stolen.At != 2 {
		t.Fatalf("steal event = %+v", stolen)
	}
}

func collect(ch <-chan Event) []Event {
	var evs []Event
	for {
		select {
		case ev := <-ch:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func TestSharedSourceIsClonedPerVoice(t *testing.T) {
	e := newTestEngine(t)
	src := unityGrain(t, e, 100)
	p := instant(-1, false)
	p.Gain = 0.5
	e.ScheduleVoiceStart(src, p, 0)
	e.ScheduleVoiceStart(src, p, 50)
	l, _ := render(e, 200)
	if !near(l[10], 0.5) || !near(l[60], 1) || !near(l[120], 0.5) || l[160] != 0 {
		t.Fatalf("overlapping voices = %f %f %f %f", l[10], l[60], l[120], l[160])
	}
}

func TestWindowOverride(t *testing.T) {
	e := newTestEngine(t)
	p := instant(-1, false)
	p.Window = &WindowOverride{Shape: Rectangular, Length: 10}
	if _, err := e.ScheduleVoiceStart(unityGrain(t, e, 100), p, 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	l, _ := render(e, 64)
	if l[9] == 0 || l[10] != 0 {
		t.Fatalf("override ignored: %v", l[:12])
	}
	p.Window = &WindowOverride{Shape: WindowShape(99)}
	if _, err := e.ScheduleVoiceStart(unityGrain(t, e, 100), p, 0); err == nil {
		t.Fatalf("expected error for unknown window")
	}
}

func TestScheduleValidation(t *testing.T) {
	e := newTestEngine(t)
	src := unityGrain(t, e, 10)
	bad := instant(0, false)
	bad.Envelope.AttackSec = -1
	for name, tc := range map[string]struct {
		src *Source
		p   VoiceParams
		err error
	}{
		"nil source": {nil, instant(0, false), ErrNilSource},
		"pan":        {src, VoiceParams{Envelope: InstantEnvelope(), Gain: 1, Pan: 1.5}, ErrInvalidParams},
		"gain":       {src, VoiceParams{Envelope: InstantEnvelope(), Gain: math.Inf(1)}, ErrInvalidParams},
	} {
		if _, err := e.ScheduleVoiceStart(tc.src, tc.p, 0); !errors.Is(err, tc.err) {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
	if _, err := e.ScheduleVoiceStart(src, bad, 0); err == nil {
		t.Fatalf("bad envelope accepted")
	}
	if _, err := e.ScheduleVoiceStart(src, instant(0, false), -5); !errors.Is(err, ErrNegativeTime) {
		t.Fatalf("negative time: %v", err)
	}
	if _, err := e.ScheduleVoiceGate(src, instant(0, false), 10, 10); !errors.Is(err, ErrEmptySpan) {
		t.Fatalf("empty gate: %v", err)
	}
	if e.Stats().Pending != 0 {
		t.Fatalf("rejected requests queued")
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("sample rate: %v", err)
	}
	if _, err := NewEngine(48000, WithLogger(quietLogger()), WithBlockSize(0)); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("block size: %v", err)
	}
	if _, err := NewEngine(48000, WithLogger(quietLogger()), WithMaxVoices(0)); err == nil {
		t.Fatalf("zero voices accepted")
	}
}

func TestMasterGainRuntimeAPI(t *testing.T) {
	e := newTestEngine(t)
	if got := e.MasterGain(); got != 1 {
		t.Fatalf("default master gain = %v, want 1", got)
	}
	e.SetMasterGain(0.5)
	e.ScheduleVoiceStart(unityGrain(t, e, 100), instant(-1, false), 0)
	l, _ := render(e, 10)
	if !near(l[5], 0.5) {
		t.Fatalf("scaled output = %f", l[5])
	}
	e.SetMasterGain(-2)
	if got := e.MasterGain(); got != 0 {
		t.Fatalf("master gain should clamp to 0, got %v", got)
	}
}

func TestOutputClampedAndLimited(t *testing.T) {
	loud := newTestEngine(t)
	lim := newTestEngine(t, WithLimiter(LimiterParams{CeilingDB: -6, ReleaseMs: 50}))
	for _, e := range []*Engine{loud, lim} {
		src := unityGrain(t, e, 200)
		for i := 0; i < 8; i++ {
			e.ScheduleVoiceStart(src, instant(-1, true), 0)
		}
	}
	l, _ := render(loud, 128)
	if l[50] != 1 {
		t.Fatalf("unlimited sum should hit the clamp: %f", l[50])
	}
	l, _ = render(lim, 128)
	if l[50] > 0.502 {
		t.Fatalf("limited output %f over ceiling", l[50])
	}
}

func TestProcessMatchesRenderBlock(t *testing.T) {
	a := newTestEngine(t)
	b := newTestEngine(t)
	for _, e := range []*Engine{a, b} {
		src := unityGrain(t, e, 90)
		e.ScheduleVoiceStart(src, instant(0.3, true), 5)
		e.ScheduleVoiceGate(src, VoiceParams{Envelope: DefaultEnvelope(), Gain: 0.5, Pan: -0.6}, 70, 300)
	}
	l, r := render(a, 500)
	inter := make([]float32, 1000)
	b.Process(inter)
	for i := range l {
		if inter[2*i] != l[i] || inter[2*i+1] != r[i] {
			t.Fatalf("frame %d differs: %f/%f vs %f/%f", i, inter[2*i], inter[2*i+1], l[i], r[i])
		}
	}
}

func TestResetRewinds(t *testing.T) {
	e := newTestEngine(t)
	e.ScheduleVoiceStart(unityGrain(t, e, 100), instant(0, true), 0)
	e.ScheduleVoiceStart(unityGrain(t, e, 100), instant(0, true), 5000)
	render(e, 64)
	if err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	l, _ := render(e, 64)
	if e.CurrentSampleTime() != 64 || l[0] != 0 || e.Stats().Pending != 0 {
		t.Fatalf("reset left state behind: now=%d out=%f stats=%+v", e.CurrentSampleTime(), l[0], e.Stats())
	}
}

func TestRenderBlockDoesNotAllocate(t *testing.T) {
	e := newTestEngine(t, WithMaxVoices(8), WithSmoothSteal(32), WithReverb(DefaultReverbParams()))
	src := unityGrain(t, e, 100)
	for i := 0; i < 16; i++ {
		e.ScheduleVoiceStart(src, instant(0, true), int64(i*10))
	}
	l := make([]float32, 256)
	r := make([]float32, 256)
	e.RenderBlock(l, r)
	allocs := testing.AllocsPerRun(50, func() {
		e.RenderBlock(l, r)
	})
	if allocs != 0 {
		t.Fatalf("allocs = %f", allocs)
	}
}

func TestAutoPanOption(t *testing.T) {
	e := newTestEngine(t, WithAutoPan(AutoPanParams{RateHz: 1, Depth: 1, Shape: LFOSquare}))
	e.ScheduleVoiceStart(unityGrain(t, e, 100), instant(0, false), 0)
	l, r := render(e, 64)
	if l[10] > 1e-6 || r[10] < 0.99 {
		t.Fatalf("auto-pan should push the center voice right: %f/%f", l[10], r[10])
	}
}
