package voice

import (
	"math"
	"testing"

	"github.com/cbegin/grainfield-go/internal/envelope"
	"github.com/cbegin/grainfield-go/internal/grain"
	"github.com/cbegin/grainfield-go/internal/window"
)

func unitySource(t *testing.T, value float32, grainLen int) *grain.Source {
	t.Helper()
	data := make([]float32, 256)
	for i := range data {
		data[i] = value
	}
	buf, err := grain.NewMonoBuffer(data)
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	src, err := grain.NewFixedHop(window.NewCache(), buf, grain.FixedHopParams{
		TimeHop:     grainLen,
		GrainLength: grainLen,
		Count:       1,
		Pitch:       1,
		Gain:        1,
		Window:      window.Rectangular,
	})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	return src
}

func TestSingleGrainEndToEnd(t *testing.T) {
	v := New(64, 48000)
	v.Activate(1, unitySource(t, 1, 100), envelope.Instant(), 1, 0, false)
	wantL := float32(math.Cos(math.Pi / 4))
	wantR := float32(math.Sin(math.Pi / 4))
	for i := 0; i < 100; i++ {
		l, r := v.PullFrame()
		if math.Abs(float64(l-wantL)) > 1e-6 || math.Abs(float64(r-wantR)) > 1e-6 {
			t.Fatalf("frame %d = %f/%f, want %f/%f", i, l, r, wantL, wantR)
		}
	}
	if v.State() != StateActive {
		t.Fatalf("state after grain = %v, want active", v.State())
	}
	l, r := v.PullFrame()
	if l != 0 || r != 0 || v.State() != StateFinished {
		t.Fatalf("exhausted source: frame %f/%f, state %v", l, r, v.State())
	}
	if !v.Available() {
		t.Fatalf("finished voice should be available")
	}
}

func TestLoopingReseedsSource(t *testing.T) {
	v := New(64, 48000)
	v.Activate(7, unitySource(t, 1, 100), envelope.Instant(), 1, -1, true)
	for i := 0; i < 1000; i++ {
		l, r := v.PullFrame()
		if math.Abs(float64(l-1)) > 1e-6 || r > 1e-6 {
			t.Fatalf("frame %d = %f/%f, want 1/0", i, l, r)
		}
	}
	if v.State() != StateActive || v.ID() != 7 {
		t.Fatalf("looping voice state %v id %d", v.State(), v.ID())
	}
}

func TestReleaseFinishesAfterEnvelope(t *testing.T) {
	v := New(16, 1000)
	v.Activate(1, unitySource(t, 1, 50), envelope.Params{SustainLvl: 1, ReleaseSec: 0.01}, 1, 1, true)
	for i := 0; i < 20; i++ {
		v.PullFrame()
	}
	v.Release()
	if v.State() != StateReleasing {
		t.Fatalf("state = %v, want releasing", v.State())
	}
	prev := float32(2)
	for i := 0; i < 12 && v.State() == StateReleasing; i++ {
		_, r := v.PullFrame()
		if r > prev {
			t.Fatalf("release not decaying: %f after %f", r, prev)
		}
		prev = r
	}
	if v.State() != StateFinished {
		t.Fatalf("state = %v after release time, want finished", v.State())
	}
	if l, r := v.PullFrame(); l != 0 || r != 0 {
		t.Fatalf("finished voice produced %f/%f", l, r)
	}
}

func TestReleaseIgnoredUnlessActive(t *testing.T) {
	v := New(16, 1000)
	v.Release()
	if v.State() != StateIdle {
		t.Fatalf("idle voice changed state on release: %v", v.State())
	}
	if l, r := v.PullFrame(); l != 0 || r != 0 {
		t.Fatalf("idle voice produced %f/%f", l, r)
	}
}

func TestStopIsImmediate(t *testing.T) {
	v := New(16, 1000)
	v.Activate(3, unitySource(t, 1, 50), envelope.DefaultParams(), 1, 0, true)
	for i := 0; i < 10; i++ {
		v.PullFrame()
	}
	v.Stop()
	if v.State() != StateFinished || v.Sounding() {
		t.Fatalf("stopped voice state %v sounding %v", v.State(), v.Sounding())
	}
	if l, r := v.PullFrame(); l != 0 || r != 0 {
		t.Fatalf("stopped voice produced %f/%f", l, r)
	}
}

func TestFadeOutKeepsTailWhileReactivated(t *testing.T) {
	v := New(16, 1000)
	v.Activate(1, unitySource(t, 1, 50), envelope.Instant(), 1, -1, true)
	for i := 0; i < 5; i++ {
		v.PullFrame()
	}
	v.FadeOut(8)
	v.Activate(2, unitySource(t, 0, 50), envelope.Instant(), 1, -1, true)
	if v.ID() != 2 || v.State() != StateActive {
		t.Fatalf("reactivated voice id %d state %v", v.ID(), v.State())
	}
	prev := float32(1.01)
	var heard int
	for i := 0; i < 20; i++ {
		l, _ := v.PullFrame()
		if l > prev {
			t.Fatalf("tail rising at %d: %f after %f", i, l, prev)
		}
		if l > 0 {
			heard++
		}
		prev = l
	}
	if heard == 0 || heard > 8 {
		t.Fatalf("tail audible for %d frames, want 1..8", heard)
	}
	if !v.Sounding() {
		t.Fatalf("new playback should still be live")
	}
}

func TestPullFrameDoesNotAllocate(t *testing.T) {
	v := New(64, 48000)
	v.Activate(1, unitySource(t, 0.5, 100), envelope.DefaultParams(), 0.8, 0.3, true)
	allocs := testing.AllocsPerRun(1000, func() {
		v.PullFrame()
	})
	if allocs != 0 {
		t.Fatalf("PullFrame allocs = %f", allocs)
	}
}

func TestPathVoiceUsesGrainPanOnly(t *testing.T) {
	data := make([]float32, 256)
	for i := range data {
		data[i] = 1
	}
	buf, err := grain.NewMonoBuffer(data)
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	path, err := grain.NewPath(grain.Spec{Length: 50, Gain: 1, Pan: 0})
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	src, err := grain.NewPathSource(window.NewCache(), buf, path, grain.PathParams{Window: window.Rectangular})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	want := float32(math.Cos(math.Pi / 4))
	for _, pan := range []float64{0, -1, 0.7} {
		v := New(64, 48000)
		v.Activate(1, src.Clone(), envelope.Instant(), 1, pan, false)
		for i := 0; i < 50; i++ {
			l, r := v.PullFrame()
			if math.Abs(float64(l-want)) > 1e-6 || math.Abs(float64(r-want)) > 1e-6 {
				t.Fatalf("pan %v frame %d = %f/%f, want %f on both sides", pan, i, l, r, want)
			}
		}
	}
}
