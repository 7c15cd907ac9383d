package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cbegin/grainfield-go"
	"github.com/cbegin/grainfield-go/internal/samplefile"
)

type options struct {
	sampleRate int
	input      string
	toneHz     float64
	mode       string
	window     string
	grainMs    float64
	hopMs      float64
	pitch      float64
	spread     float64
	voices     int
	density    float64
	duration   float64
	seed       int64
	output     string
	backend    string
	volume     float64
	delay      bool
	reverb     bool
	limiter    bool
	autoPan    float64
	verbose    bool
}

func main() {
	var o options
	flag.IntVar(&o.sampleRate, "sample-rate", 48000, "output sample rate")
	flag.StringVar(&o.input, "in", "", "source sample (wav|mp3|ogg); a sine tone is used when empty")
	flag.Float64Var(&o.toneHz, "tone", 220, "frequency of the built-in tone source")
	flag.StringVar(&o.mode, "mode", "fixed", "grain layout: fixed|burst|path")
	flag.StringVar(&o.window, "window", "hann", "grain window: rect|hann|hamming|blackman|tri|sine|welch")
	flag.Float64Var(&o.grainMs, "grain", 80, "grain length in milliseconds")
	flag.Float64Var(&o.hopMs, "hop", 20, "time between grains in milliseconds")
	flag.Float64Var(&o.pitch, "pitch", 1, "playback rate of each grain")
	flag.Float64Var(&o.spread, "spread", 0.8, "stereo spread of the cloud (0..1)")
	flag.IntVar(&o.voices, "voices", 32, "maximum simultaneous voices")
	flag.Float64Var(&o.density, "density", 8, "voice starts per second")
	flag.Float64Var(&o.duration, "duration", 8, "length of the cloud in seconds")
	flag.Int64Var(&o.seed, "seed", 1, "random seed for voice placement")
	flag.StringVar(&o.output, "out", "", "write a 16-bit WAV instead of playing live")
	flag.StringVar(&o.backend, "backend", "ebiten", "live output driver: ebiten|beep")
	flag.Float64Var(&o.volume, "volume", 0.8, "master gain")
	flag.BoolVar(&o.delay, "delay", false, "add a stereo delay to the master bus")
	flag.BoolVar(&o.reverb, "reverb", true, "add reverb to the master bus")
	flag.BoolVar(&o.limiter, "limiter", true, "add a peak limiter to the master bus")
	flag.Float64Var(&o.autoPan, "autopan", 0, "auto-pan rate in Hz (0 = off)")
	flag.BoolVar(&o.verbose, "v", false, "log every voice event")
	flag.Parse()

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err := run(o, logger); err != nil {
		logger.Error("granulate failed", "error", err)
		os.Exit(1)
	}
}

func run(o options, logger *slog.Logger) error {
	backend, err := parseBackend(o.backend)
	if err != nil {
		return err
	}
	engineOpts := []grainfield.EngineOption{
		grainfield.WithLogger(logger),
		grainfield.WithMaxVoices(o.voices),
		grainfield.WithSmoothSteal(o.sampleRate / 100),
		grainfield.WithBackend(backend, 0),
	}
	if o.delay {
		engineOpts = append(engineOpts, grainfield.WithDelay(grainfield.DefaultDelayParams()))
	}
	if o.reverb {
		engineOpts = append(engineOpts, grainfield.WithReverb(grainfield.DefaultReverbParams()))
	}
	if o.autoPan > 0 {
		ap := grainfield.DefaultAutoPanParams()
		ap.RateHz = o.autoPan
		engineOpts = append(engineOpts, grainfield.WithAutoPan(ap))
	}
	if o.limiter {
		engineOpts = append(engineOpts, grainfield.WithLimiter(grainfield.DefaultLimiterParams()))
	}
	e, err := grainfield.NewEngine(o.sampleRate, engineOpts...)
	if err != nil {
		return err
	}
	e.SetMasterGain(o.volume)

	buf, fileRate, err := loadBuffer(o, logger)
	if err != nil {
		return err
	}
	o.pitch = sourcePitch(o.pitch, fileRate, o.sampleRate)
	shape, err := grainfield.ParseWindowShape(o.window)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(o.seed))
	src, err := buildSource(e, buf, shape, o, rng)
	if err != nil {
		return err
	}
	frames := int64(o.duration * float64(o.sampleRate))
	lead := int64(o.sampleRate / 10)
	scheduled, err := scheduleCloud(e, src, o, rng, lead, frames)
	if err != nil {
		return err
	}
	logger.Info("cloud scheduled", "mode", o.mode, "voices", scheduled, "grain_frames", src.LengthSamples())

	events := e.Watch()
	go logEvents(events, logger)

	total := lead + frames + int64(o.sampleRate)*2
	if o.output != "" {
		return renderToFile(e, o.output, int(total))
	}
	return playLive(e, time.Duration(float64(total)/float64(o.sampleRate)*float64(time.Second)), logger)
}

func parseBackend(name string) (grainfield.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ebiten":
		return grainfield.BackendEbiten, nil
	case "beep":
		return grainfield.BackendBeep, nil
	default:
		return "", fmt.Errorf("invalid -backend %q (expected ebiten|beep)", name)
	}
}

// loadBuffer returns the source buffer and the rate it was recorded at.
func loadBuffer(o options, logger *slog.Logger) (*grainfield.Buffer, int, error) {
	if strings.TrimSpace(o.input) == "" {
		tone := make([]float32, o.sampleRate*2)
		for i := range tone {
			t := float64(i) / float64(o.sampleRate)
			tone[i] = float32(0.6*math.Sin(2*math.Pi*o.toneHz*t) + 0.2*math.Sin(2*math.Pi*o.toneHz*3.01*t))
		}
		buf, err := grainfield.NewMonoBuffer(tone)
		return buf, o.sampleRate, err
	}
	a, err := samplefile.Load(o.input)
	if err != nil {
		return nil, 0, err
	}
	if a.SampleRate != o.sampleRate {
		logger.Info("sample rate differs from output; compensating grain pitch",
			"file_rate", a.SampleRate, "output_rate", o.sampleRate)
	}
	logger.Info("source loaded", "path", o.input, "channels", a.Channels, "frames", a.Frames())
	buf, err := grainfield.NewBuffer(a.Planar()...)
	return buf, a.SampleRate, err
}

// sourcePitch scales pitch so a buffer recorded at fileRate plays at its
// original speed on an outputRate stream.
func sourcePitch(pitch float64, fileRate, outputRate int) float64 {
	if fileRate <= 0 || outputRate <= 0 {
		return pitch
	}
	return pitch * float64(fileRate) / float64(outputRate)
}

func msToFrames(ms float64, sampleRate int) int {
	return max(1, int(ms*float64(sampleRate)/1000))
}

func buildSource(e *grainfield.Engine, buf *grainfield.Buffer, shape grainfield.WindowShape, o options, rng *rand.Rand) (*grainfield.Source, error) {
	grainLen := msToFrames(o.grainMs, o.sampleRate)
	hop := msToFrames(o.hopMs, o.sampleRate)
	span := float64(max(buf.Frames()-grainLen*2, 1))
	switch strings.ToLower(o.mode) {
	case "fixed":
		count := max(1, grainLen*4/hop)
		return e.NewFixedHopSource(buf, grainfield.FixedHopParams{
			BaseIndex:   rng.Float64() * span / 2,
			IndexHop:    float64(hop) * 0.5,
			TimeHop:     hop,
			GrainLength: grainLen,
			Count:       count,
			Pitch:       o.pitch,
			Gain:        0.5,
			Window:      shape,
			Interp:      grainfield.InterpCubic,
		})
	case "burst":
		p := grainfield.DefaultBurstParams()
		p.BaseIndex = rng.Float64() * span / 2
		p.Hop = hop
		p.IndexHop = float64(hop) / 4
		p.Bursts = 4
		p.Interval = hop * p.Count * 2
		p.BurstIndexHop = float64(grainLen)
		p.GrainLength = grainLen
		p.Pitch = o.pitch
		p.Gain = 0.4
		p.Window = shape
		return e.NewBurstSource(buf, p)
	case "path":
		specs := make([]grainfield.GrainSpec, 24)
		pos := rng.Float64() * span / 2
		for i := range specs {
			pos = math.Mod(pos+rng.NormFloat64()*float64(grainLen)+float64(hop), span)
			if pos < 0 {
				pos += span
			}
			specs[i] = grainfield.GrainSpec{
				SourceIndex: pos,
				Length:      grainLen,
				Pitch:       o.pitch * math.Pow(2, float64(rng.Intn(3))-1),
				Gain:        0.3 + 0.3*rng.Float64(),
				Pan:         (rng.Float64()*2 - 1) * o.spread,
				TimeOffset:  int64(i * hop),
			}
		}
		path, err := grainfield.NewPath(specs...)
		if err != nil {
			return nil, err
		}
		return e.NewPathSource(buf, path, grainfield.PathParams{Window: shape, Interp: grainfield.InterpCubic})
	}
	return nil, fmt.Errorf("invalid -mode %q (expected fixed|burst|path)", o.mode)
}

// scheduleCloud gates voices at random times across frames, starting lead
// samples from now.
func scheduleCloud(e *grainfield.Engine, src *grainfield.Source, o options, rng *rand.Rand, lead, frames int64) (int, error) {
	n := max(1, int(o.density*o.duration))
	hold := max(src.LengthSamples(), int64(o.sampleRate/4))
	p := grainfield.DefaultVoiceParams()
	p.Envelope.AttackSec = 0.05
	p.Envelope.ReleaseSec = 0.4
	p.Gain = 1 / math.Sqrt(float64(max(o.voices, 1)))
	p.Looping = true
	now := e.CurrentSampleTime()
	for i := 0; i < n; i++ {
		p.Pan = (rng.Float64()*2 - 1) * o.spread
		start := now + lead + rng.Int63n(max(frames, 1))
		if _, err := e.ScheduleVoiceGate(src, p, start, start+hold+rng.Int63n(hold)); err != nil {
			return i, err
		}
	}
	return n, nil
}

func logEvents(ch <-chan grainfield.Event, logger *slog.Logger) {
	for ev := range ch {
		logger.Debug("voice event",
			"kind", ev.Kind.String(),
			"ticket", ev.Ticket.String(),
			"voice", ev.VoiceID,
			"at", ev.At,
			"count", ev.Count,
		)
	}
}

func renderToFile(e *grainfield.Engine, path string, frames int) error {
	samples, err := e.Render(frames)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.WriteWAV(f, samples); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func playLive(e *grainfield.Engine, length time.Duration, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := e.Play(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		logger.Info("interrupted")
	case <-time.After(length):
	}
	st := e.Stats()
	logger.Info("playback finished",
		"started", st.Started,
		"stolen", st.Stolen,
		"late_dropped", st.LateDropped,
	)
	return e.Stop()
}
