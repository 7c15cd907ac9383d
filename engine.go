package grainfield

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	intaudio "github.com/cbegin/grainfield-go/internal/audio"
	"github.com/cbegin/grainfield-go/internal/block"
	"github.com/cbegin/grainfield-go/internal/effects"
	"github.com/cbegin/grainfield-go/internal/grain"
	"github.com/cbegin/grainfield-go/internal/pool"
	"github.com/cbegin/grainfield-go/internal/sched"
)

// Ticket identifies one scheduling request in the events reported by Watch.
type Ticket uuid.UUID

func (t Ticket) String() string { return uuid.UUID(t).String() }

// WindowOverride replaces a source's window for one voice. A zero Length
// keeps the source's grain length.
type WindowOverride struct {
	Shape  WindowShape
	Length int
}

// VoiceParams are the per-voice playback settings.
type VoiceParams struct {
	Envelope EnvelopeParams
	Gain     float64
	Pan      float64 // -1 (left) .. 1 (right); ignored by path sources
	Looping  bool
	Window   *WindowOverride
}

func DefaultVoiceParams() VoiceParams {
	return VoiceParams{Envelope: DefaultEnvelope(), Gain: 1}
}

func (p VoiceParams) validate() error {
	if err := p.Envelope.Validate(); err != nil {
		return err
	}
	switch {
	case p.Gain < 0 || math.IsNaN(p.Gain) || math.IsInf(p.Gain, 0):
		return fmt.Errorf("%w: gain must be finite and >= 0: %f", ErrInvalidParams, p.Gain)
	case p.Pan < -1 || p.Pan > 1 || math.IsNaN(p.Pan):
		return fmt.Errorf("%w: pan must be in [-1, 1]: %f", ErrInvalidParams, p.Pan)
	}
	return nil
}

// voiceStart is the payload carried through the scheduler. Once delivered
// it belongs to the audio goroutine.
type voiceStart struct {
	ticket  Ticket
	req     pool.Request
	voiceID uint64
}

// action is a scheduler delivery waiting to be applied at its block offset.
type action struct {
	offset int
	open   bool
	h      *voiceStart
}

// dispatcher collects deliveries for the current block.
type dispatcher struct {
	actions []action
}

func (d *dispatcher) OnPoint(h *voiceStart, offset int) {
	d.actions = append(d.actions, action{offset: offset, open: true, h: h})
}

func (d *dispatcher) OnSpanStart(h *voiceStart, offset int) {
	d.actions = append(d.actions, action{offset: offset, open: true, h: h})
}

func (d *dispatcher) OnSpanBlock(*voiceStart, block.Range) {}

func (d *dispatcher) OnSpanEnd(h *voiceStart, offset int) {
	d.actions = append(d.actions, action{offset: offset, h: h})
}

func byOffset(a, b action) int { return cmp.Compare(a.offset, b.offset) }

// Engine schedules and renders granular voices. Schedule* methods, Stats,
// Watch and SetMasterGain are safe from any goroutine. RenderBlock, Process
// and Render must only be called from one goroutine at a time, and Render
// only while the engine is not playing live.
type Engine struct {
	sampleRate int
	cfg        engineConfig
	log        *slog.Logger
	cache      *WindowCache
	sched      *sched.Scheduler[*voiceStart]
	pool       *pool.Pool
	bus        *effects.Chain
	disp       dispatcher

	now        atomic.Int64
	masterGain uint64 // float64 bits

	started      atomic.Uint64
	stolen       atomic.Uint64
	rejected     atomic.Uint64
	activeVoices atomic.Int64
	events       atomic.Pointer[chan Event]

	blockL []float32
	blockR []float32

	mu      sync.Mutex
	backend intaudio.Backend
	playing atomic.Bool
}

func NewEngine(sampleRate int, opts ...EngineOption) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be > 0: %d", ErrInvalidParams, cfg.blockSize)
	}
	if cfg.smoothSteal < 0 {
		return nil, fmt.Errorf("%w: steal fade must be >= 0: %d", ErrInvalidParams, cfg.smoothSteal)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := cfg.cache
	if cache == nil {
		cache = NewWindowCache()
	}
	pl, err := pool.New(pool.Config{
		MaxVoices:        cfg.maxVoices,
		BlockSize:        cfg.blockSize,
		SampleRate:       float64(sampleRate),
		SmoothSteal:      cfg.smoothSteal > 0,
		StealFadeSamples: cfg.smoothSteal,
	})
	if err != nil {
		return nil, err
	}
	queue := sched.New[*voiceStart](
		sched.WithLatePolicy(cfg.latePolicy),
		sched.WithCapacity(cfg.queueCapacity),
	)
	e := &Engine{
		sampleRate: sampleRate,
		cfg:        cfg,
		log:        logger,
		cache:      cache,
		sched:      queue,
		pool:       pl,
		bus:        buildBus(cfg, sampleRate),
		disp:       dispatcher{actions: make([]action, 0, cfg.queueCapacity)},
		masterGain: math.Float64bits(1),
		blockL:     make([]float32, cfg.blockSize),
		blockR:     make([]float32, cfg.blockSize),
	}
	logger.Info("grainfield: engine ready",
		"sample_rate", sampleRate,
		"block_size", cfg.blockSize,
		"max_voices", cfg.maxVoices,
		"late_policy", cfg.latePolicy.String(),
		"effects", e.bus.Len(),
	)
	return e, nil
}

func buildBus(cfg engineConfig, sampleRate int) *effects.Chain {
	bus := effects.NewChain()
	if cfg.delay != nil {
		bus.Add(effects.NewDelay(sampleRate, *cfg.delay))
	}
	if cfg.reverb != nil {
		bus.Add(effects.NewReverb(sampleRate, *cfg.reverb))
	}
	if cfg.autoPan != nil {
		bus.Add(effects.NewAutoPan(sampleRate, *cfg.autoPan))
	}
	if cfg.limiter != nil {
		bus.Add(effects.NewLimiter(sampleRate, *cfg.limiter))
	}
	return bus
}

func (e *Engine) SampleRate() int { return e.sampleRate }
func (e *Engine) BlockSize() int  { return e.cfg.blockSize }

// WindowCache is the cache sources built by this engine draw from.
func (e *Engine) WindowCache() *WindowCache { return e.cache }

// Prewarm generates window curves ahead of real-time use.
func (e *Engine) Prewarm(ctx context.Context, keys ...WindowKey) error {
	if err := e.cache.PrewarmAll(ctx, keys...); err != nil {
		e.log.Warn("grainfield: prewarm failed", "error", err)
		return err
	}
	e.log.Debug("grainfield: windows prewarmed", "keys", len(keys), "cached", e.cache.Len())
	return nil
}

// NewFixedHopSource builds a uniform linear-scan grain source.
func (e *Engine) NewFixedHopSource(buf *Buffer, p FixedHopParams) (*Source, error) {
	return grain.NewFixedHop(e.cache, buf, p)
}

// NewBurstSource builds a source firing several grains per trigger.
func (e *Engine) NewBurstSource(buf *Buffer, p BurstParams) (*Source, error) {
	return grain.NewBurst(e.cache, buf, p)
}

// NewPathSource builds a source whose grains follow path.
func (e *Engine) NewPathSource(buf *Buffer, path *Path, p PathParams) (*Source, error) {
	return grain.NewPathSource(e.cache, buf, path, p)
}

// CurrentSampleTime is the absolute time of the next block to be rendered.
func (e *Engine) CurrentSampleTime() int64 { return e.now.Load() }

// ScheduleVoiceStart starts src at absolute sample at. The source is cloned,
// so one description can drive any number of voices.
func (e *Engine) ScheduleVoiceStart(src *Source, p VoiceParams, at int64) (Ticket, error) {
	h, err := e.prepare(src, p)
	if err != nil {
		return Ticket{}, err
	}
	if err := e.sched.SchedulePoint(at, h); err != nil {
		return Ticket{}, e.reject(err)
	}
	return h.ticket, nil
}

// ScheduleVoiceStartAfter starts src delay samples after CurrentSampleTime.
func (e *Engine) ScheduleVoiceStartAfter(src *Source, p VoiceParams, delay int64) (Ticket, error) {
	if delay < 0 {
		return Ticket{}, e.reject(fmt.Errorf("%w: negative delay %d", ErrInvalidParams, delay))
	}
	return e.ScheduleVoiceStart(src, p, e.CurrentSampleTime()+delay)
}

// ScheduleVoiceGate starts src at start and releases it at end. The voice
// decays through the envelope's release after end.
func (e *Engine) ScheduleVoiceGate(src *Source, p VoiceParams, start, end int64) (Ticket, error) {
	h, err := e.prepare(src, p)
	if err != nil {
		return Ticket{}, err
	}
	if err := e.sched.ScheduleSpan(start, end, h); err != nil {
		return Ticket{}, e.reject(err)
	}
	return h.ticket, nil
}

func (e *Engine) prepare(src *Source, p VoiceParams) (*voiceStart, error) {
	if src == nil {
		return nil, e.reject(ErrNilSource)
	}
	if err := p.validate(); err != nil {
		return nil, e.reject(err)
	}
	var (
		own *Source
		err error
	)
	if p.Window != nil {
		own, err = src.WithWindow(e.cache, p.Window.Shape, p.Window.Length)
		if err != nil {
			return nil, e.reject(err)
		}
	} else {
		own = src.Clone()
	}
	return &voiceStart{
		ticket: Ticket(uuid.New()),
		req: pool.Request{
			Source:   own,
			Envelope: p.Envelope,
			Gain:     p.Gain,
			Pan:      p.Pan,
			Looping:  p.Looping,
		},
	}, nil
}

func (e *Engine) reject(err error) error {
	e.log.Warn("grainfield: schedule rejected", "error", err)
	return err
}

// RenderBlock overwrites outL and outR with the next len(outL) frames.
func (e *Engine) RenderBlock(outL, outR []float32) {
	n := min(len(outL), len(outR))
	for off := 0; off < n; {
		k := min(e.cfg.blockSize, n-off)
		e.renderBlock(outL[off:off+k], outR[off:off+k])
		off += k
	}
}

// Process fills dst with interleaved stereo frames. It implements the
// sample source the live drivers pull from.
func (e *Engine) Process(dst []float32) {
	frames := len(dst) / 2
	for off := 0; off < frames; {
		k := min(e.cfg.blockSize, frames-off)
		l, r := e.blockL[:k], e.blockR[:k]
		e.renderBlock(l, r)
		for i := 0; i < k; i++ {
			dst[2*(off+i)] = l[i]
			dst[2*(off+i)+1] = r[i]
		}
		off += k
	}
}

// renderBlock renders one scheduler pass. Mixing is split at every event
// offset so voices start and release on their exact sample.
func (e *Engine) renderBlock(l, r []float32) {
	n := len(l)
	clear(l)
	clear(r)
	start := e.now.Load()

	dropped := e.sched.Dropped()
	e.disp.actions = e.disp.actions[:0]
	e.sched.ProcessBlock(start, n, &e.disp, &e.disp)
	if d := e.sched.Dropped(); d != dropped {
		e.emit(Event{Kind: EventLateDropped, At: start, Count: d - dropped})
	}
	slices.SortStableFunc(e.disp.actions, byOffset)

	pos := 0
	for _, a := range e.disp.actions {
		if a.offset > pos {
			e.pool.Mix(l[pos:a.offset], r[pos:a.offset])
			pos = a.offset
		}
		e.apply(a, start)
	}
	if pos < n {
		e.pool.Mix(l[pos:], r[pos:])
	}
	clear(e.disp.actions)

	if g := float32(e.masterGainValue()); g != 1 {
		for i := range l {
			l[i] *= g
			r[i] *= g
		}
	}
	e.bus.ProcessBlock(l, r)
	effects.Clamp(l, r)

	e.activeVoices.Store(int64(e.pool.ActiveCount()))
	e.now.Add(int64(n))
}

func (e *Engine) apply(a action, blockStart int64) {
	at := blockStart + int64(a.offset)
	if !a.open {
		if v := e.pool.Lookup(a.h.voiceID); v != nil {
			v.Release()
			e.emit(Event{Kind: EventVoiceReleased, Ticket: a.h.ticket, VoiceID: a.h.voiceID, At: at})
		}
		return
	}
	alloc, err := e.pool.Allocate(a.h.req)
	if err != nil {
		e.rejected.Add(1)
		e.emit(Event{Kind: EventVoiceRejected, Ticket: a.h.ticket, At: at})
		return
	}
	e.started.Add(1)
	a.h.voiceID = alloc.Voice.ID()
	if alloc.Stolen {
		e.stolen.Add(1)
		e.emit(Event{Kind: EventVoiceStolen, Ticket: a.h.ticket, VoiceID: alloc.StolenID, At: at})
	}
	e.emit(Event{Kind: EventVoiceStarted, Ticket: a.h.ticket, VoiceID: alloc.Voice.ID(), At: at})
}

// SetMasterGain scales the voice mix before the master bus. Negative values
// clamp to 0. It takes effect on the next block (lock-free).
func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 || math.IsNaN(gain) {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) MasterGain() float64 { return e.masterGainValue() }

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// Reset stops every voice, drops every pending event and rewinds the clock
// to 0. It fails while the engine is playing live.
func (e *Engine) Reset() error {
	if e.playing.Load() {
		return ErrPlaying
	}
	e.sched.Reset()
	e.pool.StopAll()
	e.bus.Reset()
	e.now.Store(0)
	e.activeVoices.Store(0)
	return nil
}
