// Package pool owns a fixed-capacity set of voices: admission, stealing and
// summing their output.
package pool

import (
	"fmt"

	"github.com/cbegin/grainfield-go/internal/envelope"
	"github.com/cbegin/grainfield-go/internal/grain"
	"github.com/cbegin/grainfield-go/internal/voice"
)

type Config struct {
	MaxVoices  int
	BlockSize  int
	SampleRate float64
	// SmoothSteal fades a stolen voice out over StealFadeSamples instead of
	// cutting it.
	SmoothSteal      bool
	StealFadeSamples int
}

func DefaultConfig() Config {
	return Config{
		MaxVoices:        32,
		BlockSize:        256,
		SampleRate:       48000,
		StealFadeSamples: 256,
	}
}

// Request describes one voice start.
type Request struct {
	Source   *grain.Source
	Envelope envelope.Params
	Gain     float64
	Pan      float64
	Looping  bool
}

// Allocation is the result of a successful Allocate.
type Allocation struct {
	Voice *voice.Voice
	// Stolen is set when an active voice was evicted; StolenID is its id.
	Stolen   bool
	StolenID uint64
}

// Pool is not safe for concurrent use; it belongs to the audio goroutine.
type Pool struct {
	cfg    Config
	voices []*voice.Voice
	online int
	nextID uint64
	steals uint64
}

// New pre-constructs MaxVoices voices so that bringing one online never
// allocates.
func New(cfg Config) (*Pool, error) {
	switch {
	case cfg.MaxVoices <= 0:
		return nil, fmt.Errorf("%w: max voices must be > 0: %d", ErrInvalidConfig, cfg.MaxVoices)
	case cfg.BlockSize <= 0:
		return nil, fmt.Errorf("%w: block size must be > 0: %d", ErrInvalidConfig, cfg.BlockSize)
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("%w: sample rate must be > 0: %f", ErrInvalidConfig, cfg.SampleRate)
	case cfg.StealFadeSamples < 0:
		return nil, fmt.Errorf("%w: steal fade must be >= 0: %d", ErrInvalidConfig, cfg.StealFadeSamples)
	}
	p := &Pool{cfg: cfg, voices: make([]*voice.Voice, cfg.MaxVoices)}
	for i := range p.voices {
		p.voices[i] = voice.New(cfg.BlockSize, cfg.SampleRate)
	}
	return p, nil
}

// Allocate starts req on a voice: a free voice first, then a new one while
// the pool is below MaxVoices, and finally the oldest active voice is stolen.
func (p *Pool) Allocate(req Request) (Allocation, error) {
	if req.Source == nil {
		return Allocation{}, ErrNilSource
	}
	var alloc Allocation
	v := p.free()
	if v == nil && p.online < len(p.voices) {
		v = p.voices[p.online]
		p.online++
	}
	if v == nil {
		v = p.victim()
		if v == nil {
			return Allocation{}, ErrPoolExhausted
		}
		alloc.Stolen = true
		alloc.StolenID = v.ID()
		p.steals++
		if p.cfg.SmoothSteal && p.cfg.StealFadeSamples > 0 {
			v.FadeOut(p.cfg.StealFadeSamples)
		} else {
			v.Stop()
		}
	}
	p.nextID++
	v.Activate(p.nextID, req.Source, req.Envelope, req.Gain, req.Pan, req.Looping)
	alloc.Voice = v
	return alloc, nil
}

func (p *Pool) free() *voice.Voice {
	for _, v := range p.voices[:p.online] {
		if v.Available() {
			return v
		}
	}
	return nil
}

// victim picks the active voice with the smallest id. When every voice is
// already releasing, the oldest releasing voice is taken instead.
func (p *Pool) victim() *voice.Voice {
	var active, releasing *voice.Voice
	for _, v := range p.voices[:p.online] {
		switch v.State() {
		case voice.StateActive:
			if active == nil || v.ID() < active.ID() {
				active = v
			}
		case voice.StateReleasing:
			if releasing == nil || v.ID() < releasing.ID() {
				releasing = v
			}
		}
	}
	if active != nil {
		return active
	}
	return releasing
}

// Lookup returns the voice currently playing id, or nil once that playback
// has been finished, stolen or reused.
func (p *Pool) Lookup(id uint64) *voice.Voice {
	for _, v := range p.voices[:p.online] {
		if v.ID() == id && (v.State() == voice.StateActive || v.State() == voice.StateReleasing) {
			return v
		}
	}
	return nil
}

// Mix adds one frame from every online voice into each index of outL and outR.
func (p *Pool) Mix(outL, outR []float32) {
	n := min(len(outL), len(outR))
	for _, v := range p.voices[:p.online] {
		if !v.Sounding() {
			continue
		}
		for i := 0; i < n; i++ {
			l, r := v.PullFrame()
			outL[i] += l
			outR[i] += r
		}
	}
}

// MixFrame pulls a single frame from every online voice and returns the sum.
func (p *Pool) MixFrame() (float32, float32) {
	var l, r float32
	for _, v := range p.voices[:p.online] {
		if !v.Sounding() {
			continue
		}
		vl, vr := v.PullFrame()
		l += vl
		r += vr
	}
	return l, r
}

// StopAll hard-stops every voice.
func (p *Pool) StopAll() {
	for _, v := range p.voices[:p.online] {
		v.Stop()
	}
}

func (p *Pool) Config() Config { return p.cfg }

// Size is the number of voices brought online so far.
func (p *Pool) Size() int { return p.online }

// ActiveCount counts voices that are active or releasing.
func (p *Pool) ActiveCount() int {
	n := 0
	for _, v := range p.voices[:p.online] {
		if s := v.State(); s == voice.StateActive || s == voice.StateReleasing {
			n++
		}
	}
	return n
}

func (p *Pool) Steals() uint64 { return p.steals }
