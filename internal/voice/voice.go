// Package voice couples one grain source with an amplitude envelope and a pan
// law, and hands out stereo frames one at a time.
package voice

import (
	"fmt"

	"github.com/cbegin/grainfield-go/internal/envelope"
	"github.com/cbegin/grainfield-go/internal/grain"
)

// State is the lifecycle of a Voice.
type State int

const (
	StateIdle State = iota
	StateActive
	StateReleasing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateReleasing:
		return "releasing"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// playback is one triggered run of a source through an envelope. A voice
// keeps two: the current one and a tail that is fading out after a steal.
type playback struct {
	src     *grain.Source
	env     envelope.ADSR
	gain    float32
	panL    float32
	panR    float32
	looping bool
	live    bool

	length    int64
	pos       int64
	bufL      []float32
	bufR      []float32
	cursor    int
	filled    int
	exhausted bool
}

func newPlayback(blockSize int) playback {
	return playback{
		bufL: make([]float32, blockSize),
		bufR: make([]float32, blockSize),
	}
}

func (p *playback) start(src *grain.Source, env envelope.Params, sampleRate float64, gain, pan float64, looping bool) {
	p.src = src
	p.env.Reset(env, sampleRate)
	p.env.NoteOn()
	p.gain = float32(gain)
	p.panL, p.panR = grain.PanGains(pan)
	if src != nil && src.Kind() == grain.KindPath {
		// Path grains carry their own pan.
		p.panL, p.panR = 1, 1
	}
	p.looping = looping
	p.live = src != nil
	p.length = 0
	if src != nil {
		p.length = src.LengthSamples()
		src.SeekTo(0)
	}
	p.pos = 0
	p.cursor = 0
	p.filled = 0
	p.exhausted = false
}

// refill renders the next block of the source into the block buffers. A
// looping source is reseeded at 0 the moment it runs out, so the wrap lands
// on the exact sample even in the middle of a block.
func (p *playback) refill() {
	clear(p.bufL)
	clear(p.bufR)
	n := len(p.bufL)
	off := 0
	for off < n {
		remain := p.length - p.pos
		if remain <= 0 {
			if !p.looping || p.length <= 0 {
				p.exhausted = true
				break
			}
			p.pos = 0
			p.src.SeekTo(0)
			continue
		}
		k := int(min(int64(n-off), remain))
		p.src.RenderBlock(p.pos, k, p.bufL[off:off+k], p.bufR[off:off+k])
		p.pos += int64(k)
		off += k
	}
	p.cursor = 0
	p.filled = off
}

// pull returns the next enveloped frame. done reports that the playback has
// ended: its source ran out or its envelope finished.
func (p *playback) pull() (l, r float32, done bool) {
	if !p.live {
		return 0, 0, true
	}
	if p.cursor >= p.filled {
		if p.exhausted {
			p.live = false
			return 0, 0, true
		}
		p.refill()
		if p.filled == 0 {
			p.live = false
			return 0, 0, true
		}
	}
	l, r = p.bufL[p.cursor], p.bufR[p.cursor]
	p.cursor++
	g := p.gain * p.env.Tick()
	if p.env.Done() {
		p.live = false
		done = true
	}
	return l * g * p.panL, r * g * p.panR, done
}

// Voice is a single polyphony slot. All methods must be called from the
// goroutine that renders audio.
type Voice struct {
	id         uint64
	state      State
	sampleRate float64
	main       playback
	tail       playback
}

// New builds an idle voice with its block buffers allocated up front.
func New(blockSize int, sampleRate float64) *Voice {
	if blockSize <= 0 {
		blockSize = 256
	}
	return &Voice{
		sampleRate: sampleRate,
		main:       newPlayback(blockSize),
		tail:       newPlayback(blockSize),
	}
}

// Activate binds src to the voice and starts it from the top. The source is
// seeded at voice time 0; the voice takes ownership of it.
func (v *Voice) Activate(id uint64, src *grain.Source, env envelope.Params, gain, pan float64, looping bool) {
	v.id = id
	v.main.start(src, env, v.sampleRate, gain, pan, looping)
	v.state = StateActive
	if !v.main.live {
		v.state = StateFinished
	}
}

// FadeOut moves the current playback into the tail slot, where it decays to
// silence over samples frames while the voice is reactivated. A tail that is
// still fading from an earlier steal is cut.
func (v *Voice) FadeOut(samples int) {
	if !v.main.live {
		v.state = StateFinished
		return
	}
	v.main, v.tail = v.tail, v.main
	v.main.live = false
	v.tail.env.ReleaseIn(samples)
	v.state = StateFinished
}

// PullFrame returns the next stereo frame. It never allocates.
func (v *Voice) PullFrame() (float32, float32) {
	var l, r float32
	if v.tail.live {
		l, r, _ = v.tail.pull()
	}
	if v.state != StateActive && v.state != StateReleasing {
		return l, r
	}
	ml, mr, done := v.main.pull()
	if done {
		v.state = StateFinished
	}
	return l + ml, r + mr
}

// Release starts the envelope release; the voice finishes once it decays.
func (v *Voice) Release() {
	if v.state != StateActive {
		return
	}
	v.main.env.NoteOff()
	v.state = StateReleasing
}

// Stop silences the voice immediately, including any fading tail.
func (v *Voice) Stop() {
	v.main.live = false
	v.tail.live = false
	v.main.env.Kill()
	if v.state != StateIdle {
		v.state = StateFinished
	}
}

func (v *Voice) ID() uint64   { return v.id }
func (v *Voice) State() State { return v.state }

// Source is the source bound to the current playback.
func (v *Voice) Source() *grain.Source { return v.main.src }

// Available reports whether the voice can be reactivated without stealing.
func (v *Voice) Available() bool {
	return v.state == StateIdle || v.state == StateFinished
}

// Sounding reports whether PullFrame can still produce non-silent output.
func (v *Voice) Sounding() bool {
	return v.main.live || v.tail.live
}

// Level is the current envelope level of the main playback.
func (v *Voice) Level() float64 {
	if !v.main.live {
		return 0
	}
	return v.main.env.Level()
}
