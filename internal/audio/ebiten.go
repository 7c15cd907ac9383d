package audio

import (
	"fmt"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var contextMu sync.Mutex

// audioContext returns the process-wide ebiten context, creating it on first
// use. ebiten permits a single context, so a second rate is an error.
func audioContext(sampleRate int) (*ebitaudio.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()
	ctx := ebitaudio.CurrentContext()
	if ctx == nil {
		return ebitaudio.NewContext(sampleRate), nil
	}
	if ctx.SampleRate() != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (requested %d Hz)", ctx.SampleRate(), sampleRate)
	}
	return ctx, nil
}

// Player streams a SampleSource through ebiten audio.
type Player struct {
	out    *ebitaudio.Player
	reader *PCMReader
}

// NewPlayer builds a paused player. A bufferSize of zero keeps ebiten's
// default latency.
func NewPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*Player, error) {
	ctx, err := audioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewPCMReader(source)
	out, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("ebiten player: %w", err)
	}
	if bufferSize > 0 {
		out.SetBufferSize(bufferSize)
	}
	return &Player{out: out, reader: reader}, nil
}

func (p *Player) Play()           { p.out.Play() }
func (p *Player) Pause()          { p.out.Pause() }
func (p *Player) IsPlaying() bool { return p.out.IsPlaying() }

// Position is how much audio the device has actually played.
func (p *Player) Position() time.Duration { return p.out.Position() }

// Stop closes the reader first so the driver sees EOF instead of pulling
// from the engine after Close returns.
func (p *Player) Stop() error {
	_ = p.reader.Close()
	p.out.Pause()
	return p.out.Close()
}
