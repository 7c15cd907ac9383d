package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// BeepStreamer adapts a SampleSource to beep.Streamer so the engine can be
// mixed, tapped or resampled with the rest of a beep pipeline.
type BeepStreamer struct {
	source  SampleSource
	scratch []float32
}

func NewBeepStreamer(source SampleSource) *BeepStreamer {
	return &BeepStreamer{source: source, scratch: make([]float32, maxChunkFrames*2)}
}

// Stream always fills samples; the engine renders silence when idle.
func (s *BeepStreamer) Stream(samples [][2]float64) (int, bool) {
	for off := 0; off < len(samples); {
		k := min(len(samples)-off, maxChunkFrames)
		chunk := s.scratch[:k*2]
		s.source.Process(chunk)
		for i := 0; i < k; i++ {
			samples[off+i] = [2]float64{float64(chunk[2*i]), float64(chunk[2*i+1])}
		}
		off += k
	}
	return len(samples), true
}

func (s *BeepStreamer) Err() error { return nil }

var (
	speakerMu   sync.Mutex
	speakerRate beep.SampleRate
)

// SpeakerPlayer plays a SampleSource through beep's speaker package. Only one
// sample rate can be active per process.
type SpeakerPlayer struct {
	ctrl *beep.Ctrl
}

func NewSpeakerPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*SpeakerPlayer, error) {
	sr := beep.SampleRate(sampleRate)
	if bufferSize <= 0 {
		bufferSize = time.Second / 20
	}
	speakerMu.Lock()
	defer speakerMu.Unlock()
	switch {
	case speakerRate == 0:
		if err := speaker.Init(sr, sr.N(bufferSize)); err != nil {
			return nil, fmt.Errorf("speaker init: %w", err)
		}
		speakerRate = sr
	case speakerRate != sr:
		return nil, fmt.Errorf("speaker already initialized at %d Hz (requested %d Hz)", speakerRate, sr)
	}
	ctrl := &beep.Ctrl{Streamer: NewBeepStreamer(source), Paused: true}
	speaker.Play(ctrl)
	return &SpeakerPlayer{ctrl: ctrl}, nil
}

func (p *SpeakerPlayer) Play()  { p.setPaused(false) }
func (p *SpeakerPlayer) Pause() { p.setPaused(true) }

func (p *SpeakerPlayer) IsPlaying() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return p.ctrl.Streamer != nil && !p.ctrl.Paused
}

func (p *SpeakerPlayer) setPaused(paused bool) {
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
}

// Stop detaches the source; the speaker drops a Ctrl whose streamer is nil.
func (p *SpeakerPlayer) Stop() error {
	speaker.Lock()
	p.ctrl.Streamer = nil
	speaker.Unlock()
	return nil
}
