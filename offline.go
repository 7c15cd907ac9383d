package grainfield

import (
	"io"

	"github.com/cbegin/grainfield-go/internal/samplefile"
)

// Render renders frames stereo frames as fast as possible and returns them
// interleaved. It advances the engine clock like live playback would.
func (e *Engine) Render(frames int) ([]float32, error) {
	if e.playing.Load() {
		return nil, ErrPlaying
	}
	out := make([]float32, max(frames, 0)*2)
	e.Process(out)
	return out, nil
}

// RenderSeconds is Render for a duration in seconds.
func (e *Engine) RenderSeconds(seconds float64) ([]float32, error) {
	return e.Render(int(float64(e.sampleRate) * seconds))
}

// WriteWAV encodes interleaved stereo samples at the engine's sample rate as
// 16-bit PCM.
func (e *Engine) WriteWAV(w io.WriteSeeker, samples []float32) error {
	return samplefile.WriteWAV(w, e.sampleRate, 2, samples)
}
