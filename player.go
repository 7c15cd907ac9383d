package grainfield

import (
	"fmt"

	intaudio "github.com/cbegin/grainfield-go/internal/audio"
)

// Play starts live output through the configured backend, or resumes it
// after Pause. The driver pulls blocks from Process on its own goroutine.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		backend, err := e.newBackend()
		if err != nil {
			e.log.Error("grainfield: audio backend failed", "backend", string(e.cfg.backend), "error", err)
			return err
		}
		e.backend = backend
		e.log.Info("grainfield: playback started", "backend", string(e.cfg.backend), "sample_rate", e.sampleRate)
	}
	e.playing.Store(true)
	e.backend.Play()
	return nil
}

func (e *Engine) newBackend() (intaudio.Backend, error) {
	switch e.cfg.backend {
	case BackendEbiten:
		return intaudio.NewPlayer(e.sampleRate, e, e.cfg.outputBuffer)
	case BackendBeep:
		return intaudio.NewSpeakerPlayer(e.sampleRate, e, e.cfg.outputBuffer)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, e.cfg.backend)
}

// Pause suspends live output. Scheduled events keep their absolute times, so
// anything due while paused is late when playback resumes.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		e.backend.Pause()
	}
}

// IsPlaying reports whether live output is running.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend != nil && e.backend.IsPlaying()
}

// Stop tears down live output. The engine keeps its voices and clock; call
// Reset to start over.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return nil
	}
	err := e.backend.Stop()
	e.backend = nil
	e.playing.Store(false)
	e.log.Info("grainfield: playback stopped", "sample_time", e.CurrentSampleTime())
	return err
}
