package samplefile

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes interleaved float samples as 16-bit PCM WAV. Samples are
// clipped to [-1, 1].
func WriteWAV(w io.WriteSeeker, sampleRate, channels int, samples []float32) error {
	if channels <= 0 || len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples in %d channels", ErrInvalidLayout, len(samples), channels)
	}
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		v = max(-1, min(1, v))
		buf.Data[i] = int(v * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}
