package grain

import "fmt"

// Buffer is an immutable planar view of source audio. The core only ever
// reads it, so one Buffer may back any number of concurrent voices.
type Buffer struct {
	channels [][]float32
	frames   int
}

// NewMonoBuffer wraps a single channel. The slice is not copied; callers must
// not modify it afterwards.
func NewMonoBuffer(samples []float32) (*Buffer, error) {
	return NewBuffer(samples)
}

// NewBuffer wraps one slice per channel. All channels must share a length.
func NewBuffer(channels ...[]float32) (*Buffer, error) {
	if len(channels) == 0 {
		return nil, ErrNilBuffer
	}
	frames := len(channels[0])
	if frames == 0 {
		return nil, ErrEmptyBuffer
	}
	for i, ch := range channels[1:] {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d frames, want %d: %w", i+1, len(ch), frames, ErrChannelMismatch)
		}
	}
	return &Buffer{channels: channels, frames: frames}, nil
}

// NewInterleavedBuffer de-interleaves samples into a new planar Buffer.
func NewInterleavedBuffer(samples []float32, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("channels %d: %w", channels, ErrInvalidParams)
	}
	frames := len(samples) / channels
	if frames == 0 {
		return nil, ErrEmptyBuffer
	}
	planar := make([][]float32, channels)
	for c := range planar {
		planar[c] = make([]float32, frames)
	}
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			planar[c][f] = samples[f*channels+c]
		}
	}
	return &Buffer{channels: planar, frames: frames}, nil
}

func (b *Buffer) Frames() int   { return b.frames }
func (b *Buffer) Channels() int { return len(b.channels) }

// Channel returns the backing slice of channel i. It must be treated as
// read-only.
func (b *Buffer) Channel(i int) []float32 { return b.channels[i] }

// stereo returns the channels feeding the left and right outputs. Mono
// buffers feed both sides.
func (b *Buffer) stereo() ([]float32, []float32) {
	if len(b.channels) == 1 {
		return b.channels[0], b.channels[0]
	}
	return b.channels[0], b.channels[1]
}
