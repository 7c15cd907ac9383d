// Package audio connects a block renderer to live output devices.
package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"
)

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// Backend is a live output driver.
type Backend interface {
	Play()
	Pause()
	IsPlaying() bool
	Stop() error
}

// maxChunkFrames bounds how much the source renders per Process call, so
// the scratch buffer never grows on the driver goroutine.
const maxChunkFrames = 1024

// PCMReader encodes a SampleSource as the little-endian float32 stereo byte
// stream ebiten players consume. Read belongs to the driver goroutine; Close
// may be called from anywhere.
type PCMReader struct {
	source  SampleSource
	scratch []float32
	closed  atomic.Bool
}

func NewPCMReader(source SampleSource) *PCMReader {
	return &PCMReader{source: source, scratch: make([]float32, maxChunkFrames*2)}
}

// Read fills whole frames only; a trailing partial frame is left unwritten.
func (r *PCMReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}
	const frameBytes = 2 * 4
	frames := len(p) / frameBytes
	written := 0
	for frames > 0 {
		k := min(frames, maxChunkFrames)
		chunk := r.scratch[:k*2]
		r.source.Process(chunk)
		for _, v := range chunk {
			binary.LittleEndian.PutUint32(p[written:], math.Float32bits(v))
			written += 4
		}
		frames -= k
	}
	return written, nil
}

func (r *PCMReader) Close() error {
	r.closed.Store(true)
	return nil
}
