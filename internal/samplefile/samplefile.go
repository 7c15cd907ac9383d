// Package samplefile decodes source material for the command-line tool and
// writes rendered output. The engine itself never touches files.
package samplefile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Format names a supported container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOgg  Format = "ogg"
	formatNone Format = ""
)

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	case ".ogg", ".oga":
		return FormatOgg, nil
	}
	return formatNone, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Audio is decoded PCM, interleaved, normalized to [-1, 1].
type Audio struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

func (a *Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Planar splits the interleaved samples into one slice per channel.
func (a *Audio) Planar() [][]float32 {
	frames := a.Frames()
	out := make([][]float32, a.Channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for f := 0; f < frames; f++ {
		for c := 0; c < a.Channels; c++ {
			out[c][f] = a.Samples[f*a.Channels+c]
		}
	}
	return out
}

// Load reads and decodes the file at path.
func Load(path string) (*Audio, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Decode reads a whole stream of the given format.
func Decode(r io.ReadSeeker, format Format) (*Audio, error) {
	var (
		a   *Audio
		err error
	)
	switch format {
	case FormatWAV:
		a, err = DecodeWAV(r)
	case FormatMP3:
		a, err = DecodeMP3(r)
	case FormatOgg:
		a, err = DecodeOgg(r)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	if a.Frames() == 0 {
		return nil, ErrNoAudio
	}
	return a, nil
}

// DecodeWAV decodes integer PCM WAV of any bit depth go-audio supports.
func DecodeWAV(r io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, ErrInvalidWAV
	}
	bitDepth := int(dec.SampleBitDepth())
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		return nil, fmt.Errorf("%w: unknown bit depth", ErrInvalidWAV)
	}
	// 8-bit WAV is unsigned; everything wider is signed.
	scale := float32(math.Pow(2, float64(bitDepth-1)))
	bias := 0
	if bitDepth == 8 {
		bias = 128
	}
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v-bias) / scale
	}
	return &Audio{SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels, Samples: out}, nil
}

// DecodeMP3 decodes an MP3 stream. go-mp3 always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (*Audio, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768.0
	}
	return &Audio{SampleRate: dec.SampleRate(), Channels: 2, Samples: samples}, nil
}

// DecodeOgg decodes an Ogg Vorbis stream.
func DecodeOgg(r io.Reader) (*Audio, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode ogg: %w", err)
	}
	return &Audio{SampleRate: format.SampleRate, Channels: format.Channels, Samples: samples}, nil
}
