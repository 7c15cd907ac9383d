// Package lfo provides low-frequency oscillators for control-rate
// modulation of the master bus.
package lfo

import (
	"fmt"
	"math"
	"strings"
)

type Shape int

const (
	Sine Shape = iota
	Triangle
	Square
	Saw
	Random // sample-and-hold, one new value per cycle
)

func (s Shape) String() string {
	switch s {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case Saw:
		return "saw"
	case Random:
		return "random"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, nil
	case "tri", "triangle":
		return Triangle, nil
	case "square", "sq":
		return Square, nil
	case "saw":
		return Saw, nil
	case "random", "s&h":
		return Random, nil
	}
	return 0, fmt.Errorf("unknown lfo shape %q", name)
}

// LFO produces one modulation value per sample in [-depth, depth]. The zero
// value is silent.
type LFO struct {
	shape Shape
	depth float64
	step  float64 // phase increment per sample
	phase float64 // [0, 1)
	held  float64
	seed  uint64
}

// New returns an oscillator running at rateHz. Unknown shapes fall back to
// Triangle.
func New(shape Shape, rateHz, depth, sampleRate float64) *LFO {
	l := &LFO{}
	l.Set(shape, rateHz, depth, sampleRate)
	return l
}

func (l *LFO) Set(shape Shape, rateHz, depth, sampleRate float64) {
	if shape < Sine || shape > Random {
		shape = Triangle
	}
	l.shape = shape
	l.depth = depth
	l.step = 0
	if sampleRate > 0 && rateHz > 0 {
		l.step = rateHz / sampleRate
	}
	if l.seed == 0 {
		l.seed = 0x9e3779b97f4a7c15
	}
}

// Active reports whether Next can return a non-zero value.
func (l *LFO) Active() bool { return l.depth != 0 && l.step != 0 }

// Next returns the value at the current phase and advances by one sample.
func (l *LFO) Next() float64 {
	if !l.Active() {
		return 0
	}
	var v float64
	switch l.shape {
	case Sine:
		v = math.Sin(2 * math.Pi * l.phase)
	case Square:
		v = 1
		if l.phase >= 0.5 {
			v = -1
		}
	case Saw:
		v = 1 - 2*l.phase
	case Random:
		v = l.held
	default:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	}
	l.phase += l.step
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
		if l.shape == Random {
			l.held = l.nextRandom()
		}
	}
	return v * l.depth
}

// nextRandom is an xorshift64 step mapped to [-1, 1).
func (l *LFO) nextRandom() float64 {
	l.seed ^= l.seed << 13
	l.seed ^= l.seed >> 7
	l.seed ^= l.seed << 17
	return float64(l.seed>>11)/(1<<52) - 1
}

// Reset rewinds the phase. The random sequence starts over as well.
func (l *LFO) Reset() {
	l.phase = 0
	l.held = 0
	l.seed = 0x9e3779b97f4a7c15
}
