package envelope

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidParams = errors.New("invalid envelope params")

// Params describes a linear ADSR envelope. Times are in seconds, SustainLvl is
// a 0-1 level.
type Params struct {
	AttackSec  float64
	DecaySec   float64
	SustainLvl float64
	ReleaseSec float64
}

func DefaultParams() Params {
	return Params{
		AttackSec:  0.005,
		DecaySec:   0.05,
		SustainLvl: 0.8,
		ReleaseSec: 0.2,
	}
}

// Instant is a gate envelope: full level on the first tick, silent on release.
func Instant() Params {
	return Params{SustainLvl: 1}
}

// Validate rejects negative times, non-finite values and sustain levels
// outside [0, 1].
func (p Params) Validate() error {
	for _, v := range []float64{p.AttackSec, p.DecaySec, p.ReleaseSec} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: times must be finite and >= 0: %+v", ErrInvalidParams, p)
		}
	}
	if p.SustainLvl < 0 || p.SustainLvl > 1 || math.IsNaN(p.SustainLvl) {
		return fmt.Errorf("%w: sustain must be in [0, 1]: %f", ErrInvalidParams, p.SustainLvl)
	}
	return nil
}

// Stage is the current envelope segment.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
	StageOff
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	case StageOff:
		return "off"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ADSR is a per-voice amplitude envelope. It holds no slices and never
// allocates, so it can be embedded by value in a voice.
type ADSR struct {
	stage      Stage
	level      float64
	attackStep float64
	decayStep  float64
	sustain    float64
	releaseLen float64
	releaseStp float64
}

// Reset loads new params at the given sample rate and returns to StageIdle.
// A zero-length segment completes within a single tick.
func (e *ADSR) Reset(p Params, sampleRate float64) {
	*e = ADSR{
		sustain:    p.SustainLvl,
		attackStep: stepFor(1, p.AttackSec, sampleRate),
		decayStep:  stepFor(1-p.SustainLvl, p.DecaySec, sampleRate),
		releaseLen: p.ReleaseSec * sampleRate,
	}
}

func stepFor(span, seconds, sampleRate float64) float64 {
	frames := seconds * sampleRate
	if frames < 1 {
		return 0
	}
	return span / frames
}

// NoteOn starts the attack segment from silence.
func (e *ADSR) NoteOn() {
	e.level = 0
	e.stage = StageAttack
}

// NoteOff starts the release segment from the current level.
func (e *ADSR) NoteOff() {
	switch e.stage {
	case StageIdle, StageOff, StageRelease:
		return
	}
	e.stage = StageRelease
	e.releaseStp = 0
	if e.releaseLen >= 1 {
		e.releaseStp = e.level / e.releaseLen
	}
}

// ReleaseIn forces a release that reaches silence after the given number of
// samples, regardless of the configured release time.
func (e *ADSR) ReleaseIn(samples int) {
	if e.stage == StageIdle || e.stage == StageOff {
		return
	}
	e.stage = StageRelease
	e.releaseStp = 0
	if samples > 0 {
		e.releaseStp = e.level / float64(samples)
	}
}

// Kill silences the envelope immediately.
func (e *ADSR) Kill() {
	e.level = 0
	e.stage = StageOff
}

// Tick advances the envelope by one sample and returns the new level.
func (e *ADSR) Tick() float32 {
	switch e.stage {
	case StageAttack:
		if e.attackStep <= 0 {
			e.level = 1
		} else {
			e.level += e.attackStep
		}
		if e.level >= 1 {
			e.level = 1
			e.stage = StageDecay
		}
	case StageDecay:
		if e.decayStep <= 0 {
			e.level = e.sustain
		} else {
			e.level -= e.decayStep
		}
		if e.level <= e.sustain {
			e.level = e.sustain
			e.stage = StageSustain
		}
	case StageSustain:
		e.level = e.sustain
	case StageRelease:
		if e.releaseStp <= 0 {
			e.level = 0
		} else {
			e.level -= e.releaseStp
		}
		if e.level <= 0.0001 {
			e.level = 0
			e.stage = StageOff
		}
	default:
		e.level = 0
	}
	return float32(e.level)
}

func (e *ADSR) Stage() Stage { return e.stage }

func (e *ADSR) Level() float64 { return e.level }

// Done reports whether the release segment has completed.
func (e *ADSR) Done() bool { return e.stage == StageOff }
