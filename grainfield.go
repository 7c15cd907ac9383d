// Package grainfield is a real-time granular synthesis engine. Control
// goroutines schedule voices at absolute sample times; one audio goroutine
// renders fixed-size blocks, starting each voice on its exact sample.
package grainfield

import (
	"github.com/cbegin/grainfield-go/internal/effects"
	"github.com/cbegin/grainfield-go/internal/envelope"
	"github.com/cbegin/grainfield-go/internal/grain"
	"github.com/cbegin/grainfield-go/internal/lfo"
	"github.com/cbegin/grainfield-go/internal/sched"
	"github.com/cbegin/grainfield-go/internal/window"
)

type (
	Buffer         = grain.Buffer
	Source         = grain.Source
	SourceKind     = grain.Kind
	GrainSpec      = grain.Spec
	Path           = grain.Path
	FixedHopParams = grain.FixedHopParams
	BurstParams    = grain.BurstParams
	PathParams     = grain.PathParams
	Interp         = grain.Interp

	EnvelopeParams = envelope.Params

	WindowShape = window.Shape
	WindowCache = window.Cache
	WindowKey   = window.Key

	LatePolicy = sched.LatePolicy

	DelayParams   = effects.DelayParams
	ReverbParams  = effects.ReverbParams
	LimiterParams = effects.LimiterParams
	AutoPanParams = effects.AutoPanParams
	LFOShape      = lfo.Shape
)

const (
	Rectangular = window.Rectangular
	Hann        = window.Hann
	Hamming     = window.Hamming
	Blackman    = window.Blackman
	Triangular  = window.Triangular
	Sine        = window.Sine
	Welch       = window.Welch

	InterpLinear = grain.InterpLinear
	InterpCubic  = grain.InterpCubic

	LateDrop  = sched.LateDrop
	LateClamp = sched.LateClamp

	LFOSine     = lfo.Sine
	LFOTriangle = lfo.Triangle
	LFOSquare   = lfo.Square
	LFOSaw      = lfo.Saw
	LFORandom   = lfo.Random
)

func NewMonoBuffer(samples []float32) (*Buffer, error) { return grain.NewMonoBuffer(samples) }

func NewBuffer(channels ...[]float32) (*Buffer, error) { return grain.NewBuffer(channels...) }

func NewInterleavedBuffer(samples []float32, channels int) (*Buffer, error) {
	return grain.NewInterleavedBuffer(samples, channels)
}

func NewPath(specs ...GrainSpec) (*Path, error) { return grain.NewPath(specs...) }

func NewWindowCache() *WindowCache { return window.NewCache() }

func ParseWindowShape(name string) (WindowShape, error) { return window.ParseShape(name) }

func DefaultFixedHopParams() FixedHopParams { return grain.DefaultFixedHopParams() }
func DefaultBurstParams() BurstParams       { return grain.DefaultBurstParams() }
func DefaultEnvelope() EnvelopeParams       { return envelope.DefaultParams() }

// InstantEnvelope opens at full level on the first sample and closes at once
// on release.
func InstantEnvelope() EnvelopeParams { return envelope.Instant() }

func DefaultDelayParams() DelayParams     { return effects.DefaultDelayParams() }
func DefaultReverbParams() ReverbParams   { return effects.DefaultReverbParams() }
func DefaultLimiterParams() LimiterParams { return effects.DefaultLimiterParams() }
func DefaultAutoPanParams() AutoPanParams { return effects.DefaultAutoPanParams() }

func ParseLFOShape(name string) (LFOShape, error) { return lfo.ParseShape(name) }

// PanGains returns the equal-power left/right gains for pan in [-1, 1].
func PanGains(pan float64) (float32, float32) { return grain.PanGains(pan) }
