package effects

import (
	"math"

	"github.com/cbegin/grainfield-go/internal/lfo"
)

// AutoPanParams sweeps the stereo image with an LFO. Depth 1 swings fully
// between the channels.
type AutoPanParams struct {
	RateHz float64
	Depth  float64 // 0..1
	Shape  lfo.Shape
}

func DefaultAutoPanParams() AutoPanParams {
	return AutoPanParams{RateHz: 0.25, Depth: 0.5, Shape: lfo.Sine}
}

// AutoPan applies an equal-power balance that follows its LFO. A centered
// LFO leaves the signal unchanged.
type AutoPan struct {
	osc *lfo.LFO
}

func NewAutoPan(sampleRate int, p AutoPanParams) *AutoPan {
	depth := math.Max(0, math.Min(1, p.Depth))
	return &AutoPan{osc: lfo.New(p.Shape, p.RateHz, depth, float64(sampleRate))}
}

func (a *AutoPan) ProcessBlock(l, r []float32) {
	n := min(len(l), len(r))
	for i := 0; i < n; i++ {
		angle := (a.osc.Next() + 1) * math.Pi / 4
		l[i] *= float32(math.Cos(angle) * math.Sqrt2)
		r[i] *= float32(math.Sin(angle) * math.Sqrt2)
	}
}

func (a *AutoPan) Reset() { a.osc.Reset() }
