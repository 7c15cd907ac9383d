package effects

import "math"

// LimiterParams configures the peak limiter. CeilingDB is the output ceiling
// in dBFS, ReleaseMs how fast gain recovers after a peak.
type LimiterParams struct {
	CeilingDB float64
	ReleaseMs float64
}

func DefaultLimiterParams() LimiterParams {
	return LimiterParams{CeilingDB: -1, ReleaseMs: 80}
}

// Limiter is a stereo-linked peak limiter with instant attack. Dense grain
// clouds sum well past full scale; this keeps them under the ceiling without
// the hard edges of the final clamp.
type Limiter struct {
	ceiling float32
	release float32 // coefficient
	gain    float32
}

func NewLimiter(sampleRate int, p LimiterParams) *Limiter {
	releaseMs := p.ReleaseMs
	if releaseMs <= 0 {
		releaseMs = 1
	}
	return &Limiter{
		ceiling: float32(math.Pow(10, p.CeilingDB/20)),
		release: float32(1.0 - math.Exp(-1.0/(releaseMs*float64(sampleRate)/1000.0))),
		gain:    1,
	}
}

func (lm *Limiter) ProcessBlock(l, r []float32) {
	n := min(len(l), len(r))
	for i := 0; i < n; i++ {
		peak := max(abs32(l[i]), abs32(r[i]))
		target := float32(1)
		if peak > lm.ceiling {
			target = lm.ceiling / peak
		}
		if target < lm.gain {
			lm.gain = target
		} else {
			lm.gain += lm.release * (target - lm.gain)
		}
		l[i] *= lm.gain
		r[i] *= lm.gain
	}
}

// Gain is the gain applied to the most recent sample.
func (lm *Limiter) Gain() float32 { return lm.gain }

func (lm *Limiter) Reset() { lm.gain = 1 }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
