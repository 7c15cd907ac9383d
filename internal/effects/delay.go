package effects

// DelayParams configures a stereo feedback delay.
type DelayParams struct {
	TimeMs   float64
	Feedback float32 // 0..0.95
	Cross    float32 // cross-channel feedback 0..1
	Wet      float32 // 0..1
}

func DefaultDelayParams() DelayParams {
	return DelayParams{TimeMs: 250, Feedback: 0.4, Cross: 0.2, Wet: 0.3}
}

// Delay implements a simple stereo delay with feedback and cross-channel mixing.
type Delay struct {
	bufL, bufR []float32
	pos        int
	feedback   float32
	cross      float32
	wet        float32
}

func NewDelay(sampleRate int, p DelayParams) *Delay {
	samples := int(p.TimeMs * float64(sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	return &Delay{
		bufL:     make([]float32, samples),
		bufR:     make([]float32, samples),
		feedback: clamp(p.Feedback, 0, 0.95),
		cross:    clamp(p.Cross, 0, 1),
		wet:      clamp(p.Wet, 0, 1),
	}
}

func (d *Delay) ProcessBlock(l, r []float32) {
	n := min(len(l), len(r))
	for i := 0; i < n; i++ {
		delL := d.bufL[d.pos]
		delR := d.bufR[d.pos]
		fbL := delL*d.feedback*(1-d.cross) + delR*d.feedback*d.cross
		fbR := delR*d.feedback*(1-d.cross) + delL*d.feedback*d.cross
		d.bufL[d.pos] = l[i] + fbL
		d.bufR[d.pos] = r[i] + fbR
		d.pos++
		if d.pos >= len(d.bufL) {
			d.pos = 0
		}
		l[i] = l[i]*(1-d.wet) + delL*d.wet
		r[i] = r[i]*(1-d.wet) + delR*d.wet
	}
}

func (d *Delay) Reset() {
	clear(d.bufL)
	clear(d.bufR)
	d.pos = 0
}
