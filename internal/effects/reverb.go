package effects

// ReverbParams configures the Schroeder reverb. RoomSize scales the comb
// lengths, Feedback the decay.
type ReverbParams struct {
	RoomSize float32
	Feedback float32
	Wet      float32
}

func DefaultReverbParams() ReverbParams {
	return ReverbParams{RoomSize: 0.5, Feedback: 0.7, Wet: 0.25}
}

// Reverb implements a Schroeder-style reverb with four comb filters and two
// allpass filters on a mono sum.
type Reverb struct {
	combs   [4]combFilter
	allpass [2]allpassFilter
	wet     float32
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

func NewReverb(sampleRate int, p ReverbParams) *Reverb {
	base := max(int(float32(sampleRate)*p.RoomSize*0.05), 10)
	fb := clamp(p.Feedback, 0, 0.95)
	r := &Reverb{wet: clamp(p.Wet, 0, 1)}
	// Mutually prime-ish ratios keep the combs from reinforcing each other.
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = combFilter{buf: make([]float32, combLens[i]), fb: fb}
	}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range r.allpass {
		r.allpass[i] = allpassFilter{buf: make([]float32, max(apLens[i], 1)), fb: 0.5}
	}
	return r
}

func (rv *Reverb) ProcessBlock(l, r []float32) {
	n := min(len(l), len(r))
	for i := 0; i < n; i++ {
		mono := (l[i] + r[i]) * 0.5
		var out float32
		for c := range rv.combs {
			out += rv.combs[c].process(mono)
		}
		out *= 0.25
		for a := range rv.allpass {
			out = rv.allpass[a].process(out)
		}
		l[i] = l[i]*(1-rv.wet) + out*rv.wet
		r[i] = r[i]*(1-rv.wet) + out*rv.wet
	}
}

func (rv *Reverb) Reset() {
	for i := range rv.combs {
		clear(rv.combs[i].buf)
		rv.combs[i].pos = 0
	}
	for i := range rv.allpass {
		clear(rv.allpass[i].buf)
		rv.allpass[i].pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
