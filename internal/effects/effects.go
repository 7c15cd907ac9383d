// Package effects is the master bus: block-based stereo processors applied
// after the voice mix.
package effects

// Effect processes a stereo block in place. Implementations must not
// allocate in ProcessBlock.
type Effect interface {
	ProcessBlock(l, r []float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effect
}

func NewChain(effects ...Effect) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) ProcessBlock(l, r []float32) {
	for _, e := range c.effects {
		e.ProcessBlock(l, r)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effect) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// Clamp hard-limits every sample of the block to [-1, 1].
func Clamp(l, r []float32) {
	for i := range l {
		l[i] = clamp(l[i], -1, 1)
	}
	for i := range r {
		r[i] = clamp(r[i], -1, 1)
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
