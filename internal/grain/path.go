package grain

import (
	"fmt"
	"math"
)

// Spec places one grain. Pitch is a hint: zero means "no transposition".
// TimeOffset is relative to the owning path, not absolute.
type Spec struct {
	SourceIndex float64
	Length      int
	Pitch       float64
	Gain        float64
	Pan         float64
	TimeOffset  int64
}

func (s Spec) validate() error {
	switch {
	case s.Length <= 0:
		return fmt.Errorf("%w: grain length must be > 0: %d", ErrInvalidParams, s.Length)
	case s.Pitch < 0 || math.IsNaN(s.Pitch) || math.IsInf(s.Pitch, 0):
		return fmt.Errorf("%w: pitch must be >= 0: %f", ErrInvalidParams, s.Pitch)
	case s.Pan < -1 || s.Pan > 1 || math.IsNaN(s.Pan):
		return fmt.Errorf("%w: pan must be in [-1, 1]: %f", ErrInvalidParams, s.Pan)
	case math.IsNaN(s.Gain) || math.IsInf(s.Gain, 0):
		return fmt.Errorf("%w: gain must be finite: %f", ErrInvalidParams, s.Gain)
	case math.IsNaN(s.SourceIndex) || math.IsInf(s.SourceIndex, 0):
		return fmt.Errorf("%w: source index must be finite: %f", ErrInvalidParams, s.SourceIndex)
	}
	return nil
}

// Path is an ordered, immutable sequence of grain placements.
type Path struct {
	specs []Spec
}

// NewPath copies specs into a Path. Time offsets must be non-decreasing.
func NewPath(specs ...Spec) (*Path, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyPath
	}
	cp := make([]Spec, len(specs))
	copy(cp, specs)
	for i, s := range cp {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("grain %d: %w", i, err)
		}
		if i > 0 && s.TimeOffset < cp[i-1].TimeOffset {
			return nil, fmt.Errorf("grain %d at %d after %d: %w", i, s.TimeOffset, cp[i-1].TimeOffset, ErrUnorderedPath)
		}
	}
	return &Path{specs: cp}, nil
}

func (p *Path) Len() int { return len(p.specs) }

func (p *Path) At(i int) Spec { return p.specs[i] }
