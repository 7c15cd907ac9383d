package window

import (
	"fmt"
	"math"
	"strings"
)

const twoPi = math.Pi * 2

// Shape selects the window function applied across a grain.
type Shape int

const (
	Rectangular Shape = iota
	Hann
	Hamming
	Blackman
	Triangular
	Sine
	Welch
	shapeCount
)

var shapeNames = [shapeCount]string{
	Rectangular: "rectangular",
	Hann:        "hann",
	Hamming:     "hamming",
	Blackman:    "blackman",
	Triangular:  "triangular",
	Sine:        "sine",
	Welch:       "welch",
}

func (s Shape) String() string {
	if s < 0 || s >= shapeCount {
		return fmt.Sprintf("Shape(%d)", int(s))
	}
	return shapeNames[s]
}

// Valid reports whether s names a known window function.
func (s Shape) Valid() bool {
	return s >= 0 && s < shapeCount
}

// ParseShape maps a name such as "hann" or "rect" to a Shape.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rect", "rectangular", "unity", "box":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "tri", "triangle", "triangular":
		return Triangular, nil
	case "sine", "cosine":
		return Sine, nil
	case "welch":
		return Welch, nil
	}
	return 0, fmt.Errorf("window %q: %w", name, ErrUnknownShape)
}

// Curve is an immutable window envelope. The zero value is an empty curve.
type Curve struct {
	shape  Shape
	values []float32
}

// Shape returns the window function the curve was generated from.
func (c Curve) Shape() Shape { return c.shape }

// Len returns the number of points in the curve.
func (c Curve) Len() int { return len(c.values) }

// At returns the curve value at index i. i must be in [0, Len()).
func (c Curve) At(i int) float32 { return c.values[i] }

// Values returns a copy of the curve points.
func (c Curve) Values() []float32 {
	out := make([]float32, len(c.values))
	copy(out, c.values)
	return out
}

// Generate computes a curve without caching it. Most callers want
// (*Cache).GetOrCreate instead.
func Generate(shape Shape, length int) (Curve, error) {
	if !shape.Valid() {
		return Curve{}, fmt.Errorf("window %v: %w", shape, ErrUnknownShape)
	}
	if length <= 0 {
		return Curve{}, fmt.Errorf("window length %d: %w", length, ErrInvalidLength)
	}
	values := make([]float32, length)
	if length == 1 {
		values[0] = 1
		return Curve{shape: shape, values: values}, nil
	}
	n := float64(length - 1)
	for i := range values {
		x := float64(i)
		var v float64
		switch shape {
		case Rectangular:
			v = 1
		case Hann:
			v = 0.5 * (1 - math.Cos(twoPi*x/n))
		case Hamming:
			v = 0.54 - 0.46*math.Cos(twoPi*x/n)
		case Blackman:
			v = 0.42 - 0.5*math.Cos(twoPi*x/n) + 0.08*math.Cos(2*twoPi*x/n)
		case Triangular:
			v = 1 - math.Abs(2*x/n-1)
		case Sine:
			v = math.Sin(math.Pi * x / n)
		case Welch:
			d := 2*x/n - 1
			v = 1 - d*d
		}
		if v < 0 {
			// Blackman dips a hair below zero at the edges.
			v = 0
		}
		values[i] = float32(v)
	}
	return Curve{shape: shape, values: values}, nil
}
