package grain

import "math"

// PanGains returns the equal-power gain pair for pan in [-1, 1]:
// angle = (pan+1)*pi/4, left = cos(angle), right = sin(angle).
func PanGains(pan float64) (float32, float32) {
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}
	angle := (pan + 1) * math.Pi / 4
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

// cubicAt reads x[idx+frac] with Catmull-Rom interpolation. Neighbours past
// either end of x are clamped to the edge sample; idx+1 must be in range.
func cubicAt(x []float32, idx int, frac float32) float32 {
	y0 := x[max(idx-1, 0)]
	y1 := x[idx]
	y2 := x[idx+1]
	y3 := x[min(idx+2, len(x)-1)]
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	return a0*frac*frac*frac + a1*frac*frac + a2*frac + y1
}
