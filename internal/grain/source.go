package grain

import (
	"fmt"
	"math"

	"github.com/cbegin/grainfield-go/internal/block"
	"github.com/cbegin/grainfield-go/internal/window"
)

// Kind tags the grain layout strategy of a Source.
type Kind int

const (
	KindFixedHop Kind = iota
	KindBurst
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindFixedHop:
		return "fixed-hop"
	case KindBurst:
		return "burst"
	case KindPath:
		return "path"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Interp selects how fractional read positions are resolved.
type Interp int

const (
	InterpLinear Interp = iota
	InterpCubic
)

// FixedHopParams lays out Count grains on a uniform grid: grain g starts
// g*TimeHop samples after the note start and reads from BaseIndex + g*IndexHop.
type FixedHopParams struct {
	BaseIndex   float64
	IndexHop    float64
	TimeHop     int
	GrainLength int
	Count       int
	Pitch       float64
	Gain        float64
	Window      window.Shape
	Interp      Interp
}

func DefaultFixedHopParams() FixedHopParams {
	return FixedHopParams{
		IndexHop:    1024,
		TimeHop:     1024,
		GrainLength: 2048,
		Count:       16,
		Pitch:       1,
		Gain:        1,
		Window:      window.Hann,
	}
}

// BurstParams fires Count grains Hop samples apart for each of Bursts
// triggers. Burst b reads from BaseIndex + b*BurstIndexHop; grains inside a
// burst advance by IndexHop.
type BurstParams struct {
	BaseIndex     float64
	Count         int
	Hop           int
	IndexHop      float64
	Bursts        int
	Interval      int
	BurstIndexHop float64
	GrainLength   int
	Pitch         float64
	Gain          float64
	Window        window.Shape
	Interp        Interp
}

func DefaultBurstParams() BurstParams {
	return BurstParams{
		Count:       8,
		Hop:         256,
		Bursts:      1,
		GrainLength: 1024,
		Pitch:       1,
		Gain:        1,
		Window:      window.Hann,
	}
}

// PathParams configures a path-driven source. Per-grain placement comes from
// the Path itself.
type PathParams struct {
	Window window.Shape
	Interp Interp
}

// Source renders windowed grains from a Buffer. A Source carries playback
// state (the note start) and must be owned by one voice at a time; use Clone
// to derive an independent copy sharing the same immutable data.
type Source struct {
	kind   Kind
	buf    *Buffer
	interp Interp

	count    int
	grainLen int
	curve    window.Curve
	base     float64
	indexHop float64
	timeHop  int64
	pitch    float64
	gain     float32

	perBurst      int
	interval      int64
	burstIndexHop float64

	path   *Path
	curves []window.Curve
	panL   []float32
	panR   []float32
	origin int64
	maxLen int

	length    int64
	noteStart int64
	seeked    bool
}

// grainInfo is the resolved placement of one grain, relative to the note start.
type grainInfo struct {
	start  int64
	src    float64
	length int
	pitch  float64
	gain   float32
	panL   float32
	panR   float32
	curve  window.Curve
}

// NewFixedHop builds a uniform linear-scan source.
func NewFixedHop(cache *window.Cache, buf *Buffer, p FixedHopParams) (*Source, error) {
	if err := checkInputs(cache, buf); err != nil {
		return nil, err
	}
	switch {
	case p.Count <= 0:
		return nil, fmt.Errorf("%w: count must be > 0: %d", ErrInvalidParams, p.Count)
	case p.TimeHop <= 0:
		return nil, fmt.Errorf("%w: time hop must be > 0: %d", ErrInvalidParams, p.TimeHop)
	case p.GrainLength <= 0:
		return nil, fmt.Errorf("%w: grain length must be > 0: %d", ErrInvalidParams, p.GrainLength)
	}
	if err := checkScalars(p.BaseIndex, p.IndexHop, p.Pitch, p.Gain); err != nil {
		return nil, err
	}
	curve, err := cache.GetOrCreate(p.Window, p.GrainLength)
	if err != nil {
		return nil, err
	}
	s := &Source{
		kind:     KindFixedHop,
		buf:      buf,
		interp:   p.Interp,
		count:    p.Count,
		grainLen: p.GrainLength,
		curve:    curve,
		base:     p.BaseIndex,
		indexHop: p.IndexHop,
		timeHop:  int64(p.TimeHop),
		pitch:    p.Pitch,
		gain:     float32(p.Gain),
		maxLen:   p.GrainLength,
	}
	s.length = s.computeLength()
	return s, nil
}

// NewBurst builds a multi-grain-per-trigger source.
func NewBurst(cache *window.Cache, buf *Buffer, p BurstParams) (*Source, error) {
	if err := checkInputs(cache, buf); err != nil {
		return nil, err
	}
	if p.Bursts == 0 {
		p.Bursts = 1
	}
	switch {
	case p.Count <= 0:
		return nil, fmt.Errorf("%w: burst count must be > 0: %d", ErrInvalidParams, p.Count)
	case p.Hop < 0:
		return nil, fmt.Errorf("%w: burst hop must be >= 0: %d", ErrInvalidParams, p.Hop)
	case p.Bursts < 0:
		return nil, fmt.Errorf("%w: bursts must be > 0: %d", ErrInvalidParams, p.Bursts)
	case p.GrainLength <= 0:
		return nil, fmt.Errorf("%w: grain length must be > 0: %d", ErrInvalidParams, p.GrainLength)
	case p.Bursts > 1 && p.Interval <= 0:
		return nil, fmt.Errorf("%w: burst interval must be > 0: %d", ErrInvalidParams, p.Interval)
	case p.Bursts > 1 && p.Interval < (p.Count-1)*p.Hop:
		return nil, fmt.Errorf("%w: burst interval %d shorter than burst span %d", ErrInvalidParams, p.Interval, (p.Count-1)*p.Hop)
	}
	if err := checkScalars(p.BaseIndex, p.IndexHop+p.BurstIndexHop, p.Pitch, p.Gain); err != nil {
		return nil, err
	}
	curve, err := cache.GetOrCreate(p.Window, p.GrainLength)
	if err != nil {
		return nil, err
	}
	s := &Source{
		kind:          KindBurst,
		buf:           buf,
		interp:        p.Interp,
		count:         p.Count * p.Bursts,
		grainLen:      p.GrainLength,
		curve:         curve,
		base:          p.BaseIndex,
		indexHop:      p.IndexHop,
		timeHop:       int64(p.Hop),
		pitch:         p.Pitch,
		gain:          float32(p.Gain),
		perBurst:      p.Count,
		interval:      int64(p.Interval),
		burstIndexHop: p.BurstIndexHop,
		maxLen:        p.GrainLength,
	}
	s.length = s.computeLength()
	return s, nil
}

// NewPathSource builds a source whose grains follow path. Window curves for
// every distinct grain length are resolved here, off the audio goroutine.
func NewPathSource(cache *window.Cache, buf *Buffer, path *Path, p PathParams) (*Source, error) {
	if err := checkInputs(cache, buf); err != nil {
		return nil, err
	}
	if path == nil || path.Len() == 0 {
		return nil, ErrEmptyPath
	}
	s := &Source{
		kind:   KindPath,
		buf:    buf,
		interp: p.Interp,
		count:  path.Len(),
		path:   path,
		origin: path.At(0).TimeOffset,
	}
	if err := s.resolvePath(cache, p.Window, 0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) resolvePath(cache *window.Cache, shape window.Shape, lengthOverride int) error {
	s.curves = make([]window.Curve, s.count)
	s.panL = make([]float32, s.count)
	s.panR = make([]float32, s.count)
	s.maxLen = 0
	for i := 0; i < s.count; i++ {
		spec := s.path.At(i)
		length := spec.Length
		if lengthOverride > 0 {
			length = lengthOverride
		}
		curve, err := cache.GetOrCreate(shape, length)
		if err != nil {
			return fmt.Errorf("grain %d: %w", i, err)
		}
		s.curves[i] = curve
		s.panL[i], s.panR[i] = PanGains(spec.Pan)
		s.maxLen = max(s.maxLen, length)
	}
	s.length = s.computeLength()
	return nil
}

func checkInputs(cache *window.Cache, buf *Buffer) error {
	if buf == nil {
		return ErrNilBuffer
	}
	if cache == nil {
		return fmt.Errorf("%w: nil window cache", ErrInvalidParams)
	}
	return nil
}

func checkScalars(base, hop, pitch, gain float64) error {
	for _, v := range []float64{base, hop, gain} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %f", ErrInvalidParams, v)
		}
	}
	if pitch <= 0 || math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return fmt.Errorf("%w: pitch ratio must be > 0: %f", ErrInvalidParams, pitch)
	}
	return nil
}

// WithWindow returns a copy of s using a different window. A positive length
// also replaces the grain length (for every grain of a path source).
func (s *Source) WithWindow(cache *window.Cache, shape window.Shape, length int) (*Source, error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: nil window cache", ErrInvalidParams)
	}
	cp := s.Clone()
	if cp.kind == KindPath {
		if err := cp.resolvePath(cache, shape, length); err != nil {
			return nil, err
		}
		return cp, nil
	}
	if length <= 0 {
		length = cp.grainLen
	}
	curve, err := cache.GetOrCreate(shape, length)
	if err != nil {
		return nil, err
	}
	cp.curve = curve
	cp.grainLen = length
	cp.maxLen = length
	cp.length = cp.computeLength()
	return cp, nil
}

// Clone returns an unseeked copy sharing the buffer, curves and path.
func (s *Source) Clone() *Source {
	cp := *s
	cp.seeked = false
	cp.noteStart = 0
	return &cp
}

func (s *Source) Kind() Kind       { return s.kind }
func (s *Source) Buffer() *Buffer  { return s.buf }
func (s *Source) GrainCount() int  { return s.count }
func (s *Source) NoteStart() int64 { return s.noteStart }

// LengthSamples is the span from the first grain start to the last grain end.
func (s *Source) LengthSamples() int64 { return s.length }

// SeekTo sets the note start: grain offsets are measured from this absolute
// sample. It may be called again to retrigger.
func (s *Source) SeekTo(noteStart int64) {
	s.noteStart = noteStart
	s.seeked = true
}

func (s *Source) computeLength() int64 {
	switch s.kind {
	case KindPath:
		var end int64
		for i := 0; i < s.count; i++ {
			g := s.grain(i)
			end = max(end, g.start+int64(g.length))
		}
		return end
	default:
		last := s.grain(s.count - 1)
		return last.start + int64(last.length)
	}
}

func (s *Source) grainStart(g int) int64 {
	switch s.kind {
	case KindBurst:
		b, k := g/s.perBurst, g%s.perBurst
		return int64(b)*s.interval + int64(k)*s.timeHop
	case KindPath:
		return s.path.specs[g].TimeOffset - s.origin
	default:
		return int64(g) * s.timeHop
	}
}

func (s *Source) grain(g int) grainInfo {
	switch s.kind {
	case KindBurst:
		b, k := g/s.perBurst, g%s.perBurst
		return grainInfo{
			start:  int64(b)*s.interval + int64(k)*s.timeHop,
			src:    s.base + float64(b)*s.burstIndexHop + float64(k)*s.indexHop,
			length: s.grainLen,
			pitch:  s.pitch,
			gain:   s.gain,
			panL:   1,
			panR:   1,
			curve:  s.curve,
		}
	case KindPath:
		spec := &s.path.specs[g]
		pitch := spec.Pitch
		if pitch == 0 {
			pitch = 1
		}
		return grainInfo{
			start:  spec.TimeOffset - s.origin,
			src:    spec.SourceIndex,
			length: s.curves[g].Len(),
			pitch:  pitch,
			gain:   float32(spec.Gain),
			panL:   s.panL[g],
			panR:   s.panR[g],
			curve:  s.curves[g],
		}
	default:
		return grainInfo{
			start:  int64(g) * s.timeHop,
			src:    s.base + float64(g)*s.indexHop,
			length: s.grainLen,
			pitch:  s.pitch,
			gain:   s.gain,
			panL:   1,
			panR:   1,
			curve:  s.curve,
		}
	}
}

// firstCandidate returns the lowest grain index that could still be sounding
// at note-relative sample rel. Grain starts are non-decreasing for every kind.
func (s *Source) firstCandidate(rel int64) int {
	lo, hi := 0, s.count
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s.grainStart(mid)+int64(s.maxLen) <= rel {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// RenderBlock adds every grain overlapping [blockStart, blockStart+blockSize)
// into outL and outR. Nothing is written before SeekTo has been called.
func (s *Source) RenderBlock(blockStart int64, blockSize int, outL, outR []float32) {
	if !s.seeked {
		return
	}
	blockSize = min(blockSize, len(outL), len(outR))
	if blockSize <= 0 {
		return
	}
	rel := blockStart - s.noteStart
	relEnd := rel + int64(blockSize)
	for g := s.firstCandidate(rel); g < s.count; g++ {
		gr := s.grain(g)
		if gr.start >= relEnd {
			break
		}
		abs := s.noteStart + gr.start
		r, ok := block.Overlap(blockStart, blockSize, abs, abs+int64(gr.length))
		if !ok {
			continue
		}
		offset := int(blockStart + int64(r.Start) - abs)
		s.mixGrain(&gr, offset, outL[r.Start:r.End], outR[r.Start:r.End])
	}
}

func (s *Source) mixGrain(gr *grainInfo, offset int, outL, outR []float32) {
	left, right := s.buf.stereo()
	mono := len(s.buf.channels) == 1
	limit := float64(s.buf.frames - 1)
	for i := range outL {
		off := offset + i
		pos := gr.src + float64(off)*gr.pitch
		if pos < 0 || pos >= limit {
			continue
		}
		idx := int(pos)
		frac := float32(pos - float64(idx))
		w := gr.curve.At(off) * gr.gain
		var l, r float32
		if s.interp == InterpCubic {
			l = cubicAt(left, idx, frac)
			if mono {
				r = l
			} else {
				r = cubicAt(right, idx, frac)
			}
		} else {
			l = left[idx] + (left[idx+1]-left[idx])*frac
			if mono {
				r = l
			} else {
				r = right[idx] + (right[idx+1]-right[idx])*frac
			}
		}
		outL[i] += l * w * gr.panL
		outR[i] += r * w * gr.panR
	}
}
